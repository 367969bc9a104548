package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/cd3-tool/cd3/internal/types"
	"github.com/cd3-tool/cd3/internal/ui"
)

// levelAliases are accepted alongside 0-3 and bucket titles.
var levelAliases = map[string]types.Level{
	"low": types.LevelLow, "l": types.LevelLow,
	"medium": types.LevelMedium, "med": types.LevelMedium, "m": types.LevelMedium,
	"high": types.LevelHigh, "h": types.LevelHigh,
	"days": types.LevelLow, "weeks": types.LevelMedium, "months": types.LevelHigh,
}

// parseLevelArg reads a level as a number, an alias or a bucket title.
func parseLevelArg(table types.BucketTable, c types.Category, s string) (types.Level, error) {
	if l, err := types.ParseLevel(s); err == nil {
		return l, nil
	}
	key := strings.ToLower(strings.TrimSpace(s))
	if l, ok := levelAliases[key]; ok {
		return l, nil
	}
	for _, l := range types.Levels() {
		if b, ok := table.Get(c, l); ok && strings.EqualFold(b.Title, strings.TrimSpace(s)) {
			return l, nil
		}
	}
	return 0, fmt.Errorf("invalid %s level %q (use 1-3, low/medium/high, or a bucket title)", c, s)
}

var setCmd = &cobra.Command{
	Use:     "set <item> <urgency|value|duration> <level>",
	GroupID: GroupPrioritize,
	Short:   "Rate an item in one category",
	Long: `Rate an item in one category. Levels are 1-3, low/medium/high, or the bucket
title (for duration: days/weeks/months). A category opens once its stage has
been reached; a rating can move between levels but cannot be cleared.`,
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, it, err := resolveItem(args[0])
		if err != nil {
			return err
		}
		c, err := types.ParseCategory(args[1])
		if err != nil {
			return err
		}
		level, err := parseLevelArg(e.State().Buckets, c, args[2])
		if err != nil {
			return err
		}
		res, err := e.SetItemProperty(rootCtx, it.ID, c, level)
		return finish(cmd, res, err, "%s %s %s = %d (CD3 %s)",
			ui.RenderPassIcon(), it.ID, c, level, ui.FormatScore(asFloat(res.Get("cd3"))))
	},
}

func asFloat(v any) float64 {
	f, _ := v.(float64)
	return f
}

var rateCmd = &cobra.Command{
	Use:     "rate [urgency|value|duration]",
	GroupID: GroupPrioritize,
	Short:   "Interactively rate the items still missing a category",
	Long: `Walk the parking lot, the items still missing a rating in the current
stage's category (or the one given), asking for each rating in turn.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := mustEngine()
		if err != nil {
			return err
		}
		c, ok := e.Stage().Category()
		if len(args) == 1 {
			if c, err = types.ParseCategory(args[0]); err != nil {
				return err
			}
			ok = true
		}
		if !ok {
			return fmt.Errorf("the %s stage has no rating; name a category or move to a rating stage", e.Stage())
		}
		if check := e.CanEdit(c); !check.OK {
			return check.Err()
		}
		if err := requireTerminal("rate"); err != nil {
			return err
		}

		rated, skipped := 0, 0
		for _, it := range e.Items() {
			if it.Rating(c).IsSet() {
				continue
			}
			level, skip, err := askLevel(e.State().Buckets, c, it)
			if errors.Is(err, huh.ErrUserAborted) {
				break
			}
			if err != nil {
				return err
			}
			if skip {
				skipped++
				continue
			}
			if _, err := e.SetItemProperty(rootCtx, it.ID, c, level); err != nil {
				return err
			}
			rated++
		}
		printf(cmd, "%s Rated %d items (%d skipped)\n", ui.RenderPassIcon(), rated, skipped)
		if check := e.CanAdvance(); check.OK {
			printf(cmd, "Next: cd3 stage next\n")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(setCmd, rateCmd)
}
