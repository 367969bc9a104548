package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cd3-tool/cd3/internal/engine"
	"github.com/cd3-tool/cd3/internal/types"
	"github.com/cd3-tool/cd3/internal/ui"
)

var surveyCmd = &cobra.Command{
	Use:     "survey",
	GroupID: GroupPrioritize,
	Short:   "Record how confident the team is in an item's ratings",
	Long: `A confidence survey counts votes from 1 (not confident) to 4 (very
confident) for the urgency, value and duration ratings and for the scope of
an item. Once an item is fully rated, its survey yields a confidence-weighted
CD3 next to the plain one.`,
}

var surveyOpenCmd = &cobra.Command{
	Use:   "open <item>",
	Short: "Start a survey for an item",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, it, err := resolveItem(args[0])
		if err != nil {
			return err
		}
		res, err := e.OpenSurvey(rootCtx, it.ID)
		return finish(cmd, res, err, "%s Survey open for %s; submit with: cd3 survey submit --form", ui.RenderPassIcon(), it.ID)
	},
}

// surveyItem picks the named item, or the one whose survey is open.
func surveyItem(args []string) (*engine.Engine, *types.Item, error) {
	if len(args) == 1 {
		return resolveItem(args[0])
	}
	e, err := mustEngine()
	if err != nil {
		return nil, nil, err
	}
	open := e.State().ActiveSurveyItemID
	if open == nil {
		return nil, nil, fmt.Errorf("no survey is open; name an item or run 'cd3 survey open <item>'")
	}
	it, err := e.Item(*open)
	return e, it, err
}

var surveySubmitCmd = &cobra.Command{
	Use:   "submit [item]",
	Short: "Record survey votes",
	Long: `Record survey votes for an item (default: the one whose survey is open).
Each dimension takes four comma-separated counts for levels 1 to 4.

Example:
  cd3 survey submit cd3-4f2 --urgency 0,1,3,2 --value 0,0,4,2 --duration 1,3,2,0 --scope 0,2,2,2`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, it, err := surveyItem(args)
		if err != nil {
			return err
		}
		var survey *types.ConfidenceSurvey
		if form, _ := cmd.Flags().GetBool("form"); form {
			survey, err = runSurveyForm(e.State().ConfidenceLevelLabels, it.ConfidenceSurvey)
		} else {
			survey, err = surveyFromFlags(cmd)
		}
		if err != nil {
			return err
		}
		res, err := e.SubmitSurvey(rootCtx, it.ID, survey)
		if w, ok := res.Get("confidenceWeightedCD3").(float64); ok {
			return finish(cmd, res, err, "%s Survey recorded for %s (confidence-weighted CD3 %s)", ui.RenderPassIcon(), it.ID, ui.FormatScore(w))
		}
		return finish(cmd, res, err, "%s Survey recorded for %s", ui.RenderPassIcon(), it.ID)
	},
}

func surveyFromFlags(cmd *cobra.Command) (*types.ConfidenceSurvey, error) {
	s := types.NewConfidenceSurvey()
	given := false
	for _, d := range types.SurveyDimensions() {
		raw, _ := cmd.Flags().GetString(string(d))
		if raw == "" {
			continue
		}
		votes, err := parseVotes(raw)
		if err != nil {
			return nil, fmt.Errorf("--%s: %w", d, err)
		}
		for l, n := range votes {
			s.Votes(d)[l] = n
		}
		given = true
	}
	if !given {
		return nil, fmt.Errorf("no votes given; use --urgency/--value/--duration/--scope or --form")
	}
	return s, nil
}

// parseVotes reads "a,b,c,d" as the vote counts of levels 1..4.
func parseVotes(raw string) (types.VoteCounts, error) {
	parts := strings.Split(raw, ",")
	if len(parts) != len(types.ConfidenceLevels()) {
		return nil, fmt.Errorf("want 4 comma-separated counts, got %q", raw)
	}
	votes := types.VoteCounts{}
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil || n < 0 {
			return nil, fmt.Errorf("invalid vote count %q", p)
		}
		votes[types.ConfidenceLevel(i+1)] = n
	}
	return votes, nil
}

var surveyDeleteCmd = &cobra.Command{
	Use:   "delete <item>",
	Short: "Discard an item's survey",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, it, err := resolveItem(args[0])
		if err != nil {
			return err
		}
		res, err := e.DeleteSurvey(rootCtx, it.ID)
		return finish(cmd, res, err, "%s Deleted survey of %s", ui.RenderPassIcon(), it.ID)
	},
}

var surveyCancelCmd = &cobra.Command{
	Use:   "cancel",
	Short: "Close the open survey without recording votes",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := mustEngine()
		if err != nil {
			return err
		}
		res, err := e.CancelSurvey(rootCtx)
		return finish(cmd, res, err, "%s Survey cancelled", ui.RenderPassIcon())
	},
}

func init() {
	for _, d := range types.SurveyDimensions() {
		surveySubmitCmd.Flags().String(string(d), "", fmt.Sprintf("Votes for %s confidence levels 1-4, e.g. 0,1,3,2", d))
	}
	surveySubmitCmd.Flags().Bool("form", false, "Enter the votes in an interactive form")

	surveyCmd.AddCommand(surveyOpenCmd, surveySubmitCmd, surveyDeleteCmd, surveyCancelCmd)
	rootCmd.AddCommand(surveyCmd)
}
