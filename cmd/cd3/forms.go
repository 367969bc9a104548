package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/cd3-tool/cd3/internal/types"
	"github.com/cd3-tool/cd3/internal/ui"
)

func requireTerminal(what string) error {
	if !ui.IsTerminal() {
		return fmt.Errorf("%s needs an interactive terminal", what)
	}
	return nil
}

// runAddForm asks for an item's name and link, prefilled from flags.
func runAddForm(name, link string) (string, string, error) {
	if err := requireTerminal("--form"); err != nil {
		return "", "", err
	}
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Name").
				Description("What is the work item? (required)").
				Placeholder("e.g., Self-serve refunds").
				Value(&name).
				Validate(func(s string) error {
					return types.ValidateName(strings.TrimSpace(s))
				}),
			huh.NewInput().
				Title("Link").
				Description("Ticket or doc URL (optional)").
				Placeholder("https://").
				Value(&link).
				Validate(func(s string) error {
					if s = strings.TrimSpace(s); s != "" && !types.IsValidLink(s) {
						return fmt.Errorf("link must be an http or https URL")
					}
					return nil
				}),
		),
	)
	if err := form.Run(); err != nil {
		return "", "", err
	}
	return name, link, nil
}

// levelOptions lists the three buckets of a category by title.
func levelOptions(table types.BucketTable, c types.Category) []huh.Option[types.Level] {
	opts := make([]huh.Option[types.Level], 0, 3)
	for _, l := range types.Levels() {
		label := strconv.Itoa(int(l))
		if b, ok := table.Get(c, l); ok {
			label = b.Title
			if b.Description != "" {
				label += " - " + b.Description
			}
		}
		opts = append(opts, huh.NewOption(label, l))
	}
	return opts
}

// askLevel asks for one rating of one item. skip reports the user chose to
// leave it for later.
func askLevel(table types.BucketTable, c types.Category, it *types.Item) (level types.Level, skip bool, err error) {
	opts := append(levelOptions(table, c), huh.NewOption("Skip for now", types.LevelUnset))
	if it.Rating(c).IsSet() {
		level = it.Rating(c).Level()
	}
	title := fmt.Sprintf("%s: %s", ui.StageLabel(types.StageFor(c)), it.Name)
	err = huh.NewForm(huh.NewGroup(
		huh.NewSelect[types.Level]().
			Title(title).
			Options(opts...).
			Value(&level),
	)).Run()
	if err != nil {
		return 0, false, err
	}
	return level, level == types.LevelUnset, nil
}

// runSurveyForm collects vote counts for every survey dimension.
func runSurveyForm(labels map[types.ConfidenceLevel]string, start *types.ConfidenceSurvey) (*types.ConfidenceSurvey, error) {
	if err := requireTerminal("--form"); err != nil {
		return nil, err
	}
	if start == nil {
		start = types.NewConfidenceSurvey()
	}
	raw := make(map[types.SurveyDimension]map[types.ConfidenceLevel]*string)
	var groups []*huh.Group
	for _, d := range types.SurveyDimensions() {
		raw[d] = make(map[types.ConfidenceLevel]*string)
		var fields []huh.Field
		for _, l := range types.ConfidenceLevels() {
			v := strconv.Itoa(start.Votes(d)[l])
			raw[d][l] = &v
			label := labels[l]
			if label == "" {
				label = strconv.Itoa(int(l))
			}
			fields = append(fields, huh.NewInput().
				Title(fmt.Sprintf("%s votes: %s", d, label)).
				Value(raw[d][l]).
				Validate(validateVoteCount))
		}
		groups = append(groups, huh.NewGroup(fields...).
			Title(fmt.Sprintf("How confident is the team in the %s?", d)))
	}
	if err := huh.NewForm(groups...).Run(); err != nil {
		return nil, err
	}

	out := types.NewConfidenceSurvey()
	for d, levels := range raw {
		for l, v := range levels {
			n, _ := strconv.Atoi(strings.TrimSpace(*v))
			out.Votes(d)[l] = n
		}
	}
	return out, nil
}

func validateVoteCount(s string) error {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 0 {
		return fmt.Errorf("enter a whole number of votes")
	}
	return nil
}
