package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cd3-tool/cd3/internal/engine"
	"github.com/cd3-tool/cd3/internal/types"
	"github.com/cd3-tool/cd3/internal/ui"
)

var stageCmd = &cobra.Command{
	Use:     "stage",
	GroupID: GroupPrioritize,
	Short:   "Show or move through the workflow stages",
	Long: `The workflow runs Item Listing -> urgency -> value -> duration -> Results.
A stage can be left once every item has its rating; earlier stages can be
revisited at any time.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStageStatus(cmd)
	},
}

var stageStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the current stage and what blocks the next one",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStageStatus(cmd)
	},
}

func runStageStatus(cmd *cobra.Command) error {
	e, err := mustEngine()
	if err != nil {
		return err
	}
	state := e.State()
	check := e.CanAdvance()
	parking := e.ParkingLot()

	if jsonOutput {
		visited := make([]string, 0, len(state.VisitedStages))
		for _, s := range state.VisitedStages {
			visited = append(visited, string(s))
		}
		waiting := make([]string, 0, len(parking))
		for _, it := range parking {
			waiting = append(waiting, it.ID)
		}
		return outputJSON(cmd.OutOrStdout(), map[string]any{
			"stage":      string(state.CurrentStage),
			"visited":    visited,
			"locked":     state.Locked,
			"canAdvance": check,
			"parkingLot": waiting,
		})
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, ui.RenderStageBar(state))
	if check.OK {
		if next, ok := state.CurrentStage.Next(); ok {
			fmt.Fprintf(out, "%s Ready for %s: cd3 stage next\n", ui.RenderPassIcon(), ui.StageLabel(next))
		}
	} else {
		fmt.Fprintf(out, "%s %s\n", ui.RenderWarnIcon(), check.Reason)
	}
	if len(parking) > 0 {
		fmt.Fprintf(out, "\n%s (%d)\n", ui.RenderHeader("Still to rate"), len(parking))
		for _, it := range parking {
			fmt.Fprintf(out, "  %s %s\n", ui.RenderAccent(it.ID), it.Name)
		}
	}
	return nil
}

func stageResult(cmd *cobra.Command, res engine.Result, err error) error {
	to, _ := res.Get("to").(string)
	return finish(cmd, res, err, "%s Now in %s", ui.RenderPassIcon(), ui.StageLabel(types.Stage(to)))
}

var stageNextCmd = &cobra.Command{
	Use:   "next",
	Short: "Advance to the next stage",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := mustEngine()
		if err != nil {
			return err
		}
		res, err := e.Advance(rootCtx)
		return stageResult(cmd, res, err)
	},
}

var stageBackCmd = &cobra.Command{
	Use:   "back",
	Short: "Return to the previous stage",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := mustEngine()
		if err != nil {
			return err
		}
		res, err := e.Back(rootCtx)
		return stageResult(cmd, res, err)
	},
}

var stageGotoCmd = &cobra.Command{
	Use:   "goto <stage>",
	Short: "Jump to a stage (listing, urgency, value, duration, results)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := mustEngine()
		if err != nil {
			return err
		}
		target, err := types.ParseStage(args[0])
		if err != nil {
			return err
		}
		res, err := e.NavigateTo(rootCtx, target)
		return stageResult(cmd, res, err)
	},
}

func lockCommand(use, short string, locked bool) *cobra.Command {
	return &cobra.Command{
		Use:     use,
		GroupID: GroupPrioritize,
		Short:   short,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := mustEngine()
			if err != nil {
				return err
			}
			res, err := e.SetLocked(rootCtx, locked)
			verb := "Unlocked"
			if locked {
				verb = "Locked"
			}
			return finish(cmd, res, err, "%s %s ratings", ui.RenderPassIcon(), verb)
		},
	}
}

func init() {
	stageCmd.AddCommand(stageStatusCmd, stageNextCmd, stageBackCmd, stageGotoCmd)
	rootCmd.AddCommand(stageCmd,
		lockCommand("lock", "Only allow editing the current stage's category", true),
		lockCommand("unlock", "Allow editing every reached category", false),
	)
}
