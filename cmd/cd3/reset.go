package main

import (
	"fmt"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/cd3-tool/cd3/internal/ui"
)

var resetCmd = &cobra.Command{
	Use:     "reset",
	GroupID: GroupSetup,
	Short:   "Delete every item and start over",
	Long: `Delete every item and return the session to the Items stage with the
default buckets and confidence multipliers.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := mustEngine()
		if err != nil {
			return err
		}
		yes, _ := cmd.Flags().GetBool("yes")
		if !yes {
			if err := requireTerminal("confirming a reset"); err != nil {
				return hintError{err: err, hint: "Pass --yes to reset without a prompt"}
			}
			confirmed := false
			err := huh.NewConfirm().
				Title(fmt.Sprintf("Delete all %d items?", len(e.Items()))).
				Affirmative("Delete").
				Negative("Cancel").
				Value(&confirmed).
				Run()
			if err != nil {
				return err
			}
			if !confirmed {
				printf(cmd, "Reset cancelled\n")
				return nil
			}
		}
		res, err := e.ClearAll(rootCtx)
		return finish(cmd, res, err, "%s Session cleared", ui.RenderPassIcon())
	},
}

func init() {
	resetCmd.Flags().BoolP("yes", "y", false, "Skip the confirmation prompt")
	rootCmd.AddCommand(resetCmd)
}
