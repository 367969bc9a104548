package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cd3-tool/cd3/internal/engine"
	"github.com/cd3-tool/cd3/internal/sequence"
	"github.com/cd3-tool/cd3/internal/types"
	"github.com/cd3-tool/cd3/internal/ui"
)

var resultsCmd = &cobra.Command{
	Use:     "results",
	GroupID: GroupResults,
	Short:   "Show and adjust the final ranking",
	Long: `Show the final ranking. Items are ranked by CD3 when the Results stage is
first reached; moving an item by hand marks the ranking as manually
reordered, and items scored later are slotted in by CD3 without disturbing
the manual order.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runResultsShow(cmd)
	},
}

var resultsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the ranking",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runResultsShow(cmd)
	},
}

func runResultsShow(cmd *cobra.Command) error {
	e, err := mustEngine()
	if err != nil {
		return err
	}
	noPager, _ := cmd.Flags().GetBool("no-pager")
	if err := renderResults(cmd, e, ui.PagerOptions{NoPager: noPager}); err != nil {
		return err
	}
	if watch, _ := cmd.Flags().GetBool("watch"); watch {
		return watchSession(rootCtx, dataDir, store, func(e *engine.Engine) error {
			return renderResults(cmd, e, ui.PagerOptions{NoPager: true})
		})
	}
	return nil
}

func renderResults(cmd *cobra.Command, e *engine.Engine, pager ui.PagerOptions) error {
	state := e.State()
	items := e.Results()
	if jsonOutput {
		return outputJSON(cmd.OutOrStdout(), map[string]any{
			"stage":             string(state.CurrentStage),
			"manuallyReordered": state.ResultsManuallyReordered,
			"items":             items,
		})
	}
	var b strings.Builder
	b.WriteString(ui.RenderStageBar(state) + "\n")
	if !state.HasVisited(types.StageResults) {
		b.WriteString(ui.RenderMuted("Not ranked yet; ordering by CD3. Reach the Results stage to fix a ranking.") + "\n")
	}
	b.WriteString(ui.ItemsTable(items, state.Buckets, ui.TableOptions{Ranked: true, NameWidth: nameWidth()}) + "\n")
	if state.ResultsManuallyReordered {
		b.WriteString(ui.RenderMuted(ui.IconMoved+" manually reordered; cd3 results reset restores CD3 order") + "\n")
	}
	return ui.ToPager(cmd.OutOrStdout(), b.String(), pager)
}

func reorderCommand(dir sequence.Direction) *cobra.Command {
	return &cobra.Command{
		Use:   string(dir) + " <item>",
		Short: fmt.Sprintf("Move an item one place %s", dir),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, it, err := resolveItem(args[0])
			if err != nil {
				return err
			}
			res, err := e.ReorderItem(rootCtx, it.ID, dir)
			return finish(cmd, res, err, "%s %s is now #%v", ui.RenderPassIcon(), it.ID, res.Get("sequence"))
		},
	}
}

var resultsMoveCmd = &cobra.Command{
	Use:   "move <item> <rank>",
	Short: "Move an item to a rank (1 is the top)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, it, err := resolveItem(args[0])
		if err != nil {
			return err
		}
		rank, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid rank %q", args[1])
		}
		res, err := e.MoveItem(rootCtx, it.ID, rank)
		return finish(cmd, res, err, "%s %s is now #%d", ui.RenderPassIcon(), it.ID, rank)
	},
}

var resultsResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Drop manual moves and rank by CD3 again",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := mustEngine()
		if err != nil {
			return err
		}
		res, err := e.ResetResultsOrder(rootCtx)
		return finish(cmd, res, err, "%s Ranking reset to CD3 order", ui.RenderPassIcon())
	},
}

func init() {
	for _, c := range []*cobra.Command{resultsCmd, resultsShowCmd} {
		c.Flags().Bool("watch", false, "Re-render when the session changes")
		c.Flags().Bool("no-pager", false, "Do not pipe output through a pager")
	}
	resultsCmd.AddCommand(resultsShowCmd, reorderCommand(sequence.Up), reorderCommand(sequence.Down), resultsMoveCmd, resultsResetCmd)
	rootCmd.AddCommand(resultsCmd)
}
