package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/cd3-tool/cd3/internal/config"
	"github.com/cd3-tool/cd3/internal/engine"
	"github.com/cd3-tool/cd3/internal/timeparsing"
	"github.com/cd3-tool/cd3/internal/types"
	"github.com/cd3-tool/cd3/internal/ui"
)

// listOptions are the filters and ordering of cd3 list.
type listOptions struct {
	sort         []types.ItemSortOption
	since        time.Time
	activeOnly   bool
	inactiveOnly bool
}

func (o listOptions) apply(items []*types.Item) []*types.Item {
	out := make([]*types.Item, 0, len(items))
	for _, it := range items {
		if !o.since.IsZero() && it.CreatedAt.Before(o.since) {
			continue
		}
		if o.activeOnly && !it.Active {
			continue
		}
		if o.inactiveOnly && it.Active {
			continue
		}
		out = append(out, it)
	}
	types.SortItems(out, o.sort)
	return out
}

// listSortOrder picks the ordering: --sort, then the data directory's
// config.yaml, then list.sort from viper.
func listSortOrder(flag string) ([]types.ItemSortOption, error) {
	raw := flag
	if raw == "" && dataDir != "" {
		raw = config.LoadLocalConfig(dataDir).List.Sort
	}
	if raw == "" {
		raw = config.GetString("list.sort")
	}
	opts := types.ParseItemSortOrder(raw)
	if flag != "" && len(opts) == 0 {
		return nil, fmt.Errorf("invalid --sort %q (fields: cd3, cod, name, created, sequence; suffix -asc or -desc)", flag)
	}
	return opts, nil
}

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	GroupID: GroupItems,
	Short:   "List items with their ratings and scores",
	Long: `List items with their ratings and scores.

Examples:
  cd3 list --sort name-asc
  cd3 list --since "last monday"
  cd3 list --since 7d --active
  cd3 list --watch`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := mustEngine()
		if err != nil {
			return err
		}
		var opts listOptions
		sortFlag, _ := cmd.Flags().GetString("sort")
		if opts.sort, err = listSortOrder(sortFlag); err != nil {
			return err
		}
		if since, _ := cmd.Flags().GetString("since"); since != "" {
			if opts.since, err = timeparsing.ParseSince(since, time.Now()); err != nil {
				return fmt.Errorf("invalid --since: %w", err)
			}
		}
		opts.activeOnly, _ = cmd.Flags().GetBool("active")
		opts.inactiveOnly, _ = cmd.Flags().GetBool("inactive")
		if opts.activeOnly && opts.inactiveOnly {
			return fmt.Errorf("--active and --inactive are mutually exclusive")
		}
		noPager, _ := cmd.Flags().GetBool("no-pager")

		render := func(e *engine.Engine) error {
			return renderList(cmd, e, opts, ui.PagerOptions{NoPager: noPager})
		}
		if watch, _ := cmd.Flags().GetBool("watch"); watch {
			if err := render(e); err != nil {
				return err
			}
			return watchSession(rootCtx, dataDir, store, func(e *engine.Engine) error {
				return renderList(cmd, e, opts, ui.PagerOptions{NoPager: true})
			})
		}
		return render(e)
	},
}

func renderList(cmd *cobra.Command, e *engine.Engine, opts listOptions, pager ui.PagerOptions) error {
	items := opts.apply(e.Items())
	if jsonOutput {
		return outputJSON(cmd.OutOrStdout(), items)
	}
	state := e.State()
	if len(items) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), ui.RenderMuted("No items. Add one with: cd3 add \"Name\""))
		return nil
	}
	var b strings.Builder
	b.WriteString(ui.RenderStageBar(state) + "\n")
	b.WriteString(ui.ItemsTable(items, state.Buckets, ui.TableOptions{
		Ranked:    state.HasVisited(types.StageResults),
		NameWidth: nameWidth(),
	}) + "\n")
	b.WriteString(ui.RenderMuted(fmt.Sprintf("%d of %d items", len(items), len(e.Items()))) + "\n")
	return ui.ToPager(cmd.OutOrStdout(), b.String(), pager)
}

// nameWidth leaves room for the other table columns.
func nameWidth() int {
	w := ui.TerminalWidth(120) - 90
	if w < 20 {
		return 20
	}
	return w
}

var showCmd = &cobra.Command{
	Use:     "show <item>",
	GroupID: GroupItems,
	Short:   "Show one item with its notes and survey",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, it, err := resolveItem(args[0])
		if err != nil {
			return err
		}
		if jsonOutput {
			return outputJSON(cmd.OutOrStdout(), it)
		}
		fmt.Fprintln(cmd.OutOrStdout(), ui.ItemDetail(it, e.State()))
		return nil
	},
}

var boardCmd = &cobra.Command{
	Use:     "board",
	GroupID: GroupPrioritize,
	Short:   "Show items on the value x urgency board",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := mustEngine()
		if err != nil {
			return err
		}
		items := e.Items()
		if jsonOutput {
			type placed struct {
				ID       string              `json:"id"`
				Name     string              `json:"name"`
				Position types.BoardPosition `json:"boardPosition"`
			}
			out := make([]placed, 0, len(items))
			for _, it := range items {
				out = append(out, placed{ID: it.ID, Name: it.Name, Position: it.BoardPosition})
			}
			return outputJSON(cmd.OutOrStdout(), out)
		}
		cell := (ui.TerminalWidth(100) - 30) / 3
		fmt.Fprintln(cmd.OutOrStdout(), ui.RenderBoard(items, e.State().Buckets, cell))
		return nil
	},
}

func init() {
	listCmd.Flags().String("sort", "", "Sort keys, e.g. cd3-desc,name-asc (fields: cd3, cod, name, created, sequence)")
	listCmd.Flags().String("since", "", "Only items created since: 7d, 2025-01-20, \"last monday\"")
	listCmd.Flags().Bool("active", false, "Only active items")
	listCmd.Flags().Bool("inactive", false, "Only inactive items")
	listCmd.Flags().Bool("watch", false, "Re-render when the session changes")
	listCmd.Flags().Bool("no-pager", false, "Do not pipe output through a pager")

	rootCmd.AddCommand(listCmd, showCmd, boardCmd)
}
