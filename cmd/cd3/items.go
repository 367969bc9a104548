package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cd3-tool/cd3/internal/engine"
	"github.com/cd3-tool/cd3/internal/types"
	"github.com/cd3-tool/cd3/internal/ui"
)

// resolveItem accepts an id, a unique id prefix or an exact name.
func resolveItem(ref string) (*engine.Engine, *types.Item, error) {
	e, err := mustEngine()
	if err != nil {
		return nil, nil, err
	}
	it, err := e.ResolveItem(ref)
	if err != nil {
		return nil, nil, err
	}
	return e, it, nil
}

var addCmd = &cobra.Command{
	Use:     "add [name]",
	GroupID: GroupItems,
	Short:   "Add an item to the backlog",
	Long: `Add an item to the backlog. The name may be given as several words.

Examples:
  cd3 add "Self-serve refunds"
  cd3 add Faster search --link https://tracker.example.com/T-42
  cd3 add --form`,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := mustEngine()
		if err != nil {
			return err
		}
		link, _ := cmd.Flags().GetString("link")
		name := strings.Join(args, " ")
		if form, _ := cmd.Flags().GetBool("form"); form {
			if name, link, err = runAddForm(name, link); err != nil {
				return err
			}
		}
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("item name is required")
		}
		res, err := e.AddItem(rootCtx, name, link)
		if err == nil && res.Get("linkDropped") == true {
			WarnError("ignored invalid link %q (must start with http:// or https://)", link)
		}
		return finish(cmd, res, err, "%s Added %s %s", ui.RenderPassIcon(), ui.RenderAccent(fmt.Sprint(res.Get("id"))), res.Get("name"))
	},
}

var importCmd = &cobra.Command{
	Use:     "import <file|->",
	GroupID: GroupItems,
	Short:   "Add one item per line from a file or stdin",
	Long: `Add one item per non-blank line. A line may end in ", <url>" to attach a
link; other commas stay part of the name.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := mustEngine()
		if err != nil {
			return err
		}
		text, err := readInput(cmd, args[0])
		if err != nil {
			return err
		}
		res, err := e.BulkAddItems(rootCtx, text)
		if err == nil {
			if rejected, _ := res.Get("rejected").([]string); len(rejected) > 0 {
				for _, line := range rejected {
					WarnError("skipped line %q", line)
				}
			}
		}
		return finish(cmd, res, err, "%s Added %v items", ui.RenderPassIcon(), res.Get("count"))
	},
}

// readInput reads a whole file, or stdin for "-".
func readInput(cmd *cobra.Command, path string) (string, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(path) // #nosec G304 - user-supplied input file
	}
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return string(data), nil
}

var removeCmd = &cobra.Command{
	Use:     "remove <item>",
	Aliases: []string{"rm"},
	GroupID: GroupItems,
	Short:   "Remove an item",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, it, err := resolveItem(args[0])
		if err != nil {
			return err
		}
		res, err := e.RemoveItem(rootCtx, it.ID)
		return finish(cmd, res, err, "%s Removed %s %s", ui.RenderPassIcon(), it.ID, it.Name)
	},
}

func activeCommand(use, short string, active bool) *cobra.Command {
	return &cobra.Command{
		Use:     use + " <item>",
		GroupID: GroupItems,
		Short:   short,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, it, err := resolveItem(args[0])
			if err != nil {
				return err
			}
			res, err := e.SetItemActive(rootCtx, it.ID, active)
			return finish(cmd, res, err, "%s %s is now %s", ui.RenderPassIcon(), it.ID, activeLabel(active))
		},
	}
}

func activeLabel(active bool) string {
	if active {
		return "active"
	}
	return "inactive"
}

var renameCmd = &cobra.Command{
	Use:     "rename <item> <new name>",
	GroupID: GroupItems,
	Short:   "Rename an item",
	Args:    cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, it, err := resolveItem(args[0])
		if err != nil {
			return err
		}
		name := strings.Join(args[1:], " ")
		res, err := e.RenameItem(rootCtx, it.ID, name)
		return finish(cmd, res, err, "%s Renamed %s to %s", ui.RenderPassIcon(), it.ID, strings.TrimSpace(name))
	},
}

var linkCmd = &cobra.Command{
	Use:     "link <item> [url]",
	GroupID: GroupItems,
	Short:   "Set or clear an item's link",
	Args:    cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, it, err := resolveItem(args[0])
		if err != nil {
			return err
		}
		url := ""
		if len(args) == 2 {
			url = args[1]
		}
		res, err := e.SetItemLink(rootCtx, it.ID, url)
		if url == "" {
			return finish(cmd, res, err, "%s Cleared link of %s", ui.RenderPassIcon(), it.ID)
		}
		return finish(cmd, res, err, "%s Linked %s to %s", ui.RenderPassIcon(), it.ID, url)
	},
}

func init() {
	addCmd.Flags().String("link", "", "Link to the item in another tool (http/https)")
	addCmd.Flags().Bool("form", false, "Fill in the item with an interactive form")

	rootCmd.AddCommand(addCmd, importCmd, removeCmd, renameCmd, linkCmd,
		activeCommand("activate", "Mark an item active", true),
		activeCommand("deactivate", "Mark an item inactive (it keeps its rank)", false),
	)
}
