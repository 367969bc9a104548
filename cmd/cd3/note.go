package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cd3-tool/cd3/internal/ui"
)

var noteCmd = &cobra.Command{
	Use:     "note",
	Aliases: []string{"notes"},
	GroupID: GroupItems,
	Short:   "Add, edit or delete item notes",
	Long: `Notes are free text (markdown is rendered by cd3 show). They are numbered
from 1 in the order they were added.`,
}

var noteAddCmd = &cobra.Command{
	Use:   "add <item> <text>",
	Short: "Add a note (text \"-\" reads stdin)",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, it, err := resolveItem(args[0])
		if err != nil {
			return err
		}
		text, err := noteText(cmd, args[1:])
		if err != nil {
			return err
		}
		res, err := e.AddNote(rootCtx, it.ID, text)
		n, _ := res.Get("index").(int)
		return finish(cmd, res, err, "%s Added note %d to %s", ui.RenderPassIcon(), n+1, it.ID)
	},
}

var noteEditCmd = &cobra.Command{
	Use:   "edit <item> <n> <text>",
	Short: "Replace the text of note n",
	Args:  cobra.MinimumNArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, it, err := resolveItem(args[0])
		if err != nil {
			return err
		}
		n, err := noteNumber(args[1])
		if err != nil {
			return err
		}
		text, err := noteText(cmd, args[2:])
		if err != nil {
			return err
		}
		res, err := e.UpdateNote(rootCtx, it.ID, n-1, text)
		return finish(cmd, res, err, "%s Updated note %d of %s", ui.RenderPassIcon(), n, it.ID)
	},
}

var noteDeleteCmd = &cobra.Command{
	Use:     "delete <item> <n>",
	Aliases: []string{"rm"},
	Short:   "Delete note n",
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, it, err := resolveItem(args[0])
		if err != nil {
			return err
		}
		n, err := noteNumber(args[1])
		if err != nil {
			return err
		}
		res, err := e.DeleteNote(rootCtx, it.ID, n-1)
		return finish(cmd, res, err, "%s Deleted note %d of %s", ui.RenderPassIcon(), n, it.ID)
	},
}

func noteNumber(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("invalid note number %q (notes are numbered from 1)", s)
	}
	return n, nil
}

func noteText(cmd *cobra.Command, args []string) (string, error) {
	if len(args) == 1 && args[0] == "-" {
		return readInput(cmd, "-")
	}
	return strings.Join(args, " "), nil
}

func init() {
	noteCmd.AddCommand(noteAddCmd, noteEditCmd, noteDeleteCmd)
	rootCmd.AddCommand(noteCmd)
}
