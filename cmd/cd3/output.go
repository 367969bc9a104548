package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/cd3-tool/cd3/internal/debug"
	"github.com/cd3-tool/cd3/internal/engine"
)

// outputJSON writes v as pretty-printed JSON.
func outputJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode JSON: %w", err)
	}
	return nil
}

// finish reports an intent. On success the JSON result or the human
// message is written; on failure the error is returned for main to print.
// A persistence failure still prints the result, since the change was
// applied in memory, and then fails the command.
func finish(cmd *cobra.Command, res engine.Result, err error, format string, args ...interface{}) error {
	if err != nil && engine.KindOf(err) != engine.KindPersistence {
		return err
	}
	if jsonOutput {
		if jerr := outputJSON(cmd.OutOrStdout(), res); jerr != nil {
			return jerr
		}
		return err
	}
	if format != "" && !debug.IsQuiet() {
		fmt.Fprintf(cmd.OutOrStdout(), format+"\n", args...)
	}
	return err
}

// printf writes human output unless --quiet.
func printf(cmd *cobra.Command, format string, args ...interface{}) {
	if !debug.IsQuiet() {
		fmt.Fprintf(cmd.OutOrStdout(), format, args...)
	}
}
