package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/cd3-tool/cd3/internal/engine"
)

// hintError carries an actionable suggestion alongside an error.
type hintError struct {
	err  error
	hint string
}

func (h hintError) Error() string { return h.err.Error() }
func (h hintError) Unwrap() error { return h.err }

// reportError prints a failed command's error to stderr, as JSON with
// --json. Called once from main.
func reportError(err error) {
	if jsonOutput {
		payload := map[string]any{"success": false, "error": err.Error()}
		if kind := engine.KindOf(err); kind != 0 {
			payload["kind"] = kind.String()
		}
		enc := json.NewEncoder(os.Stderr)
		enc.SetIndent("", "  ")
		_ = enc.Encode(payload) // Best effort: stderr is all we have
		return
	}
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	var h hintError
	if errors.As(err, &h) && h.hint != "" {
		fmt.Fprintf(os.Stderr, "Hint: %s\n", h.hint)
	}
}

// FatalError writes an error message to stderr and exits with code 1.
// Use this only where returning the error is not possible, such as inside
// watch loops.
func FatalError(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	teardown()
	os.Exit(1)
}

// WarnError writes a warning message to stderr and returns.
// Use this for optional work whose failure should not fail the command.
func WarnError(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Warning: "+format+"\n", args...)
}
