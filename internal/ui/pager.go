package ui

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"golang.org/x/term"
)

// PagerOptions controls ToPager.
type PagerOptions struct {
	// NoPager is set by --no-pager.
	NoPager bool
}

// usePager is true only when w is a terminal.
func usePager(w io.Writer, opts PagerOptions) bool {
	if opts.NoPager || os.Getenv("CD3_NO_PAGER") != "" {
		return false
	}
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// pagerCommand checks CD3_PAGER, then PAGER, then falls back to less.
func pagerCommand() string {
	for _, env := range []string{"CD3_PAGER", "PAGER"} {
		if p := os.Getenv(env); p != "" {
			return p
		}
	}
	return "less"
}

func terminalHeight() int {
	fd := int(os.Stdout.Fd())
	if !term.IsTerminal(fd) {
		return 0
	}
	_, h, err := term.GetSize(fd)
	if err != nil {
		return 0
	}
	return h
}

func lineCount(s string) int {
	if s == "" {
		return 0
	}
	return strings.Count(s, "\n") + 1
}

// ToPager writes content to w, through a pager when w is a terminal and
// the content is taller than it.
func ToPager(w io.Writer, content string, opts PagerOptions) error {
	if !usePager(w, opts) {
		_, err := fmt.Fprint(w, content)
		return err
	}
	if h := terminalHeight(); h > 0 && lineCount(content) < h {
		_, err := fmt.Fprint(w, content)
		return err
	}
	parts := strings.Fields(pagerCommand())
	if len(parts) == 0 {
		_, err := fmt.Fprint(w, content)
		return err
	}

	cmd := exec.Command(parts[0], parts[1:]...) // #nosec G204 - pager is user-configured
	cmd.Stdin = strings.NewReader(content)
	cmd.Stdout = w
	cmd.Stderr = os.Stderr
	cmd.Env = os.Environ()
	if os.Getenv("LESS") == "" {
		cmd.Env = append(cmd.Env, "LESS=-RFX")
	}
	return cmd.Run()
}
