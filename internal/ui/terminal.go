package ui

import (
	"os"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

var (
	overrideMu sync.RWMutex
	noColor    bool
)

// SetNoColor forces plain output regardless of the environment. The CLI
// calls it for --no-color and the no-color config key.
func SetNoColor(disabled bool) {
	overrideMu.Lock()
	noColor = disabled
	overrideMu.Unlock()
	ApplyColorProfile()
}

// IsTerminal reports whether stdout is a terminal.
func IsTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// ShouldUseColor decides whether output should carry ANSI color.
//
// Precedence: SetNoColor, NO_COLOR, CLICOLOR_FORCE, CLICOLOR=0, then TTY.
func ShouldUseColor() bool {
	overrideMu.RLock()
	disabled := noColor
	overrideMu.RUnlock()
	if disabled {
		return false
	}
	if _, ok := os.LookupEnv("NO_COLOR"); ok && os.Getenv("NO_COLOR") != "" {
		return false
	}
	if v := os.Getenv("CLICOLOR_FORCE"); v != "" && v != "0" {
		return true
	}
	if os.Getenv("CLICOLOR") == "0" {
		return false
	}
	return IsTerminal()
}

// ShouldUseEmoji reports whether stage and status glyphs may be used.
func ShouldUseEmoji() bool {
	if os.Getenv("CD3_NO_EMOJI") != "" {
		return false
	}
	return IsTerminal()
}

// ColorProfile returns the profile lipgloss should render with.
func ColorProfile() termenv.Profile {
	if !ShouldUseColor() {
		return termenv.Ascii
	}
	p := termenv.EnvColorProfile()
	if p == termenv.Ascii {
		// CLICOLOR_FORCE on a non-TTY: fall back to the basic palette.
		return termenv.ANSI
	}
	return p
}

// ApplyColorProfile pushes ColorProfile into the default lipgloss renderer.
func ApplyColorProfile() {
	lipgloss.SetColorProfile(ColorProfile())
}

// TerminalWidth returns the stdout width, or fallback when unknown.
func TerminalWidth(fallback int) int {
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 {
		return w
	}
	return fallback
}
