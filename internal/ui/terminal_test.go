package ui

import (
	"testing"

	"github.com/muesli/termenv"
)

func TestShouldUseColor(t *testing.T) {
	tests := []struct {
		name          string
		noColor       string
		cliColor      string
		cliColorForce string
		override      bool
		want          bool
	}{
		{name: "non-tty default", want: false},
		{name: "NO_COLOR", noColor: "1", want: false},
		{name: "CLICOLOR=0", cliColor: "0", want: false},
		{name: "CLICOLOR_FORCE on non-tty", cliColorForce: "1", want: true},
		{name: "NO_COLOR beats CLICOLOR_FORCE", noColor: "1", cliColorForce: "1", want: false},
		{name: "override beats CLICOLOR_FORCE", cliColorForce: "1", override: true, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("NO_COLOR", tt.noColor)
			t.Setenv("CLICOLOR", tt.cliColor)
			t.Setenv("CLICOLOR_FORCE", tt.cliColorForce)
			SetNoColor(tt.override)
			defer SetNoColor(false)

			if got := ShouldUseColor(); got != tt.want {
				t.Errorf("ShouldUseColor() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestColorProfile(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	t.Setenv("CLICOLOR_FORCE", "")
	if p := ColorProfile(); p != termenv.Ascii {
		t.Errorf("profile with NO_COLOR = %v, want Ascii", p)
	}

	t.Setenv("NO_COLOR", "")
	t.Setenv("CLICOLOR_FORCE", "1")
	if p := ColorProfile(); p == termenv.Ascii {
		t.Error("forced color should not be Ascii")
	}
}

func TestShouldUseEmoji(t *testing.T) {
	t.Setenv("CD3_NO_EMOJI", "1")
	if ShouldUseEmoji() {
		t.Error("CD3_NO_EMOJI should disable emoji")
	}
	t.Setenv("CD3_NO_EMOJI", "")
	if ShouldUseEmoji() {
		t.Error("stdout is not a tty under go test")
	}
}

func TestTerminalWidthFallback(t *testing.T) {
	if w := TerminalWidth(93); w != 93 && w <= 0 {
		t.Errorf("TerminalWidth = %d", w)
	}
}
