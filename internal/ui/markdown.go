package ui

import (
	"strings"

	"github.com/charmbracelet/glamour"
)

// maxReadableWidth caps note wrapping on wide terminals.
const maxReadableWidth = 100

// RenderMarkdown renders note text with glamour. Plain text is returned when
// color is off or rendering fails.
func RenderMarkdown(markdown string) string {
	if !ShouldUseColor() {
		return markdown
	}
	width := TerminalWidth(80)
	if width > maxReadableWidth {
		width = maxReadableWidth
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return markdown
	}
	out, err := r.Render(markdown)
	if err != nil {
		return markdown
	}
	return strings.TrimRight(out, "\n")
}
