// Package ui renders cd3 output for the terminal: Ayu-themed lipgloss
// styles, item and result tables, the value x urgency board, the stage bar
// and glamour-rendered notes.
package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/cd3-tool/cd3/internal/types"
)

// Ayu palette, adaptive light/dark.
// Dark: https://terminalcolors.com/themes/ayu/dark/
// Light: https://terminalcolors.com/themes/ayu/light/
var (
	ColorPass = lipgloss.AdaptiveColor{
		Light: "#86b300",
		Dark:  "#c2d94c",
	}
	ColorWarn = lipgloss.AdaptiveColor{
		Light: "#f2ae49",
		Dark:  "#ffb454",
	}
	ColorFail = lipgloss.AdaptiveColor{
		Light: "#f07171",
		Dark:  "#f07178",
	}
	ColorMuted = lipgloss.AdaptiveColor{
		Light: "#828c99",
		Dark:  "#6c7680",
	}
	ColorAccent = lipgloss.AdaptiveColor{
		Light: "#399ee6",
		Dark:  "#59c2ff",
	}
)

var (
	PassStyle   = lipgloss.NewStyle().Foreground(ColorPass)
	WarnStyle   = lipgloss.NewStyle().Foreground(ColorWarn)
	FailStyle   = lipgloss.NewStyle().Foreground(ColorFail)
	MutedStyle  = lipgloss.NewStyle().Foreground(ColorMuted)
	AccentStyle = lipgloss.NewStyle().Foreground(ColorAccent)

	HeaderStyle  = lipgloss.NewStyle().Bold(true).Foreground(ColorAccent)
	CurrentStyle = lipgloss.NewStyle().Bold(true).Foreground(ColorAccent).Underline(true)
)

const (
	IconPass  = "✓"
	IconWarn  = "⚠"
	IconFail  = "✗"
	IconInfo  = "ℹ"
	IconLock  = "🔒"
	IconNew   = "★"
	IconMoved = "↕"
	IconUnset = "·"
)

// SeparatorLight is the rule drawn between sections.
const SeparatorLight = "──────────────────────────────────────────"

func RenderPass(s string) string   { return PassStyle.Render(s) }
func RenderWarn(s string) string   { return WarnStyle.Render(s) }
func RenderFail(s string) string   { return FailStyle.Render(s) }
func RenderMuted(s string) string  { return MutedStyle.Render(s) }
func RenderAccent(s string) string { return AccentStyle.Render(s) }

// RenderHeader renders a section header in uppercase.
func RenderHeader(s string) string {
	return HeaderStyle.Render(strings.ToUpper(s))
}

// RenderSeparator renders the light separator line in muted color.
func RenderSeparator() string {
	return MutedStyle.Render(SeparatorLight)
}

func RenderPassIcon() string { return PassStyle.Render(IconPass) }
func RenderWarnIcon() string { return WarnStyle.Render(IconWarn) }
func RenderFailIcon() string { return FailStyle.Render(IconFail) }
func RenderInfoIcon() string { return AccentStyle.Render(IconInfo) }

// LevelStyle colors a rating level. For duration a longer bucket is worse,
// so the scale runs the other way.
func LevelStyle(c types.Category, l types.Level) lipgloss.Style {
	if c == types.CategoryDuration {
		l = types.LevelHigh + types.LevelLow - l
	}
	switch l {
	case types.LevelHigh:
		return PassStyle
	case types.LevelMedium:
		return WarnStyle
	case types.LevelLow:
		return FailStyle
	}
	return MutedStyle
}

// RenderRating renders a rating as its bucket title, or a dot when unset.
func RenderRating(table types.BucketTable, c types.Category, r types.Rating) string {
	if !r.IsSet() {
		return MutedStyle.Render(IconUnset)
	}
	label := r.String()
	if b, ok := table.Get(c, r.Level()); ok && b.Title != "" {
		label = b.Title
	}
	return LevelStyle(c, r.Level()).Render(label)
}

// RenderStageBar shows the workflow with the current stage highlighted and
// unvisited stages muted.
func RenderStageBar(state *types.AppState) string {
	var parts []string
	for _, s := range types.Stages() {
		if s == types.StageCD3 {
			continue
		}
		label := StageLabel(s)
		switch {
		case s == state.CurrentStage:
			parts = append(parts, CurrentStyle.Render(label))
		case state.HasVisited(s):
			parts = append(parts, PassStyle.Render(label))
		default:
			parts = append(parts, MutedStyle.Render(label))
		}
	}
	bar := strings.Join(parts, MutedStyle.Render(" › "))
	if state.Locked {
		lock := "[locked]"
		if ShouldUseEmoji() {
			lock = IconLock
		}
		bar += " " + WarnStyle.Render(lock)
	}
	return bar
}

// StageLabel is the display name of a stage.
func StageLabel(s types.Stage) string {
	switch s {
	case types.StageUrgency:
		return "Urgency"
	case types.StageValue:
		return "Value"
	case types.StageDuration:
		return "Duration"
	}
	return string(s)
}
