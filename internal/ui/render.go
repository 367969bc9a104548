package ui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/cd3-tool/cd3/internal/types"
)

// TableOptions tunes ItemsTable.
type TableOptions struct {
	// Ranked adds the sequence column and the manual-move marker.
	Ranked bool
	// NameWidth truncates names; zero means 40.
	NameWidth int
}

// FormatScore prints a metric the way every table shows it.
func FormatScore(f float64) string {
	return strconv.FormatFloat(f, 'f', 2, 64)
}

func formatWeighted(f *float64) string {
	if f == nil {
		return IconUnset
	}
	return FormatScore(*f)
}

func formatLimit(limit *int) string {
	if limit == nil {
		return "∞"
	}
	return strconv.Itoa(*limit)
}

func newTable() *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(MutedStyle)
}

// ItemsTable renders items in the given order with their ratings and
// derived metrics.
func ItemsTable(items []*types.Item, buckets types.BucketTable, opts TableOptions) string {
	width := opts.NameWidth
	if width <= 0 {
		width = 40
	}

	headers := []string{"ID", "Name", "Urgency", "Value", "Duration", "CoD", "CD3", "Conf. CD3", ""}
	if opts.Ranked {
		headers = append([]string{"#"}, headers...)
	}

	inactive := make(map[int]bool)
	rows := make([][]string, 0, len(items))
	for i, it := range items {
		row := []string{
			it.ID,
			Truncate(it.Name, width),
			RenderRating(buckets, types.CategoryUrgency, it.Urgency),
			RenderRating(buckets, types.CategoryValue, it.Value),
			RenderRating(buckets, types.CategoryDuration, it.Duration),
			FormatScore(it.CostOfDelay),
			FormatScore(it.CD3),
			formatWeighted(it.ConfidenceWeightedCD3),
			itemFlags(it, opts.Ranked),
		}
		if opts.Ranked {
			rank := ""
			if it.Sequence != nil {
				rank = strconv.Itoa(*it.Sequence)
			}
			row = append([]string{rank}, row...)
		}
		rows = append(rows, row)
		inactive[i] = !it.Active
	}

	return newTable().
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			s := lipgloss.NewStyle().Padding(0, 1)
			switch {
			case row == table.HeaderRow:
				return s.Inherit(HeaderStyle)
			case inactive[row]:
				return s.Inherit(MutedStyle)
			}
			return s
		}).
		String()
}

func itemFlags(it *types.Item, ranked bool) string {
	var flags []string
	if it.IsNewItem {
		flags = append(flags, IconNew)
	}
	if ranked && it.Reordered {
		flags = append(flags, IconMoved)
	}
	if !it.Active {
		flags = append(flags, "inactive")
	}
	if it.ConfidenceSurvey != nil {
		flags = append(flags, "survey")
	}
	return strings.Join(flags, " ")
}

// BucketsTable renders the nine buckets with counts and limits. Buckets
// over their limit are shown in the failure color.
func BucketsTable(buckets types.BucketTable) string {
	type cell struct {
		c types.Category
		l types.Level
	}
	var refs []cell
	var rows [][]string
	for _, c := range types.Categories() {
		for _, l := range types.Levels() {
			b, _ := buckets.Get(c, l)
			status := RenderPassIcon()
			if b.OverLimit {
				status = RenderFailIcon() + " over limit"
			}
			rows = append(rows, []string{
				string(c),
				strconv.Itoa(int(l)),
				b.Title,
				strconv.FormatFloat(b.Weight, 'g', -1, 64),
				formatLimit(b.Limit),
				strconv.Itoa(b.Count),
				status,
			})
			refs = append(refs, cell{c, l})
		}
	}

	return newTable().
		Headers("Category", "Level", "Title", "Weight", "Limit", "Count", "").
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			s := lipgloss.NewStyle().Padding(0, 1)
			if row == table.HeaderRow {
				return s.Inherit(HeaderStyle)
			}
			if row >= 0 && row < len(refs) {
				if b, ok := buckets.Get(refs[row].c, refs[row].l); ok && b.OverLimit {
					return s.Inherit(FailStyle)
				}
			}
			return s
		}).
		String()
}

// boardCellNames caps how many names a board cell lists.
const boardCellNames = 5

// RenderBoard draws the value x urgency grid, high value on top and high
// urgency on the right. Items missing either rating are listed below it.
func RenderBoard(items []*types.Item, buckets types.BucketTable, cellWidth int) string {
	if cellWidth < 12 {
		cellWidth = 12
	}
	cells := make(map[[2]types.Level][]*types.Item)
	var unplaced []*types.Item
	for _, it := range items {
		if !it.Urgency.IsSet() || !it.Value.IsSet() {
			unplaced = append(unplaced, it)
			continue
		}
		key := [2]types.Level{it.Value.Level(), it.Urgency.Level()}
		cells[key] = append(cells[key], it)
	}

	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorMuted).
		Width(cellWidth).
		Height(boardCellNames + 1).
		Padding(0, 1)

	levels := types.Levels()
	var rows []string
	for i := len(levels) - 1; i >= 0; i-- {
		v := levels[i]
		valueTitle := titleOf(buckets, types.CategoryValue, v)
		row := []string{lipgloss.NewStyle().Width(14).Render(LevelStyle(types.CategoryValue, v).Render(valueTitle))}
		for _, u := range levels {
			row = append(row, box.Render(boardCell(cells[[2]types.Level{v, u}], cellWidth-2)))
		}
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Center, row...))
	}

	footer := []string{lipgloss.NewStyle().Width(14).Render("")}
	for _, u := range levels {
		label := titleOf(buckets, types.CategoryUrgency, u)
		footer = append(footer, lipgloss.NewStyle().Width(cellWidth+4).Align(lipgloss.Center).
			Render(LevelStyle(types.CategoryUrgency, u).Render(Truncate(label, cellWidth))))
	}
	rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, footer...))

	out := lipgloss.JoinVertical(lipgloss.Left, rows...)
	if len(unplaced) > 0 {
		names := make([]string, 0, len(unplaced))
		for _, it := range unplaced {
			names = append(names, it.Name)
		}
		out += "\n" + RenderMuted(fmt.Sprintf("Not on board (%d): %s", len(unplaced), strings.Join(names, ", ")))
	}
	return out
}

func titleOf(buckets types.BucketTable, c types.Category, l types.Level) string {
	if b, ok := buckets.Get(c, l); ok && b.Title != "" {
		return b.Title
	}
	return strconv.Itoa(int(l))
}

func boardCell(items []*types.Item, width int) string {
	if len(items) == 0 {
		return RenderMuted(IconUnset)
	}
	var lines []string
	for i, it := range items {
		if i == boardCellNames {
			lines[len(lines)-1] = RenderMuted(fmt.Sprintf("+%d more", len(items)-boardCellNames+1))
			break
		}
		lines = append(lines, Truncate(it.Name, width))
	}
	return strings.Join(lines, "\n")
}

// ItemDetail renders everything known about one item.
func ItemDetail(it *types.Item, state *types.AppState) string {
	var b strings.Builder
	field := func(label, value string) {
		fmt.Fprintf(&b, "%s %s\n", MutedStyle.Render(fmt.Sprintf("%-12s", label+":")), value)
	}

	fmt.Fprintf(&b, "%s %s\n", RenderAccent(it.ID), lipgloss.NewStyle().Bold(true).Render(it.Name))
	b.WriteString(RenderSeparator() + "\n")
	if it.Link != nil {
		field("Link", *it.Link)
	}
	field("Urgency", RenderRating(state.Buckets, types.CategoryUrgency, it.Urgency))
	field("Value", RenderRating(state.Buckets, types.CategoryValue, it.Value))
	field("Duration", RenderRating(state.Buckets, types.CategoryDuration, it.Duration))
	field("Cost/Delay", FormatScore(it.CostOfDelay))
	field("CD3", FormatScore(it.CD3))
	if it.ConfidenceWeightedCD3 != nil {
		field("Conf. CD3", FormatScore(*it.ConfidenceWeightedCD3))
	}
	if it.Sequence != nil {
		rank := strconv.Itoa(*it.Sequence)
		if it.Reordered {
			rank += " " + IconMoved
		}
		field("Rank", rank)
	}
	active := RenderPass("yes")
	if !it.Active {
		active = RenderMuted("no")
	}
	field("Active", active)
	field("Created", it.CreatedAt.Local().Format("2006-01-02 15:04"))

	if it.ConfidenceSurvey != nil {
		b.WriteString("\n" + RenderHeader("Confidence survey") + "\n")
		b.WriteString(SurveySummary(it.ConfidenceSurvey, state.ConfidenceLevelLabels))
	}

	if len(it.Notes) > 0 {
		b.WriteString("\n" + RenderHeader("Notes") + "\n")
		for i, n := range it.Notes {
			stamp := n.CreatedAt.Local().Format("2006-01-02 15:04")
			if n.ModifiedAt.After(n.CreatedAt) {
				stamp += " (edited)"
			}
			fmt.Fprintf(&b, "%s %s\n", RenderAccent(fmt.Sprintf("[%d]", i+1)), RenderMuted(stamp))
			b.WriteString(Indent(RenderMarkdown(n.Text), "    ") + "\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// SurveySummary lists the vote counts per dimension.
func SurveySummary(s *types.ConfidenceSurvey, labels map[types.ConfidenceLevel]string) string {
	var b strings.Builder
	for _, d := range types.SurveyDimensions() {
		votes := s.Votes(d)
		var parts []string
		for _, l := range types.ConfidenceLevels() {
			label := labels[l]
			if label == "" {
				label = strconv.Itoa(int(l))
			}
			parts = append(parts, fmt.Sprintf("%s %d", label, votes[l]))
		}
		fmt.Fprintf(&b, "  %-9s %s\n", d, RenderMuted(strings.Join(parts, " · ")))
	}
	return b.String()
}
