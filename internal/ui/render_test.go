package ui

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cd3-tool/cd3/internal/types"
)

func rated(id, name string, u, v, d types.Level) *types.Item {
	it := types.NewItem(id, name, nil, time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC))
	if u > 0 {
		it.Urgency = types.MustSetAt(u)
	}
	if v > 0 {
		it.Value = types.MustSetAt(v)
	}
	if d > 0 {
		it.Duration = types.MustSetAt(d)
	}
	return it
}

func TestItemsTable(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	ApplyColorProfile()

	buckets := types.DefaultBucketTable()
	a := rated("cd3-a", "Checkout redesign", 3, 2, 1)
	a.CostOfDelay, a.CD3 = 6, 6
	seq := 1
	a.Sequence = &seq
	a.Reordered = true
	b := rated("cd3-b", "Dark mode", 0, 0, 0)
	b.Active = false

	out := ItemsTable([]*types.Item{a, b}, buckets, TableOptions{Ranked: true})
	assert.Contains(t, out, "Checkout redesign")
	assert.Contains(t, out, "6.00")
	assert.Contains(t, out, IconMoved)
	assert.Contains(t, out, "inactive")
	assert.Contains(t, out, "Conf. CD3")

	plain := ItemsTable([]*types.Item{a}, buckets, TableOptions{NameWidth: 8})
	assert.NotContains(t, plain, IconMoved, "move marker only in ranked view")
	assert.Contains(t, plain, "Checkou…")
}

func TestBucketsTableFlagsOverLimit(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	ApplyColorProfile()

	buckets := types.DefaultBucketTable()
	b, _ := buckets.Get(types.CategoryUrgency, types.LevelHigh)
	limit := 1
	b.Limit, b.Count, b.OverLimit = &limit, 2, true
	buckets.Put(types.CategoryUrgency, types.LevelHigh, b)

	out := BucketsTable(buckets)
	assert.Contains(t, out, "over limit")
	assert.Equal(t, 1, strings.Count(out, "over limit"))
	assert.Contains(t, out, "∞")
}

func TestRenderBoard(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	ApplyColorProfile()

	buckets := types.DefaultBucketTable()
	items := []*types.Item{
		rated("cd3-1", "Billing fix", 3, 3, 0),
		rated("cd3-2", "Onboarding", 1, 1, 0),
		rated("cd3-3", "Unrated idea", 0, 0, 0),
	}
	out := RenderBoard(items, buckets, 16)
	assert.Contains(t, out, "Billing fix")
	assert.Contains(t, out, "Onboarding")
	assert.Contains(t, out, "Not on board (1): Unrated idea")

	lines := strings.Split(out, "\n")
	billing, onboarding := -1, -1
	for i, l := range lines {
		if strings.Contains(l, "Billing fix") {
			billing = i
		}
		if strings.Contains(l, "Onboarding") {
			onboarding = i
		}
	}
	assert.Less(t, billing, onboarding, "high value row is drawn first")
}

func TestBoardCellOverflow(t *testing.T) {
	var items []*types.Item
	for i := 0; i < 8; i++ {
		items = append(items, rated("x", "item", 1, 1, 0))
	}
	lines := strings.Split(boardCell(items, 10), "\n")
	require.Len(t, lines, boardCellNames)
	assert.Contains(t, lines[boardCellNames-1], "+4 more")
}

func TestRenderStageBar(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	t.Setenv("CD3_NO_EMOJI", "1")
	ApplyColorProfile()

	state := types.DefaultAppState()
	state.CurrentStage = types.StageValue
	state.VisitedStages = []types.Stage{types.StageItemListing, types.StageUrgency, types.StageValue}
	state.Locked = true

	out := RenderStageBar(state)
	assert.Contains(t, out, "Item Listing › Urgency › Value › Duration › Results")
	assert.Contains(t, out, "[locked]")
	assert.NotContains(t, out, "CD3")
}

func TestItemDetail(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	ApplyColorProfile()

	state := types.DefaultAppState()
	link := "https://example.com/ticket/1"
	it := rated("cd3-9", "Search relevance", 2, 3, 2)
	it.Link = &link
	w := 4.2
	it.ConfidenceWeightedCD3 = &w
	it.ConfidenceSurvey = types.NewConfidenceSurvey()
	require.NoError(t, it.ConfidenceSurvey.AddVote(types.DimensionScope, 4))
	it.Notes = []types.Note{{Text: "Talk to **support**", CreatedAt: it.CreatedAt, ModifiedAt: it.CreatedAt}}

	out := ItemDetail(it, state)
	assert.Contains(t, out, "Search relevance")
	assert.Contains(t, out, link)
	assert.Contains(t, out, "4.20")
	assert.Contains(t, out, "Very confident 1")
	assert.Contains(t, out, "Talk to **support**", "markdown left as-is without color")
	assert.Contains(t, out, "[1]")
}
