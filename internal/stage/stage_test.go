package stage

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cd3-tool/cd3/internal/types"
)

func item(id string, u, v, d types.Level) *types.Item {
	it := &types.Item{ID: id, Name: "item " + id}
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

func TestCanAdvance(t *testing.T) {
	rated := []*types.Item{item("1", 1, 2, 3), item("2", 3, 2, 1)}
	partial := []*types.Item{item("1", 1, 2, 3), item("2", 0, 0, 0)}

	tests := []struct {
		name  string
		stage types.Stage
		items []*types.Item
		want  bool
	}{
		{"empty listing", types.StageItemListing, nil, false},
		{"listing with items", types.StageItemListing, partial, true},
		{"urgency complete", types.StageUrgency, rated, true},
		{"urgency incomplete", types.StageUrgency, partial, false},
		{"value incomplete", types.StageValue, partial, false},
		{"duration complete", types.StageDuration, rated, true},
		{"results", types.StageResults, nil, true},
		{"terminal", types.StageCD3, rated, false},
		{"unknown", types.Stage("bogus"), rated, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CanAdvance(tt.stage, tt.items)
			assert.Equal(t, tt.want, got.OK)
			if !got.OK {
				assert.NotEmpty(t, got.Reason)
				assert.Error(t, got.Err())
			}
		})
	}
}

// An item without urgency blocks leaving the urgency stage.
func TestCanAdvanceUrgencyMissing(t *testing.T) {
	items := []*types.Item{item("1", 2, 0, 0), item("2", 0, 0, 0)}
	got := CanAdvance(types.StageUrgency, items)
	assert.False(t, got.OK)
	assert.Contains(t, got.Reason, "item 2")
}

func TestCanGoBack(t *testing.T) {
	assert.False(t, CanGoBack(types.StageItemListing).OK)
	assert.True(t, CanGoBack(types.StageUrgency).OK)
	assert.True(t, CanGoBack(types.StageCD3).OK)
	assert.False(t, CanGoBack("bogus").OK)
}

func TestCanNavigateTo(t *testing.T) {
	rated := []*types.Item{item("1", 1, 2, 3)}
	urgencyOnly := []*types.Item{item("1", 1, 0, 0)}
	visited := []types.Stage{types.StageItemListing, types.StageUrgency, types.StageValue}

	tests := []struct {
		name    string
		target  types.Stage
		current types.Stage
		items   []*types.Item
		want    bool
		reason  string
	}{
		{"same stage", types.StageValue, types.StageValue, rated, false, "already at"},
		{"back to visited", types.StageItemListing, types.StageValue, rated, true, ""},
		{"back two stages", types.StageUrgency, types.StageDuration, rated, true, ""},
		{"forward all rules hold", types.StageResults, types.StageItemListing, rated, true, ""},
		{"forward blocked at value", types.StageResults, types.StageItemListing, urgencyOnly, false, "value"},
		{"forward to terminal", types.StageCD3, types.StageResults, rated, true, ""},
		{"unknown target", "bogus", types.StageValue, rated, false, "unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CanNavigateTo(tt.target, tt.current, visited, tt.items)
			assert.Equal(t, tt.want, got.OK, got.Reason)
			if tt.reason != "" {
				assert.Contains(t, got.Reason, tt.reason)
			}
		})
	}

	// A backward move to a stage outside visited is rejected.
	got := CanNavigateTo(types.StageDuration, types.StageResults, visited, rated)
	assert.False(t, got.OK)
}

func TestNavigateToExtendsVisited(t *testing.T) {
	rated := []*types.Item{item("1", 1, 2, 3)}
	visited := []types.Stage{types.StageItemListing}

	out, chk := NavigateTo(types.StageDuration, types.StageItemListing, visited, rated)
	assert.True(t, chk.OK)
	assert.Equal(t, []types.Stage{
		types.StageItemListing, types.StageUrgency, types.StageValue, types.StageDuration,
	}, out)
	assert.Len(t, visited, 1, "input slice must not be modified")

	back, chk := NavigateTo(types.StageUrgency, types.StageDuration, out, rated)
	assert.True(t, chk.OK)
	assert.Equal(t, out, back, "backward moves leave visited alone")

	same, chk := NavigateTo(types.StageItemListing, types.StageItemListing, visited, rated)
	assert.False(t, chk.OK)
	assert.Equal(t, visited, same)
}

func TestCanEditCategory(t *testing.T) {
	tests := []struct {
		name     string
		category types.Category
		current  types.Stage
		locked   bool
		want     bool
	}{
		{"urgency at listing", types.CategoryUrgency, types.StageItemListing, false, false},
		{"urgency at urgency", types.CategoryUrgency, types.StageUrgency, false, true},
		{"value before its stage", types.CategoryValue, types.StageUrgency, false, false},
		{"urgency revisited unlocked", types.CategoryUrgency, types.StageDuration, false, true},
		{"urgency revisited locked", types.CategoryUrgency, types.StageDuration, true, false},
		{"duration at duration locked", types.CategoryDuration, types.StageDuration, true, true},
		{"results unlocked", types.CategoryValue, types.StageResults, false, true},
		{"results locked", types.CategoryValue, types.StageResults, true, false},
		{"cd3 unlocked", types.CategoryDuration, types.StageCD3, false, true},
		{"bad category", "scope", types.StageResults, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CanEditCategory(tt.category, tt.current, tt.locked)
			assert.Equal(t, tt.want, got.OK, got.Reason)
		})
	}
}

func TestParkingLot(t *testing.T) {
	items := []*types.Item{item("1", 1, 0, 0), item("2", 0, 0, 0), item("3", 2, 2, 0)}
	lot := ParkingLot(types.CategoryUrgency, items)
	assert.Len(t, lot, 1)
	assert.Equal(t, "2", lot[0].ID)
	assert.Len(t, ParkingLot(types.CategoryDuration, items), 3)
}

func TestCheckJSON(t *testing.T) {
	b, err := json.Marshal(CanGoBack(types.StageItemListing))
	assert.NoError(t, err)
	assert.JSONEq(t, `{"ok":false,"reason":"already at the first stage"}`, string(b))

	b, err = json.Marshal(Check{OK: true})
	assert.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, string(b))
}
