package migrate

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cd3-tool/cd3/internal/idgen"
	"github.com/cd3-tool/cd3/internal/storage"
	"github.com/cd3-tool/cd3/internal/storage/memory"
	"github.com/cd3-tool/cd3/internal/types"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func testGen() *idgen.Generator {
	return idgen.New("cd3", func() time.Time { return testNow })
}

func TestMigrateStateV1(t *testing.T) {
	raw := json.RawMessage(`{"entryStage":"value","locked":true}`)
	out, from, err := MigrateState(raw)
	require.NoError(t, err)
	assert.Equal(t, 0, from)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(out, &doc))
	assert.Equal(t, "value", doc["currentStage"])
	assert.NotContains(t, doc, "entryStage")
	assert.EqualValues(t, 2, doc["version"])
	assert.Equal(t, true, doc["locked"])
}

func TestMigrateStateKeepsExistingCurrentStage(t *testing.T) {
	out, _, err := MigrateState(json.RawMessage(`{"version":1,"entryStage":"value","currentStage":"duration"}`))
	require.NoError(t, err)
	var doc map[string]any
	require.NoError(t, json.Unmarshal(out, &doc))
	assert.Equal(t, "duration", doc["currentStage"])
	assert.NotContains(t, doc, "entryStage")
}

func TestMigrateStateCurrentIsUntouched(t *testing.T) {
	raw := json.RawMessage(`{"version":2,"entryStage":"kept"}`)
	out, from, err := MigrateState(raw)
	require.NoError(t, err)
	assert.Equal(t, 2, from)
	assert.JSONEq(t, string(raw), string(out))
}

func TestMigrateStateRejectsGarbage(t *testing.T) {
	_, _, err := MigrateState(json.RawMessage(`[1,2`))
	assert.Error(t, err)
}

func TestNormalizeStateDefaults(t *testing.T) {
	st, changes, err := NormalizeState(nil)
	require.NoError(t, err)
	assert.Empty(t, changes)
	assert.Equal(t, types.DefaultAppState(), st)

	st, _, err = NormalizeState(json.RawMessage(`{"version":2}`))
	require.NoError(t, err)
	assert.Equal(t, types.StageItemListing, st.CurrentStage)
	assert.Equal(t, []types.Stage{types.StageItemListing}, st.VisitedStages)
	assert.Equal(t, types.DefaultConfidenceWeights(), st.ConfidenceWeights)
	assert.Equal(t, types.DefaultConfidenceLevelLabels(), st.ConfidenceLevelLabels)
	assert.Equal(t, types.DefaultBucketTable(), st.Buckets)
}

func TestNormalizeStateRepairs(t *testing.T) {
	raw := json.RawMessage(`{
		"version": 2,
		"currentStage": "value",
		"visitedStages": ["urgency", "bogus", "urgency"],
		"confidenceWeights": {"1": 0.2, "2": -1, "7": 3},
		"confidenceLevelLabels": {"4": "Certain"},
		"buckets": {"urgency": {"1": {"weight": 4, "title": "Later"}}}
	}`)
	st, changes, err := NormalizeState(raw)
	require.NoError(t, err)
	assert.NotEmpty(t, changes)

	assert.Equal(t, []types.Stage{types.StageItemListing, types.StageUrgency, types.StageValue}, st.VisitedStages)
	assert.Equal(t, map[types.ConfidenceLevel]float64{1: 0.2, 2: 0.5, 3: 0.7, 4: 0.9}, st.ConfidenceWeights)
	assert.Equal(t, "Certain", st.ConfidenceLevelLabels[4])
	assert.Equal(t, "Not confident", st.ConfidenceLevelLabels[1])

	b, ok := st.Buckets.Get(types.CategoryUrgency, types.LevelLow)
	require.True(t, ok)
	assert.Equal(t, 4.0, b.Weight)
	assert.Equal(t, "Later", b.Title)
	_, ok = st.Buckets.Get(types.CategoryDuration, types.LevelHigh)
	assert.True(t, ok, "missing cells are filled")
}

func TestNormalizeStateUnknownStage(t *testing.T) {
	st, changes, err := NormalizeState(json.RawMessage(`{"version":2,"currentStage":"Sprint Planning"}`))
	require.NoError(t, err)
	assert.Equal(t, types.StageItemListing, st.CurrentStage)
	assert.Contains(t, changes[0], "Sprint Planning")
}

func TestNormalizeItems(t *testing.T) {
	raw := json.RawMessage(`[
		{"id": "cd3-a", "name": "  Alpha  ", "link": "ftp://nope", "urgency": 2, "urgencySet": true,
		 "value": 0, "valueSet": true, "duration": 9, "notes": ["first", "", {"text": "second", "createdAt": "2026-01-02T00:00:00Z"}],
		 "cd3": 99, "sequence": 0},
		{"id": "cd3-a", "name": "Alpha copy", "link": "https://example.com/x", "active": false, "sequence": 3},
		{"name": "", "urgency": "high"},
		"not an item",
		null
	]`)
	items, changes, err := NormalizeItems(raw, testGen(), testNow)
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.NotEmpty(t, changes)

	a := items[0]
	assert.Equal(t, "cd3-a", a.ID)
	assert.Equal(t, "Alpha", a.Name)
	assert.Nil(t, a.Link)
	assert.Equal(t, types.LevelMedium, a.Urgency.Level())
	assert.False(t, a.Value.IsSet(), "legacy set flag with level 0 reads as unset")
	assert.False(t, a.Duration.IsSet(), "out-of-range level cleared")
	assert.Zero(t, a.CD3, "derived fields are not trusted")
	assert.Nil(t, a.Sequence)
	assert.True(t, a.Active)
	assert.Equal(t, testNow, a.CreatedAt)
	require.Len(t, a.Notes, 2)
	assert.Equal(t, "first", a.Notes[0].Text)
	assert.Equal(t, testNow, a.Notes[0].CreatedAt)
	assert.Equal(t, "second", a.Notes[1].Text)
	assert.Equal(t, time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC), a.Notes[1].ModifiedAt)

	dup := items[1]
	assert.NotEqual(t, "cd3-a", dup.ID)
	assert.Regexp(t, `^cd3-[0-9a-z]{4,8}$`, dup.ID)
	assert.NotNil(t, dup.Link)
	assert.False(t, dup.Active)
	require.NotNil(t, dup.Sequence)
	assert.Equal(t, 3, *dup.Sequence)

	blank := items[2]
	assert.Equal(t, UntitledName, blank.Name)
	assert.NotEmpty(t, blank.ID)
	assert.False(t, blank.Urgency.IsSet())
	assert.NotNil(t, blank.Notes)
}

func TestNormalizeItemsDropsInvalidSurvey(t *testing.T) {
	raw := json.RawMessage(`[
		{"id": "ok", "name": "Ok", "confidenceSurvey": {"urgency": {"1": 2}, "value": {}, "duration": {}, "scope": {}}},
		{"id": "bad", "name": "Bad", "confidenceSurvey": {"urgency": {"9": 1}}},
		{"id": "neg", "name": "Neg", "confidenceSurvey": {"urgency": {"1": -3}}}
	]`)
	items, changes, err := NormalizeItems(raw, testGen(), testNow)
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.NotNil(t, items[0].ConfidenceSurvey)
	assert.Nil(t, items[1].ConfidenceSurvey)
	assert.Nil(t, items[2].ConfidenceSurvey)
	assert.Len(t, changes, 2)
}

func TestNormalizeItemsTruncatesLongNames(t *testing.T) {
	long := make([]byte, types.MaxNameLength+20)
	for i := range long {
		long[i] = 'x'
	}
	raw, err := json.Marshal([]map[string]any{{"id": "l", "name": string(long)}})
	require.NoError(t, err)
	items, _, err := NormalizeItems(raw, testGen(), testNow)
	require.NoError(t, err)
	assert.Len(t, items[0].Name, types.MaxNameLength)
	assert.NoError(t, items[0].Validate())
}

func TestNormalizeItemsRejectsNonArray(t *testing.T) {
	_, _, err := NormalizeItems(json.RawMessage(`{"id":"x"}`), testGen(), testNow)
	assert.Error(t, err)
}

func TestLoadEmptyStore(t *testing.T) {
	store := storage.NewStore(memory.New())
	state, items, report, err := Load(context.Background(), store, testGen(), testNow, nil)
	require.NoError(t, err)
	assert.Equal(t, types.DefaultAppState(), state)
	assert.Empty(t, items)
	assert.False(t, report.Changed())
}

func TestLoadRecomputesAndRepairs(t *testing.T) {
	ctx := context.Background()
	backend := memory.New()
	require.NoError(t, backend.Put(ctx, storage.KeyState, []byte(`{
		"entryStage": "Results",
		"visitedStages": ["Item Listing", "urgency", "value", "duration"],
		"activeSurveyItemId": "gone"
	}`)))
	require.NoError(t, backend.Put(ctx, storage.KeyItems, []byte(`[
		{"id": "a", "name": "A", "urgency": 3, "value": 3, "duration": 1, "sequence": 4},
		{"id": "b", "name": "B", "urgency": 1, "value": 1, "duration": 1, "sequence": 9},
		{"id": "c", "name": "C", "urgency": 2}
	]`)))

	state, items, report, err := Load(ctx, storage.NewStore(backend), testGen(), testNow, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, report.FromVersion)
	assert.True(t, report.Changed())

	assert.Equal(t, types.StageResults, state.CurrentStage)
	assert.Contains(t, state.VisitedStages, types.StageResults)
	assert.Nil(t, state.ActiveSurveyItemID)

	assert.Equal(t, 9.0, items[0].CostOfDelay)
	assert.Equal(t, 9.0, items[0].CD3)
	assert.Equal(t, 1, *items[0].Sequence)
	assert.Equal(t, 2, *items[1].Sequence)
	assert.Nil(t, items[2].Sequence)
	assert.Equal(t, types.Level(2), items[2].BoardPosition.Col)

	b, _ := state.Buckets.Get(types.CategoryUrgency, types.LevelHigh)
	assert.Equal(t, 1, b.Count)
}

type brokenLoader struct{}

func (brokenLoader) LoadState(context.Context) (json.RawMessage, error) {
	return nil, errors.New("disk on fire")
}

func (brokenLoader) LoadItems(context.Context) (json.RawMessage, error) {
	return nil, nil
}

func TestLoadPropagatesStorageErrors(t *testing.T) {
	_, _, _, err := Load(context.Background(), brokenLoader{}, testGen(), testNow, nil)
	assert.ErrorContains(t, err, "disk on fire")
}

func TestLoadCorruptItems(t *testing.T) {
	ctx := context.Background()
	backend := memory.New()
	require.NoError(t, backend.Put(ctx, storage.KeyItems, []byte(`[{"id":`)))
	_, _, _, err := Load(ctx, storage.NewStore(backend), testGen(), testNow, nil)
	assert.Error(t, err)
}
