package main

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cd3-tool/cd3/internal/buckets"
	"github.com/cd3-tool/cd3/internal/config"
	"github.com/cd3-tool/cd3/internal/engine"
	"github.com/cd3-tool/cd3/internal/types"
)

func TestParseLevelArg(t *testing.T) {
	table := types.DefaultBucketTable()
	tests := []struct {
		category types.Category
		in       string
		want     types.Level
	}{
		{types.CategoryUrgency, "3", types.LevelHigh},
		{types.CategoryUrgency, "low", types.LevelLow},
		{types.CategoryValue, "M", types.LevelMedium},
		{types.CategoryDuration, "weeks", types.LevelMedium},
		{types.CategoryUrgency, "High urgency", types.LevelHigh},
		{types.CategoryDuration, " months ", types.LevelHigh},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseLevelArg(table, tt.category, tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := parseLevelArg(table, types.CategoryValue, "enormous")
	assert.Error(t, err)
}

func TestParseVotes(t *testing.T) {
	votes, err := parseVotes("0, 1,2,3")
	require.NoError(t, err)
	assert.Equal(t, 0, votes[1])
	assert.Equal(t, 3, votes[4])

	for _, bad := range []string{"1,2,3", "1,2,3,4,5", "1,x,2,3", "1,-1,2,3"} {
		_, err := parseVotes(bad)
		assert.Error(t, err, bad)
	}
}

func TestNoteNumber(t *testing.T) {
	n, err := noteNumber("2")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, err = noteNumber("0")
	assert.Error(t, err)
	_, err = noteNumber("two")
	assert.Error(t, err)
}

func TestIsSessionFile(t *testing.T) {
	tests := map[string]bool{
		"/tmp/.cd3/state.json":  true,
		"/tmp/.cd3/items.json":  true,
		"/tmp/.cd3/cd3.db":      true,
		"/tmp/.cd3/cd3.db-wal":  true,
		"/tmp/.cd3/.items.lock": false,
		"/tmp/.cd3/items.tmp":   false,
		"/tmp/.cd3/config.yaml": false,
	}
	for name, want := range tests {
		assert.Equal(t, want, isSessionFile(name), name)
	}
}

func TestNeedsStore(t *testing.T) {
	find := func(args ...string) *cobra.Command {
		t.Helper()
		c, _, err := rootCmd.Find(args)
		require.NoError(t, err)
		return c
	}
	assert.False(t, needsStore(rootCmd))
	assert.False(t, needsStore(find("init")))
	assert.False(t, needsStore(find("version")))
	assert.False(t, needsStore(find("config", "set")))
	assert.True(t, needsStore(find("list")))
	assert.True(t, needsStore(find("results", "up")))
	assert.True(t, needsStore(find("survey", "submit")))
}

func TestListOptionsApply(t *testing.T) {
	now := time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC)
	items := []*types.Item{
		{ID: "a", Name: "Old", Active: true, CreatedAt: now.AddDate(0, 0, -30)},
		{ID: "b", Name: "Recent", Active: true, CreatedAt: now.AddDate(0, 0, -2)},
		{ID: "c", Name: "Paused", Active: false, CreatedAt: now.AddDate(0, 0, -1)},
	}
	ids := func(items []*types.Item) []string {
		var out []string
		for _, it := range items {
			out = append(out, it.ID)
		}
		return out
	}
	byName := types.ParseItemSortOrder("name-asc")

	assert.Equal(t, []string{"a", "c", "b"}, ids(listOptions{sort: byName}.apply(items)))
	assert.Equal(t, []string{"c", "b"}, ids(listOptions{sort: byName, since: now.AddDate(0, 0, -7)}.apply(items)))
	assert.Equal(t, []string{"a", "b"}, ids(listOptions{sort: byName, activeOnly: true}.apply(items)))
	assert.Equal(t, []string{"c"}, ids(listOptions{sort: byName, inactiveOnly: true}.apply(items)))
}

func TestDoltConfigFromLocal(t *testing.T) {
	isolate(t)
	config.ResetForTesting()
	require.NoError(t, config.Initialize())
	t.Cleanup(config.ResetForTesting)

	off := false
	cfg := doltConfig(&config.LocalConfig{Dolt: config.LocalDolt{
		Host:       "dolt.internal",
		Port:       3307,
		Database:   "backlog",
		AutoCommit: &off,
	}})
	assert.Equal(t, "dolt.internal", cfg.Host)
	assert.Equal(t, 3307, cfg.Port)
	assert.Equal(t, "root", cfg.User)
	assert.Equal(t, "backlog", cfg.Database)
	assert.False(t, cfg.AutoCommit)

	t.Setenv("CD3_DOLT_HOST", "from-env")
	config.ResetForTesting()
	require.NoError(t, config.Initialize())
	cfg = doltConfig(&config.LocalConfig{Dolt: config.LocalDolt{Host: "dolt.internal"}})
	assert.Equal(t, "from-env", cfg.Host)
}

func TestObserverReportsNewOverflowOnce(t *testing.T) {
	oldJSON := jsonOutput
	t.Cleanup(func() { jsonOutput = oldJSON })
	jsonOutput = false
	t.Setenv("NO_COLOR", "1")

	state := types.DefaultAppState()
	var buf bytes.Buffer
	obs := newCLIObserver(&buf)
	obs.prime(nil)

	b, _ := state.Buckets.Get(types.CategoryUrgency, types.LevelHigh)
	limit := 1
	b.Limit, b.Count, b.OverLimit = &limit, 2, true
	state.Buckets.Put(types.CategoryUrgency, types.LevelHigh, b)

	obs.Render(engine.Snapshot{Event: "item_property_set", State: state})
	assert.Contains(t, buf.String(), "holds 2 items, limit is 1")

	buf.Reset()
	obs.Render(engine.Snapshot{Event: "item_property_set", State: state})
	assert.Empty(t, buf.String(), "an overflow already reported stays quiet")

	obs.Render(engine.Snapshot{Event: engine.EventStageChanged, State: state})
	assert.NotEmpty(t, buf.String())
	assert.Equal(t, []buckets.Ref{{Category: types.CategoryUrgency, Level: types.LevelHigh}}, buckets.OverLimit(state.Buckets))
}

func TestHintErrorUnwraps(t *testing.T) {
	base := errors.New("no .cd3 directory")
	err := hintError{err: base, hint: "run init"}
	assert.ErrorIs(t, err, base)
	assert.Equal(t, "no .cd3 directory", err.Error())
}
