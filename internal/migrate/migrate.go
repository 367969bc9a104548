// Package migrate upgrades and repairs persisted cd3 documents at load time.
//
// Stored state and items may come from older schema versions or from hand
// edits. Load always produces a consistent session: a valid stage history,
// a full bucket table, unique item ids, dense ranks and fresh metrics.
package migrate

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/cd3-tool/cd3/internal/buckets"
	"github.com/cd3-tool/cd3/internal/idgen"
	"github.com/cd3-tool/cd3/internal/metrics"
	"github.com/cd3-tool/cd3/internal/sequence"
	"github.com/cd3-tool/cd3/internal/types"
)

// Loader is the read side of storage.Store.
type Loader interface {
	LoadState(ctx context.Context) (json.RawMessage, error)
	LoadItems(ctx context.Context) (json.RawMessage, error)
}

// Report lists what Load had to change.
type Report struct {
	FromVersion int      `json:"fromVersion"`
	Changes     []string `json:"changes,omitempty"`
}

// Changed reports whether anything was migrated or repaired.
func (r *Report) Changed() bool {
	return r != nil && len(r.Changes) > 0
}

func (r *Report) add(format string, args ...any) {
	r.Changes = append(r.Changes, fmt.Sprintf(format, args...))
}

// MigrateState upgrades a raw state document to CurrentVersion.
// A nil document is returned unchanged.
func MigrateState(raw json.RawMessage) (json.RawMessage, int, error) {
	if raw == nil {
		return nil, types.CurrentVersion, nil
	}
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, 0, fmt.Errorf("decode state: %w", err)
	}

	from := 0
	if v, ok := doc["version"]; ok {
		if err := json.Unmarshal(v, &from); err != nil {
			from = 0
		}
	}
	if from >= types.CurrentVersion {
		return raw, from, nil
	}

	// v1 called the current stage "entryStage".
	if entry, ok := doc["entryStage"]; ok {
		if _, has := doc["currentStage"]; !has {
			doc["currentStage"] = entry
		}
		delete(doc, "entryStage")
	}
	doc["version"] = json.RawMessage(fmt.Sprint(types.CurrentVersion))

	out, err := json.Marshal(doc)
	if err != nil {
		return nil, from, fmt.Errorf("encode state: %w", err)
	}
	return out, from, nil
}

// NormalizeState decodes a migrated state document and fills or repairs
// every field. A nil document yields the default state.
func NormalizeState(raw json.RawMessage) (*types.AppState, []string, error) {
	if raw == nil {
		return types.DefaultAppState(), nil, nil
	}
	var st types.AppState
	if err := json.Unmarshal(raw, &st); err != nil {
		return nil, nil, fmt.Errorf("decode state: %w", err)
	}
	var changes []string
	note := func(format string, args ...any) {
		changes = append(changes, fmt.Sprintf(format, args...))
	}

	if st.Version != types.CurrentVersion {
		st.Version = types.CurrentVersion
	}
	if !st.CurrentStage.IsValid() {
		if st.CurrentStage != "" {
			note("unknown stage %q reset to %s", st.CurrentStage, types.StageItemListing)
		}
		st.CurrentStage = types.StageItemListing
	}

	visited := []types.Stage{types.StageItemListing}
	for _, s := range st.VisitedStages {
		if !s.IsValid() {
			note("dropped unknown visited stage %q", s)
			continue
		}
		if !contains(visited, s) {
			visited = append(visited, s)
		}
	}
	if !contains(visited, st.CurrentStage) {
		visited = append(visited, st.CurrentStage)
		note("current stage %s added to visited stages", st.CurrentStage)
	}
	st.VisitedStages = visited

	if st.ConfidenceWeights == nil {
		st.ConfidenceWeights = types.DefaultConfidenceWeights()
	} else {
		defaults := types.DefaultConfidenceWeights()
		for l := range st.ConfidenceWeights {
			if !l.IsValid() {
				delete(st.ConfidenceWeights, l)
				note("dropped confidence weight for level %d", l)
			}
		}
		for _, l := range types.ConfidenceLevels() {
			w, ok := st.ConfidenceWeights[l]
			if !ok || w < 0 || math.IsNaN(w) || math.IsInf(w, 0) {
				st.ConfidenceWeights[l] = defaults[l]
				if ok {
					note("invalid confidence weight for level %d reset to %.2f", l, defaults[l])
				}
			}
		}
	}

	labels := types.DefaultConfidenceLevelLabels()
	if st.ConfidenceLevelLabels == nil {
		st.ConfidenceLevelLabels = labels
	} else {
		for l := range st.ConfidenceLevelLabels {
			if !l.IsValid() {
				delete(st.ConfidenceLevelLabels, l)
			}
		}
		for _, l := range types.ConfidenceLevels() {
			if st.ConfidenceLevelLabels[l] == "" {
				st.ConfidenceLevelLabels[l] = labels[l]
			}
		}
	}

	if st.Buckets == nil {
		st.Buckets = types.DefaultBucketTable()
	} else if buckets.Normalize(st.Buckets) {
		note("bucket table repaired")
	}

	return &st, changes, nil
}

func contains(stages []types.Stage, s types.Stage) bool {
	for _, v := range stages {
		if v == s {
			return true
		}
	}
	return false
}

// Load reads both documents through l, migrates and normalizes them, and
// recomputes every derived field. Missing documents yield a fresh session.
func Load(ctx context.Context, l Loader, gen *idgen.Generator, now time.Time, log *zap.Logger) (*types.AppState, []*types.Item, *Report, error) {
	if log == nil {
		log = zap.NewNop()
	}
	report := &Report{FromVersion: types.CurrentVersion}

	rawState, err := l.LoadState(ctx)
	if err != nil {
		return nil, nil, nil, err
	}
	rawState, from, err := MigrateState(rawState)
	if err != nil {
		return nil, nil, nil, err
	}
	report.FromVersion = from
	if from < types.CurrentVersion {
		report.add("state migrated from version %d to %d", from, types.CurrentVersion)
	}
	state, changes, err := NormalizeState(rawState)
	if err != nil {
		return nil, nil, nil, err
	}
	report.Changes = append(report.Changes, changes...)

	rawItems, err := l.LoadItems(ctx)
	if err != nil {
		return nil, nil, nil, err
	}
	items, changes, err := NormalizeItems(rawItems, gen, now)
	if err != nil {
		return nil, nil, nil, err
	}
	report.Changes = append(report.Changes, changes...)

	if id := state.ActiveSurveyItemID; id != nil && findItem(items, *id) == nil {
		report.add("cleared open survey for missing item %s", *id)
		state.ActiveSurveyItemID = nil
	}

	metrics.RecomputeAll(items, state.Buckets, state.ConfidenceWeights, "")
	if sequence.Compact(items) {
		report.add("results ranks renumbered")
	}
	buckets.RecomputeCounts(state.Buckets, items)

	for _, c := range report.Changes {
		log.Debug("load repair", zap.String("change", c))
	}
	return state, items, report, nil
}

func findItem(items []*types.Item, id string) *types.Item {
	for _, it := range items {
		if it.ID == id {
			return it
		}
	}
	return nil
}
