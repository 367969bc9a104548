package engine

import (
	"context"
	"math"

	"github.com/cd3-tool/cd3/internal/buckets"
	"github.com/cd3-tool/cd3/internal/metrics"
	"github.com/cd3-tool/cd3/internal/types"
)

// Configuration events.
const (
	EventBucketUpdated       = "bucket_updated"
	EventBucketPresetApplied = "bucket_preset_applied"
	EventConfidenceWeightSet = "confidence_weight_set"
)

// SetBucketField updates one field of one bucket from its text form. A
// weight change recomputes the items rated in that category.
func (e *Engine) SetBucketField(ctx context.Context, c types.Category, l types.Level, field buckets.Field, value string) (Result, error) {
	const op = "set bucket"
	return e.mutate(ctx, op, EventBucketUpdated, func(w *working) (map[string]any, error) {
		affected, err := buckets.Set(w.state.Buckets, c, l, field, value)
		if err != nil {
			return nil, validationf(op, "%v", err)
		}
		changed := []string{}
		if affected != "" {
			changed = append(changed, recomputeCategory(w, affected)...)
		}
		return map[string]any{
			"category": string(c),
			"level":    int(l),
			"field":    string(field),
			"value":    value,
			"changed":  changed,
		}, nil
	})
}

// ApplyBucketPreset writes a whole preset. Nothing is applied when any part
// of it is invalid.
func (e *Engine) ApplyBucketPreset(ctx context.Context, p *buckets.Preset) (Result, error) {
	const op = "apply preset"
	return e.mutate(ctx, op, EventBucketPresetApplied, func(w *working) (map[string]any, error) {
		if p == nil {
			return nil, validationf(op, "preset is required")
		}
		cats, err := buckets.ApplyPreset(w.state.Buckets, p)
		if err != nil {
			return nil, validationf(op, "%v", err)
		}
		changed := []string{}
		for _, c := range cats {
			changed = append(changed, recomputeCategory(w, c)...)
		}
		return map[string]any{"preset": p.Name, "changed": dedupe(changed)}, nil
	})
}

// SetConfidenceWeight changes the multiplier of one survey confidence level
// and refreshes every confidence-weighted CD3.
func (e *Engine) SetConfidenceWeight(ctx context.Context, level types.ConfidenceLevel, multiplier float64) (Result, error) {
	const op = "set confidence weight"
	return e.mutate(ctx, op, EventConfidenceWeightSet, func(w *working) (map[string]any, error) {
		if !level.IsValid() {
			return nil, validationf(op, "confidence level must be between 1 and 4 (got %d)", level)
		}
		if multiplier < 0 || math.IsNaN(multiplier) || math.IsInf(multiplier, 0) {
			return nil, validationf(op, "multiplier must be a non-negative number (got %v)", multiplier)
		}
		w.state.ConfidenceWeights[level] = multiplier
		for _, it := range w.items {
			it.ConfidenceWeightedCD3, it.ConfidenceBreakdown = metrics.ConfidenceWeighted(it, w.state.Buckets, w.state.ConfidenceWeights)
		}
		return map[string]any{"level": int(level), "multiplier": multiplier}, nil
	})
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
