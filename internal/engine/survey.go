package engine

import (
	"context"

	"github.com/cd3-tool/cd3/internal/metrics"
	"github.com/cd3-tool/cd3/internal/types"
)

// Survey events.
const (
	EventSurveyOpened    = "survey_opened"
	EventSurveySubmitted = "survey_submitted"
	EventSurveyDeleted   = "survey_deleted"
	EventSurveyCancelled = "survey_cancelled"
)

// OpenSurvey marks id as the item whose confidence survey is being taken.
func (e *Engine) OpenSurvey(ctx context.Context, id string) (Result, error) {
	const op = "open survey"
	return e.mutate(ctx, op, EventSurveyOpened, func(w *working) (map[string]any, error) {
		if _, err := w.mustFind(op, id); err != nil {
			return nil, err
		}
		open := id
		w.state.ActiveSurveyItemID = &open
		return map[string]any{"id": id}, nil
	})
}

// SubmitSurvey stores the votes for an item and closes the survey if it
// was open for that item. Missing dimensions count as zero votes.
func (e *Engine) SubmitSurvey(ctx context.Context, id string, survey *types.ConfidenceSurvey) (Result, error) {
	const op = "submit survey"
	return e.mutate(ctx, op, EventSurveySubmitted, func(w *working) (map[string]any, error) {
		it, err := w.mustFind(op, id)
		if err != nil {
			return nil, err
		}
		if survey == nil {
			return nil, validationf(op, "survey is required")
		}
		if err := survey.Validate(); err != nil {
			return nil, validationf(op, "%v", err)
		}
		s := types.NewConfidenceSurvey()
		for _, d := range types.SurveyDimensions() {
			for l, n := range survey.Votes(d) {
				s.Votes(d)[l] = n
			}
		}
		it.ConfidenceSurvey = s
		it.ConfidenceWeightedCD3, it.ConfidenceBreakdown = metrics.ConfidenceWeighted(it, w.state.Buckets, w.state.ConfidenceWeights)
		if w.state.ActiveSurveyItemID != nil && *w.state.ActiveSurveyItemID == id {
			w.state.ActiveSurveyItemID = nil
		}
		extra := map[string]any{"id": id}
		if it.ConfidenceWeightedCD3 != nil {
			extra["confidenceWeightedCD3"] = *it.ConfidenceWeightedCD3
		}
		return extra, nil
	})
}

// DeleteSurvey discards an item's survey and its confidence-weighted CD3.
func (e *Engine) DeleteSurvey(ctx context.Context, id string) (Result, error) {
	const op = "delete survey"
	return e.mutate(ctx, op, EventSurveyDeleted, func(w *working) (map[string]any, error) {
		it, err := w.mustFind(op, id)
		if err != nil {
			return nil, err
		}
		if it.ConfidenceSurvey == nil {
			return nil, notFoundf(op, "item %s has no survey", id)
		}
		it.ConfidenceSurvey = nil
		it.ConfidenceWeightedCD3, it.ConfidenceBreakdown = nil, nil
		if w.state.ActiveSurveyItemID != nil && *w.state.ActiveSurveyItemID == id {
			w.state.ActiveSurveyItemID = nil
		}
		return map[string]any{"id": id}, nil
	})
}

// CancelSurvey closes the open survey without recording votes.
func (e *Engine) CancelSurvey(ctx context.Context) (Result, error) {
	const op = "cancel survey"
	return e.mutate(ctx, op, EventSurveyCancelled, func(w *working) (map[string]any, error) {
		if w.state.ActiveSurveyItemID == nil {
			return nil, validationf(op, "no survey is open")
		}
		id := *w.state.ActiveSurveyItemID
		w.state.ActiveSurveyItemID = nil
		return map[string]any{"id": id}, nil
	})
}
