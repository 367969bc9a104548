package engine

import (
	"context"
	"errors"

	"github.com/cd3-tool/cd3/internal/sequence"
	"github.com/cd3-tool/cd3/internal/types"
)

// Results events.
const (
	EventItemReordered = "item_reordered"
	EventResultsReset  = "results_reset"
	EventSessionReset  = "session_reset"
)

func requireResults(op string, w *working) error {
	if w.state.CurrentStage != types.StageResults {
		return stageErr(op, "the ranking can only be changed in the "+string(types.StageResults)+" stage")
	}
	return nil
}

func rankErr(op string, err error) error {
	if errors.Is(err, sequence.ErrNotFound) {
		return wrap(KindNotFound, op, err)
	}
	return wrap(KindValidation, op, err)
}

// ReorderItem swaps an item with its neighbour in the ranking.
func (e *Engine) ReorderItem(ctx context.Context, id string, dir sequence.Direction) (Result, error) {
	const op = "reorder"
	return e.mutate(ctx, op, EventItemReordered, func(w *working) (map[string]any, error) {
		if err := requireResults(op, w); err != nil {
			return nil, err
		}
		if err := sequence.Reorder(w.items, id, dir); err != nil {
			return nil, rankErr(op, err)
		}
		w.state.ResultsManuallyReordered = true
		return map[string]any{"id": id, "direction": string(dir), "sequence": w.find(id).SequenceValue()}, nil
	})
}

// MoveItem moves an item to a 1-based rank.
func (e *Engine) MoveItem(ctx context.Context, id string, position int) (Result, error) {
	const op = "move"
	return e.mutate(ctx, op, EventItemReordered, func(w *working) (map[string]any, error) {
		if err := requireResults(op, w); err != nil {
			return nil, err
		}
		if err := sequence.MoveTo(w.items, id, position); err != nil {
			return nil, rankErr(op, err)
		}
		w.state.ResultsManuallyReordered = true
		return map[string]any{"id": id, "sequence": position}, nil
	})
}

// ResetResultsOrder drops every manual move and ranks by CD3 again.
func (e *Engine) ResetResultsOrder(ctx context.Context) (Result, error) {
	const op = "reset order"
	return e.mutate(ctx, op, EventResultsReset, func(w *working) (map[string]any, error) {
		if err := requireResults(op, w); err != nil {
			return nil, err
		}
		sequence.Reset(w.items)
		w.state.ResultsManuallyReordered = false
		return map[string]any{"ranked": sequence.MaxSequence(w.items)}, nil
	})
}

// ClearAll deletes the stored session and starts over with defaults.
func (e *Engine) ClearAll(ctx context.Context) (Result, error) {
	const op = "clear"
	removed := len(e.items)
	e.state = types.DefaultAppState()
	e.state.UpdatedAt = e.now()
	e.items = []*types.Item{}

	var err error
	if e.persister != nil {
		if cerr := e.persister.ClearAll(ctx); cerr != nil {
			err = wrap(KindPersistence, op, cerr)
		}
	}
	extra := map[string]any{"removed": removed}
	e.notify(EventSessionReset)
	e.analytics.Track(ctx, EventSessionReset, extra)
	return ResultOf(err, extra), err
}
