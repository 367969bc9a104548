package engine

import (
	"context"

	"github.com/cd3-tool/cd3/internal/sequence"
	"github.com/cd3-tool/cd3/internal/stage"
	"github.com/cd3-tool/cd3/internal/types"
)

// Workflow events.
const (
	EventStageChanged = "stage_changed"
	EventLockChanged  = "lock_changed"
)

// Advance moves to the next stage if the current one is complete.
func (e *Engine) Advance(ctx context.Context) (Result, error) {
	next, ok := e.state.CurrentStage.Next()
	if !ok {
		err := stageErr("advance", string(e.state.CurrentStage)+" is the final stage")
		return ResultOf(err, nil), err
	}
	return e.navigate(ctx, "advance", next)
}

// Back returns to the previous stage.
func (e *Engine) Back(ctx context.Context) (Result, error) {
	if check := stage.CanGoBack(e.state.CurrentStage); !check.OK {
		err := stageErr("back", check.Reason)
		return ResultOf(err, nil), err
	}
	prev, _ := e.state.CurrentStage.Prev()
	return e.navigate(ctx, "back", prev)
}

// NavigateTo jumps to target: backward to any visited stage, forward when
// every stage in between may be advanced.
func (e *Engine) NavigateTo(ctx context.Context, target types.Stage) (Result, error) {
	return e.navigate(ctx, "navigate", target)
}

func (e *Engine) navigate(ctx context.Context, op string, target types.Stage) (Result, error) {
	return e.mutate(ctx, op, EventStageChanged, func(w *working) (map[string]any, error) {
		if !target.IsValid() {
			return nil, validationf(op, "unknown stage %q", target)
		}
		from := w.state.CurrentStage
		visited, check := stage.NavigateTo(target, from, w.state.VisitedStages, w.items)
		if !check.OK {
			return nil, stageErr(op, check.Reason)
		}
		w.state.VisitedStages = visited
		w.state.CurrentStage = target

		var ranked []string
		if target.Index() >= types.StageResults.Index() {
			ranked = sequence.AssignSequenceNumbers(w.items)
		}
		return map[string]any{"from": string(from), "to": string(target), "ranked": len(ranked)}, nil
	})
}

// SetLocked turns the edit lock on or off. While locked only the current
// stage's category may be edited.
func (e *Engine) SetLocked(ctx context.Context, locked bool) (Result, error) {
	return e.mutate(ctx, "lock", EventLockChanged, func(w *working) (map[string]any, error) {
		w.state.Locked = locked
		return map[string]any{"locked": locked}, nil
	})
}
