// Package stage implements the prioritization workflow's state machine:
// which stage may follow which, and which item categories are editable in
// each stage.
//
// Rejections are reported as a Check value carrying a human readable
// reason. Nothing in this package mutates items or state.
package stage

import (
	"fmt"

	"github.com/cd3-tool/cd3/internal/types"
)

// Check is the outcome of a transition or edit guard.
type Check struct {
	OK     bool   `json:"ok"`
	Reason string `json:"reason,omitempty"`
}

func allow() Check { return Check{OK: true} }

func deny(format string, args ...any) Check {
	return Check{Reason: fmt.Sprintf(format, args...)}
}

// Err returns nil when the check passed and an error carrying the reason
// otherwise.
func (c Check) Err() error {
	if c.OK {
		return nil
	}
	return fmt.Errorf("%s", c.Reason)
}

// CanAdvance reports whether the workflow may leave current for the next
// stage given the items.
func CanAdvance(current types.Stage, items []*types.Item) Check {
	switch current {
	case types.StageItemListing:
		if len(items) == 0 {
			return deny("add at least one item before prioritizing")
		}
		return allow()
	case types.StageUrgency, types.StageValue, types.StageDuration:
		c, _ := current.Category()
		if missing := ParkingLot(c, items); len(missing) > 0 {
			return deny("%d item(s) still need a %s rating (e.g. %q)", len(missing), c, missing[0].Name)
		}
		return allow()
	case types.StageResults:
		return allow()
	case types.StageCD3:
		return deny("%s is the final stage", types.StageCD3)
	}
	return deny("unknown stage %q", current)
}

// CanGoBack reports whether there is a previous stage.
func CanGoBack(current types.Stage) Check {
	if _, ok := current.Prev(); !ok {
		if current == types.StageItemListing {
			return deny("already at the first stage")
		}
		return deny("unknown stage %q", current)
	}
	return allow()
}

// CanNavigateTo reports whether target may be reached directly from
// current. Backward moves need target to have been visited; forward moves
// need every intermediate advance rule to hold, checked in order.
func CanNavigateTo(target, current types.Stage, visited []types.Stage, items []*types.Item) Check {
	ti, ci := target.Index(), current.Index()
	switch {
	case ti < 0:
		return deny("unknown stage %q", target)
	case ci < 0:
		return deny("unknown stage %q", current)
	case ti == ci:
		return deny("already at %s", target)
	case ti < ci:
		for _, v := range visited {
			if v == target {
				return allow()
			}
		}
		return deny("%s has not been visited yet", target)
	}
	stages := types.Stages()
	for i := ci; i < ti; i++ {
		if chk := CanAdvance(stages[i], items); !chk.OK {
			return chk
		}
	}
	return allow()
}

// NavigateTo checks the move and returns the visited list extended with
// every stage passed on a forward move.
func NavigateTo(target, current types.Stage, visited []types.Stage, items []*types.Item) ([]types.Stage, Check) {
	chk := CanNavigateTo(target, current, visited, items)
	if !chk.OK {
		return visited, chk
	}
	out := append([]types.Stage(nil), visited...)
	if target.Index() < current.Index() {
		return out, chk
	}
	stages := types.Stages()
	for i := current.Index(); i <= target.Index(); i++ {
		out = appendUnique(out, stages[i])
	}
	return out, chk
}

func appendUnique(stages []types.Stage, s types.Stage) []types.Stage {
	for _, v := range stages {
		if v == s {
			return stages
		}
	}
	return append(stages, s)
}

// CanEditCategory reports whether ratings in category c may be changed.
// A category opens once its stage is reached; when locked, only the
// current stage's category is editable. From Results onward an unlocked
// session may edit every category and a locked one none.
func CanEditCategory(c types.Category, current types.Stage, locked bool) Check {
	if !c.IsValid() {
		return deny("invalid category %q", c)
	}
	owner := types.StageFor(c)
	ci := current.Index()
	if ci < 0 {
		return deny("unknown stage %q", current)
	}
	if ci >= types.StageResults.Index() {
		if locked {
			return deny("ratings are locked; unlock to edit %s", c)
		}
		return allow()
	}
	if ci < owner.Index() {
		return deny("%s cannot be set before the %s stage", c, owner)
	}
	if locked && current != owner {
		return deny("ratings are locked; %s can only be edited in the %s stage", c, owner)
	}
	return allow()
}

// ParkingLot returns the items that still lack a rating in category c, in
// input order.
func ParkingLot(c types.Category, items []*types.Item) []*types.Item {
	var out []*types.Item
	for _, it := range items {
		if !it.Rating(c).IsSet() {
			out = append(out, it)
		}
	}
	return out
}
