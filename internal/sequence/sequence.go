// Package sequence maintains the 1-based results ranking. It merges the
// automatic CD3 order with manual moves and places newly scored items into
// a ranking the user has already rearranged.
//
// Every operation keeps the ranks of sequenced items dense: with K items
// sequenced, their ranks are exactly 1..K.
package sequence

import (
	"errors"
	"fmt"
	"sort"

	"github.com/cd3-tool/cd3/internal/metrics"
	"github.com/cd3-tool/cd3/internal/types"
)

// Sentinel errors returned by the ranking operations.
var (
	ErrNotFound     = errors.New("item not found")
	ErrNotSequenced = errors.New("item has no rank")
	ErrOutOfBounds  = errors.New("move out of bounds")
)

// Direction is a single-step manual move.
type Direction string

// Directions
const (
	Up   Direction = "up"
	Down Direction = "down"
)

// ParseDirection converts user input into a Direction.
func ParseDirection(s string) (Direction, error) {
	switch Direction(s) {
	case Up, Down:
		return Direction(s), nil
	}
	return "", fmt.Errorf("invalid direction %q (valid: up, down)", s)
}

func setRank(it *types.Item, rank int) {
	r := rank
	it.Sequence = &r
}

// MaxSequence returns the highest rank in use, or 0.
func MaxSequence(items []*types.Item) int {
	max := 0
	for _, it := range items {
		if it.Sequence != nil && *it.Sequence > max {
			max = *it.Sequence
		}
	}
	return max
}

// AssignSequenceNumbers ranks every unsequenced item with a positive CD3,
// in CD3 order, after the current highest rank. It returns the ids ranked.
func AssignSequenceNumbers(items []*types.Item) []string {
	var pending []*types.Item
	for _, it := range items {
		if it.Sequence == nil && it.CD3 > 0 {
			pending = append(pending, it)
		}
	}
	next := MaxSequence(items) + 1
	var ids []string
	for _, it := range metrics.SortedByCD3(pending) {
		setRank(it, next)
		next++
		ids = append(ids, it.ID)
	}
	return ids
}

// Resequence ranks every item with a positive CD3 by CD3 order as 1..M and
// clears the rank of the rest.
func Resequence(items []*types.Item) {
	var scored []*types.Item
	for _, it := range items {
		if it.CD3 > 0 {
			scored = append(scored, it)
		} else {
			it.Sequence = nil
		}
	}
	for i, it := range metrics.SortedByCD3(scored) {
		setRank(it, i+1)
	}
}

// Reset discards every manual move and ranks by CD3. The caller clears the
// session's manually-reordered flag.
func Reset(items []*types.Item) {
	for _, it := range items {
		it.Sequence = nil
		it.AddedToManuallySequencedList = false
		it.Reordered = false
	}
	AssignSequenceNumbers(items)
}

func find(items []*types.Item, id string) *types.Item {
	for _, it := range items {
		if it.ID == id {
			return it
		}
	}
	return nil
}

func markMoved(it *types.Item) {
	it.Reordered = true
	it.AddedToManuallySequencedList = false
}

// Reorder swaps item id with its neighbour one rank up or down. On error
// nothing changes. The caller marks the session as manually reordered.
func Reorder(items []*types.Item, id string, dir Direction) error {
	it := find(items, id)
	if it == nil {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if it.Sequence == nil {
		return fmt.Errorf("%w: %s", ErrNotSequenced, id)
	}
	cur := *it.Sequence
	target := cur - 1
	if dir == Down {
		target = cur + 1
	} else if dir != Up {
		return fmt.Errorf("invalid direction %q", dir)
	}
	if target < 1 || target > MaxSequence(items) {
		return fmt.Errorf("%w: %s cannot move %s from rank %d", ErrOutOfBounds, id, dir, cur)
	}
	for _, other := range items {
		if other != it && other.Sequence != nil && *other.Sequence == target {
			setRank(other, cur)
			break
		}
	}
	setRank(it, target)
	markMoved(it)
	return nil
}

// MoveTo moves item id to rank pos, shifting the items in between by one.
func MoveTo(items []*types.Item, id string, pos int) error {
	it := find(items, id)
	if it == nil {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if it.Sequence == nil {
		return fmt.Errorf("%w: %s", ErrNotSequenced, id)
	}
	max := MaxSequence(items)
	if pos < 1 || pos > max {
		return fmt.Errorf("%w: rank %d is outside 1..%d", ErrOutOfBounds, pos, max)
	}
	cur := *it.Sequence
	if pos == cur {
		return nil
	}
	for _, other := range items {
		if other == it || other.Sequence == nil {
			continue
		}
		s := *other.Sequence
		switch {
		case pos < cur && s >= pos && s < cur:
			setRank(other, s+1)
		case pos > cur && s > cur && s <= pos:
			setRank(other, s-1)
		}
	}
	setRank(it, pos)
	markMoved(it)
	return nil
}

// Insert places item, whose CD3 has just become positive, into the
// ranking. Without manual reordering the whole ranking is rebuilt by CD3.
// Otherwise the item takes the rank of the highest-CD3 item scoring below
// it (the lowest rank wins ties) and everything from there shifts down; if
// nothing scores lower it goes last.
func Insert(items []*types.Item, item *types.Item, manuallyReordered bool) {
	if !manuallyReordered {
		Resequence(items)
		return
	}
	if item.Sequence != nil {
		item.Sequence = nil
		Compact(items)
	}

	var below *types.Item
	for _, other := range items {
		if other == item || other.Sequence == nil || other.CD3 >= item.CD3 {
			continue
		}
		if below == nil || other.CD3 > below.CD3 ||
			(other.CD3 == below.CD3 && *other.Sequence < *below.Sequence) {
			below = other
		}
	}

	rank := MaxSequence(items) + 1
	if below != nil {
		rank = *below.Sequence
		for _, other := range items {
			if other != item && other.Sequence != nil && *other.Sequence >= rank {
				setRank(other, *other.Sequence+1)
			}
		}
	}
	setRank(item, rank)
	item.AddedToManuallySequencedList = true
}

// Compact renumbers the sequenced items 1..K keeping their relative order.
// It reports whether any rank changed.
func Compact(items []*types.Item) bool {
	var ranked []*types.Item
	for _, it := range items {
		if it.Sequence != nil {
			ranked = append(ranked, it)
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := *ranked[i].Sequence, *ranked[j].Sequence
		if a != b {
			return a < b
		}
		return metrics.LessByCD3(ranked[i], ranked[j])
	})
	changed := false
	for i, it := range ranked {
		if *it.Sequence != i+1 {
			setRank(it, i+1)
			changed = true
		}
	}
	return changed
}

// Validate returns an error unless the sequenced items hold exactly the
// ranks 1..K.
func Validate(items []*types.Item) error {
	var ranks []int
	for _, it := range items {
		if it.Sequence != nil {
			ranks = append(ranks, *it.Sequence)
		}
	}
	sort.Ints(ranks)
	for i, r := range ranks {
		if r != i+1 {
			return fmt.Errorf("ranks are not contiguous: position %d holds rank %d", i+1, r)
		}
	}
	return nil
}

// Ordered returns the items in presentation order: sequenced items by rank,
// then the rest in CD3 order.
func Ordered(items []*types.Item) []*types.Item {
	var ranked, rest []*types.Item
	for _, it := range items {
		if it.Sequence != nil {
			ranked = append(ranked, it)
		} else {
			rest = append(rest, it)
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return *ranked[i].Sequence < *ranked[j].Sequence
	})
	return append(ranked, metrics.SortedByCD3(rest)...)
}
