// Package metrics derives board position, cost of delay, CD3 and the
// confidence-weighted CD3 of an item from its categorical inputs.
//
// Every function here is pure: it reads the bucket table and confidence
// weights and writes only the derived fields of the items it is given.
package metrics

import (
	"sort"
	"strings"

	"github.com/cd3-tool/cd3/internal/types"
)

// BoardPositionOf returns where an item sits on the value x urgency board.
func BoardPositionOf(it *types.Item) types.BoardPosition {
	switch {
	case it.Value.IsSet():
		pos := types.BoardPosition{Row: it.Value.Level(), Col: it.Urgency.Level()}
		if it.Duration.IsSet() {
			d := it.Duration.Level()
			pos.DurationBucket = &d
		}
		return pos
	case it.Urgency.IsSet():
		return types.BoardPosition{Col: it.Urgency.Level()}
	}
	return types.BoardPosition{}
}

// CostOfDelay is weight(urgency) x weight(value), or 0 if either is unset.
func CostOfDelay(it *types.Item, table types.BucketTable) float64 {
	wu, ok := table.Weight(types.CategoryUrgency, it.Urgency)
	if !ok {
		return 0
	}
	wv, ok := table.Weight(types.CategoryValue, it.Value)
	if !ok {
		return 0
	}
	return wu * wv
}

// CD3 divides cost of delay by the duration weight. It is 0 when the
// duration is unset, the cost of delay is 0, or the duration weight is 0.
func CD3(costOfDelay float64, it *types.Item, table types.BucketTable) float64 {
	wd, ok := table.Weight(types.CategoryDuration, it.Duration)
	if !ok {
		return 0
	}
	return divide(costOfDelay, wd)
}

func divide(num, den float64) float64 {
	if num == 0 || den == 0 {
		return 0
	}
	return num / den
}

// ConfidenceAverage is the vote-weighted mean confidence multiplier of one
// survey dimension. It returns false when there are no votes.
func ConfidenceAverage(votes types.VoteCounts, weights map[types.ConfidenceLevel]float64) (float64, bool) {
	var sum float64
	total := 0
	for _, l := range types.ConfidenceLevels() {
		n := votes[l]
		if n <= 0 {
			continue
		}
		sum += float64(n) * weights[l]
		total += n
	}
	if total == 0 {
		return 0, false
	}
	return sum / float64(total), true
}

// ConfidenceWeighted computes the confidence-weighted CD3 and its breakdown.
// It returns nils when the item has no survey, any category is unset, or
// any scored dimension has zero votes.
func ConfidenceWeighted(it *types.Item, table types.BucketTable, weights map[types.ConfidenceLevel]float64) (*float64, *types.ConfidenceBreakdown) {
	s := it.ConfidenceSurvey
	if s == nil || !it.FullyRated() {
		return nil, nil
	}
	cu, ok := ConfidenceAverage(s.Urgency, weights)
	if !ok {
		return nil, nil
	}
	cv, ok := ConfidenceAverage(s.Value, weights)
	if !ok {
		return nil, nil
	}
	cd, ok := ConfidenceAverage(s.Duration, weights)
	if !ok {
		return nil, nil
	}

	wu, _ := table.Weight(types.CategoryUrgency, it.Urgency)
	wv, _ := table.Weight(types.CategoryValue, it.Value)
	wd, _ := table.Weight(types.CategoryDuration, it.Duration)

	b := &types.ConfidenceBreakdown{
		UrgencyConfidence:  cu,
		ValueConfidence:    cv,
		DurationConfidence: cd,
		WeightedUrgency:    wu * cu,
		WeightedValue:      wv * cv,
		WeightedDuration:   wd * cd,
	}
	b.WeightedCostOfDelay = b.WeightedUrgency * b.WeightedValue
	score := divide(b.WeightedCostOfDelay, b.WeightedDuration)
	return &score, b
}

// Recompute refreshes every derived field of it in order: board position,
// cost of delay, CD3, then the confidence-weighted CD3.
func Recompute(it *types.Item, table types.BucketTable, weights map[types.ConfidenceLevel]float64) {
	it.BoardPosition = BoardPositionOf(it)
	it.CostOfDelay = CostOfDelay(it, table)
	it.CD3 = CD3(it.CostOfDelay, it, table)
	it.ConfidenceWeightedCD3, it.ConfidenceBreakdown = ConfidenceWeighted(it, table, weights)
}

// RecomputeAll refreshes the items a weight change in category affected can
// reach. Urgency and value changes recompute cost of delay and CD3; a
// duration change recomputes CD3 only. An empty category recomputes
// everything. It returns the ids whose CD3 changed.
func RecomputeAll(items []*types.Item, table types.BucketTable, weights map[types.ConfidenceLevel]float64, affected types.Category) []string {
	var changed []string
	for _, it := range items {
		before := it.CD3
		switch affected {
		case types.CategoryUrgency, types.CategoryValue:
			it.CostOfDelay = CostOfDelay(it, table)
			it.CD3 = CD3(it.CostOfDelay, it, table)
		case types.CategoryDuration:
			it.CD3 = CD3(it.CostOfDelay, it, table)
		default:
			Recompute(it, table, weights)
		}
		it.ConfidenceWeightedCD3, it.ConfidenceBreakdown = ConfidenceWeighted(it, table, weights)
		if it.CD3 != before {
			changed = append(changed, it.ID)
		}
	}
	return changed
}

// LessByCD3 orders by CD3 descending, then name ascending ignoring case,
// then id.
func LessByCD3(a, b *types.Item) bool {
	if a.CD3 != b.CD3 {
		return a.CD3 > b.CD3
	}
	an, bn := strings.ToLower(a.Name), strings.ToLower(b.Name)
	if an != bn {
		return an < bn
	}
	return a.ID < b.ID
}

// SortedByCD3 returns a new slice of the items in CD3 order. The items
// themselves are shared with the input.
func SortedByCD3(items []*types.Item) []*types.Item {
	out := append([]*types.Item(nil), items...)
	sort.SliceStable(out, func(i, j int) bool {
		return LessByCD3(out[i], out[j])
	})
	return out
}
