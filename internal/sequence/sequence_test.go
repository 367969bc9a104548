package sequence

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cd3-tool/cd3/internal/types"
)

func scored(id string, cd3 float64, rank int) *types.Item {
	it := &types.Item{ID: id, Name: id, CD3: cd3}
	if rank > 0 {
		setRank(it, rank)
	}
	return it
}

func ranks(items []*types.Item) map[string]int {
	out := make(map[string]int, len(items))
	for _, it := range items {
		if it.Sequence != nil {
			out[it.ID] = *it.Sequence
		}
	}
	return out
}

func TestAssignSequenceNumbers(t *testing.T) {
	items := []*types.Item{
		scored("low", 1, 0),
		scored("high", 5, 0),
		scored("zero", 0, 0),
		scored("mid", 3, 0),
	}
	ids := AssignSequenceNumbers(items)
	assert.Equal(t, []string{"high", "mid", "low"}, ids)
	assert.Equal(t, map[string]int{"high": 1, "mid": 2, "low": 3}, ranks(items))
	require.NoError(t, Validate(items))

	// Later arrivals continue after the current highest rank.
	items = append(items, scored("late", 9, 0))
	AssignSequenceNumbers(items)
	assert.Equal(t, 4, *items[4].Sequence)
	require.NoError(t, Validate(items))
}

// Without manual moves a newly scored item triggers a full CD3 resequence.
func TestInsertAutomatic(t *testing.T) {
	x := scored("X", 5, 1)
	y := scored("Y", 3, 2)
	z := scored("Z", 4, 0)
	items := []*types.Item{x, y, z}

	Insert(items, z, false)
	assert.Equal(t, map[string]int{"X": 1, "Z": 2, "Y": 3}, ranks(items))
	assert.False(t, z.AddedToManuallySequencedList)
	require.NoError(t, Validate(items))
}

// With manual moves a new item slots in above the best-scoring lower item.
func TestInsertManual(t *testing.T) {
	x := scored("X", 5, 1)
	y := scored("Y", 1, 2)
	z := scored("Z", 3, 0)
	items := []*types.Item{x, y, z}

	Insert(items, z, true)
	assert.Equal(t, map[string]int{"X": 1, "Z": 2, "Y": 3}, ranks(items))
	assert.True(t, z.AddedToManuallySequencedList)
	require.NoError(t, Validate(items))
}

func TestInsertManualEdgeCases(t *testing.T) {
	t.Run("nothing lower appends", func(t *testing.T) {
		a := scored("A", 5, 2)
		b := scored("B", 7, 1)
		n := scored("N", 2, 0)
		items := []*types.Item{a, b, n}
		Insert(items, n, true)
		assert.Equal(t, 3, *n.Sequence)
	})

	t.Run("empty ranking starts at one", func(t *testing.T) {
		n := scored("N", 2, 0)
		items := []*types.Item{scored("unscored", 0, 0), n}
		Insert(items, n, true)
		assert.Equal(t, 1, *n.Sequence)
	})

	t.Run("ties go to the lowest rank", func(t *testing.T) {
		// Manually placed: P2 sits above P1 although both score 2.
		p1 := scored("P1", 2, 3)
		p2 := scored("P2", 2, 2)
		top := scored("TOP", 9, 1)
		n := scored("N", 4, 0)
		items := []*types.Item{p1, p2, top, n}
		Insert(items, n, true)
		assert.Equal(t, map[string]int{"TOP": 1, "N": 2, "P2": 3, "P1": 4}, ranks(items))
	})

	t.Run("already sequenced item is moved", func(t *testing.T) {
		a := scored("A", 9, 1)
		n := scored("N", 6, 2)
		b := scored("B", 3, 3)
		c := scored("C", 1, 4)
		items := []*types.Item{a, n, b, c}
		n.CD3 = 2
		Insert(items, n, true)
		assert.Equal(t, map[string]int{"A": 1, "B": 2, "N": 3, "C": 4}, ranks(items))
		require.NoError(t, Validate(items))
	})
}

func TestReorder(t *testing.T) {
	items := []*types.Item{scored("a", 3, 1), scored("b", 2, 2), scored("c", 1, 3)}

	require.NoError(t, Reorder(items, "c", Up))
	assert.Equal(t, map[string]int{"a": 1, "c": 2, "b": 3}, ranks(items))
	assert.True(t, items[2].Reordered)
	assert.False(t, items[1].Reordered, "only the moved item is marked")

	require.NoError(t, Reorder(items, "a", Down))
	assert.Equal(t, map[string]int{"c": 1, "a": 2, "b": 3}, ranks(items))

	before := ranks(items)
	err := Reorder(items, "c", Up)
	assert.True(t, errors.Is(err, ErrOutOfBounds))
	err = Reorder(items, "b", Down)
	assert.True(t, errors.Is(err, ErrOutOfBounds))
	assert.Equal(t, before, ranks(items), "failed moves change nothing")

	items = append(items, scored("d", 0, 0))
	assert.True(t, errors.Is(Reorder(items, "d", Up), ErrNotSequenced))
	assert.True(t, errors.Is(Reorder(items, "nope", Up), ErrNotFound))
	require.NoError(t, Validate(items))
}

func TestReorderClearsAddedFlag(t *testing.T) {
	a := scored("a", 3, 1)
	b := scored("b", 2, 2)
	b.AddedToManuallySequencedList = true
	require.NoError(t, Reorder([]*types.Item{a, b}, "b", Up))
	assert.False(t, b.AddedToManuallySequencedList)
	assert.True(t, b.Reordered)
}

func TestMoveTo(t *testing.T) {
	items := []*types.Item{
		scored("a", 5, 1), scored("b", 4, 2), scored("c", 3, 3), scored("d", 2, 4),
	}
	require.NoError(t, MoveTo(items, "d", 1))
	assert.Equal(t, map[string]int{"d": 1, "a": 2, "b": 3, "c": 4}, ranks(items))

	require.NoError(t, MoveTo(items, "d", 3))
	assert.Equal(t, map[string]int{"a": 1, "b": 2, "d": 3, "c": 4}, ranks(items))
	require.NoError(t, Validate(items))

	assert.True(t, errors.Is(MoveTo(items, "a", 0), ErrOutOfBounds))
	assert.True(t, errors.Is(MoveTo(items, "a", 5), ErrOutOfBounds))
}

func TestResetRestoresCD3Order(t *testing.T) {
	items := []*types.Item{scored("a", 5, 3), scored("b", 4, 1), scored("c", 3, 2), scored("z", 0, 0)}
	items[0].Reordered = true
	items[1].AddedToManuallySequencedList = true

	Reset(items)
	assert.Equal(t, map[string]int{"a": 1, "b": 2, "c": 3}, ranks(items))
	for _, it := range items {
		assert.False(t, it.Reordered)
		assert.False(t, it.AddedToManuallySequencedList)
	}
}

func TestCompactAndValidate(t *testing.T) {
	items := []*types.Item{scored("a", 5, 1), scored("b", 4, 3), scored("c", 3, 7)}
	assert.Error(t, Validate(items))
	assert.True(t, Compact(items))
	assert.Equal(t, map[string]int{"a": 1, "b": 2, "c": 3}, ranks(items))
	assert.NoError(t, Validate(items))
	assert.False(t, Compact(items))

	dup := []*types.Item{scored("a", 5, 1), scored("b", 4, 1)}
	assert.Error(t, Validate(dup))
	Compact(dup)
	assert.Equal(t, map[string]int{"a": 1, "b": 2}, ranks(dup))
}

func TestOrdered(t *testing.T) {
	items := []*types.Item{scored("u1", 1, 0), scored("r2", 1, 2), scored("u2", 4, 0), scored("r1", 0.5, 1)}
	got := Ordered(items)
	var ids []string
	for _, it := range got {
		ids = append(ids, it.ID)
	}
	assert.Equal(t, []string{"r1", "r2", "u2", "u1"}, ids)
}
