// Package buckets holds the validated setters for the bucket configuration
// table and keeps the derived counts in sync with the item list.
//
// Setters never touch items. SetWeight reports which category it changed so
// the caller can ask the metrics package to recompute the affected items.
package buckets

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/cd3-tool/cd3/internal/types"
)

// Field names a settable bucket attribute.
type Field string

// Bucket fields
const (
	FieldLimit       Field = "limit"
	FieldWeight      Field = "weight"
	FieldTitle       Field = "title"
	FieldDescription Field = "description"
)

// ParseField converts user input into a Field.
func ParseField(s string) (Field, error) {
	f := Field(strings.ToLower(strings.TrimSpace(s)))
	switch f {
	case FieldLimit, FieldWeight, FieldTitle, FieldDescription:
		return f, nil
	}
	return "", fmt.Errorf("invalid bucket field %q (valid: limit, weight, title, description)", s)
}

func lookup(table types.BucketTable, c types.Category, l types.Level) (types.Bucket, error) {
	if !c.IsValid() {
		return types.Bucket{}, fmt.Errorf("invalid category %q", c)
	}
	if !l.IsValid() {
		return types.Bucket{}, fmt.Errorf("level must be between 1 and 3 (got %d)", l)
	}
	b, ok := table.Get(c, l)
	if !ok {
		b = types.DefaultBucket(c, l)
	}
	return b, nil
}

// SetLimit sets or clears (nil) the item limit of a bucket.
func SetLimit(table types.BucketTable, c types.Category, l types.Level, limit *int) error {
	b, err := lookup(table, c, l)
	if err != nil {
		return err
	}
	if limit != nil && *limit < 0 {
		return fmt.Errorf("limit must be a non-negative integer (got %d)", *limit)
	}
	if limit != nil {
		v := *limit
		limit = &v
	}
	b.Limit = limit
	b.OverLimit = limit != nil && b.Count > *limit
	table.Put(c, l, b)
	return nil
}

// SetWeight sets a bucket's weight and returns the category whose items
// now need their metrics recomputed.
func SetWeight(table types.BucketTable, c types.Category, l types.Level, weight float64) (types.Category, error) {
	b, err := lookup(table, c, l)
	if err != nil {
		return "", err
	}
	if math.IsNaN(weight) || math.IsInf(weight, 0) || weight < 0 {
		return "", fmt.Errorf("weight must be a non-negative number (got %v)", weight)
	}
	b.Weight = weight
	table.Put(c, l, b)
	return c, nil
}

// SetTitle sets a bucket's display title.
func SetTitle(table types.BucketTable, c types.Category, l types.Level, title string) error {
	b, err := lookup(table, c, l)
	if err != nil {
		return err
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return fmt.Errorf("title is required")
	}
	b.Title = title
	table.Put(c, l, b)
	return nil
}

// SetDescription sets a bucket's guidance text. Empty is allowed.
func SetDescription(table types.BucketTable, c types.Category, l types.Level, desc string) error {
	b, err := lookup(table, c, l)
	if err != nil {
		return err
	}
	b.Description = strings.TrimSpace(desc)
	table.Put(c, l, b)
	return nil
}

// Set applies a raw string value to a field, the way the CLI passes it.
// A limit of "none", "" or "unlimited" clears it. The returned category is
// non-empty only when a weight changed.
func Set(table types.BucketTable, c types.Category, l types.Level, field Field, raw string) (types.Category, error) {
	switch field {
	case FieldLimit:
		limit, err := parseLimit(raw)
		if err != nil {
			return "", err
		}
		return "", SetLimit(table, c, l, limit)
	case FieldWeight:
		w, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return "", fmt.Errorf("weight must be a non-negative number (got %q)", raw)
		}
		return SetWeight(table, c, l, w)
	case FieldTitle:
		return "", SetTitle(table, c, l, raw)
	case FieldDescription:
		return "", SetDescription(table, c, l, raw)
	}
	return "", fmt.Errorf("invalid bucket field %q", field)
}

func parseLimit(raw string) (*int, error) {
	s := strings.ToLower(strings.TrimSpace(raw))
	switch s {
	case "", "none", "unlimited", "null":
		return nil, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return nil, fmt.Errorf("limit must be a non-negative integer (got %q)", raw)
	}
	return &n, nil
}

// RecomputeCounts recounts the items in each of the nine buckets and
// refreshes the over-limit flags. Inactive items are counted.
func RecomputeCounts(table types.BucketTable, items []*types.Item) {
	counts := make(map[types.Category]map[types.Level]int, 3)
	for _, c := range types.Categories() {
		counts[c] = make(map[types.Level]int, 3)
	}
	for _, it := range items {
		for _, c := range types.Categories() {
			if r := it.Rating(c); r.IsSet() {
				counts[c][r.Level()]++
			}
		}
	}
	for _, c := range types.Categories() {
		for _, l := range types.Levels() {
			b, ok := table.Get(c, l)
			if !ok {
				b = types.DefaultBucket(c, l)
			}
			b.Count = counts[c][l]
			b.OverLimit = b.Limit != nil && b.Count > *b.Limit
			table.Put(c, l, b)
		}
	}
}

// OverLimit lists the buckets currently holding more items than allowed.
func OverLimit(table types.BucketTable) []Ref {
	var out []Ref
	for _, c := range types.Categories() {
		for _, l := range types.Levels() {
			if b, ok := table.Get(c, l); ok && b.OverLimit {
				out = append(out, Ref{Category: c, Level: l})
			}
		}
	}
	return out
}

// Ref addresses a single bucket.
type Ref struct {
	Category types.Category
	Level    types.Level
}

func (r Ref) String() string {
	return fmt.Sprintf("%s/%d", r.Category, r.Level)
}

// Normalize fills missing buckets with defaults and resets invalid fields
// to their default values. It reports whether anything was changed.
func Normalize(table types.BucketTable) bool {
	changed := false
	for _, c := range types.Categories() {
		for _, l := range types.Levels() {
			def := types.DefaultBucket(c, l)
			b, ok := table.Get(c, l)
			if !ok {
				table.Put(c, l, def)
				changed = true
				continue
			}
			if b.Limit != nil && *b.Limit < 0 {
				b.Limit = nil
				changed = true
			}
			if b.Weight < 0 || math.IsNaN(b.Weight) || math.IsInf(b.Weight, 0) {
				b.Weight = def.Weight
				changed = true
			}
			if strings.TrimSpace(b.Title) == "" {
				b.Title = def.Title
				changed = true
			}
			table.Put(c, l, b)
		}
	}
	for c, levels := range table {
		if !c.IsValid() {
			delete(table, c)
			changed = true
			continue
		}
		for l := range levels {
			if !l.IsValid() {
				delete(levels, l)
				changed = true
			}
		}
	}
	return changed
}
