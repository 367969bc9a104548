package types

import "fmt"

// Bucket is the configuration of one category level.
type Bucket struct {
	Limit       *int    `json:"limit" toml:"limit,omitempty" yaml:"limit,omitempty"`
	Count       int     `json:"count" toml:"-" yaml:"-"`
	OverLimit   bool    `json:"overLimit" toml:"-" yaml:"-"`
	Weight      float64 `json:"weight" toml:"weight" yaml:"weight"`
	Title       string  `json:"title" toml:"title" yaml:"title"`
	Description string  `json:"description" toml:"description" yaml:"description"`
}

// BucketTable holds the nine buckets keyed by category and level.
type BucketTable map[Category]map[Level]Bucket

var defaultTitles = map[Category][3]string{
	CategoryUrgency:  {"Low urgency", "Medium urgency", "High urgency"},
	CategoryValue:    {"Low value", "Medium value", "High value"},
	CategoryDuration: {"Days", "Weeks", "Months"},
}

var defaultDescriptions = map[Category][3]string{
	CategoryUrgency: {
		"Can wait; little cost if it slips",
		"Delay hurts over the coming months",
		"Every week of delay costs us",
	},
	CategoryValue: {
		"Nice to have",
		"Meaningful improvement",
		"Major impact on customers or revenue",
	},
	CategoryDuration: {
		"Done within days",
		"Takes a few weeks",
		"Takes months",
	},
}

// DefaultBucket returns the factory bucket for a category level.
func DefaultBucket(c Category, l Level) Bucket {
	b := Bucket{Weight: float64(l)}
	if titles, ok := defaultTitles[c]; ok && l.IsValid() {
		b.Title = titles[l-1]
		b.Description = defaultDescriptions[c][l-1]
	}
	return b
}

// DefaultBucketTable returns the factory bucket table.
func DefaultBucketTable() BucketTable {
	t := make(BucketTable, 3)
	for _, c := range Categories() {
		t[c] = make(map[Level]Bucket, 3)
		for _, l := range Levels() {
			t[c][l] = DefaultBucket(c, l)
		}
	}
	return t
}

// Get returns the bucket at (c, l) and whether it exists.
func (t BucketTable) Get(c Category, l Level) (Bucket, bool) {
	levels, ok := t[c]
	if !ok {
		return Bucket{}, false
	}
	b, ok := levels[l]
	return b, ok
}

// Put stores b at (c, l).
func (t BucketTable) Put(c Category, l Level, b Bucket) {
	if t[c] == nil {
		t[c] = make(map[Level]Bucket, 3)
	}
	t[c][l] = b
}

// Weight returns the weight of a set rating in category c, and false when
// the rating is unset or the bucket is missing.
func (t BucketTable) Weight(c Category, r Rating) (float64, bool) {
	if !r.IsSet() {
		return 0, false
	}
	b, ok := t.Get(c, r.Level())
	if !ok {
		return 0, false
	}
	return b.Weight, true
}

// Clone returns a deep copy of the table.
func (t BucketTable) Clone() BucketTable {
	out := make(BucketTable, len(t))
	for c, levels := range t {
		m := make(map[Level]Bucket, len(levels))
		for l, b := range levels {
			if b.Limit != nil {
				lim := *b.Limit
				b.Limit = &lim
			}
			m[l] = b
		}
		out[c] = m
	}
	return out
}

// Validate checks that every bucket holds usable configuration.
func (b Bucket) Validate() error {
	if b.Limit != nil && *b.Limit < 0 {
		return fmt.Errorf("limit must be non-negative (got %d)", *b.Limit)
	}
	if b.Weight < 0 {
		return fmt.Errorf("weight must be non-negative (got %g)", b.Weight)
	}
	if b.Title == "" {
		return fmt.Errorf("title is required")
	}
	return nil
}
