// Package types defines core data structures for the cd3 prioritizer.
package types

import (
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"
)

// MaxNameLength bounds item names.
const MaxNameLength = 500

// Item represents one backlog entry being prioritized.
type Item struct {
	ID   string  `json:"id"`
	Name string  `json:"name"`
	Link *string `json:"link"`

	// Categorical inputs. Each is a one-way latch: once set it can move
	// between levels but never back to unset.
	Urgency  Rating `json:"urgency"`
	Value    Rating `json:"value"`
	Duration Rating `json:"duration"`

	// Derived fields, recomputed by the metrics package.
	BoardPosition         BoardPosition        `json:"boardPosition"`
	CostOfDelay           float64              `json:"costOfDelay"`
	CD3                   float64              `json:"cd3"`
	ConfidenceWeightedCD3 *float64             `json:"confidenceWeightedCD3"`
	ConfidenceBreakdown   *ConfidenceBreakdown `json:"confidenceBreakdown"`

	// Results ordering.
	Sequence                     *int `json:"sequence"`
	AddedToManuallySequencedList bool `json:"addedToManuallySequencedList"`
	Reordered                    bool `json:"reordered"`

	Active           bool              `json:"active"`
	IsNewItem        bool              `json:"isNewItem"`
	Notes            []Note            `json:"notes"`
	ConfidenceSurvey *ConfidenceSurvey `json:"confidenceSurvey,omitempty"`
	CreatedAt        time.Time         `json:"createdAt"`
}

// BoardPosition places an item on the value x urgency board.
// Row is the value level, Col the urgency level; DurationBucket is nil
// until a duration has been chosen.
type BoardPosition struct {
	Row            Level  `json:"row"`
	Col            Level  `json:"col"`
	DurationBucket *Level `json:"durationBucket"`
}

// Note is a timestamped free-text annotation on an item.
type Note struct {
	Text       string    `json:"text"`
	CreatedAt  time.Time `json:"createdAt"`
	ModifiedAt time.Time `json:"modifiedAt"`
}

// NewItem returns an active item with the given identity and no ratings.
func NewItem(id, name string, link *string, createdAt time.Time) *Item {
	return &Item{
		ID:        id,
		Name:      name,
		Link:      link,
		Active:    true,
		Notes:     []Note{},
		CreatedAt: createdAt,
	}
}

// Rating returns the item's rating for a category.
func (i *Item) Rating(c Category) Rating {
	switch c {
	case CategoryUrgency:
		return i.Urgency
	case CategoryValue:
		return i.Value
	case CategoryDuration:
		return i.Duration
	}
	return Rating{}
}

// SetRating stores r as the item's rating for category c.
func (i *Item) SetRating(c Category, r Rating) {
	switch c {
	case CategoryUrgency:
		i.Urgency = r
	case CategoryValue:
		i.Value = r
	case CategoryDuration:
		i.Duration = r
	}
}

// FullyRated reports whether all three categories are set.
func (i *Item) FullyRated() bool {
	return i.Urgency.IsSet() && i.Value.IsSet() && i.Duration.IsSet()
}

// IsSequenced reports whether the item holds a results rank.
func (i *Item) IsSequenced() bool {
	return i.Sequence != nil
}

// SequenceValue returns the rank, or 0 when unsequenced.
func (i *Item) SequenceValue() int {
	if i.Sequence == nil {
		return 0
	}
	return *i.Sequence
}

// Clone returns a deep copy of the item.
func (i *Item) Clone() *Item {
	if i == nil {
		return nil
	}
	c := *i
	if i.Link != nil {
		link := *i.Link
		c.Link = &link
	}
	if i.BoardPosition.DurationBucket != nil {
		d := *i.BoardPosition.DurationBucket
		c.BoardPosition.DurationBucket = &d
	}
	if i.ConfidenceWeightedCD3 != nil {
		v := *i.ConfidenceWeightedCD3
		c.ConfidenceWeightedCD3 = &v
	}
	if i.ConfidenceBreakdown != nil {
		b := *i.ConfidenceBreakdown
		c.ConfidenceBreakdown = &b
	}
	if i.Sequence != nil {
		s := *i.Sequence
		c.Sequence = &s
	}
	if i.Notes != nil {
		c.Notes = make([]Note, len(i.Notes))
		copy(c.Notes, i.Notes)
	}
	c.ConfidenceSurvey = i.ConfidenceSurvey.Clone()
	return &c
}

// CloneItems deep-copies a slice of items.
func CloneItems(items []*Item) []*Item {
	out := make([]*Item, len(items))
	for idx, it := range items {
		out[idx] = it.Clone()
	}
	return out
}

// Validate checks the identity fields of an item.
func (i *Item) Validate() error {
	if strings.TrimSpace(i.ID) == "" {
		return fmt.Errorf("id is required")
	}
	if err := ValidateName(i.Name); err != nil {
		return err
	}
	if i.Link != nil && !IsValidLink(*i.Link) {
		return fmt.Errorf("invalid link: %s", *i.Link)
	}
	return nil
}

// MarshalJSON writes the item with the companion "set" flags that mirror
// each rating's latch.
func (i Item) MarshalJSON() ([]byte, error) {
	type itemAlias Item
	return json.Marshal(struct {
		itemAlias
		UrgencySet  bool `json:"urgencySet"`
		ValueSet    bool `json:"valueSet"`
		DurationSet bool `json:"durationSet"`
	}{
		itemAlias:   itemAlias(i),
		UrgencySet:  i.Urgency.IsSet(),
		ValueSet:    i.Value.IsSet(),
		DurationSet: i.Duration.IsSet(),
	})
}

// ValidateName checks that an item name is usable.
func ValidateName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("name is required")
	}
	if len(name) > MaxNameLength {
		return fmt.Errorf("name must be %d characters or less (got %d)", MaxNameLength, len(name))
	}
	return nil
}

var linkSchemeRe = regexp.MustCompile(`^https?://`)

// IsValidLink reports whether s is an http(s) URL with a host.
func IsValidLink(s string) bool {
	if !linkSchemeRe.MatchString(s) {
		return false
	}
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return u.Host != ""
}

// NormalizeLink trims s and returns it when valid, nil otherwise.
func NormalizeLink(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" || !IsValidLink(s) {
		return nil
	}
	return &s
}
