package types

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Category is one of the three scored dimensions of an item.
type Category string

// Category constants
const (
	CategoryUrgency  Category = "urgency"
	CategoryValue    Category = "value"
	CategoryDuration Category = "duration"
)

// Categories returns the categories in stage order.
func Categories() []Category {
	return []Category{CategoryUrgency, CategoryValue, CategoryDuration}
}

// IsValid checks if the category value is valid
func (c Category) IsValid() bool {
	switch c {
	case CategoryUrgency, CategoryValue, CategoryDuration:
		return true
	}
	return false
}

// ParseCategory converts user input into a Category.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	if !c.IsValid() {
		return "", fmt.Errorf("invalid category %q (valid: urgency, value, duration)", s)
	}
	return c, nil
}

// Level is a category level. Zero means unset.
type Level int

// Level constants
const (
	LevelUnset  Level = 0
	LevelLow    Level = 1
	LevelMedium Level = 2
	LevelHigh   Level = 3
)

// Levels returns the settable levels in ascending order.
func Levels() []Level {
	return []Level{LevelLow, LevelMedium, LevelHigh}
}

// IsValid reports whether l is a settable level (1..3).
func (l Level) IsValid() bool {
	return l >= LevelLow && l <= LevelHigh
}

// ParseLevel converts user input (0..3) into a Level.
func ParseLevel(s string) (Level, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 0 || n > int(LevelHigh) {
		return 0, fmt.Errorf("invalid level %q (valid: 0-3)", s)
	}
	return Level(n), nil
}

// ErrRatingLatched is returned when an already-set rating would be unset.
var ErrRatingLatched = errors.New("rating cannot be unset once chosen")

// Rating is the tagged state of one category on an item: Unset, or Set
// at a level 1..3. The zero value is Unset.
type Rating struct {
	level Level
}

// SetAt returns a set rating at level l.
func SetAt(l Level) (Rating, error) {
	if !l.IsValid() {
		return Rating{}, fmt.Errorf("level must be between 1 and 3 (got %d)", l)
	}
	return Rating{level: l}, nil
}

// MustSetAt is SetAt for constant levels; it panics on an invalid level.
func MustSetAt(l Level) Rating {
	r, err := SetAt(l)
	if err != nil {
		panic(err)
	}
	return r
}

// IsSet reports whether a level has been chosen.
func (r Rating) IsSet() bool {
	return r.level != LevelUnset
}

// Level returns the chosen level, or LevelUnset.
func (r Rating) Level() Level {
	return r.level
}

// Change returns the rating moved to l. Moving an unset rating to
// LevelUnset is a no-op; moving a set rating to LevelUnset fails with
// ErrRatingLatched.
func (r Rating) Change(l Level) (Rating, error) {
	if l == LevelUnset {
		if r.IsSet() {
			return r, ErrRatingLatched
		}
		return r, nil
	}
	return SetAt(l)
}

// Equal reports whether both ratings hold the same level.
func (r Rating) Equal(o Rating) bool {
	return r.level == o.level
}

func (r Rating) String() string {
	if !r.IsSet() {
		return "-"
	}
	return strconv.Itoa(int(r.level))
}

// MarshalJSON writes the level as a bare integer (0 when unset).
func (r Rating) MarshalJSON() ([]byte, error) {
	return json.Marshal(int(r.level))
}

// UnmarshalJSON reads a bare integer level; 0 or null means unset.
func (r *Rating) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*r = Rating{}
		return nil
	}
	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("rating: %w", err)
	}
	if n == 0 {
		*r = Rating{}
		return nil
	}
	rt, err := SetAt(Level(n))
	if err != nil {
		return fmt.Errorf("rating: %w", err)
	}
	*r = rt
	return nil
}
