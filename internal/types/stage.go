package types

import (
	"fmt"
	"strings"
)

// Stage is a step of the prioritization workflow.
type Stage string

// Stage constants, in workflow order.
const (
	StageItemListing Stage = "Item Listing"
	StageUrgency     Stage = "urgency"
	StageValue       Stage = "value"
	StageDuration    Stage = "duration"
	StageResults     Stage = "Results"
	// StageCD3 is the terminal sentinel reachable only as the next stage of
	// Results.
	StageCD3 Stage = "CD3"
)

var stageOrder = []Stage{
	StageItemListing,
	StageUrgency,
	StageValue,
	StageDuration,
	StageResults,
	StageCD3,
}

// Stages returns every stage in workflow order.
func Stages() []Stage {
	return append([]Stage(nil), stageOrder...)
}

// Index returns the stage's position in the workflow, or -1 if unknown.
func (s Stage) Index() int {
	for i, st := range stageOrder {
		if st == s {
			return i
		}
	}
	return -1
}

// IsValid checks if the stage value is valid
func (s Stage) IsValid() bool {
	return s.Index() >= 0
}

// Next returns the following stage and false when s is terminal.
func (s Stage) Next() (Stage, bool) {
	i := s.Index()
	if i < 0 || i+1 >= len(stageOrder) {
		return "", false
	}
	return stageOrder[i+1], true
}

// Prev returns the preceding stage and false at Item Listing.
func (s Stage) Prev() (Stage, bool) {
	i := s.Index()
	if i <= 0 {
		return "", false
	}
	return stageOrder[i-1], true
}

// Category returns the category edited in a categorization stage.
func (s Stage) Category() (Category, bool) {
	switch s {
	case StageUrgency:
		return CategoryUrgency, true
	case StageValue:
		return CategoryValue, true
	case StageDuration:
		return CategoryDuration, true
	}
	return "", false
}

// StageFor returns the stage in which category c is first edited.
func StageFor(c Category) Stage {
	switch c {
	case CategoryUrgency:
		return StageUrgency
	case CategoryValue:
		return StageValue
	case CategoryDuration:
		return StageDuration
	}
	return ""
}

// ParseStage accepts a stage name case-insensitively, plus the short
// aliases "items" and "results".
func ParseStage(s string) (Stage, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	switch key {
	case "items", "listing", "item-listing":
		return StageItemListing, nil
	}
	for _, st := range stageOrder {
		if strings.ToLower(string(st)) == key {
			return st, nil
		}
	}
	return "", fmt.Errorf("invalid stage %q", s)
}
