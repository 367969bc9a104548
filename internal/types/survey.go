package types

import "fmt"

// ConfidenceLevel is a survey answer from 1 (not confident) to 4 (very
// confident).
type ConfidenceLevel int

// Confidence level bounds
const (
	MinConfidenceLevel ConfidenceLevel = 1
	MaxConfidenceLevel ConfidenceLevel = 4
)

// IsValid reports whether l lies in 1..4.
func (l ConfidenceLevel) IsValid() bool {
	return l >= MinConfidenceLevel && l <= MaxConfidenceLevel
}

// ConfidenceLevels returns 1..4.
func ConfidenceLevels() []ConfidenceLevel {
	return []ConfidenceLevel{1, 2, 3, 4}
}

// VoteCounts maps a confidence level to the number of votes it received.
type VoteCounts map[ConfidenceLevel]int

// Total returns the sum of votes.
func (v VoteCounts) Total() int {
	n := 0
	for _, c := range v {
		n += c
	}
	return n
}

// ConfidenceSurvey records how confident the team is in each rating.
// Scope is collected but does not affect the metrics.
type ConfidenceSurvey struct {
	Urgency  VoteCounts `json:"urgency"`
	Value    VoteCounts `json:"value"`
	Duration VoteCounts `json:"duration"`
	Scope    VoteCounts `json:"scope"`
}

// SurveyDimension names a survey question.
type SurveyDimension string

// Survey dimensions
const (
	DimensionUrgency  SurveyDimension = "urgency"
	DimensionValue    SurveyDimension = "value"
	DimensionDuration SurveyDimension = "duration"
	DimensionScope    SurveyDimension = "scope"
)

// SurveyDimensions returns the dimensions in display order.
func SurveyDimensions() []SurveyDimension {
	return []SurveyDimension{DimensionUrgency, DimensionValue, DimensionDuration, DimensionScope}
}

// NewConfidenceSurvey returns a survey with zero votes everywhere.
func NewConfidenceSurvey() *ConfidenceSurvey {
	s := &ConfidenceSurvey{}
	for _, d := range SurveyDimensions() {
		v := VoteCounts{}
		for _, l := range ConfidenceLevels() {
			v[l] = 0
		}
		s.set(d, v)
	}
	return s
}

// Votes returns the vote counts for a dimension.
func (s *ConfidenceSurvey) Votes(d SurveyDimension) VoteCounts {
	switch d {
	case DimensionUrgency:
		return s.Urgency
	case DimensionValue:
		return s.Value
	case DimensionDuration:
		return s.Duration
	case DimensionScope:
		return s.Scope
	}
	return nil
}

func (s *ConfidenceSurvey) set(d SurveyDimension, v VoteCounts) {
	switch d {
	case DimensionUrgency:
		s.Urgency = v
	case DimensionValue:
		s.Value = v
	case DimensionDuration:
		s.Duration = v
	case DimensionScope:
		s.Scope = v
	}
}

// AddVote increments the count for level l on dimension d.
func (s *ConfidenceSurvey) AddVote(d SurveyDimension, l ConfidenceLevel) error {
	if !l.IsValid() {
		return fmt.Errorf("confidence level must be between 1 and 4 (got %d)", l)
	}
	v := s.Votes(d)
	if v == nil {
		v = VoteCounts{}
		s.set(d, v)
	}
	v[l]++
	return nil
}

// Validate rejects negative counts and out-of-range levels.
func (s *ConfidenceSurvey) Validate() error {
	for _, d := range SurveyDimensions() {
		for l, n := range s.Votes(d) {
			if !l.IsValid() {
				return fmt.Errorf("%s: confidence level must be between 1 and 4 (got %d)", d, l)
			}
			if n < 0 {
				return fmt.Errorf("%s: vote count must be non-negative (got %d)", d, n)
			}
		}
	}
	return nil
}

// Clone returns a deep copy of the survey.
func (s *ConfidenceSurvey) Clone() *ConfidenceSurvey {
	if s == nil {
		return nil
	}
	out := &ConfidenceSurvey{}
	for _, d := range SurveyDimensions() {
		src := s.Votes(d)
		if src == nil {
			continue
		}
		v := make(VoteCounts, len(src))
		for l, n := range src {
			v[l] = n
		}
		out.set(d, v)
	}
	return out
}

// ConfidenceBreakdown shows how the confidence-weighted CD3 was derived.
type ConfidenceBreakdown struct {
	UrgencyConfidence   float64 `json:"urgencyConfidence"`
	ValueConfidence     float64 `json:"valueConfidence"`
	DurationConfidence  float64 `json:"durationConfidence"`
	WeightedUrgency     float64 `json:"weightedUrgency"`
	WeightedValue       float64 `json:"weightedValue"`
	WeightedDuration    float64 `json:"weightedDuration"`
	WeightedCostOfDelay float64 `json:"weightedCostOfDelay"`
}
