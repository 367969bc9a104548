package types

import "time"

// CurrentVersion is the schema version written by this build.
const CurrentVersion = 2

// AppState is the session-wide prioritization state.
type AppState struct {
	Version                  int                         `json:"version"`
	CurrentStage             Stage                       `json:"currentStage"`
	VisitedStages            []Stage                     `json:"visitedStages"`
	Locked                   bool                        `json:"locked"`
	ResultsManuallyReordered bool                        `json:"resultsManuallyReordered"`
	ConfidenceWeights        map[ConfidenceLevel]float64 `json:"confidenceWeights"`
	ConfidenceLevelLabels    map[ConfidenceLevel]string  `json:"confidenceLevelLabels"`
	Buckets                  BucketTable                 `json:"buckets"`
	ActiveSurveyItemID       *string                     `json:"activeSurveyItemId"`
	UpdatedAt                time.Time                   `json:"updatedAt"`
}

// DefaultConfidenceWeights returns the factory multipliers per confidence level.
func DefaultConfidenceWeights() map[ConfidenceLevel]float64 {
	return map[ConfidenceLevel]float64{1: 0.30, 2: 0.50, 3: 0.70, 4: 0.90}
}

// DefaultConfidenceLevelLabels returns the factory label per confidence level.
func DefaultConfidenceLevelLabels() map[ConfidenceLevel]string {
	return map[ConfidenceLevel]string{
		1: "Not confident",
		2: "Somewhat confident",
		3: "Confident",
		4: "Very confident",
	}
}

// DefaultAppState returns a fresh session at Item Listing.
func DefaultAppState() *AppState {
	return &AppState{
		Version:               CurrentVersion,
		CurrentStage:          StageItemListing,
		VisitedStages:         []Stage{StageItemListing},
		ConfidenceWeights:     DefaultConfidenceWeights(),
		ConfidenceLevelLabels: DefaultConfidenceLevelLabels(),
		Buckets:               DefaultBucketTable(),
	}
}

// HasVisited reports whether s appears in VisitedStages.
func (a *AppState) HasVisited(s Stage) bool {
	for _, v := range a.VisitedStages {
		if v == s {
			return true
		}
	}
	return false
}

// PrioritizationStarted reports whether the workflow has moved past Item
// Listing at least once.
func (a *AppState) PrioritizationStarted() bool {
	return a.HasVisited(StageUrgency)
}

// Clone returns a deep copy of the state.
func (a *AppState) Clone() *AppState {
	if a == nil {
		return nil
	}
	c := *a
	c.VisitedStages = append([]Stage(nil), a.VisitedStages...)
	c.ConfidenceWeights = make(map[ConfidenceLevel]float64, len(a.ConfidenceWeights))
	for k, v := range a.ConfidenceWeights {
		c.ConfidenceWeights[k] = v
	}
	c.ConfidenceLevelLabels = make(map[ConfidenceLevel]string, len(a.ConfidenceLevelLabels))
	for k, v := range a.ConfidenceLevelLabels {
		c.ConfidenceLevelLabels[k] = v
	}
	c.Buckets = a.Buckets.Clone()
	if a.ActiveSurveyItemID != nil {
		id := *a.ActiveSurveyItemID
		c.ActiveSurveyItemID = &id
	}
	return &c
}
