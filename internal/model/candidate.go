package model

// Candidate is one source's proposed feature for a screenshot. Candidates
// are transient: produced per extractor invocation and consumed once by
// the arbiter.
type Candidate struct {
	FeatureID   string           `json:"feature_id"`
	FeatureName string           `json:"feature_name"`
	Confidence  float64          `json:"confidence"`
	Method      AssignmentMethod `json:"method"`
	Reasoning   string           `json:"reasoning"`
}

// Decision is the single outcome of arbitrating a screenshot's candidates.
// FeatureID is nil when no source produced a usable signal.
type Decision struct {
	FeatureID   *string          `json:"feature_id"`
	FeatureName string           `json:"feature_name,omitempty"`
	Confidence  float64          `json:"confidence"`
	Method      AssignmentMethod `json:"method"`
	Reasoning   string           `json:"reasoning"`
}

// AssignmentResult is the per-screenshot outcome of analyze-and-assign.
type AssignmentResult struct {
	ScreenshotID string           `json:"screenshot_id"`
	FeatureID    *string          `json:"feature_id"`
	FeatureName  string           `json:"feature_name,omitempty"`
	Confidence   float64          `json:"confidence"`
	NeedsReview  bool             `json:"needs_review"`
	Method       AssignmentMethod `json:"method"`
	Reasoning    string           `json:"reasoning,omitempty"`
}

// BatchResult accumulates outcomes across a batch arbitration run.
type BatchResult struct {
	Total       int                `json:"total"`
	Assigned    int                `json:"assigned"`
	NeedsReview int                `json:"needs_review"`
	Failed      int                `json:"failed"`
	Results     []AssignmentResult `json:"results"`
}
