package model

import "time"

// Analysis is the persisted output of one extractor pass over a
// screenshot. The most recent row per screenshot feeds the competitor
// pattern learner.
type Analysis struct {
	ID               string    `json:"id"`
	ScreenshotID     string    `json:"screenshot_id"`
	FeaturePrediction string   `json:"feature_prediction,omitempty"`
	Confidence       float64   `json:"confidence"`
	ExtractedText    string    `json:"extracted_text,omitempty"`
	DetectedElements []string  `json:"detected_elements,omitempty"`
	Provider         string    `json:"provider"`
	ManualOverride   bool      `json:"manual_override"`
	AnalyzedAt       time.Time `json:"analyzed_at"`
}

// TrainingExample is a confirmed assignment used to learn a competitor's
// keyword patterns: manual assignments or auto assignments at or above
// 0.8 confidence.
type TrainingExample struct {
	FeatureID     string `json:"feature_id"`
	FeatureName   string `json:"feature_name"`
	ExtractedText string `json:"extracted_text"`
}
