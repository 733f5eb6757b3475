package model

import "time"

// Competitor is an exchange or app whose features are being cataloged.
type Competitor struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Region    string    `json:"region,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Feature is one entry in the feature taxonomy.
type Feature struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Category  string    `json:"category,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// CompetitorFeature is the matrix relation row linking a competitor to a
// feature. ScreenshotCount is derived at query time, never stored.
type CompetitorFeature struct {
	ID              string `json:"id"`
	CompetitorID    string `json:"competitor_id"`
	FeatureID       string `json:"feature_id"`
	HasFeature      bool   `json:"has_feature"`
	ScreenshotCount int    `json:"screenshot_count"`
}
