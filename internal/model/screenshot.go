package model

import "time"

// AssignmentMethod identifies which signal source produced an assignment.
type AssignmentMethod string

const (
	MethodAI       AssignmentMethod = "ai"
	MethodPattern  AssignmentMethod = "pattern"
	MethodPath     AssignmentMethod = "path-based"
	MethodManual   AssignmentMethod = "manual"
	MethodMigrated AssignmentMethod = "migrated"
)

// QualityBucket classifies the visual quality of a screenshot.
type QualityBucket string

const (
	QualityExcellent  QualityBucket = "excellent"
	QualityGood       QualityBucket = "good"
	QualityAcceptable QualityBucket = "acceptable"
	QualityPoor       QualityBucket = "poor"
	QualityUnknown    QualityBucket = "unknown"
)

// Screenshot is one piece of visual evidence that a competitor implements
// a feature. FeatureID is nil until an assignment is committed; low
// confidence guesses are never written to it.
type Screenshot struct {
	ID           string  `json:"id"`
	CompetitorID string  `json:"competitor_id"`
	FeatureID    *string `json:"feature_id,omitempty"`

	FilePath string `json:"file_path"`
	FileName string `json:"file_name"`
	FileSize int64  `json:"file_size"`
	MimeType string `json:"mime_type"`

	// PublicURL is set by the sync engine once the backing bytes are
	// uploaded to the object store.
	PublicURL string `json:"public_url,omitempty"`

	Quality          QualityBucket `json:"quality"`
	Context          string        `json:"context,omitempty"`
	VisualComplexity string        `json:"visual_complexity,omitempty"`
	UIPattern        string        `json:"ui_pattern,omitempty"`

	IsOnboarding bool   `json:"is_onboarding"`
	UploadSource string `json:"upload_source,omitempty"`

	AssignmentConfidence float64          `json:"assignment_confidence"`
	AssignmentMethod     AssignmentMethod `json:"assignment_method,omitempty"`
	NeedsReview          bool             `json:"needs_review"`
	ReviewedAt           *time.Time       `json:"reviewed_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Assigned reports whether the screenshot has a committed feature.
func (s *Screenshot) Assigned() bool {
	return s.FeatureID != nil && *s.FeatureID != ""
}

// ReviewItem is a needs-review screenshot denormalized with display names
// for the review surface.
type ReviewItem struct {
	Screenshot
	CompetitorName string `json:"competitor_name"`
	FeatureName    string `json:"feature_name,omitempty"`
}

// AssignmentStats summarizes assignment coverage across the corpus.
type AssignmentStats struct {
	Total          int `json:"total"`
	Assigned       int `json:"assigned"`
	Unassigned     int `json:"unassigned"`
	NeedsReview    int `json:"needs_review"`
	HighConfidence int `json:"high_confidence"`
	LowConfidence  int `json:"low_confidence"`
	AssignmentRate int `json:"assignment_rate"`
}
