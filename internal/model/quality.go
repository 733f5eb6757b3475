package model

import "time"

// ValidationReport tallies screenshot-level data quality signals.
type ValidationReport struct {
	Total               int            `json:"total"`
	ValidAssignments    int            `json:"valid_assignments"`
	Orphans             int            `json:"orphans"`
	LowConfidence       int            `json:"low_confidence"`
	MissingFiles        int            `json:"missing_files"`
	QualityDistribution map[string]int `json:"quality_distribution"`
}

// MatrixGap flags a relation marked "has feature" with no screenshot
// evidence. Informational only; not counted against the score.
type MatrixGap struct {
	CompetitorID   string `json:"competitor_id"`
	CompetitorName string `json:"competitor_name"`
	FeatureID      string `json:"feature_id"`
	FeatureName    string `json:"feature_name"`
}

// MatrixMismatch flags a screenshot whose assignment disagrees with the
// matrix relation table.
type MatrixMismatch struct {
	ScreenshotID string `json:"screenshot_id"`
	Issue        string `json:"issue"`
	Details      string `json:"details"`
}

// MatrixReport cross-references screenshot assignments against the
// competitor-feature relation table.
type MatrixReport struct {
	TotalRelations     int              `json:"total_relations"`
	InconsistentFlags  int              `json:"inconsistent_flags"`
	MissingScreenshots []MatrixGap      `json:"missing_screenshots"`
	Mismatches         []MatrixMismatch `json:"mismatches"`
}

// QualityScore is the weighted corpus-health summary. Never persisted;
// every computation is a full recomputation.
type QualityScore struct {
	Overall     int    `json:"overall"`
	Screenshots int    `json:"screenshots"`
	Assignments int    `json:"assignments"`
	Metadata    int    `json:"metadata"`
	Grade       string `json:"grade"`
}

// QualitySummary bundles the quality surface's reports with a
// generation timestamp.
type QualitySummary struct {
	Score       QualityScore     `json:"quality_score"`
	Screenshots ValidationReport `json:"screenshots"`
	Matrix      MatrixReport     `json:"matrix"`
	GeneratedAt time.Time        `json:"generated_at"`
}

// IssueSeverity ranks a quality issue.
type IssueSeverity string

const (
	SeverityCritical IssueSeverity = "critical"
	SeverityWarning  IssueSeverity = "warning"
	SeverityInfo     IssueSeverity = "info"
)

// Issue is one actionable data-quality finding.
type Issue struct {
	Severity IssueSeverity `json:"severity"`
	Category string        `json:"category"`
	Message  string        `json:"message"`
	Count    int           `json:"count,omitempty"`
}
