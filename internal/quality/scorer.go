package quality

import (
	"fmt"
	"math"

	"github.com/asimorth/competitor-lens/internal/model"
)

// Component weights for the overall score.
const (
	weightScreenshots = 0.3
	weightAssignments = 0.4
	weightMetadata    = 0.3
)

// Score combines the component reports into the weighted overall score
// and letter grade.
func Score(screenshots *model.ValidationReport, matrix *model.MatrixReport, metadataScore int) model.QualityScore {
	screenshotScore := scoreScreenshots(screenshots)
	assignmentScore := scoreAssignments(screenshots, matrix)

	overall := int(math.Round(
		float64(screenshotScore)*weightScreenshots +
			float64(assignmentScore)*weightAssignments +
			float64(metadataScore)*weightMetadata))

	return model.QualityScore{
		Overall:     overall,
		Screenshots: screenshotScore,
		Assignments: assignmentScore,
		Metadata:    metadataScore,
		Grade:       grade(overall),
	}
}

// scoreScreenshots measures file integrity: the share of screenshots
// whose backing file is still on disk.
func scoreScreenshots(r *model.ValidationReport) int {
	if r.Total == 0 {
		return 0
	}
	return int(math.Round(float64(r.Total-r.MissingFiles) / float64(r.Total) * 100))
}

// scoreAssignments starts from coverage and subtracts penalties for low
// confidence, orphans, and matrix inconsistencies. The inconsistency
// penalty is capped so one bad migration cannot zero the score.
func scoreAssignments(r *model.ValidationReport, m *model.MatrixReport) int {
	if r.Total == 0 {
		return 0
	}
	total := float64(r.Total)

	coverage := float64(r.ValidAssignments) / total * 100
	confidencePenalty := float64(r.LowConfidence) / total * 20
	orphanPenalty := float64(r.Orphans) / total * 30
	inconsistencyPenalty := math.Min(float64(m.InconsistentFlags)/total*50, 30)

	score := coverage - confidencePenalty - orphanPenalty - inconsistencyPenalty
	if score < 0 {
		score = 0
	}
	return int(math.Round(score))
}

func grade(overall int) string {
	switch {
	case overall >= 90:
		return "A"
	case overall >= 80:
		return "B"
	case overall >= 70:
		return "C"
	case overall >= 60:
		return "D"
	default:
		return "F"
	}
}

// Issues derives an actionable finding list from a summary, ordered by
// severity.
func Issues(s *model.QualitySummary) []model.Issue {
	var out []model.Issue

	if s.Screenshots.MissingFiles > 0 {
		out = append(out, model.Issue{
			Severity: model.SeverityCritical,
			Category: "files",
			Message:  fmt.Sprintf("%d screenshots reference files missing from disk", s.Screenshots.MissingFiles),
			Count:    s.Screenshots.MissingFiles,
		})
	}
	if len(s.Matrix.Mismatches) > 0 {
		out = append(out, model.Issue{
			Severity: model.SeverityCritical,
			Category: "matrix",
			Message:  fmt.Sprintf("%d screenshots disagree with the competitor-feature matrix", len(s.Matrix.Mismatches)),
			Count:    len(s.Matrix.Mismatches),
		})
	}
	if s.Matrix.InconsistentFlags > 0 {
		out = append(out, model.Issue{
			Severity: model.SeverityWarning,
			Category: "matrix",
			Message:  fmt.Sprintf("%d relations have screenshot evidence but hasFeature=false", s.Matrix.InconsistentFlags),
			Count:    s.Matrix.InconsistentFlags,
		})
	}
	if s.Screenshots.Orphans > 0 {
		out = append(out, model.Issue{
			Severity: model.SeverityWarning,
			Category: "assignments",
			Message:  fmt.Sprintf("%d screenshots have no feature assignment", s.Screenshots.Orphans),
			Count:    s.Screenshots.Orphans,
		})
	}
	if s.Screenshots.LowConfidence > 0 {
		out = append(out, model.Issue{
			Severity: model.SeverityWarning,
			Category: "assignments",
			Message:  fmt.Sprintf("%d assignments were committed below %.1f confidence", s.Screenshots.LowConfidence, lowConfidenceLine),
			Count:    s.Screenshots.LowConfidence,
		})
	}
	if len(s.Matrix.MissingScreenshots) > 0 {
		out = append(out, model.Issue{
			Severity: model.SeverityInfo,
			Category: "matrix",
			Message:  fmt.Sprintf("%d claimed features have no screenshot evidence", len(s.Matrix.MissingScreenshots)),
			Count:    len(s.Matrix.MissingScreenshots),
		})
	}
	return out
}
