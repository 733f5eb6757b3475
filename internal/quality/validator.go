// Package quality scores corpus health: screenshot integrity, assignment
// coverage, and metadata completeness. Every report is a full
// recomputation over current data; nothing here is persisted.
package quality

import (
	"context"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/asimorth/competitor-lens/internal/model"
	"github.com/asimorth/competitor-lens/internal/store"
)

// lowConfidenceLine marks committed assignments that still warrant a
// second look.
const lowConfidenceLine = 0.7

// Validator computes data-quality reports from the catalog.
type Validator struct {
	store store.Store

	// fileExists is swappable in tests.
	fileExists func(path string) bool
}

// NewValidator creates a Validator.
func NewValidator(st store.Store) *Validator {
	return &Validator{
		store: st,
		fileExists: func(path string) bool {
			_, err := os.Stat(path)
			return err == nil
		},
	}
}

// ValidateScreenshots tallies per-screenshot integrity signals.
func (v *Validator) ValidateScreenshots(ctx context.Context) (*model.ValidationReport, error) {
	shots, err := v.store.ListScreenshots(ctx, store.ScreenshotFilter{})
	if err != nil {
		return nil, err
	}

	report := &model.ValidationReport{
		Total: len(shots),
		QualityDistribution: map[string]int{
			string(model.QualityExcellent):  0,
			string(model.QualityGood):       0,
			string(model.QualityAcceptable): 0,
			string(model.QualityPoor):       0,
			string(model.QualityUnknown):    0,
		},
	}

	for _, shot := range shots {
		if !v.fileExists(shot.FilePath) {
			report.MissingFiles++
		}

		if shot.Assigned() {
			report.ValidAssignments++
			if shot.AssignmentConfidence > 0 && shot.AssignmentConfidence < lowConfidenceLine {
				report.LowConfidence++
			}
		} else {
			report.Orphans++
		}

		quality := string(shot.Quality)
		if quality == "" {
			quality = string(model.QualityUnknown)
		}
		report.QualityDistribution[quality]++
	}
	return report, nil
}

// ValidateMatrix cross-references the relation table against screenshot
// assignments.
func (v *Validator) ValidateMatrix(ctx context.Context) (*model.MatrixReport, error) {
	matrix, err := v.store.ListMatrix(ctx)
	if err != nil {
		return nil, err
	}

	report := &model.MatrixReport{TotalRelations: len(matrix)}
	type relKey struct{ competitorID, featureID string }
	relations := make(map[relKey]store.MatrixRow, len(matrix))

	for _, row := range matrix {
		relations[relKey{row.CompetitorID, row.FeatureID}] = row

		if row.HasFeature && row.ScreenshotCount == 0 {
			// Flag but do not penalize: the relation may predate
			// screenshot collection.
			report.MissingScreenshots = append(report.MissingScreenshots, model.MatrixGap{
				CompetitorID:   row.CompetitorID,
				CompetitorName: row.CompetitorName,
				FeatureID:      row.FeatureID,
				FeatureName:    row.FeatureName,
			})
		}
		if !row.HasFeature && row.ScreenshotCount > 0 {
			report.InconsistentFlags++
		}
	}

	shots, err := v.store.ListScreenshots(ctx, store.ScreenshotFilter{})
	if err != nil {
		return nil, err
	}
	for _, shot := range shots {
		if !shot.Assigned() {
			continue
		}
		row, ok := relations[relKey{shot.CompetitorID, *shot.FeatureID}]
		if !ok {
			report.Mismatches = append(report.Mismatches, model.MatrixMismatch{
				ScreenshotID: shot.ID,
				Issue:        "missing_relationship",
				Details:      "screenshot assigned to a feature with no matrix relation",
			})
		} else if !row.HasFeature {
			report.Mismatches = append(report.Mismatches, model.MatrixMismatch{
				ScreenshotID: shot.ID,
				Issue:        "inconsistent_flag",
				Details:      fmt.Sprintf("screenshot exists but hasFeature=false for %s - %s", row.CompetitorName, row.FeatureName),
			})
		}
	}
	return report, nil
}

// Summary bundles every report with a fresh score.
func (v *Validator) Summary(ctx context.Context) (*model.QualitySummary, error) {
	screenshots, err := v.ValidateScreenshots(ctx)
	if err != nil {
		return nil, err
	}
	matrix, err := v.ValidateMatrix(ctx)
	if err != nil {
		return nil, err
	}
	metadata, err := v.metadataScore(ctx)
	if err != nil {
		return nil, err
	}

	return &model.QualitySummary{
		Score:       Score(screenshots, matrix, metadata),
		Screenshots: *screenshots,
		Matrix:      *matrix,
		GeneratedAt: time.Now().UTC(),
	}, nil
}

// metadataScore measures how many descriptive fields are filled across
// the corpus, with "unknown" counting as unfilled.
func (v *Validator) metadataScore(ctx context.Context) (int, error) {
	shots, err := v.store.ListScreenshots(ctx, store.ScreenshotFilter{})
	if err != nil {
		return 0, err
	}
	if len(shots) == 0 {
		return 0, nil
	}

	total := 0
	filled := 0
	for _, shot := range shots {
		fields := []string{
			string(shot.Quality),
			shot.Context,
			shot.VisualComplexity,
			shot.UIPattern,
		}
		total += len(fields) + 1
		for _, f := range fields {
			if f != "" && f != string(model.QualityUnknown) {
				filled++
			}
		}
		if shot.AssignmentConfidence > 0 {
			filled++
		}
	}
	return int(math.Round(float64(filled) / float64(total) * 100)), nil
}
