package assign

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/asimorth/competitor-lens/internal/model"
	"github.com/asimorth/competitor-lens/internal/store"
)

// Committer applies arbitration decisions to the catalog. Sub-threshold
// decisions record their confidence for the review queue but never
// write a feature id.
type Committer struct {
	store store.Store
}

// NewCommitter creates a Committer.
func NewCommitter(st store.Store) *Committer {
	return &Committer{store: st}
}

// Apply commits or flags the decision for one screenshot and returns
// the per-screenshot outcome.
func (c *Committer) Apply(ctx context.Context, shot *model.Screenshot, d model.Decision) (*model.AssignmentResult, error) {
	result := &model.AssignmentResult{
		ScreenshotID: shot.ID,
		Confidence:   d.Confidence,
		Method:       d.Method,
		Reasoning:    d.Reasoning,
	}

	if d.FeatureID != nil && d.Confidence >= AutoCommitThreshold {
		if err := c.store.UpdateAssignment(ctx, shot.ID, d, false, nil); err != nil {
			return nil, err
		}
		if err := c.store.EnsureCompetitorFeature(ctx, shot.CompetitorID, *d.FeatureID); err != nil {
			return nil, err
		}
		result.FeatureID = d.FeatureID
		result.FeatureName = d.FeatureName

		zap.L().Info("assignment committed",
			zap.String("screenshot_id", shot.ID),
			zap.String("feature", d.FeatureName),
			zap.Float64("confidence", d.Confidence),
			zap.String("method", string(d.Method)))
		return result, nil
	}

	// Keep any previously committed feature and its method; only the
	// review flag and the latest confidence change. A method without a
	// feature id would describe an assignment that never happened.
	flag := model.Decision{
		FeatureID:  shot.FeatureID,
		Confidence: d.Confidence,
		Method:     shot.AssignmentMethod,
	}
	if err := c.store.UpdateAssignment(ctx, shot.ID, flag, true, nil); err != nil {
		return nil, err
	}
	result.NeedsReview = true

	zap.L().Info("assignment flagged for review",
		zap.String("screenshot_id", shot.ID),
		zap.Float64("confidence", d.Confidence),
		zap.String("reasoning", d.Reasoning))
	return result, nil
}

// Confirm records a human reviewer's verdict: full confidence, no
// further review, and the decision feeds future pattern learning.
func (c *Committer) Confirm(ctx context.Context, screenshotID, featureID string) error {
	shot, err := c.store.GetScreenshot(ctx, screenshotID)
	if err != nil {
		return err
	}
	feature, err := c.store.GetFeature(ctx, featureID)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	d := model.Decision{
		FeatureID:   &featureID,
		FeatureName: feature.Name,
		Confidence:  1.0,
		Method:      model.MethodManual,
	}
	if err := c.store.UpdateAssignment(ctx, screenshotID, d, false, &now); err != nil {
		return err
	}
	if err := c.store.EnsureCompetitorFeature(ctx, shot.CompetitorID, featureID); err != nil {
		return err
	}

	analysis, err := c.store.LatestAnalysis(ctx, screenshotID)
	if err != nil {
		return err
	}
	if analysis != nil {
		if err := c.store.MarkAnalysisOverride(ctx, analysis.ID, feature.Name); err != nil {
			return eris.Wrap(err, "assign: record manual override")
		}
	}

	zap.L().Info("manual assignment confirmed",
		zap.String("screenshot_id", screenshotID),
		zap.String("feature", feature.Name))
	return nil
}
