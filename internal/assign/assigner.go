package assign

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/asimorth/competitor-lens/internal/extract"
	"github.com/asimorth/competitor-lens/internal/model"
	"github.com/asimorth/competitor-lens/internal/store"
	"github.com/asimorth/competitor-lens/internal/taxonomy"
)

// Assigner runs the full signal pipeline for screenshots: text
// extraction, vision classification, pattern matching, path heuristics,
// arbitration, and commit.
type Assigner struct {
	store     store.Store
	text      *extract.BestEffort
	vision    *extract.Classifier
	committer *Committer
}

// NewAssigner creates an Assigner. vision may be nil when no API key is
// configured; the remaining signals still run.
func NewAssigner(st store.Store, text extract.TextExtractor, vision *extract.Classifier) *Assigner {
	return &Assigner{
		store:     st,
		text:      extract.NewBestEffort(text),
		vision:    vision,
		committer: NewCommitter(st),
	}
}

// Committer exposes the commit state machine for review tooling.
func (a *Assigner) Committer() *Committer {
	return a.committer
}

// Options controls a single assignment pass.
type Options struct {
	// Reanalyze forces a fresh extraction even when a stored analysis
	// exists, and disables the vision short-circuit.
	Reanalyze bool
}

// AssignOne analyzes one screenshot and commits or flags the outcome.
// A screenshot already holding a high-confidence assignment is returned
// as-is unless Reanalyze forces a fresh pass.
func (a *Assigner) AssignOne(ctx context.Context, screenshotID string, opts Options) (*model.AssignmentResult, error) {
	shot, err := a.store.GetScreenshot(ctx, screenshotID)
	if err != nil {
		return nil, err
	}

	if !opts.Reanalyze && shot.AssignmentConfidence >= ShortCircuitThreshold {
		return a.existingResult(ctx, shot)
	}

	features, err := a.store.ListFeatures(ctx)
	if err != nil {
		return nil, err
	}
	idx := taxonomy.NewIndex(features)

	analysis, err := a.ensureAnalysis(ctx, shot, idx, opts.Reanalyze)
	if err != nil {
		return nil, err
	}

	decision, err := a.decide(ctx, shot, analysis, idx, opts)
	if err != nil {
		return nil, err
	}

	return a.committer.Apply(ctx, shot, decision)
}

// existingResult reports a settled assignment without touching it.
func (a *Assigner) existingResult(ctx context.Context, shot *model.Screenshot) (*model.AssignmentResult, error) {
	result := &model.AssignmentResult{
		ScreenshotID: shot.ID,
		FeatureID:    shot.FeatureID,
		Confidence:   shot.AssignmentConfidence,
		NeedsReview:  shot.NeedsReview,
		Method:       shot.AssignmentMethod,
		Reasoning:    "existing high-confidence assignment kept",
	}
	if shot.FeatureID != nil {
		feature, err := a.store.GetFeature(ctx, *shot.FeatureID)
		if err != nil {
			return nil, err
		}
		result.FeatureName = feature.Name
	}
	return result, nil
}

// ensureAnalysis returns the latest stored analysis, running the
// extractors when none exists or a re-run was requested.
func (a *Assigner) ensureAnalysis(ctx context.Context, shot *model.Screenshot, idx *taxonomy.Index, force bool) (*model.Analysis, error) {
	if !force {
		analysis, err := a.store.LatestAnalysis(ctx, shot.ID)
		if err != nil {
			return nil, err
		}
		if analysis != nil {
			return analysis, nil
		}
	}

	text, _ := a.text.ExtractText(ctx, shot.FilePath)

	analysis := &model.Analysis{
		ScreenshotID:  shot.ID,
		ExtractedText: text,
		Provider:      "ocr",
	}

	if a.vision != nil {
		pred, err := a.vision.Classify(ctx, shot.FilePath, text, idx.Names())
		if err != nil {
			// Vision down is a degraded mode, not a failure: text and
			// path signals still produce candidates.
			zap.L().Warn("vision classification unavailable",
				zap.String("screenshot_id", shot.ID),
				zap.Error(err))
		} else {
			analysis.FeaturePrediction = pred.FeatureName
			analysis.Confidence = pred.Confidence
			analysis.DetectedElements = pred.DetectedElements
			analysis.Provider = "anthropic"
		}
	}

	if err := a.store.CreateAnalysis(ctx, analysis); err != nil {
		return nil, err
	}
	return analysis, nil
}

// decide gathers candidates from every signal source and arbitrates.
func (a *Assigner) decide(ctx context.Context, shot *model.Screenshot, analysis *model.Analysis, idx *taxonomy.Index, opts Options) (model.Decision, error) {
	var candidates []model.Candidate

	// Vision verdict first: a strong one ends arbitration early.
	if analysis != nil && analysis.FeaturePrediction != "" {
		if f, ok := idx.Resolve(analysis.FeaturePrediction); ok {
			confidence := analysis.Confidence
			if confidence == 0 {
				confidence = 0.5
			}
			c := model.Candidate{
				FeatureID:   f.ID,
				FeatureName: f.Name,
				Confidence:  confidence,
				Method:      model.MethodAI,
				Reasoning:   "vision analysis of screenshot content",
			}
			if !opts.Reanalyze {
				if d, ok := ShortCircuit(&c); ok {
					return d, nil
				}
			}
			candidates = append(candidates, c)
		}
	}

	if analysis != nil && analysis.ExtractedText != "" {
		patterns, err := extract.LearnPatterns(ctx, a.store, shot.CompetitorID)
		if err != nil {
			return model.Decision{}, err
		}
		for _, m := range patterns.Match(analysis.ExtractedText) {
			candidates = append(candidates, model.Candidate{
				FeatureID:   m.FeatureID,
				FeatureName: m.FeatureName,
				Confidence:  m.Confidence,
				Method:      model.MethodPattern,
				Reasoning:   fmt.Sprintf("matched %d keywords from competitor patterns", m.MatchCount),
			})
		}
	}

	if name, confidence := extract.GuessFromPath(shot.FilePath); name != "" {
		if f, ok := idx.Resolve(name); ok {
			candidates = append(candidates, model.Candidate{
				FeatureID:   f.ID,
				FeatureName: f.Name,
				Confidence:  confidence,
				Method:      model.MethodPath,
				Reasoning:   "inferred from file path structure",
			})
		}
	}

	return Arbitrate(candidates), nil
}
