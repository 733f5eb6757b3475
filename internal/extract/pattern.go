package extract

import (
	"context"
	"strings"

	"github.com/asimorth/competitor-lens/internal/model"
)

// Pattern is one learned keyword profile: the vocabulary seen in a
// competitor's confirmed screenshots of a single feature.
type Pattern struct {
	FeatureID   string   `json:"feature_id"`
	FeatureName string   `json:"feature_name"`
	Keywords    []string `json:"keywords"`
	SampleCount int      `json:"sample_count"`
	Confidence  float64  `json:"confidence"`
}

// CompetitorPatterns is the learned profile set for one competitor.
type CompetitorPatterns struct {
	CompetitorID string    `json:"competitor_id"`
	Patterns     []Pattern `json:"patterns"`
}

// TrainingSource supplies confirmed assignments for pattern learning.
type TrainingSource interface {
	TrainingExamples(ctx context.Context, competitorID string) ([]model.TrainingExample, error)
}

const (
	patternBaseConfidence = 0.3
	patternPerSample      = 0.05
	patternMaxBaseline    = 0.8
	patternMatchBoost     = 0.2
	patternMaxConfidence  = 0.85
	keywordMinLength      = 4
	keywordsPerExample    = 10
)

// LearnPatterns builds keyword profiles from a competitor's confirmed
// assignments. More samples raise the baseline confidence, capped at 0.8.
func LearnPatterns(ctx context.Context, src TrainingSource, competitorID string) (*CompetitorPatterns, error) {
	examples, err := src.TrainingExamples(ctx, competitorID)
	if err != nil {
		return nil, err
	}

	type acc struct {
		featureName string
		keywords    map[string]struct{}
		order       []string
		count       int
	}
	byFeature := make(map[string]*acc)
	var featureOrder []string

	for _, ex := range examples {
		a, ok := byFeature[ex.FeatureID]
		if !ok {
			a = &acc{featureName: ex.FeatureName, keywords: make(map[string]struct{})}
			byFeature[ex.FeatureID] = a
			featureOrder = append(featureOrder, ex.FeatureID)
		}
		a.count++

		added := 0
		for _, w := range strings.Fields(strings.ToLower(ex.ExtractedText)) {
			if len(w) < keywordMinLength || added >= keywordsPerExample {
				continue
			}
			if _, seen := a.keywords[w]; !seen {
				a.keywords[w] = struct{}{}
				a.order = append(a.order, w)
			}
			added++
		}
	}

	cp := &CompetitorPatterns{CompetitorID: competitorID}
	for _, fid := range featureOrder {
		a := byFeature[fid]
		baseline := patternBaseConfidence + float64(a.count)*patternPerSample
		if baseline > patternMaxBaseline {
			baseline = patternMaxBaseline
		}
		cp.Patterns = append(cp.Patterns, Pattern{
			FeatureID:   fid,
			FeatureName: a.featureName,
			Keywords:    a.order,
			SampleCount: a.count,
			Confidence:  baseline,
		})
	}
	return cp, nil
}

// PatternMatch is one pattern's hit against a screenshot's text.
type PatternMatch struct {
	FeatureID   string
	FeatureName string
	MatchCount  int
	Confidence  float64
}

// Match scores the extracted text against every learned pattern.
// Confidence is the pattern baseline plus a match-ratio boost, capped
// at 0.85 so a pattern hit alone never outranks a confident vision call.
func (cp *CompetitorPatterns) Match(extractedText string) []PatternMatch {
	if cp == nil || extractedText == "" {
		return nil
	}
	text := strings.ToLower(extractedText)

	var out []PatternMatch
	for _, p := range cp.Patterns {
		matches := 0
		for _, kw := range p.Keywords {
			if strings.Contains(text, kw) {
				matches++
			}
		}
		if matches == 0 {
			continue
		}

		denom := len(p.Keywords)
		if denom < 1 {
			denom = 1
		}
		confidence := p.Confidence + float64(matches)/float64(denom)*patternMatchBoost
		if confidence > patternMaxConfidence {
			confidence = patternMaxConfidence
		}
		out = append(out, PatternMatch{
			FeatureID:   p.FeatureID,
			FeatureName: p.FeatureName,
			MatchCount:  matches,
			Confidence:  confidence,
		})
	}
	return out
}
