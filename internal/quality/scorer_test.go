package quality

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asimorth/competitor-lens/internal/model"
)

func TestScoreScreenshots(t *testing.T) {
	assert.Equal(t, 100, scoreScreenshots(&model.ValidationReport{Total: 10}))
	assert.Equal(t, 80, scoreScreenshots(&model.ValidationReport{Total: 10, MissingFiles: 2}))
	assert.Equal(t, 67, scoreScreenshots(&model.ValidationReport{Total: 3, MissingFiles: 1}))
	assert.Equal(t, 0, scoreScreenshots(&model.ValidationReport{}))
}

func TestScoreAssignments(t *testing.T) {
	// perfect coverage, no penalties
	assert.Equal(t, 100, scoreAssignments(
		&model.ValidationReport{Total: 10, ValidAssignments: 10},
		&model.MatrixReport{},
	))

	// 80% coverage, 2 low-confidence commits: 80 - 2/10*20 = 76
	assert.Equal(t, 76, scoreAssignments(
		&model.ValidationReport{Total: 10, ValidAssignments: 8, LowConfidence: 2},
		&model.MatrixReport{},
	))

	// orphans drag the score twice: lost coverage plus the penalty
	// 50 - 5/10*30 = 35
	assert.Equal(t, 35, scoreAssignments(
		&model.ValidationReport{Total: 10, ValidAssignments: 5, Orphans: 5},
		&model.MatrixReport{},
	))

	// inconsistency penalty capped at 30: 100 - min(10/10*50, 30) = 70
	assert.Equal(t, 70, scoreAssignments(
		&model.ValidationReport{Total: 10, ValidAssignments: 10},
		&model.MatrixReport{InconsistentFlags: 10},
	))

	// floor at zero
	assert.Equal(t, 0, scoreAssignments(
		&model.ValidationReport{Total: 10, Orphans: 10},
		&model.MatrixReport{InconsistentFlags: 10},
	))

	assert.Equal(t, 0, scoreAssignments(&model.ValidationReport{}, &model.MatrixReport{}))
}

func TestScore_WeightsAndGrade(t *testing.T) {
	score := Score(
		&model.ValidationReport{Total: 10, ValidAssignments: 10},
		&model.MatrixReport{},
		50,
	)
	assert.Equal(t, 100, score.Screenshots)
	assert.Equal(t, 100, score.Assignments)
	assert.Equal(t, 50, score.Metadata)
	// 100*0.3 + 100*0.4 + 50*0.3 = 85
	assert.Equal(t, 85, score.Overall)
	assert.Equal(t, "B", score.Grade)
}

func TestGrade(t *testing.T) {
	assert.Equal(t, "A", grade(90))
	assert.Equal(t, "B", grade(89))
	assert.Equal(t, "B", grade(80))
	assert.Equal(t, "C", grade(79))
	assert.Equal(t, "D", grade(60))
	assert.Equal(t, "F", grade(59))
	assert.Equal(t, "F", grade(0))
}

func TestIssues_OrderedBySeverity(t *testing.T) {
	s := &model.QualitySummary{
		Screenshots: model.ValidationReport{
			MissingFiles:  2,
			Orphans:       3,
			LowConfidence: 1,
		},
		Matrix: model.MatrixReport{
			InconsistentFlags:  1,
			MissingScreenshots: []model.MatrixGap{{FeatureName: "Staking"}},
			Mismatches:         []model.MatrixMismatch{{Issue: "missing_relationship"}},
		},
	}

	issues := Issues(s)
	require.Len(t, issues, 6)
	assert.Equal(t, model.SeverityCritical, issues[0].Severity)
	assert.Equal(t, model.SeverityCritical, issues[1].Severity)
	assert.Equal(t, model.SeverityWarning, issues[2].Severity)
	assert.Equal(t, model.SeverityWarning, issues[3].Severity)
	assert.Equal(t, model.SeverityWarning, issues[4].Severity)
	assert.Equal(t, model.SeverityInfo, issues[5].Severity)

	assert.Equal(t, "files", issues[0].Category)
	assert.Equal(t, 2, issues[0].Count)
}

func TestIssues_CleanCorpus(t *testing.T) {
	assert.Empty(t, Issues(&model.QualitySummary{}))
}
