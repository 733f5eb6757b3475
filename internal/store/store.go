package store

import (
	"context"
	"time"

	"github.com/asimorth/competitor-lens/internal/model"
)

// ScreenshotFilter specifies criteria for listing screenshots.
type ScreenshotFilter struct {
	CompetitorID string `json:"competitor_id,omitempty"`
	FeatureID    string `json:"feature_id,omitempty"`
	Unassigned   bool   `json:"unassigned,omitempty"`
	NeedsReview  bool   `json:"needs_review,omitempty"`
	Limit        int    `json:"limit,omitempty"`
	Offset       int    `json:"offset,omitempty"`
}

// MatrixRow is one competitor-feature relation joined with its derived
// screenshot evidence count.
type MatrixRow struct {
	model.CompetitorFeature
	CompetitorName string `json:"competitor_name"`
	FeatureName    string `json:"feature_name"`
}

// Store defines the persistence interface for the catalog.
type Store interface {
	// Competitors
	EnsureCompetitor(ctx context.Context, name string) (*model.Competitor, error)
	GetCompetitor(ctx context.Context, id string) (*model.Competitor, error)
	ListCompetitors(ctx context.Context) ([]model.Competitor, error)

	// Features
	EnsureFeature(ctx context.Context, name, category string) (*model.Feature, error)
	GetFeature(ctx context.Context, id string) (*model.Feature, error)
	ListFeatures(ctx context.Context) ([]model.Feature, error)

	// Screenshots
	CreateScreenshot(ctx context.Context, shot *model.Screenshot) error
	GetScreenshot(ctx context.Context, id string) (*model.Screenshot, error)
	GetScreenshotByPath(ctx context.Context, filePath string) (*model.Screenshot, error)
	ListScreenshots(ctx context.Context, filter ScreenshotFilter) ([]model.Screenshot, error)
	UpdateAssignment(ctx context.Context, screenshotID string, d model.Decision, needsReview bool, reviewedAt *time.Time) error
	SetPublicURL(ctx context.Context, screenshotID, url string) error
	ListReviewQueue(ctx context.Context, limit, offset int) ([]model.ReviewItem, error)
	AssignmentStats(ctx context.Context) (*model.AssignmentStats, error)

	// Matrix relations
	EnsureCompetitorFeature(ctx context.Context, competitorID, featureID string) error
	ListMatrix(ctx context.Context) ([]MatrixRow, error)

	// Analyses
	CreateAnalysis(ctx context.Context, a *model.Analysis) error
	LatestAnalysis(ctx context.Context, screenshotID string) (*model.Analysis, error)
	MarkAnalysisOverride(ctx context.Context, analysisID, featurePrediction string) error
	TrainingExamples(ctx context.Context, competitorID string) ([]model.TrainingExample, error)

	// Sync ledger
	EnsureSyncPending(ctx context.Context, screenshotID, localPath, fileHash string) (*model.SyncStatus, error)
	GetSyncStatus(ctx context.Context, screenshotID string) (*model.SyncStatus, error)
	MarkSynced(ctx context.Context, screenshotID, serverPath, fileHash string) error
	MarkSyncFailed(ctx context.Context, screenshotID, errMsg string) error
	MarkSyncPending(ctx context.Context, screenshotID, fileHash string) error
	DeleteSyncStatus(ctx context.Context, screenshotID string) error
	ListSyncStatuses(ctx context.Context) ([]model.SyncStatus, error)
	ListSyncsInState(ctx context.Context, state model.SyncState) ([]model.SyncStatus, error)
	ListRetryableSyncs(ctx context.Context) ([]model.SyncStatus, error)
	SyncStats(ctx context.Context) (*model.SyncStats, error)
	SyncHistory(ctx context.Context, limit int) ([]model.SyncHistoryItem, error)
	PruneSyncHistory(ctx context.Context, olderThan time.Duration) (int, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
