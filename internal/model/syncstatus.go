package model

import "time"

// SyncState is the lifecycle state of a screenshot's remote copy.
type SyncState string

const (
	SyncPending SyncState = "pending"
	SyncSynced  SyncState = "synced"
	SyncFailed  SyncState = "failed"
)

// MaxSyncRetries bounds lifetime upload attempts for a failed sync row.
// Rows at or beyond the cap are excluded from automatic retry.
const MaxSyncRetries = 3

// SyncStatus is the per-screenshot sync ledger row. At most one exists
// per screenshot.
type SyncStatus struct {
	ID           string     `json:"id"`
	ScreenshotID string     `json:"screenshot_id"`
	LocalPath    string     `json:"local_path"`
	ServerPath   string     `json:"server_path,omitempty"`
	FileHash     string     `json:"file_hash,omitempty"`
	State        SyncState  `json:"state"`
	RetryCount   int        `json:"retry_count"`
	ErrorMessage string     `json:"error_message,omitempty"`
	LastSyncedAt *time.Time `json:"last_synced_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// CanRetry reports whether a failed row is still eligible for automatic retry.
func (s *SyncStatus) CanRetry() bool {
	return s.State == SyncFailed && s.RetryCount < MaxSyncRetries
}

// SyncStats summarizes the ledger for the sync status surface.
type SyncStats struct {
	Total       int     `json:"total"`
	Synced      int     `json:"synced"`
	Failed      int     `json:"failed"`
	Pending     int     `json:"pending"`
	SuccessRate float64 `json:"success_rate"`
}

// Healthy reports whether the failure share is below the 5% alerting line.
func (s SyncStats) Healthy() bool {
	if s.Total == 0 {
		return true
	}
	return float64(s.Failed) < float64(s.Total)*0.05
}

// SyncHistoryItem is one synced ledger row denormalized for reporting.
type SyncHistoryItem struct {
	SyncStatus
	CompetitorName string `json:"competitor_name"`
	FeatureName    string `json:"feature_name,omitempty"`
	PublicURL      string `json:"public_url,omitempty"`
}
