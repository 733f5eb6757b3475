package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/asimorth/competitor-lens/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS competitors (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL UNIQUE,
	region     TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS features (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL UNIQUE,
	category   TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS screenshots (
	id                    TEXT PRIMARY KEY,
	competitor_id         TEXT NOT NULL REFERENCES competitors(id),
	feature_id            TEXT REFERENCES features(id),
	file_path             TEXT NOT NULL,
	file_name             TEXT NOT NULL,
	file_size             INTEGER NOT NULL DEFAULT 0,
	mime_type             TEXT NOT NULL DEFAULT '',
	public_url            TEXT,
	quality               TEXT NOT NULL DEFAULT 'unknown',
	context               TEXT,
	visual_complexity     TEXT,
	ui_pattern            TEXT,
	is_onboarding         INTEGER NOT NULL DEFAULT 0,
	upload_source         TEXT,
	assignment_confidence REAL NOT NULL DEFAULT 0,
	assignment_method     TEXT,
	needs_review          INTEGER NOT NULL DEFAULT 0,
	reviewed_at           DATETIME,
	created_at            DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at            DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS competitor_features (
	id            TEXT PRIMARY KEY,
	competitor_id TEXT NOT NULL REFERENCES competitors(id),
	feature_id    TEXT NOT NULL REFERENCES features(id),
	has_feature   INTEGER NOT NULL DEFAULT 0,
	UNIQUE (competitor_id, feature_id)
);

CREATE TABLE IF NOT EXISTS analyses (
	id                 TEXT PRIMARY KEY,
	screenshot_id      TEXT NOT NULL REFERENCES screenshots(id),
	feature_prediction TEXT,
	confidence         REAL NOT NULL DEFAULT 0,
	extracted_text     TEXT,
	detected_elements  TEXT,
	provider           TEXT NOT NULL DEFAULT '',
	manual_override    INTEGER NOT NULL DEFAULT 0,
	analyzed_at        DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS sync_status (
	id            TEXT PRIMARY KEY,
	screenshot_id TEXT NOT NULL UNIQUE REFERENCES screenshots(id),
	local_path    TEXT NOT NULL,
	server_path   TEXT,
	file_hash     TEXT,
	state         TEXT NOT NULL DEFAULT 'pending',
	retry_count   INTEGER NOT NULL DEFAULT 0,
	error_message TEXT,
	last_synced_at DATETIME,
	created_at    DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at    DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_screenshots_competitor ON screenshots(competitor_id);
CREATE INDEX IF NOT EXISTS idx_screenshots_feature ON screenshots(feature_id);
CREATE INDEX IF NOT EXISTS idx_screenshots_needs_review ON screenshots(needs_review);
CREATE INDEX IF NOT EXISTS idx_screenshots_file_path ON screenshots(file_path);
CREATE INDEX IF NOT EXISTS idx_analyses_screenshot ON analyses(screenshot_id);
CREATE INDEX IF NOT EXISTS idx_sync_status_state ON sync_status(state);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Competitors

func (s *SQLiteStore) EnsureCompetitor(ctx context.Context, name string) (*model.Competitor, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, region, created_at FROM competitors WHERE name = ?`, name)
	var c model.Competitor
	err := row.Scan(&c.ID, &c.Name, &c.Region, &c.CreatedAt)
	if err == nil {
		return &c, nil
	}
	if err != sql.ErrNoRows {
		return nil, eris.Wrapf(err, "sqlite: get competitor %s", name)
	}

	c = model.Competitor{ID: uuid.New().String(), Name: name, CreatedAt: time.Now().UTC()}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO competitors (id, name, region, created_at) VALUES (?, ?, ?, ?)`,
		c.ID, c.Name, c.Region, c.CreatedAt)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: insert competitor %s", name)
	}
	return &c, nil
}

func (s *SQLiteStore) GetCompetitor(ctx context.Context, id string) (*model.Competitor, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, region, created_at FROM competitors WHERE id = ?`, id)
	var c model.Competitor
	err := row.Scan(&c.ID, &c.Name, &c.Region, &c.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, eris.Errorf("competitor not found: %s", id)
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get competitor")
	}
	return &c, nil
}

func (s *SQLiteStore) ListCompetitors(ctx context.Context) ([]model.Competitor, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, region, created_at FROM competitors ORDER BY name`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list competitors")
	}
	defer rows.Close()

	var out []model.Competitor
	for rows.Next() {
		var c model.Competitor
		if err := rows.Scan(&c.ID, &c.Name, &c.Region, &c.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan competitor")
		}
		out = append(out, c)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list competitors iterate")
}

// Features

func (s *SQLiteStore) EnsureFeature(ctx context.Context, name, category string) (*model.Feature, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, category, created_at FROM features WHERE name = ?`, name)
	var f model.Feature
	err := row.Scan(&f.ID, &f.Name, &f.Category, &f.CreatedAt)
	if err == nil {
		return &f, nil
	}
	if err != sql.ErrNoRows {
		return nil, eris.Wrapf(err, "sqlite: get feature %s", name)
	}

	f = model.Feature{ID: uuid.New().String(), Name: name, Category: category, CreatedAt: time.Now().UTC()}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO features (id, name, category, created_at) VALUES (?, ?, ?, ?)`,
		f.ID, f.Name, f.Category, f.CreatedAt)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: insert feature %s", name)
	}
	return &f, nil
}

func (s *SQLiteStore) GetFeature(ctx context.Context, id string) (*model.Feature, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, category, created_at FROM features WHERE id = ?`, id)
	var f model.Feature
	err := row.Scan(&f.ID, &f.Name, &f.Category, &f.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, eris.Errorf("feature not found: %s", id)
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get feature")
	}
	return &f, nil
}

func (s *SQLiteStore) ListFeatures(ctx context.Context) ([]model.Feature, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, category, created_at FROM features ORDER BY name`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list features")
	}
	defer rows.Close()

	var out []model.Feature
	for rows.Next() {
		var f model.Feature
		if err := rows.Scan(&f.ID, &f.Name, &f.Category, &f.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan feature")
		}
		out = append(out, f)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list features iterate")
}

// Screenshots

const screenshotColumns = `id, competitor_id, feature_id, file_path, file_name, file_size, mime_type,
	public_url, quality, context, visual_complexity, ui_pattern, is_onboarding, upload_source,
	assignment_confidence, assignment_method, needs_review, reviewed_at, created_at, updated_at`

func (s *SQLiteStore) CreateScreenshot(ctx context.Context, shot *model.Screenshot) error {
	if shot.ID == "" {
		shot.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	shot.CreatedAt = now
	shot.UpdatedAt = now
	if shot.Quality == "" {
		shot.Quality = model.QualityUnknown
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO screenshots (`+screenshotColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		shot.ID, shot.CompetitorID, shot.FeatureID, shot.FilePath, shot.FileName, shot.FileSize,
		shot.MimeType, nullStr(shot.PublicURL), string(shot.Quality), nullStr(shot.Context),
		nullStr(shot.VisualComplexity), nullStr(shot.UIPattern), shot.IsOnboarding,
		nullStr(shot.UploadSource), shot.AssignmentConfidence, nullStr(string(shot.AssignmentMethod)),
		shot.NeedsReview, shot.ReviewedAt, shot.CreatedAt, shot.UpdatedAt,
	)
	return eris.Wrapf(err, "sqlite: insert screenshot %s", shot.FileName)
}

func (s *SQLiteStore) GetScreenshot(ctx context.Context, id string) (*model.Screenshot, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+screenshotColumns+` FROM screenshots WHERE id = ?`, id)
	shot, err := scanScreenshot(row)
	if err == sql.ErrNoRows {
		return nil, eris.Errorf("screenshot not found: %s", id)
	}
	return shot, err
}

func (s *SQLiteStore) GetScreenshotByPath(ctx context.Context, filePath string) (*model.Screenshot, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+screenshotColumns+` FROM screenshots WHERE file_path = ?`, filePath)
	shot, err := scanScreenshot(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return shot, err
}

func (s *SQLiteStore) ListScreenshots(ctx context.Context, filter ScreenshotFilter) ([]model.Screenshot, error) {
	query := `SELECT ` + screenshotColumns + ` FROM screenshots WHERE 1=1`
	var args []any

	if filter.CompetitorID != "" {
		query += ` AND competitor_id = ?`
		args = append(args, filter.CompetitorID)
	}
	if filter.FeatureID != "" {
		query += ` AND feature_id = ?`
		args = append(args, filter.FeatureID)
	}
	if filter.Unassigned {
		query += ` AND feature_id IS NULL`
	}
	if filter.NeedsReview {
		query += ` AND needs_review = 1`
	}
	query += ` ORDER BY created_at DESC`

	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
		if filter.Offset > 0 {
			query += ` OFFSET ?`
			args = append(args, filter.Offset)
		}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list screenshots")
	}
	defer rows.Close()

	var out []model.Screenshot
	for rows.Next() {
		shot, err := scanScreenshot(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *shot)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list screenshots iterate")
}

func (s *SQLiteStore) UpdateAssignment(ctx context.Context, screenshotID string, d model.Decision, needsReview bool, reviewedAt *time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE screenshots
		 SET feature_id = ?, assignment_confidence = ?, assignment_method = ?,
		     needs_review = ?, reviewed_at = ?, updated_at = ?
		 WHERE id = ?`,
		d.FeatureID, d.Confidence, nullStr(string(d.Method)),
		needsReview, reviewedAt, time.Now().UTC(), screenshotID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update assignment %s", screenshotID)
	}
	return checkRowsAffected(res, "screenshot", screenshotID)
}

func (s *SQLiteStore) SetPublicURL(ctx context.Context, screenshotID, url string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE screenshots SET public_url = ?, updated_at = ? WHERE id = ?`,
		url, time.Now().UTC(), screenshotID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: set public url %s", screenshotID)
	}
	return checkRowsAffected(res, "screenshot", screenshotID)
}

func (s *SQLiteStore) ListReviewQueue(ctx context.Context, limit, offset int) ([]model.ReviewItem, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT s.id, s.competitor_id, s.feature_id, s.file_path, s.file_name, s.file_size, s.mime_type,
		        s.public_url, s.quality, s.context, s.visual_complexity, s.ui_pattern, s.is_onboarding,
		        s.upload_source, s.assignment_confidence, s.assignment_method, s.needs_review,
		        s.reviewed_at, s.created_at, s.updated_at, c.name, COALESCE(f.name, '')
		 FROM screenshots s
		 JOIN competitors c ON c.id = s.competitor_id
		 LEFT JOIN features f ON f.id = s.feature_id
		 WHERE s.needs_review = 1
		 ORDER BY s.created_at DESC
		 LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list review queue")
	}
	defer rows.Close()

	var out []model.ReviewItem
	for rows.Next() {
		var item model.ReviewItem
		if err := scanScreenshotInto(rows, &item.Screenshot, &item.CompetitorName, &item.FeatureName); err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: review queue iterate")
}

func (s *SQLiteStore) AssignmentStats(ctx context.Context) (*model.AssignmentStats, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*),
		        COUNT(feature_id),
		        SUM(CASE WHEN needs_review = 1 THEN 1 ELSE 0 END),
		        SUM(CASE WHEN assignment_confidence >= 0.8 THEN 1 ELSE 0 END),
		        SUM(CASE WHEN assignment_confidence > 0 AND assignment_confidence < 0.7 THEN 1 ELSE 0 END)
		 FROM screenshots`)

	var st model.AssignmentStats
	var needsReview, high, low sql.NullInt64
	if err := row.Scan(&st.Total, &st.Assigned, &needsReview, &high, &low); err != nil {
		return nil, eris.Wrap(err, "sqlite: assignment stats")
	}
	st.Unassigned = st.Total - st.Assigned
	st.NeedsReview = int(needsReview.Int64)
	st.HighConfidence = int(high.Int64)
	st.LowConfidence = int(low.Int64)
	if st.Total > 0 {
		st.AssignmentRate = int(float64(st.Assigned) / float64(st.Total) * 100)
	}
	return &st, nil
}

// Matrix relations

func (s *SQLiteStore) EnsureCompetitorFeature(ctx context.Context, competitorID, featureID string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO competitor_features (id, competitor_id, feature_id, has_feature)
		 VALUES (?, ?, ?, 1)
		 ON CONFLICT (competitor_id, feature_id) DO UPDATE SET has_feature = 1`,
		uuid.New().String(), competitorID, featureID,
	)
	return eris.Wrap(err, "sqlite: ensure competitor feature")
}

func (s *SQLiteStore) ListMatrix(ctx context.Context) ([]MatrixRow, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT cf.id, cf.competitor_id, cf.feature_id, cf.has_feature, c.name, f.name,
		        (SELECT COUNT(*) FROM screenshots s
		         WHERE s.competitor_id = cf.competitor_id AND s.feature_id = cf.feature_id)
		 FROM competitor_features cf
		 JOIN competitors c ON c.id = cf.competitor_id
		 JOIN features f ON f.id = cf.feature_id
		 ORDER BY c.name, f.name`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list matrix")
	}
	defer rows.Close()

	var out []MatrixRow
	for rows.Next() {
		var r MatrixRow
		err := rows.Scan(&r.ID, &r.CompetitorID, &r.FeatureID, &r.HasFeature,
			&r.CompetitorName, &r.FeatureName, &r.ScreenshotCount)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan matrix row")
		}
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list matrix iterate")
}

// Analyses

func (s *SQLiteStore) CreateAnalysis(ctx context.Context, a *model.Analysis) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	if a.AnalyzedAt.IsZero() {
		a.AnalyzedAt = time.Now().UTC()
	}
	elementsJSON, err := json.Marshal(a.DetectedElements)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal detected elements")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO analyses (id, screenshot_id, feature_prediction, confidence, extracted_text,
		                       detected_elements, provider, manual_override, analyzed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.ScreenshotID, nullStr(a.FeaturePrediction), a.Confidence, nullStr(a.ExtractedText),
		string(elementsJSON), a.Provider, a.ManualOverride, a.AnalyzedAt,
	)
	return eris.Wrapf(err, "sqlite: insert analysis for %s", a.ScreenshotID)
}

func (s *SQLiteStore) LatestAnalysis(ctx context.Context, screenshotID string) (*model.Analysis, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, screenshot_id, feature_prediction, confidence, extracted_text,
		        detected_elements, provider, manual_override, analyzed_at
		 FROM analyses WHERE screenshot_id = ?
		 ORDER BY analyzed_at DESC LIMIT 1`,
		screenshotID,
	)
	a, err := scanAnalysis(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return a, err
}

func (s *SQLiteStore) MarkAnalysisOverride(ctx context.Context, analysisID, featurePrediction string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE analyses SET manual_override = 1, feature_prediction = ? WHERE id = ?`,
		featurePrediction, analysisID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: mark analysis override %s", analysisID)
	}
	return checkRowsAffected(res, "analysis", analysisID)
}

func (s *SQLiteStore) TrainingExamples(ctx context.Context, competitorID string) ([]model.TrainingExample, error) {
	// Confirmed assignments only: manual, or committed at 0.8+.
	rows, err := s.db.QueryContext(ctx,
		`SELECT s.feature_id, f.name, COALESCE(a.extracted_text, '')
		 FROM screenshots s
		 JOIN features f ON f.id = s.feature_id
		 LEFT JOIN analyses a ON a.id = (
		 	SELECT id FROM analyses WHERE screenshot_id = s.id ORDER BY analyzed_at DESC LIMIT 1
		 )
		 WHERE s.competitor_id = ?
		   AND s.feature_id IS NOT NULL
		   AND (s.assignment_method = 'manual' OR s.assignment_confidence >= 0.8)`,
		competitorID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: training examples")
	}
	defer rows.Close()

	var out []model.TrainingExample
	for rows.Next() {
		var ex model.TrainingExample
		if err := rows.Scan(&ex.FeatureID, &ex.FeatureName, &ex.ExtractedText); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan training example")
		}
		out = append(out, ex)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: training examples iterate")
}

// Sync ledger

const syncColumns = `id, screenshot_id, local_path, server_path, file_hash, state, retry_count,
	error_message, last_synced_at, created_at, updated_at`

func (s *SQLiteStore) EnsureSyncPending(ctx context.Context, screenshotID, localPath, fileHash string) (*model.SyncStatus, error) {
	existing, err := s.GetSyncStatus(ctx, screenshotID)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	if existing != nil {
		_, err := s.db.ExecContext(ctx,
			`UPDATE sync_status SET local_path = ?, file_hash = ?, state = ?, updated_at = ?
			 WHERE screenshot_id = ?`,
			localPath, nullStr(fileHash), string(model.SyncPending), now, screenshotID,
		)
		if err != nil {
			return nil, eris.Wrapf(err, "sqlite: reset sync pending %s", screenshotID)
		}
		existing.LocalPath = localPath
		existing.FileHash = fileHash
		existing.State = model.SyncPending
		existing.UpdatedAt = now
		return existing, nil
	}

	st := model.SyncStatus{
		ID:           uuid.New().String(),
		ScreenshotID: screenshotID,
		LocalPath:    localPath,
		FileHash:     fileHash,
		State:        model.SyncPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO sync_status (id, screenshot_id, local_path, file_hash, state, retry_count, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, 0, ?, ?)`,
		st.ID, st.ScreenshotID, st.LocalPath, nullStr(st.FileHash), string(st.State), st.CreatedAt, st.UpdatedAt,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: insert sync status %s", screenshotID)
	}
	return &st, nil
}

func (s *SQLiteStore) GetSyncStatus(ctx context.Context, screenshotID string) (*model.SyncStatus, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+syncColumns+` FROM sync_status WHERE screenshot_id = ?`, screenshotID)
	st, err := scanSyncStatus(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return st, err
}

func (s *SQLiteStore) MarkSynced(ctx context.Context, screenshotID, serverPath, fileHash string) error {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`UPDATE sync_status
		 SET state = ?, server_path = ?, file_hash = ?, error_message = NULL,
		     last_synced_at = ?, updated_at = ?
		 WHERE screenshot_id = ?`,
		string(model.SyncSynced), serverPath, fileHash, now, now, screenshotID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: mark synced %s", screenshotID)
	}
	return checkRowsAffected(res, "sync status", screenshotID)
}

func (s *SQLiteStore) MarkSyncFailed(ctx context.Context, screenshotID, errMsg string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE sync_status
		 SET state = ?, error_message = ?, retry_count = retry_count + 1, updated_at = ?
		 WHERE screenshot_id = ?`,
		string(model.SyncFailed), errMsg, time.Now().UTC(), screenshotID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: mark sync failed %s", screenshotID)
	}
	return checkRowsAffected(res, "sync status", screenshotID)
}

func (s *SQLiteStore) MarkSyncPending(ctx context.Context, screenshotID, fileHash string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE sync_status SET state = ?, file_hash = ?, updated_at = ? WHERE screenshot_id = ?`,
		string(model.SyncPending), nullStr(fileHash), time.Now().UTC(), screenshotID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: mark sync pending %s", screenshotID)
	}
	return checkRowsAffected(res, "sync status", screenshotID)
}

func (s *SQLiteStore) DeleteSyncStatus(ctx context.Context, screenshotID string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM sync_status WHERE screenshot_id = ?`, screenshotID)
	return eris.Wrapf(err, "sqlite: delete sync status %s", screenshotID)
}

func (s *SQLiteStore) ListSyncStatuses(ctx context.Context) ([]model.SyncStatus, error) {
	return s.querySyncs(ctx, `SELECT `+syncColumns+` FROM sync_status ORDER BY created_at`)
}

func (s *SQLiteStore) ListSyncsInState(ctx context.Context, state model.SyncState) ([]model.SyncStatus, error) {
	return s.querySyncs(ctx,
		`SELECT `+syncColumns+` FROM sync_status WHERE state = ? ORDER BY created_at`, string(state))
}

func (s *SQLiteStore) ListRetryableSyncs(ctx context.Context) ([]model.SyncStatus, error) {
	return s.querySyncs(ctx,
		`SELECT `+syncColumns+` FROM sync_status WHERE state = ? AND retry_count < ? ORDER BY created_at`,
		string(model.SyncFailed), model.MaxSyncRetries)
}

func (s *SQLiteStore) querySyncs(ctx context.Context, query string, args ...any) ([]model.SyncStatus, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: query sync statuses")
	}
	defer rows.Close()

	var out []model.SyncStatus
	for rows.Next() {
		st, err := scanSyncStatus(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *st)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: sync statuses iterate")
}

func (s *SQLiteStore) SyncStats(ctx context.Context) (*model.SyncStats, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*),
		        SUM(CASE WHEN state = 'synced' THEN 1 ELSE 0 END),
		        SUM(CASE WHEN state = 'failed' THEN 1 ELSE 0 END),
		        SUM(CASE WHEN state = 'pending' THEN 1 ELSE 0 END)
		 FROM sync_status`)

	var st model.SyncStats
	var synced, failed, pending sql.NullInt64
	if err := row.Scan(&st.Total, &synced, &failed, &pending); err != nil {
		return nil, eris.Wrap(err, "sqlite: sync stats")
	}
	st.Synced = int(synced.Int64)
	st.Failed = int(failed.Int64)
	st.Pending = int(pending.Int64)
	if st.Total > 0 {
		st.SuccessRate = float64(st.Synced) / float64(st.Total) * 100
	}
	return &st, nil
}

func (s *SQLiteStore) SyncHistory(ctx context.Context, limit int) ([]model.SyncHistoryItem, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT ss.id, ss.screenshot_id, ss.local_path, ss.server_path, ss.file_hash, ss.state,
		        ss.retry_count, ss.error_message, ss.last_synced_at, ss.created_at, ss.updated_at,
		        c.name, COALESCE(f.name, ''), COALESCE(s.public_url, '')
		 FROM sync_status ss
		 JOIN screenshots s ON s.id = ss.screenshot_id
		 JOIN competitors c ON c.id = s.competitor_id
		 LEFT JOIN features f ON f.id = s.feature_id
		 WHERE ss.state = 'synced'
		 ORDER BY ss.last_synced_at DESC
		 LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: sync history")
	}
	defer rows.Close()

	var out []model.SyncHistoryItem
	for rows.Next() {
		var item model.SyncHistoryItem
		var serverPath, fileHash, errMsg sql.NullString
		var lastSynced sql.NullTime
		err := rows.Scan(&item.ID, &item.ScreenshotID, &item.LocalPath, &serverPath, &fileHash,
			&item.State, &item.RetryCount, &errMsg, &lastSynced, &item.CreatedAt, &item.UpdatedAt,
			&item.CompetitorName, &item.FeatureName, &item.PublicURL)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan sync history")
		}
		item.ServerPath = serverPath.String
		item.FileHash = fileHash.String
		item.ErrorMessage = errMsg.String
		if lastSynced.Valid {
			t := lastSynced.Time
			item.LastSyncedAt = &t
		}
		out = append(out, item)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: sync history iterate")
}

func (s *SQLiteStore) PruneSyncHistory(ctx context.Context, olderThan time.Duration) (int, error) {
	cutoff := time.Now().UTC().Add(-olderThan)
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM sync_status WHERE state = 'synced' AND last_synced_at < ?`, cutoff)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: prune sync history")
	}
	n, err := res.RowsAffected()
	return int(n), eris.Wrap(err, "sqlite: rows affected")
}

// helpers

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", entity, id)
	}
	return nil
}

func nullStr(s string) any {
	if s == "" {
		return nil
	}
	return s
}

type scannable interface {
	Scan(dest ...any) error
}

func scanScreenshot(row scannable) (*model.Screenshot, error) {
	var shot model.Screenshot
	if err := scanScreenshotInto(row, &shot); err != nil {
		return nil, err
	}
	return &shot, nil
}

// scanScreenshotInto scans the screenshot columns plus any extra trailing
// destinations (used by joined queries).
func scanScreenshotInto(row scannable, shot *model.Screenshot, extra ...any) error {
	var featureID, publicURL, contextStr, complexity, uiPattern, source, method sql.NullString
	var reviewedAt sql.NullTime

	dest := []any{
		&shot.ID, &shot.CompetitorID, &featureID, &shot.FilePath, &shot.FileName,
		&shot.FileSize, &shot.MimeType, &publicURL, &shot.Quality, &contextStr,
		&complexity, &uiPattern, &shot.IsOnboarding, &source, &shot.AssignmentConfidence,
		&method, &shot.NeedsReview, &reviewedAt, &shot.CreatedAt, &shot.UpdatedAt,
	}
	dest = append(dest, extra...)

	err := row.Scan(dest...)
	if err == sql.ErrNoRows {
		return err
	}
	if err != nil {
		return eris.Wrap(err, "sqlite: scan screenshot")
	}

	if featureID.Valid {
		fid := featureID.String
		shot.FeatureID = &fid
	}
	shot.PublicURL = publicURL.String
	shot.Context = contextStr.String
	shot.VisualComplexity = complexity.String
	shot.UIPattern = uiPattern.String
	shot.UploadSource = source.String
	shot.AssignmentMethod = model.AssignmentMethod(method.String)
	if reviewedAt.Valid {
		t := reviewedAt.Time
		shot.ReviewedAt = &t
	}
	return nil
}

func scanAnalysis(row scannable) (*model.Analysis, error) {
	var a model.Analysis
	var prediction, text, elementsJSON sql.NullString

	err := row.Scan(&a.ID, &a.ScreenshotID, &prediction, &a.Confidence, &text,
		&elementsJSON, &a.Provider, &a.ManualOverride, &a.AnalyzedAt)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan analysis")
	}

	a.FeaturePrediction = prediction.String
	a.ExtractedText = text.String
	if elementsJSON.Valid && elementsJSON.String != "" {
		if err := json.Unmarshal([]byte(elementsJSON.String), &a.DetectedElements); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal detected elements")
		}
	}
	return &a, nil
}

func scanSyncStatus(row scannable) (*model.SyncStatus, error) {
	var st model.SyncStatus
	var serverPath, fileHash, errMsg sql.NullString
	var lastSynced sql.NullTime

	err := row.Scan(&st.ID, &st.ScreenshotID, &st.LocalPath, &serverPath, &fileHash,
		&st.State, &st.RetryCount, &errMsg, &lastSynced, &st.CreatedAt, &st.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan sync status")
	}

	st.ServerPath = serverPath.String
	st.FileHash = fileHash.String
	st.ErrorMessage = errMsg.String
	if lastSynced.Valid {
		t := lastSynced.Time
		st.LastSyncedAt = &t
	}
	return &st, nil
}
