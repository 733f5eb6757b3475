package store

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/asimorth/competitor-lens/internal/db"
	"github.com/asimorth/competitor-lens/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	pgxCfg.MaxConns = 10
	pgxCfg.MinConns = 2
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS competitors (
	id         TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	name       TEXT NOT NULL UNIQUE,
	region     TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS features (
	id         TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	name       TEXT NOT NULL UNIQUE,
	category   TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS screenshots (
	id                    TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	competitor_id         TEXT NOT NULL REFERENCES competitors(id),
	feature_id            TEXT REFERENCES features(id),
	file_path             TEXT NOT NULL,
	file_name             TEXT NOT NULL,
	file_size             BIGINT NOT NULL DEFAULT 0,
	mime_type             TEXT NOT NULL DEFAULT '',
	public_url            TEXT,
	quality               TEXT NOT NULL DEFAULT 'unknown',
	context               TEXT,
	visual_complexity     TEXT,
	ui_pattern            TEXT,
	is_onboarding         BOOLEAN NOT NULL DEFAULT false,
	upload_source         TEXT,
	assignment_confidence DOUBLE PRECISION NOT NULL DEFAULT 0,
	assignment_method     TEXT,
	needs_review          BOOLEAN NOT NULL DEFAULT false,
	reviewed_at           TIMESTAMPTZ,
	created_at            TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at            TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS competitor_features (
	id            TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	competitor_id TEXT NOT NULL REFERENCES competitors(id),
	feature_id    TEXT NOT NULL REFERENCES features(id),
	has_feature   BOOLEAN NOT NULL DEFAULT false,
	UNIQUE (competitor_id, feature_id)
);

CREATE TABLE IF NOT EXISTS analyses (
	id                 TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	screenshot_id      TEXT NOT NULL REFERENCES screenshots(id),
	feature_prediction TEXT,
	confidence         DOUBLE PRECISION NOT NULL DEFAULT 0,
	extracted_text     TEXT,
	detected_elements  JSONB,
	provider           TEXT NOT NULL DEFAULT '',
	manual_override    BOOLEAN NOT NULL DEFAULT false,
	analyzed_at        TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS sync_status (
	id             TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	screenshot_id  TEXT NOT NULL UNIQUE REFERENCES screenshots(id),
	local_path     TEXT NOT NULL,
	server_path    TEXT,
	file_hash      TEXT,
	state          TEXT NOT NULL DEFAULT 'pending',
	retry_count    INTEGER NOT NULL DEFAULT 0,
	error_message  TEXT,
	last_synced_at TIMESTAMPTZ,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_screenshots_competitor ON screenshots(competitor_id);
CREATE INDEX IF NOT EXISTS idx_screenshots_feature ON screenshots(feature_id);
CREATE INDEX IF NOT EXISTS idx_screenshots_needs_review ON screenshots(needs_review);
CREATE INDEX IF NOT EXISTS idx_screenshots_file_path ON screenshots(file_path);
CREATE INDEX IF NOT EXISTS idx_analyses_screenshot ON analyses(screenshot_id);
CREATE INDEX IF NOT EXISTS idx_sync_status_state ON sync_status(state);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

// Competitors

func (s *PostgresStore) EnsureCompetitor(ctx context.Context, name string) (*model.Competitor, error) {
	var c model.Competitor
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, region, created_at FROM competitors WHERE name = $1`, name).
		Scan(&c.ID, &c.Name, &c.Region, &c.CreatedAt)
	if err == nil {
		return &c, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(err, "postgres: get competitor %s", name)
	}

	c = model.Competitor{ID: uuid.New().String(), Name: name, CreatedAt: time.Now().UTC()}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO competitors (id, name, region, created_at) VALUES ($1, $2, $3, $4)`,
		c.ID, c.Name, c.Region, c.CreatedAt)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: insert competitor %s", name)
	}
	return &c, nil
}

func (s *PostgresStore) GetCompetitor(ctx context.Context, id string) (*model.Competitor, error) {
	var c model.Competitor
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, region, created_at FROM competitors WHERE id = $1`, id).
		Scan(&c.ID, &c.Name, &c.Region, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Errorf("competitor not found: %s", id)
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get competitor")
	}
	return &c, nil
}

func (s *PostgresStore) ListCompetitors(ctx context.Context) ([]model.Competitor, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, region, created_at FROM competitors ORDER BY name`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list competitors")
	}
	defer rows.Close()

	var out []model.Competitor
	for rows.Next() {
		var c model.Competitor
		if err := rows.Scan(&c.ID, &c.Name, &c.Region, &c.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan competitor")
		}
		out = append(out, c)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list competitors iterate")
}

// Features

func (s *PostgresStore) EnsureFeature(ctx context.Context, name, category string) (*model.Feature, error) {
	var f model.Feature
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, category, created_at FROM features WHERE name = $1`, name).
		Scan(&f.ID, &f.Name, &f.Category, &f.CreatedAt)
	if err == nil {
		return &f, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(err, "postgres: get feature %s", name)
	}

	f = model.Feature{ID: uuid.New().String(), Name: name, Category: category, CreatedAt: time.Now().UTC()}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO features (id, name, category, created_at) VALUES ($1, $2, $3, $4)`,
		f.ID, f.Name, f.Category, f.CreatedAt)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: insert feature %s", name)
	}
	return &f, nil
}

func (s *PostgresStore) GetFeature(ctx context.Context, id string) (*model.Feature, error) {
	var f model.Feature
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, category, created_at FROM features WHERE id = $1`, id).
		Scan(&f.ID, &f.Name, &f.Category, &f.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Errorf("feature not found: %s", id)
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get feature")
	}
	return &f, nil
}

func (s *PostgresStore) ListFeatures(ctx context.Context) ([]model.Feature, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, category, created_at FROM features ORDER BY name`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list features")
	}
	defer rows.Close()

	var out []model.Feature
	for rows.Next() {
		var f model.Feature
		if err := rows.Scan(&f.ID, &f.Name, &f.Category, &f.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan feature")
		}
		out = append(out, f)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list features iterate")
}

// Screenshots

func (s *PostgresStore) CreateScreenshot(ctx context.Context, shot *model.Screenshot) error {
	if shot.ID == "" {
		shot.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	shot.CreatedAt = now
	shot.UpdatedAt = now
	if shot.Quality == "" {
		shot.Quality = model.QualityUnknown
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO screenshots (`+screenshotColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)`,
		shot.ID, shot.CompetitorID, shot.FeatureID, shot.FilePath, shot.FileName, shot.FileSize,
		shot.MimeType, nullStr(shot.PublicURL), string(shot.Quality), nullStr(shot.Context),
		nullStr(shot.VisualComplexity), nullStr(shot.UIPattern), shot.IsOnboarding,
		nullStr(shot.UploadSource), shot.AssignmentConfidence, nullStr(string(shot.AssignmentMethod)),
		shot.NeedsReview, shot.ReviewedAt, shot.CreatedAt, shot.UpdatedAt,
	)
	return eris.Wrapf(err, "postgres: insert screenshot %s", shot.FileName)
}

func (s *PostgresStore) GetScreenshot(ctx context.Context, id string) (*model.Screenshot, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+screenshotColumns+` FROM screenshots WHERE id = $1`, id)
	shot, err := scanScreenshotPG(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Errorf("screenshot not found: %s", id)
	}
	return shot, err
}

func (s *PostgresStore) GetScreenshotByPath(ctx context.Context, filePath string) (*model.Screenshot, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+screenshotColumns+` FROM screenshots WHERE file_path = $1`, filePath)
	shot, err := scanScreenshotPG(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return shot, err
}

func (s *PostgresStore) ListScreenshots(ctx context.Context, filter ScreenshotFilter) ([]model.Screenshot, error) {
	query := `SELECT ` + screenshotColumns + ` FROM screenshots WHERE 1=1`
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if filter.CompetitorID != "" {
		query += ` AND competitor_id = ` + arg(filter.CompetitorID)
	}
	if filter.FeatureID != "" {
		query += ` AND feature_id = ` + arg(filter.FeatureID)
	}
	if filter.Unassigned {
		query += ` AND feature_id IS NULL`
	}
	if filter.NeedsReview {
		query += ` AND needs_review = true`
	}
	query += ` ORDER BY created_at DESC`

	if filter.Limit > 0 {
		query += ` LIMIT ` + arg(filter.Limit)
		if filter.Offset > 0 {
			query += ` OFFSET ` + arg(filter.Offset)
		}
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list screenshots")
	}
	defer rows.Close()

	var out []model.Screenshot
	for rows.Next() {
		shot, err := scanScreenshotPG(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *shot)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list screenshots iterate")
}

func (s *PostgresStore) UpdateAssignment(ctx context.Context, screenshotID string, d model.Decision, needsReview bool, reviewedAt *time.Time) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE screenshots
		 SET feature_id = $1, assignment_confidence = $2, assignment_method = $3,
		     needs_review = $4, reviewed_at = $5, updated_at = $6
		 WHERE id = $7`,
		d.FeatureID, d.Confidence, nullStr(string(d.Method)),
		needsReview, reviewedAt, time.Now().UTC(), screenshotID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update assignment %s", screenshotID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("screenshot not found: %s", screenshotID)
	}
	return nil
}

func (s *PostgresStore) SetPublicURL(ctx context.Context, screenshotID, url string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE screenshots SET public_url = $1, updated_at = $2 WHERE id = $3`,
		url, time.Now().UTC(), screenshotID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: set public url %s", screenshotID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("screenshot not found: %s", screenshotID)
	}
	return nil
}

func (s *PostgresStore) ListReviewQueue(ctx context.Context, limit, offset int) ([]model.ReviewItem, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx,
		`SELECT s.id, s.competitor_id, s.feature_id, s.file_path, s.file_name, s.file_size, s.mime_type,
		        s.public_url, s.quality, s.context, s.visual_complexity, s.ui_pattern, s.is_onboarding,
		        s.upload_source, s.assignment_confidence, s.assignment_method, s.needs_review,
		        s.reviewed_at, s.created_at, s.updated_at, c.name, COALESCE(f.name, '')
		 FROM screenshots s
		 JOIN competitors c ON c.id = s.competitor_id
		 LEFT JOIN features f ON f.id = s.feature_id
		 WHERE s.needs_review = true
		 ORDER BY s.created_at DESC
		 LIMIT $1 OFFSET $2`,
		limit, offset,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list review queue")
	}
	defer rows.Close()

	var out []model.ReviewItem
	for rows.Next() {
		var item model.ReviewItem
		if err := scanScreenshotIntoPG(rows, &item.Screenshot, &item.CompetitorName, &item.FeatureName); err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, eris.Wrap(rows.Err(), "postgres: review queue iterate")
}

func (s *PostgresStore) AssignmentStats(ctx context.Context) (*model.AssignmentStats, error) {
	var st model.AssignmentStats
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*),
		        COUNT(feature_id),
		        COUNT(*) FILTER (WHERE needs_review),
		        COUNT(*) FILTER (WHERE assignment_confidence >= 0.8),
		        COUNT(*) FILTER (WHERE assignment_confidence > 0 AND assignment_confidence < 0.7)
		 FROM screenshots`).
		Scan(&st.Total, &st.Assigned, &st.NeedsReview, &st.HighConfidence, &st.LowConfidence)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: assignment stats")
	}
	st.Unassigned = st.Total - st.Assigned
	if st.Total > 0 {
		st.AssignmentRate = int(float64(st.Assigned) / float64(st.Total) * 100)
	}
	return &st, nil
}

// Matrix relations

func (s *PostgresStore) EnsureCompetitorFeature(ctx context.Context, competitorID, featureID string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO competitor_features (id, competitor_id, feature_id, has_feature)
		 VALUES ($1, $2, $3, true)
		 ON CONFLICT (competitor_id, feature_id) DO UPDATE SET has_feature = true`,
		uuid.New().String(), competitorID, featureID,
	)
	return eris.Wrap(err, "postgres: ensure competitor feature")
}

func (s *PostgresStore) ListMatrix(ctx context.Context) ([]MatrixRow, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT cf.id, cf.competitor_id, cf.feature_id, cf.has_feature, c.name, f.name,
		        (SELECT COUNT(*) FROM screenshots s
		         WHERE s.competitor_id = cf.competitor_id AND s.feature_id = cf.feature_id)
		 FROM competitor_features cf
		 JOIN competitors c ON c.id = cf.competitor_id
		 JOIN features f ON f.id = cf.feature_id
		 ORDER BY c.name, f.name`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list matrix")
	}
	defer rows.Close()

	var out []MatrixRow
	for rows.Next() {
		var r MatrixRow
		err := rows.Scan(&r.ID, &r.CompetitorID, &r.FeatureID, &r.HasFeature,
			&r.CompetitorName, &r.FeatureName, &r.ScreenshotCount)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan matrix row")
		}
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list matrix iterate")
}

// Analyses

func (s *PostgresStore) CreateAnalysis(ctx context.Context, a *model.Analysis) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	if a.AnalyzedAt.IsZero() {
		a.AnalyzedAt = time.Now().UTC()
	}
	elementsJSON, err := json.Marshal(a.DetectedElements)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal detected elements")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO analyses (id, screenshot_id, feature_prediction, confidence, extracted_text,
		                       detected_elements, provider, manual_override, analyzed_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		a.ID, a.ScreenshotID, nullStr(a.FeaturePrediction), a.Confidence, nullStr(a.ExtractedText),
		string(elementsJSON), a.Provider, a.ManualOverride, a.AnalyzedAt,
	)
	return eris.Wrapf(err, "postgres: insert analysis for %s", a.ScreenshotID)
}

func (s *PostgresStore) LatestAnalysis(ctx context.Context, screenshotID string) (*model.Analysis, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, screenshot_id, feature_prediction, confidence, extracted_text,
		        detected_elements, provider, manual_override, analyzed_at
		 FROM analyses WHERE screenshot_id = $1
		 ORDER BY analyzed_at DESC LIMIT 1`,
		screenshotID,
	)

	var a model.Analysis
	var prediction, text, elementsJSON *string
	err := row.Scan(&a.ID, &a.ScreenshotID, &prediction, &a.Confidence, &text,
		&elementsJSON, &a.Provider, &a.ManualOverride, &a.AnalyzedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: latest analysis")
	}
	if prediction != nil {
		a.FeaturePrediction = *prediction
	}
	if text != nil {
		a.ExtractedText = *text
	}
	if elementsJSON != nil && *elementsJSON != "" {
		if err := json.Unmarshal([]byte(*elementsJSON), &a.DetectedElements); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal detected elements")
		}
	}
	return &a, nil
}

func (s *PostgresStore) MarkAnalysisOverride(ctx context.Context, analysisID, featurePrediction string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE analyses SET manual_override = true, feature_prediction = $1 WHERE id = $2`,
		featurePrediction, analysisID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: mark analysis override %s", analysisID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("analysis not found: %s", analysisID)
	}
	return nil
}

func (s *PostgresStore) TrainingExamples(ctx context.Context, competitorID string) ([]model.TrainingExample, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT s.feature_id, f.name, COALESCE(a.extracted_text, '')
		 FROM screenshots s
		 JOIN features f ON f.id = s.feature_id
		 LEFT JOIN LATERAL (
		 	SELECT extracted_text FROM analyses
		 	WHERE screenshot_id = s.id ORDER BY analyzed_at DESC LIMIT 1
		 ) a ON true
		 WHERE s.competitor_id = $1
		   AND s.feature_id IS NOT NULL
		   AND (s.assignment_method = 'manual' OR s.assignment_confidence >= 0.8)`,
		competitorID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: training examples")
	}
	defer rows.Close()

	var out []model.TrainingExample
	for rows.Next() {
		var ex model.TrainingExample
		if err := rows.Scan(&ex.FeatureID, &ex.FeatureName, &ex.ExtractedText); err != nil {
			return nil, eris.Wrap(err, "postgres: scan training example")
		}
		out = append(out, ex)
	}
	return out, eris.Wrap(rows.Err(), "postgres: training examples iterate")
}

// Sync ledger

func (s *PostgresStore) EnsureSyncPending(ctx context.Context, screenshotID, localPath, fileHash string) (*model.SyncStatus, error) {
	now := time.Now().UTC()
	st := model.SyncStatus{
		ID:           uuid.New().String(),
		ScreenshotID: screenshotID,
		LocalPath:    localPath,
		FileHash:     fileHash,
		State:        model.SyncPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	err := s.pool.QueryRow(ctx,
		`INSERT INTO sync_status (id, screenshot_id, local_path, file_hash, state, retry_count, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, 0, $6, $7)
		 ON CONFLICT (screenshot_id) DO UPDATE
		 SET local_path = EXCLUDED.local_path, file_hash = EXCLUDED.file_hash,
		     state = EXCLUDED.state, updated_at = EXCLUDED.updated_at
		 RETURNING id, retry_count, created_at`,
		st.ID, st.ScreenshotID, st.LocalPath, nullStr(st.FileHash), string(st.State), st.CreatedAt, st.UpdatedAt,
	).Scan(&st.ID, &st.RetryCount, &st.CreatedAt)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: ensure sync pending %s", screenshotID)
	}
	return &st, nil
}

func (s *PostgresStore) GetSyncStatus(ctx context.Context, screenshotID string) (*model.SyncStatus, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+syncColumns+` FROM sync_status WHERE screenshot_id = $1`, screenshotID)
	st, err := scanSyncStatusPG(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return st, err
}

func (s *PostgresStore) MarkSynced(ctx context.Context, screenshotID, serverPath, fileHash string) error {
	now := time.Now().UTC()
	tag, err := s.pool.Exec(ctx,
		`UPDATE sync_status
		 SET state = $1, server_path = $2, file_hash = $3, error_message = NULL,
		     last_synced_at = $4, updated_at = $5
		 WHERE screenshot_id = $6`,
		string(model.SyncSynced), serverPath, fileHash, now, now, screenshotID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: mark synced %s", screenshotID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("sync status not found: %s", screenshotID)
	}
	return nil
}

func (s *PostgresStore) MarkSyncFailed(ctx context.Context, screenshotID, errMsg string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE sync_status
		 SET state = $1, error_message = $2, retry_count = retry_count + 1, updated_at = $3
		 WHERE screenshot_id = $4`,
		string(model.SyncFailed), errMsg, time.Now().UTC(), screenshotID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: mark sync failed %s", screenshotID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("sync status not found: %s", screenshotID)
	}
	return nil
}

func (s *PostgresStore) MarkSyncPending(ctx context.Context, screenshotID, fileHash string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE sync_status SET state = $1, file_hash = $2, updated_at = $3 WHERE screenshot_id = $4`,
		string(model.SyncPending), nullStr(fileHash), time.Now().UTC(), screenshotID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: mark sync pending %s", screenshotID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("sync status not found: %s", screenshotID)
	}
	return nil
}

func (s *PostgresStore) DeleteSyncStatus(ctx context.Context, screenshotID string) error {
	_, err := s.pool.Exec(ctx,
		`DELETE FROM sync_status WHERE screenshot_id = $1`, screenshotID)
	return eris.Wrapf(err, "postgres: delete sync status %s", screenshotID)
}

func (s *PostgresStore) ListSyncStatuses(ctx context.Context) ([]model.SyncStatus, error) {
	return s.querySyncs(ctx, `SELECT `+syncColumns+` FROM sync_status ORDER BY created_at`)
}

func (s *PostgresStore) ListSyncsInState(ctx context.Context, state model.SyncState) ([]model.SyncStatus, error) {
	return s.querySyncs(ctx,
		`SELECT `+syncColumns+` FROM sync_status WHERE state = $1 ORDER BY created_at`, string(state))
}

func (s *PostgresStore) ListRetryableSyncs(ctx context.Context) ([]model.SyncStatus, error) {
	return s.querySyncs(ctx,
		`SELECT `+syncColumns+` FROM sync_status WHERE state = $1 AND retry_count < $2 ORDER BY created_at`,
		string(model.SyncFailed), model.MaxSyncRetries)
}

func (s *PostgresStore) querySyncs(ctx context.Context, query string, args ...any) ([]model.SyncStatus, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: query sync statuses")
	}
	defer rows.Close()

	var out []model.SyncStatus
	for rows.Next() {
		st, err := scanSyncStatusPG(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *st)
	}
	return out, eris.Wrap(rows.Err(), "postgres: sync statuses iterate")
}

func (s *PostgresStore) SyncStats(ctx context.Context) (*model.SyncStats, error) {
	var st model.SyncStats
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*),
		        COUNT(*) FILTER (WHERE state = 'synced'),
		        COUNT(*) FILTER (WHERE state = 'failed'),
		        COUNT(*) FILTER (WHERE state = 'pending')
		 FROM sync_status`).
		Scan(&st.Total, &st.Synced, &st.Failed, &st.Pending)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: sync stats")
	}
	if st.Total > 0 {
		st.SuccessRate = float64(st.Synced) / float64(st.Total) * 100
	}
	return &st, nil
}

func (s *PostgresStore) SyncHistory(ctx context.Context, limit int) ([]model.SyncHistoryItem, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx,
		`SELECT ss.id, ss.screenshot_id, ss.local_path, ss.server_path, ss.file_hash, ss.state,
		        ss.retry_count, ss.error_message, ss.last_synced_at, ss.created_at, ss.updated_at,
		        c.name, COALESCE(f.name, ''), COALESCE(s.public_url, '')
		 FROM sync_status ss
		 JOIN screenshots s ON s.id = ss.screenshot_id
		 JOIN competitors c ON c.id = s.competitor_id
		 LEFT JOIN features f ON f.id = s.feature_id
		 WHERE ss.state = 'synced'
		 ORDER BY ss.last_synced_at DESC
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: sync history")
	}
	defer rows.Close()

	var out []model.SyncHistoryItem
	for rows.Next() {
		var item model.SyncHistoryItem
		var serverPath, fileHash, errMsg *string
		err := rows.Scan(&item.ID, &item.ScreenshotID, &item.LocalPath, &serverPath, &fileHash,
			&item.State, &item.RetryCount, &errMsg, &item.LastSyncedAt, &item.CreatedAt,
			&item.UpdatedAt, &item.CompetitorName, &item.FeatureName, &item.PublicURL)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan sync history")
		}
		if serverPath != nil {
			item.ServerPath = *serverPath
		}
		if fileHash != nil {
			item.FileHash = *fileHash
		}
		if errMsg != nil {
			item.ErrorMessage = *errMsg
		}
		out = append(out, item)
	}
	return out, eris.Wrap(rows.Err(), "postgres: sync history iterate")
}

func (s *PostgresStore) PruneSyncHistory(ctx context.Context, olderThan time.Duration) (int, error) {
	cutoff := time.Now().UTC().Add(-olderThan)
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM sync_status WHERE state = 'synced' AND last_synced_at < $1`, cutoff)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: prune sync history")
	}
	return int(tag.RowsAffected()), nil
}

// helpers

func scanScreenshotPG(row scannable) (*model.Screenshot, error) {
	var shot model.Screenshot
	if err := scanScreenshotIntoPG(row, &shot); err != nil {
		return nil, err
	}
	return &shot, nil
}

func scanScreenshotIntoPG(row scannable, shot *model.Screenshot, extra ...any) error {
	var publicURL, contextStr, complexity, uiPattern, source, method *string

	dest := []any{
		&shot.ID, &shot.CompetitorID, &shot.FeatureID, &shot.FilePath, &shot.FileName,
		&shot.FileSize, &shot.MimeType, &publicURL, &shot.Quality, &contextStr,
		&complexity, &uiPattern, &shot.IsOnboarding, &source, &shot.AssignmentConfidence,
		&method, &shot.NeedsReview, &shot.ReviewedAt, &shot.CreatedAt, &shot.UpdatedAt,
	}
	dest = append(dest, extra...)

	err := row.Scan(dest...)
	if errors.Is(err, pgx.ErrNoRows) {
		return err
	}
	if err != nil {
		return eris.Wrap(err, "postgres: scan screenshot")
	}

	if publicURL != nil {
		shot.PublicURL = *publicURL
	}
	if contextStr != nil {
		shot.Context = *contextStr
	}
	if complexity != nil {
		shot.VisualComplexity = *complexity
	}
	if uiPattern != nil {
		shot.UIPattern = *uiPattern
	}
	if source != nil {
		shot.UploadSource = *source
	}
	if method != nil {
		shot.AssignmentMethod = model.AssignmentMethod(*method)
	}
	return nil
}

func scanSyncStatusPG(row scannable) (*model.SyncStatus, error) {
	var st model.SyncStatus
	var serverPath, fileHash, errMsg *string

	err := row.Scan(&st.ID, &st.ScreenshotID, &st.LocalPath, &serverPath, &fileHash,
		&st.State, &st.RetryCount, &errMsg, &st.LastSyncedAt, &st.CreatedAt, &st.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: scan sync status")
	}

	if serverPath != nil {
		st.ServerPath = *serverPath
	}
	if fileHash != nil {
		st.FileHash = *fileHash
	}
	if errMsg != nil {
		st.ErrorMessage = *errMsg
	}
	return &st, nil
}
