package syncer

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/asimorth/competitor-lens/internal/model"
	"github.com/asimorth/competitor-lens/pkg/objstore"
)

// Report summarizes one upload pass.
type Report struct {
	Uploaded int           `json:"uploaded"`
	Failed   int           `json:"failed"`
	Skipped  int           `json:"skipped"`
	Errors   []string      `json:"errors,omitempty"`
	Duration time.Duration `json:"duration"`
}

// SyncPending uploads every pending ledger row through a bounded worker
// pool. One file's failure marks its row failed and moves on.
func (e *Engine) SyncPending(ctx context.Context) (*Report, error) {
	pending, err := e.store.ListSyncsInState(ctx, model.SyncPending)
	if err != nil {
		return nil, err
	}
	return e.upload(ctx, pending)
}

// RetryFailed re-attempts failed rows still under the retry cap.
func (e *Engine) RetryFailed(ctx context.Context) (*Report, error) {
	retryable, err := e.store.ListRetryableSyncs(ctx)
	if err != nil {
		return nil, err
	}
	for _, st := range retryable {
		if err := e.store.MarkSyncPending(ctx, st.ScreenshotID, st.FileHash); err != nil {
			return nil, err
		}
	}
	return e.upload(ctx, retryable)
}

func (e *Engine) upload(ctx context.Context, rows []model.SyncStatus) (*Report, error) {
	start := time.Now()
	report := &Report{}
	if len(rows) == 0 {
		report.Duration = time.Since(start)
		return report, nil
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)

	for _, row := range rows {
		g.Go(func() error {
			err := e.uploadOne(gctx, row.ScreenshotID)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				report.Failed++
				report.Errors = append(report.Errors, err.Error())
				return nil
			}
			report.Uploaded++
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return report, err
	}

	report.Duration = time.Since(start)
	zap.L().Info("upload pass complete",
		zap.Int("uploaded", report.Uploaded),
		zap.Int("failed", report.Failed),
		zap.Duration("duration", report.Duration))
	return report, nil
}

// uploadOne pushes a single screenshot's bytes to the object store and
// settles its ledger row. Failures are recorded on the row before
// returning.
func (e *Engine) uploadOne(ctx context.Context, screenshotID string) error {
	err := e.doUpload(ctx, screenshotID)
	if err != nil {
		if markErr := e.store.MarkSyncFailed(ctx, screenshotID, err.Error()); markErr != nil {
			zap.L().Error("failed to record sync failure",
				zap.String("screenshot_id", screenshotID),
				zap.Error(markErr))
		}
		zap.L().Warn("upload failed",
			zap.String("screenshot_id", screenshotID),
			zap.Error(err))
	}
	return err
}

func (e *Engine) doUpload(ctx context.Context, screenshotID string) error {
	shot, err := e.store.GetScreenshot(ctx, screenshotID)
	if err != nil {
		return err
	}

	body, err := os.ReadFile(shot.FilePath)
	if err != nil {
		return eris.Wrapf(err, "syncer: read %s", shot.FilePath)
	}

	hash, err := FileHash(shot.FilePath)
	if err != nil {
		return err
	}

	competitor, err := e.store.GetCompetitor(ctx, shot.CompetitorID)
	if err != nil {
		return err
	}
	featureName := ""
	if shot.Assigned() {
		feature, err := e.store.GetFeature(ctx, *shot.FeatureID)
		if err != nil {
			return err
		}
		featureName = feature.Name
	}

	key := objstore.Key(competitor.Name, featureName, shot.FileName, hash[:keySuffixLen])

	url, err := e.objects.Put(ctx, key, body, shot.MimeType)
	if err != nil {
		return eris.Wrapf(err, "syncer: upload %s", key)
	}

	if err := e.store.MarkSynced(ctx, screenshotID, key, hash); err != nil {
		return err
	}
	if err := e.store.SetPublicURL(ctx, screenshotID, url); err != nil {
		return err
	}

	zap.L().Debug("uploaded",
		zap.String("screenshot_id", screenshotID),
		zap.String("key", key))
	return nil
}
