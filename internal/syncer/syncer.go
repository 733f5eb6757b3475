// Package syncer mirrors local screenshot files into the remote object
// store. A per-screenshot ledger carries content hashes so change
// detection and uploads are idempotent: running the engine twice in a
// row without local edits performs no work the second time.
package syncer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/asimorth/competitor-lens/internal/model"
	"github.com/asimorth/competitor-lens/internal/store"
	"github.com/asimorth/competitor-lens/pkg/objstore"
)

// keySuffixLen is how many hash characters disambiguate object keys.
const keySuffixLen = 8

// Engine coordinates change detection, uploads, and conflict resolution.
type Engine struct {
	store       store.Store
	objects     objstore.Store
	concurrency int
}

// New creates an Engine. concurrency bounds parallel uploads; values
// below 1 fall back to 5.
func New(st store.Store, objects objstore.Store, concurrency int) *Engine {
	if concurrency < 1 {
		concurrency = 5
	}
	return &Engine{store: st, objects: objects, concurrency: concurrency}
}

// Change is one detected difference between local files and the ledger.
type Change struct {
	ScreenshotID string `json:"screenshot_id"`
	LocalPath    string `json:"local_path"`
	FileHash     string `json:"file_hash"`
	Action       string `json:"action"` // "create", "update", "delete"
}

// ChangeSet summarizes one detection pass.
type ChangeSet struct {
	Created int      `json:"created"`
	Updated int      `json:"updated"`
	Deleted int      `json:"deleted"`
	Changes []Change `json:"changes"`
}

// FileHash computes the sha256 content hash used for change detection.
func FileHash(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", eris.Wrapf(err, "syncer: open %s", path)
	}
	defer f.Close() //nolint:errcheck

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", eris.Wrapf(err, "syncer: hash %s", path)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// DetectChanges compares every screenshot's local file against the sync
// ledger and records the differences as pending work. Locally deleted
// files that were previously synced have their remote object and ledger
// row removed here, so a second pass sees nothing to do.
func (e *Engine) DetectChanges(ctx context.Context) (*ChangeSet, error) {
	shots, err := e.store.ListScreenshots(ctx, store.ScreenshotFilter{})
	if err != nil {
		return nil, err
	}

	set := &ChangeSet{}
	for _, shot := range shots {
		status, err := e.store.GetSyncStatus(ctx, shot.ID)
		if err != nil {
			return nil, err
		}

		if _, statErr := os.Stat(shot.FilePath); statErr != nil {
			if status != nil && status.State == model.SyncSynced {
				if err := e.removeRemote(ctx, status); err != nil {
					return nil, err
				}
				set.Deleted++
				set.Changes = append(set.Changes, Change{
					ScreenshotID: shot.ID,
					LocalPath:    shot.FilePath,
					Action:       "delete",
				})
			}
			continue
		}

		hash, err := FileHash(shot.FilePath)
		if err != nil {
			return nil, err
		}

		switch {
		case status == nil:
			if _, err := e.store.EnsureSyncPending(ctx, shot.ID, shot.FilePath, hash); err != nil {
				return nil, err
			}
			set.Created++
			set.Changes = append(set.Changes, Change{
				ScreenshotID: shot.ID, LocalPath: shot.FilePath, FileHash: hash, Action: "create",
			})
		case status.FileHash != hash:
			if err := e.store.MarkSyncPending(ctx, shot.ID, hash); err != nil {
				return nil, err
			}
			set.Updated++
			set.Changes = append(set.Changes, Change{
				ScreenshotID: shot.ID, LocalPath: shot.FilePath, FileHash: hash, Action: "update",
			})
		}
	}

	zap.L().Info("change detection complete",
		zap.Int("created", set.Created),
		zap.Int("updated", set.Updated),
		zap.Int("deleted", set.Deleted))
	return set, nil
}

// removeRemote deletes the remote object and the ledger row for a
// locally deleted screenshot.
func (e *Engine) removeRemote(ctx context.Context, status *model.SyncStatus) error {
	if status.ServerPath != "" {
		if err := e.objects.Delete(ctx, status.ServerPath); err != nil {
			return eris.Wrapf(err, "syncer: delete remote %s", status.ServerPath)
		}
	}
	if err := e.store.DeleteSyncStatus(ctx, status.ScreenshotID); err != nil {
		return err
	}
	zap.L().Info("removed remote copy of deleted file",
		zap.String("screenshot_id", status.ScreenshotID),
		zap.String("server_path", status.ServerPath))
	return nil
}

// Resolution names a conflict resolution strategy.
type Resolution string

const (
	// KeepLocal re-uploads the local version over the server copy.
	KeepLocal Resolution = "keep-local"
	// KeepServer accepts the server copy and repoints the public URL.
	KeepServer Resolution = "keep-server"
	// Merge recomputes the local hash and requeues the upload.
	Merge Resolution = "merge"
)

// ResolveConflict applies a reviewer's chosen resolution to one ledger row.
func (e *Engine) ResolveConflict(ctx context.Context, screenshotID string, res Resolution) error {
	status, err := e.store.GetSyncStatus(ctx, screenshotID)
	if err != nil {
		return err
	}
	if status == nil {
		return eris.Errorf("syncer: no sync status for screenshot %s", screenshotID)
	}

	switch res {
	case KeepLocal:
		hash, err := FileHash(status.LocalPath)
		if err != nil {
			return err
		}
		if err := e.store.MarkSyncPending(ctx, screenshotID, hash); err != nil {
			return err
		}
		return e.uploadOne(ctx, screenshotID)

	case KeepServer:
		if status.ServerPath == "" {
			return eris.Errorf("syncer: no server copy to keep for screenshot %s", screenshotID)
		}
		if err := e.store.SetPublicURL(ctx, screenshotID, e.objects.PublicURL(status.ServerPath)); err != nil {
			return err
		}
		return e.store.MarkSynced(ctx, screenshotID, status.ServerPath, status.FileHash)

	case Merge:
		hash, err := FileHash(status.LocalPath)
		if err != nil {
			return err
		}
		return e.store.MarkSyncPending(ctx, screenshotID, hash)

	default:
		return eris.Errorf("syncer: unknown resolution %q", res)
	}
}

// Stats reports ledger totals.
func (e *Engine) Stats(ctx context.Context) (*model.SyncStats, error) {
	return e.store.SyncStats(ctx)
}

// History lists recently synced rows with display names.
func (e *Engine) History(ctx context.Context, limit int) ([]model.SyncHistoryItem, error) {
	return e.store.SyncHistory(ctx, limit)
}

// Pending lists rows awaiting upload.
func (e *Engine) Pending(ctx context.Context) ([]model.SyncStatus, error) {
	return e.store.ListSyncsInState(ctx, model.SyncPending)
}

// DefaultRetention is how long settled ledger rows are kept before pruning.
const DefaultRetention = 30 * 24 * time.Hour

// Prune removes synced ledger rows older than the retention window.
// Their screenshots keep their public URLs; only the bookkeeping goes.
func (e *Engine) Prune(ctx context.Context, olderThan time.Duration) (int, error) {
	if olderThan <= 0 {
		olderThan = DefaultRetention
	}
	n, err := e.store.PruneSyncHistory(ctx, olderThan)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		zap.L().Info("pruned sync history", zap.Int("rows", n))
	}
	return n, nil
}
