// Package scan discovers screenshot files on disk and registers them in
// the catalog. Directory layout is the source of truth for competitor
// attribution: the first path segment under the scan root names the
// competitor.
package scan

import (
	"context"
	"io/fs"
	"mime"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/asimorth/competitor-lens/internal/jobs"
	"github.com/asimorth/competitor-lens/internal/model"
	"github.com/asimorth/competitor-lens/internal/store"
)

var imageExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".webp": true,
}

// Scanner walks directories and creates screenshot rows for new files.
type Scanner struct {
	store  store.Store
	runner jobs.Runner
}

// New creates a Scanner. runner may be a disabled runner; discovered
// files are still registered, only follow-up jobs are skipped.
func New(st store.Store, runner jobs.Runner) *Scanner {
	return &Scanner{store: st, runner: runner}
}

// Result summarizes one scan pass.
type Result struct {
	Scanned     int      `json:"scanned"`
	Created     int      `json:"created"`
	Skipped     int      `json:"skipped"`
	Competitors []string `json:"competitors"`
}

// ScanDirectory walks root recursively, registers unseen image files,
// and enqueues analysis and sync jobs for each new screenshot.
func (s *Scanner) ScanDirectory(ctx context.Context, root string) (*Result, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, eris.Wrapf(err, "scan: resolve root %s", root)
	}

	result := &Result{}
	seen := make(map[string]bool)

	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return eris.Wrapf(err, "scan: walk %s", path)
		}
		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") && path != root {
				return filepath.SkipDir
			}
			return nil
		}
		if !imageExtensions[strings.ToLower(filepath.Ext(path))] {
			return nil
		}
		result.Scanned++

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return eris.Wrapf(err, "scan: relativize %s", path)
		}
		segments := strings.Split(filepath.ToSlash(rel), "/")
		if len(segments) < 2 {
			// Files directly under the root have no competitor.
			result.Skipped++
			return nil
		}
		competitorName := segments[0]

		existing, err := s.store.GetScreenshotByPath(ctx, path)
		if err != nil {
			return err
		}
		if existing != nil {
			result.Skipped++
			return nil
		}

		created, err := s.register(ctx, competitorName, path, d)
		if err != nil {
			return err
		}
		result.Created++
		if !seen[competitorName] {
			seen[competitorName] = true
			result.Competitors = append(result.Competitors, competitorName)
		}

		s.enqueueFollowups(ctx, created.ID)
		return nil
	})
	if err != nil {
		return result, err
	}

	zap.L().Info("directory scan complete",
		zap.String("root", root),
		zap.Int("scanned", result.Scanned),
		zap.Int("created", result.Created),
		zap.Int("skipped", result.Skipped))
	return result, nil
}

// register creates the competitor (if new) and the screenshot row.
func (s *Scanner) register(ctx context.Context, competitorName, path string, d fs.DirEntry) (*model.Screenshot, error) {
	competitor, err := s.store.EnsureCompetitor(ctx, competitorName)
	if err != nil {
		return nil, err
	}

	info, err := d.Info()
	if err != nil {
		return nil, eris.Wrapf(err, "scan: stat %s", path)
	}

	mimeType := mime.TypeByExtension(strings.ToLower(filepath.Ext(path)))
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	shot := &model.Screenshot{
		CompetitorID: competitor.ID,
		FilePath:     path,
		FileName:     filepath.Base(path),
		FileSize:     info.Size(),
		MimeType:     mimeType,
		IsOnboarding: isOnboardingPath(path),
		UploadSource: "auto-scan",
	}
	if err := s.store.CreateScreenshot(ctx, shot); err != nil {
		return nil, err
	}
	return shot, nil
}

// enqueueFollowups schedules analysis and sync for a new screenshot.
// A disabled broker is expected during degraded operation and only logged.
func (s *Scanner) enqueueFollowups(ctx context.Context, screenshotID string) {
	for _, job := range []jobs.Job{
		{Kind: jobs.KindAnalysis, ScreenshotID: screenshotID},
		{Kind: jobs.KindSync, ScreenshotID: screenshotID},
	} {
		if err := s.runner.Enqueue(ctx, job); err != nil {
			zap.L().Warn("followup job not enqueued",
				zap.String("kind", string(job.Kind)),
				zap.String("screenshot_id", screenshotID),
				zap.Error(err))
		}
	}
}

// isOnboardingPath flags screenshots whose path names an onboarding flow.
func isOnboardingPath(path string) bool {
	lower := strings.ToLower(path)
	for _, kw := range []string{"onboarding", "welcome", "intro"} {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
