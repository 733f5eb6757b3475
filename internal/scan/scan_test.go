package scan

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asimorth/competitor-lens/internal/jobs"
	"github.com/asimorth/competitor-lens/internal/store"
)

// recordingRunner captures enqueued jobs without executing anything.
type recordingRunner struct {
	mu   sync.Mutex
	jobs []jobs.Job
	err  error
}

func (r *recordingRunner) Enqueue(_ context.Context, job jobs.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.jobs = append(r.jobs, job)
	return nil
}

func (r *recordingRunner) Start(context.Context, jobs.Handler) error { return nil }
func (r *recordingRunner) Mode() string                              { return "inline" }
func (r *recordingRunner) Close() error                              { return nil }

func newTestScanner(t *testing.T) (*Scanner, store.Store, *recordingRunner) {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "scan.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))

	runner := &recordingRunner{}
	return New(st, runner), st, runner
}

func writeFile(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("png-bytes"), 0o644))
}

func TestScanDirectory_RegistersNewScreenshots(t *testing.T) {
	scanner, st, runner := newTestScanner(t)
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "Binance TR", "kyc", "id-front.png"))
	writeFile(t, filepath.Join(root, "Binance TR", "staking", "earn.jpeg"))
	writeFile(t, filepath.Join(root, "OKX TR", "wallet.PNG"))
	writeFile(t, filepath.Join(root, "OKX TR", "notes.txt"))

	result, err := scanner.ScanDirectory(context.Background(), root)
	require.NoError(t, err)

	assert.Equal(t, 3, result.Scanned)
	assert.Equal(t, 3, result.Created)
	assert.Equal(t, 0, result.Skipped)
	assert.ElementsMatch(t, []string{"Binance TR", "OKX TR"}, result.Competitors)

	comp, err := st.EnsureCompetitor(context.Background(), "Binance TR")
	require.NoError(t, err)
	shots, err := st.ListScreenshots(context.Background(), store.ScreenshotFilter{CompetitorID: comp.ID})
	require.NoError(t, err)
	require.Len(t, shots, 2)
	for _, shot := range shots {
		assert.Equal(t, "auto-scan", shot.UploadSource)
		assert.Equal(t, int64(9), shot.FileSize)
	}

	// analysis + sync per created screenshot
	assert.Len(t, runner.jobs, 6)
}

func TestScanDirectory_SecondPassSkipsKnownFiles(t *testing.T) {
	scanner, _, runner := newTestScanner(t)
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "Paribu", "trade", "spot.png"))

	_, err := scanner.ScanDirectory(context.Background(), root)
	require.NoError(t, err)

	result, err := scanner.ScanDirectory(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Scanned)
	assert.Equal(t, 0, result.Created)
	assert.Equal(t, 1, result.Skipped)
	assert.Empty(t, result.Competitors)
	assert.Len(t, runner.jobs, 2)
}

func TestScanDirectory_SkipsRootLevelAndHiddenDirs(t *testing.T) {
	scanner, _, _ := newTestScanner(t)
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "stray.png"))
	writeFile(t, filepath.Join(root, ".thumbnails", "Paribu", "cached.png"))
	writeFile(t, filepath.Join(root, "Paribu", "convert.webp"))

	result, err := scanner.ScanDirectory(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Scanned)
	assert.Equal(t, 1, result.Created)
	assert.Equal(t, 1, result.Skipped)
	assert.Equal(t, []string{"Paribu"}, result.Competitors)
}

func TestScanDirectory_MarksOnboardingPaths(t *testing.T) {
	scanner, st, _ := newTestScanner(t)
	root := t.TempDir()
	onboardingPath := filepath.Join(root, "BTCTurk", "onboarding", "welcome-1.png")
	writeFile(t, onboardingPath)
	writeFile(t, filepath.Join(root, "BTCTurk", "trade", "orderbook.png"))

	_, err := scanner.ScanDirectory(context.Background(), root)
	require.NoError(t, err)

	shot, err := st.GetScreenshotByPath(context.Background(), onboardingPath)
	require.NoError(t, err)
	require.NotNil(t, shot)
	assert.True(t, shot.IsOnboarding)
	assert.Equal(t, "image/png", shot.MimeType)

	other, err := st.GetScreenshotByPath(context.Background(), filepath.Join(root, "BTCTurk", "trade", "orderbook.png"))
	require.NoError(t, err)
	require.NotNil(t, other)
	assert.False(t, other.IsOnboarding)
}

func TestScanDirectory_BrokerFailureOnlyWarns(t *testing.T) {
	scanner, _, runner := newTestScanner(t)
	runner.err = jobs.ErrDisabled
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "Garanti Kripto", "p2p", "offers.jpg"))

	result, err := scanner.ScanDirectory(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Created)
	assert.Empty(t, runner.jobs)
}

func TestScanDirectory_MissingRootFails(t *testing.T) {
	scanner, _, _ := newTestScanner(t)
	_, err := scanner.ScanDirectory(context.Background(), filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
}

func TestIsOnboardingPath(t *testing.T) {
	assert.True(t, isOnboardingPath("/shots/app/Onboarding/step1.png"))
	assert.True(t, isOnboardingPath("/shots/app/welcome-screen.png"))
	assert.True(t, isOnboardingPath("/shots/app/intro.png"))
	assert.False(t, isOnboardingPath("/shots/app/staking/earn.png"))
}
