package syncer

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asimorth/competitor-lens/internal/model"
)

// syncedFixture returns a fixture with one screenshot already uploaded.
func syncedFixture(t *testing.T) (*syncFixture, *model.Screenshot) {
	t.Helper()
	f := newSyncFixture(t)
	ctx := context.Background()
	shot := f.addFile(t, "staking/a.png", "v1")

	_, err := f.engine.DetectChanges(ctx)
	require.NoError(t, err)
	_, err = f.engine.SyncPending(ctx)
	require.NoError(t, err)
	return f, shot
}

func TestResolveConflict_KeepLocal(t *testing.T) {
	f, shot := syncedFixture(t)
	ctx := context.Background()

	require.NoError(t, os.WriteFile(shot.FilePath, []byte("local edit"), 0o644))
	require.NoError(t, f.engine.ResolveConflict(ctx, shot.ID, KeepLocal))

	status, err := f.store.GetSyncStatus(ctx, shot.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SyncSynced, status.State)

	localHash, err := FileHash(shot.FilePath)
	require.NoError(t, err)
	assert.Equal(t, localHash, status.FileHash)
}

func TestResolveConflict_KeepServer(t *testing.T) {
	f, shot := syncedFixture(t)
	ctx := context.Background()

	before, err := f.store.GetSyncStatus(ctx, shot.ID)
	require.NoError(t, err)

	// local edit gets discarded in favor of the server copy
	require.NoError(t, os.WriteFile(shot.FilePath, []byte("local edit"), 0o644))
	require.NoError(t, f.engine.ResolveConflict(ctx, shot.ID, KeepServer))

	status, err := f.store.GetSyncStatus(ctx, shot.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SyncSynced, status.State)
	assert.Equal(t, before.ServerPath, status.ServerPath)
	assert.Equal(t, before.FileHash, status.FileHash)

	stored, err := f.store.GetScreenshot(ctx, shot.ID)
	require.NoError(t, err)
	assert.Equal(t, f.objects.PublicURL(before.ServerPath), stored.PublicURL)
}

func TestResolveConflict_Merge(t *testing.T) {
	f, shot := syncedFixture(t)
	ctx := context.Background()

	require.NoError(t, os.WriteFile(shot.FilePath, []byte("merged content"), 0o644))
	require.NoError(t, f.engine.ResolveConflict(ctx, shot.ID, Merge))

	// merge only requeues; the next upload pass settles it
	status, err := f.store.GetSyncStatus(ctx, shot.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SyncPending, status.State)

	localHash, err := FileHash(shot.FilePath)
	require.NoError(t, err)
	assert.Equal(t, localHash, status.FileHash)
}

func TestResolveConflict_Unknown(t *testing.T) {
	f, shot := syncedFixture(t)
	err := f.engine.ResolveConflict(context.Background(), shot.ID, Resolution("discard"))
	assert.Error(t, err)
}

func TestResolveConflict_NoLedgerRow(t *testing.T) {
	f := newSyncFixture(t)
	shot := f.addFile(t, "staking/a.png", "v1")
	err := f.engine.ResolveConflict(context.Background(), shot.ID, KeepLocal)
	assert.Error(t, err)
}

func TestStatsAndHistory(t *testing.T) {
	f, shot := syncedFixture(t)
	ctx := context.Background()

	stats, err := f.engine.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Total)
	assert.Equal(t, 1, stats.Synced)
	assert.InDelta(t, 100.0, stats.SuccessRate, 1e-9)
	assert.True(t, stats.Healthy())

	history, err := f.engine.History(ctx, 10)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, shot.ID, history[0].ScreenshotID)
	assert.Equal(t, "Binance TR", history[0].CompetitorName)
	assert.NotEmpty(t, history[0].PublicURL)
}

func TestPrune(t *testing.T) {
	f, shot := syncedFixture(t)
	ctx := context.Background()

	// fresh rows survive the default retention window
	n, err := f.engine.Prune(ctx, 0)
	require.NoError(t, err)
	assert.Zero(t, n)

	// a near-zero window removes everything already settled
	n, err = f.engine.Prune(ctx, time.Nanosecond)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	status, err := f.store.GetSyncStatus(ctx, shot.ID)
	require.NoError(t, err)
	assert.Nil(t, status)
}
