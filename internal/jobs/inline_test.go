package jobs

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asimorth/competitor-lens/internal/config"
	"github.com/asimorth/competitor-lens/internal/resilience"
)

func testJobsConfig() config.JobsConfig {
	return config.JobsConfig{
		Broker:              "inline",
		AnalysisConcurrency: 2,
		SyncConcurrency:     1,
		ScanConcurrency:     1,
	}
}

func TestInline_EnqueueBeforeStartFails(t *testing.T) {
	r := NewInline(testJobsConfig())
	err := r.Enqueue(context.Background(), Job{Kind: KindAnalysis})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not started")
}

func TestInline_UnknownKindFails(t *testing.T) {
	r := NewInline(testJobsConfig())
	require.NoError(t, r.Start(context.Background(), func(ctx context.Context, job Job) error {
		return nil
	}))

	err := r.Enqueue(context.Background(), Job{Kind: Kind("compact")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown job kind")
}

func TestInline_RunsHandlerSynchronously(t *testing.T) {
	r := NewInline(testJobsConfig())
	var got Job
	require.NoError(t, r.Start(context.Background(), func(ctx context.Context, job Job) error {
		got = job
		return nil
	}))

	job := Job{Kind: KindAnalysis, ScreenshotID: "s1", Reanalyze: true}
	require.NoError(t, r.Enqueue(context.Background(), job))
	assert.Equal(t, job, got)
}

func TestInline_PropagatesHandlerError(t *testing.T) {
	r := NewInline(testJobsConfig())
	want := eris.New("analysis failed")
	require.NoError(t, r.Start(context.Background(), func(ctx context.Context, job Job) error {
		return want
	}))

	err := r.Enqueue(context.Background(), Job{Kind: KindSync})
	assert.ErrorIs(t, err, want)
}

func TestInline_BoundsConcurrencyPerKind(t *testing.T) {
	r := NewInline(testJobsConfig())

	var mu sync.Mutex
	active, peak := 0, 0
	require.NoError(t, r.Start(context.Background(), func(ctx context.Context, job Job) error {
		mu.Lock()
		active++
		if active > peak {
			peak = active
		}
		mu.Unlock()

		time.Sleep(10 * time.Millisecond)

		mu.Lock()
		active--
		mu.Unlock()
		return nil
	}))

	var wg sync.WaitGroup
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = r.Enqueue(context.Background(), Job{Kind: KindAnalysis}) //nolint:errcheck
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, peak, 2)
	assert.GreaterOrEqual(t, peak, 1)
}

func TestInline_EnqueueHonorsContextWhileBlocked(t *testing.T) {
	r := NewInline(testJobsConfig())
	release := make(chan struct{})
	require.NoError(t, r.Start(context.Background(), func(ctx context.Context, job Job) error {
		<-release
		return nil
	}))

	started := make(chan struct{})
	go func() {
		close(started)
		_ = r.Enqueue(context.Background(), Job{Kind: KindSync}) //nolint:errcheck
	}()
	<-started
	time.Sleep(20 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := r.Enqueue(ctx, Job{Kind: KindSync})
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(release)
}

func fastJobRetry(t *testing.T) {
	t.Helper()
	orig := jobRetryConfig
	jobRetryConfig = resilience.RetryConfig{
		MaxAttempts:    3,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
		Multiplier:     2,
	}
	t.Cleanup(func() { jobRetryConfig = orig })
}

func TestInline_RetriesTransientHandlerFailures(t *testing.T) {
	fastJobRetry(t)
	r := NewInline(testJobsConfig())
	calls := 0
	require.NoError(t, r.Start(context.Background(), func(ctx context.Context, job Job) error {
		calls++
		if calls < 3 {
			return resilience.NewTransientError(eris.New("object store 503"), 503)
		}
		return nil
	}))

	require.NoError(t, r.Enqueue(context.Background(), Job{Kind: KindSync}))
	assert.Equal(t, 3, calls)
}

func TestInline_DoesNotRetryDomainErrors(t *testing.T) {
	fastJobRetry(t)
	r := NewInline(testJobsConfig())
	calls := 0
	require.NoError(t, r.Start(context.Background(), func(ctx context.Context, job Job) error {
		calls++
		return eris.New("screenshot not found")
	}))

	err := r.Enqueue(context.Background(), Job{Kind: KindAnalysis})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestInline_Mode(t *testing.T) {
	r := NewInline(testJobsConfig())
	assert.Equal(t, "inline", r.Mode())
	assert.NoError(t, r.Close())
}

func TestDisabled_RejectsEverything(t *testing.T) {
	r := NewDisabled(eris.New("nats unreachable"))
	assert.Equal(t, "disabled", r.Mode())
	require.NoError(t, r.Start(context.Background(), nil))

	err := r.Enqueue(context.Background(), Job{Kind: KindAnalysis})
	assert.ErrorIs(t, err, ErrDisabled)
	assert.NoError(t, r.Close())
}

func TestNew_SelectsBroker(t *testing.T) {
	cfg := testJobsConfig()

	r, err := New(cfg)
	require.NoError(t, err)
	assert.Equal(t, "inline", r.Mode())

	cfg.Broker = "disabled"
	r, err = New(cfg)
	require.NoError(t, err)
	assert.Equal(t, "disabled", r.Mode())

	cfg.Broker = "carrier-pigeon"
	_, err = New(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown broker")
}

func TestConcurrency_FloorsAtOne(t *testing.T) {
	cfg := config.JobsConfig{AnalysisConcurrency: 0, SyncConcurrency: -2}
	assert.Equal(t, 1, Concurrency(cfg, KindAnalysis))
	assert.Equal(t, 1, Concurrency(cfg, KindSync))
	assert.Equal(t, 4, Concurrency(config.JobsConfig{AnalysisConcurrency: 4}, KindAnalysis))
}
