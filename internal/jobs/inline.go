package jobs

import (
	"context"
	"sync"

	"github.com/rotisserie/eris"

	"github.com/asimorth/competitor-lens/internal/config"
)

// Inline executes jobs synchronously in the caller's goroutine, bounded
// by per-kind semaphores so concurrent callers still respect queue
// concurrency. This is the single-process default.
type Inline struct {
	mu      sync.RWMutex
	handler Handler
	sems    map[Kind]chan struct{}
}

// NewInline creates an inline runner with per-kind concurrency from config.
func NewInline(cfg config.JobsConfig) *Inline {
	sems := make(map[Kind]chan struct{}, 3)
	for _, kind := range []Kind{KindAnalysis, KindSync, KindScan} {
		sems[kind] = make(chan struct{}, Concurrency(cfg, kind))
	}
	return &Inline{sems: sems}
}

func (r *Inline) Start(_ context.Context, handler Handler) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handler = handler
	return nil
}

func (r *Inline) Enqueue(ctx context.Context, job Job) error {
	r.mu.RLock()
	handler := r.handler
	r.mu.RUnlock()
	if handler == nil {
		return eris.New("jobs: inline runner not started")
	}

	sem, ok := r.sems[job.Kind]
	if !ok {
		return eris.Errorf("jobs: unknown job kind %q", job.Kind)
	}

	select {
	case sem <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-sem }()

	return runWithRetry(ctx, handler, job)
}

func (r *Inline) Mode() string { return "inline" }

func (r *Inline) Close() error { return nil }
