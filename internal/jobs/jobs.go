// Package jobs runs background work for analysis, sync, and scanning.
// The Runner interface isolates the rest of the system from the broker:
// the same enqueue call works whether jobs execute inline, flow through
// NATS, or are rejected because the broker is down.
package jobs

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/asimorth/competitor-lens/internal/config"
	"github.com/asimorth/competitor-lens/internal/resilience"
)

// Kind names a job queue. Each kind has its own worker concurrency.
type Kind string

const (
	KindAnalysis Kind = "analysis"
	KindSync     Kind = "sync"
	KindScan     Kind = "scan"
)

// Job is one unit of background work.
type Job struct {
	Kind Kind `json:"kind"`

	// ScreenshotID is set for analysis jobs and partial sync jobs.
	ScreenshotID string `json:"screenshot_id,omitempty"`

	// CompetitorID scopes analysis batches.
	CompetitorID string `json:"competitor_id,omitempty"`

	// Root is the directory for scan jobs.
	Root string `json:"root,omitempty"`

	// Reanalyze forces fresh extraction for analysis jobs.
	Reanalyze bool `json:"reanalyze,omitempty"`
}

// Handler executes a dequeued job.
type Handler func(ctx context.Context, job Job) error

// Runner accepts jobs and dispatches them to a Handler.
type Runner interface {
	// Enqueue submits a job. Inline runners execute it before returning.
	Enqueue(ctx context.Context, job Job) error

	// Start begins consuming jobs with the given handler. Inline
	// runners only record the handler.
	Start(ctx context.Context, handler Handler) error

	// Mode identifies the active broker: "inline", "nats", or "disabled".
	Mode() string

	Close() error
}

// Concurrency returns the worker bound for a job kind. Sync and scan
// run serialized so ledger updates and directory walks never race.
func Concurrency(cfg config.JobsConfig, kind Kind) int {
	n := 1
	switch kind {
	case KindAnalysis:
		n = cfg.AnalysisConcurrency
	case KindSync:
		n = cfg.SyncConcurrency
	case KindScan:
		n = cfg.ScanConcurrency
	}
	if n < 1 {
		n = 1
	}
	return n
}

// jobRetryConfig bounds transient-failure retries within one job
// execution. The sync ledger's retry_count tracks lifetime retries
// across executions separately.
var jobRetryConfig = resilience.DefaultRetryConfig()

// runWithRetry executes a job through the queue-level retry policy.
// Only transient failures are retried; domain errors surface at once.
func runWithRetry(ctx context.Context, handler Handler, job Job) error {
	cfg := jobRetryConfig
	cfg.OnRetry = resilience.RetryLogger("jobs", string(job.Kind))
	return resilience.Do(ctx, cfg, func(ctx context.Context) error {
		return handler(ctx, job)
	})
}

// New creates a Runner for the configured broker. A NATS broker that
// cannot be reached yields a disabled runner instead of an error:
// foreground operations keep working without background processing.
func New(cfg config.JobsConfig) (Runner, error) {
	switch cfg.Broker {
	case "inline", "":
		return NewInline(cfg), nil
	case "nats":
		r, err := NewNATS(cfg)
		if err != nil {
			return NewDisabled(err), nil
		}
		return r, nil
	case "disabled":
		return NewDisabled(nil), nil
	default:
		return nil, eris.Errorf("jobs: unknown broker %q", cfg.Broker)
	}
}
