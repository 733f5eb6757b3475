package assign

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/asimorth/competitor-lens/internal/model"
	"github.com/asimorth/competitor-lens/internal/store"
)

// BatchOptions controls a batch arbitration run.
type BatchOptions struct {
	// CompetitorID restricts the batch to one competitor when set.
	CompetitorID string

	// Concurrency bounds parallel screenshot analysis. Default 5.
	Concurrency int

	// PaceEvery and PaceDelay throttle sustained throughput: the
	// limiter refills PaceEvery permits per PaceDelay.
	PaceEvery int
	PaceDelay time.Duration

	// OnProgress, when set, is called after each screenshot completes.
	OnProgress func(done, total int)
}

func (o *BatchOptions) withDefaults() {
	if o.Concurrency <= 0 {
		o.Concurrency = 5
	}
	if o.PaceEvery <= 0 {
		o.PaceEvery = 10
	}
	if o.PaceDelay <= 0 {
		o.PaceDelay = 100 * time.Millisecond
	}
}

// AssignBatch arbitrates every unassigned screenshot. One screenshot's
// failure never aborts the batch; failures are tallied in the result.
func (a *Assigner) AssignBatch(ctx context.Context, opts BatchOptions) (*model.BatchResult, error) {
	opts.withDefaults()

	shots, err := a.store.ListScreenshots(ctx, store.ScreenshotFilter{
		CompetitorID: opts.CompetitorID,
		Unassigned:   true,
	})
	if err != nil {
		return nil, err
	}

	result := &model.BatchResult{Total: len(shots)}
	if len(shots) == 0 {
		return result, nil
	}

	limiter := rate.NewLimiter(
		rate.Every(opts.PaceDelay/time.Duration(opts.PaceEvery)),
		opts.PaceEvery,
	)

	var mu sync.Mutex
	done := 0

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Concurrency)

	for _, shot := range shots {
		g.Go(func() error {
			if err := limiter.Wait(gctx); err != nil {
				return err
			}

			res, err := a.AssignOne(gctx, shot.ID, Options{})

			mu.Lock()
			defer mu.Unlock()
			done++
			switch {
			case err != nil:
				result.Failed++
				zap.L().Warn("batch assignment failed",
					zap.String("screenshot_id", shot.ID),
					zap.Error(err))
			case res.NeedsReview:
				result.NeedsReview++
				result.Results = append(result.Results, *res)
			default:
				result.Assigned++
				result.Results = append(result.Results, *res)
			}
			if opts.OnProgress != nil {
				opts.OnProgress(done, result.Total)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return result, err
	}

	zap.L().Info("batch assignment complete",
		zap.Int("total", result.Total),
		zap.Int("assigned", result.Assigned),
		zap.Int("needs_review", result.NeedsReview),
		zap.Int("failed", result.Failed))
	return result, nil
}
