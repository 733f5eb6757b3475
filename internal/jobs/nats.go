package jobs

import (
	"context"
	"encoding/json"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/asimorth/competitor-lens/internal/config"
)

const subjectPrefix = "lens.jobs."

// NATS distributes jobs across processes through NATS queue groups.
// Each kind gets its own subject and worker pool.
type NATS struct {
	cfg  config.JobsConfig
	conn *nats.Conn
	subs []*nats.Subscription
}

// NewNATS connects to the configured NATS server. The connection must
// succeed at startup; callers degrade to a disabled runner on error.
func NewNATS(cfg config.JobsConfig) (*NATS, error) {
	conn, err := nats.Connect(cfg.NATSURL,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(5),
		nats.ReconnectWait(1*time.Second),
	)
	if err != nil {
		return nil, eris.Wrapf(err, "jobs: connect to NATS at %s", cfg.NATSURL)
	}
	if !conn.IsConnected() {
		conn.Close()
		return nil, eris.Errorf("jobs: NATS unreachable at %s", cfg.NATSURL)
	}

	zap.L().Info("connected to NATS", zap.String("url", cfg.NATSURL))
	return &NATS{cfg: cfg, conn: conn}, nil
}

func (r *NATS) Enqueue(_ context.Context, job Job) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return eris.Wrap(err, "jobs: marshal job")
	}
	if err := r.conn.Publish(subjectPrefix+string(job.Kind), payload); err != nil {
		return eris.Wrapf(err, "jobs: publish %s job", job.Kind)
	}
	return nil
}

// Start subscribes a bounded worker pool per job kind. Workers share a
// queue group so multiple processes split the stream.
func (r *NATS) Start(ctx context.Context, handler Handler) error {
	for _, kind := range []Kind{KindAnalysis, KindSync, KindScan} {
		workers := make(chan struct{}, Concurrency(r.cfg, kind))

		sub, err := r.conn.QueueSubscribe(subjectPrefix+string(kind), "lens-workers", func(msg *nats.Msg) {
			var job Job
			if err := json.Unmarshal(msg.Data, &job); err != nil {
				zap.L().Error("dropping malformed job", zap.Error(err))
				return
			}

			workers <- struct{}{}
			go func() {
				defer func() { <-workers }()
				if err := runWithRetry(ctx, handler, job); err != nil {
					zap.L().Warn("job failed",
						zap.String("kind", string(job.Kind)),
						zap.String("screenshot_id", job.ScreenshotID),
						zap.Error(err))
				}
			}()
		})
		if err != nil {
			return eris.Wrapf(err, "jobs: subscribe %s", kind)
		}
		r.subs = append(r.subs, sub)
	}
	return nil
}

func (r *NATS) Mode() string { return "nats" }

func (r *NATS) Close() error {
	for _, sub := range r.subs {
		if err := sub.Unsubscribe(); err != nil {
			zap.L().Warn("unsubscribe failed", zap.Error(err))
		}
	}
	r.conn.Close()
	return nil
}
