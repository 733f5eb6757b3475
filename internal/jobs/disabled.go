package jobs

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// ErrDisabled is returned for every enqueue while the broker is down.
var ErrDisabled = eris.New("jobs: background processing disabled")

// Disabled rejects all jobs. It stands in when a configured broker
// could not be reached, keeping the rest of the system alive.
type Disabled struct {
	cause error
}

// NewDisabled creates a disabled runner, logging why.
func NewDisabled(cause error) *Disabled {
	if cause != nil {
		zap.L().Warn("background job processing disabled", zap.Error(cause))
	}
	return &Disabled{cause: cause}
}

func (r *Disabled) Enqueue(context.Context, Job) error {
	return ErrDisabled
}

func (r *Disabled) Start(context.Context, Handler) error { return nil }

func (r *Disabled) Mode() string { return "disabled" }

func (r *Disabled) Close() error { return nil }
