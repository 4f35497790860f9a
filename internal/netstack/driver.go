package netstack

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// ErrDriverStopped indicates the stack driver task returned while the
// process was still running. The driver is perpetual under normal
// operation; its return means no further packets will be processed, so
// the whole run is treated as failed.
var ErrDriverStopped = errors.New("network stack driver stopped unexpectedly")

// Driver owns the perpetual task that pumps the stack's send/receive
// queues. It is started exactly once, before address acquisition begins,
// and runs for the remainder of the process. It is never stopped except
// by process shutdown (context cancellation).
type Driver struct {
	stack   Stack
	logger  *slog.Logger
	started atomic.Bool
}

// NewDriver creates a driver for the given stack.
func NewDriver(stack Stack, logger *slog.Logger) *Driver {
	return &Driver{
		stack:  stack,
		logger: logger.With(slog.String("component", "netstack.driver")),
	}
}

// Start launches the pump task on g. A second Start is a no-op: the
// driver task exists at most once per process.
//
// A Run return during normal operation surfaces as an error on the group,
// failing the run; a return caused by ctx cancellation is a clean
// shutdown.
func (d *Driver) Start(ctx context.Context, g *errgroup.Group) {
	if !d.started.CompareAndSwap(false, true) {
		return
	}

	g.Go(func() error {
		d.logger.Debug("stack driver running")
		err := d.stack.Run(ctx)

		if ctx.Err() != nil {
			d.logger.Debug("stack driver stopped by shutdown")
			return nil
		}
		if err != nil {
			return fmt.Errorf("stack driver: %w", err)
		}
		return ErrDriverStopped
	})
}
