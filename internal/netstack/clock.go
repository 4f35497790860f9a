package netstack

import (
	"context"
	"runtime"
	"time"
)

// Clock is the timing primitive behind bring-up waits. Two disciplines
// exist with the same observable contract: SleepClock suspends on a timer
// and SpinClock busy-polls the monotonic clock. Which one runs is a
// configuration detail; callers only see Now and Sleep.
type Clock interface {
	// Now returns the current time. The monotonic reading is what
	// elapsed-time bookkeeping is computed from.
	Now() time.Time

	// Sleep suspends for d or until ctx is cancelled, whichever comes
	// first. A cancelled context is returned as its error.
	Sleep(ctx context.Context, d time.Duration) error
}

// SleepClock waits by suspending on a timer, yielding the thread to other
// tasks for the whole interval.
type SleepClock struct{}

// Now returns the current time.
func (SleepClock) Now() time.Time { return time.Now() }

// Sleep suspends on a timer until d elapses or ctx is cancelled.
func (SleepClock) Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// SpinClock waits by polling the monotonic clock, ceding the processor
// between probes. It trades CPU for not depending on timer wheels.
type SpinClock struct{}

// Now returns the current time.
func (SpinClock) Now() time.Time { return time.Now() }

// Sleep busy-polls until d has elapsed on the monotonic clock or ctx is
// cancelled.
func (SpinClock) Sleep(ctx context.Context, d time.Duration) error {
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			runtime.Gosched()
		}
	}
	return nil
}
