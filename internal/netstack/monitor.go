package netstack

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/netip"
	"time"
)

// ErrAcquireTimeout indicates no address was assigned within the total
// timeout. This is fatal to the bring-up: the secure session cannot
// proceed without an address.
var ErrAcquireTimeout = errors.New("address acquisition timed out")

// MetricsReporter receives address wait measurements.
type MetricsReporter interface {
	// SetAddressWaitSeconds records how long the address wait took,
	// whether it ended in an address or a timeout.
	SetAddressWaitSeconds(seconds float64)
}

// noopMetrics is the default MetricsReporter.
type noopMetrics struct{}

func (noopMetrics) SetAddressWaitSeconds(float64) {}

// MonitorOption configures a Monitor.
type MonitorOption func(*Monitor)

// WithMonitorMetrics sets the MetricsReporter for the monitor.
// If mr is nil, a no-op reporter is used.
func WithMonitorMetrics(mr MetricsReporter) MonitorOption {
	return func(m *Monitor) {
		if mr != nil {
			m.metrics = mr
		}
	}
}

// WithClock replaces the timing discipline. The default is SleepClock.
func WithClock(clock Clock) MonitorOption {
	return func(m *Monitor) {
		if clock != nil {
			m.clock = clock
		}
	}
}

// Monitor waits for the stack to acquire an address, under a total
// timeout, with periodic progress reporting.
type Monitor struct {
	stack       Stack
	total       time.Duration
	poll        time.Duration
	logInterval time.Duration
	clock       Clock
	metrics     MetricsReporter
	logger      *slog.Logger
}

// NewMonitor creates an address acquisition monitor. poll and logInterval
// must be > 0 (enforced at configuration time); a zero poll interval
// would keep elapsed time from ever advancing past the timeout.
func NewMonitor(
	stack Stack,
	total, poll, logInterval time.Duration,
	logger *slog.Logger,
	opts ...MonitorOption,
) *Monitor {
	m := &Monitor{
		stack:       stack,
		total:       total,
		poll:        poll,
		logInterval: logInterval,
		clock:       SleepClock{},
		metrics:     noopMetrics{},
		logger:      logger.With(slog.String("component", "netstack.monitor")),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// WaitForAddress polls the stack's link state until an address is
// assigned, returning it immediately regardless of remaining budget. If
// the elapsed time reaches the total timeout first, it returns
// ErrAcquireTimeout carrying the elapsed measurement. Elapsed time is
// re-read from the monotonic clock after every poll suspension, so it is
// monotonically non-decreasing and bounded by the total at loop exit.
func (m *Monitor) WaitForAddress(ctx context.Context) (netip.Addr, error) {
	start := m.clock.Now()

	var elapsed, lastLog time.Duration
	for {
		if m.stack.LinkState() == LinkUp {
			if addr, ok := m.stack.Address(); ok {
				m.metrics.SetAddressWaitSeconds(elapsed.Seconds())
				m.logger.Info("address acquired",
					slog.String("address", addr.String()),
					slog.Duration("elapsed", elapsed),
				)
				return addr, nil
			}
		}

		if elapsed >= m.total {
			m.metrics.SetAddressWaitSeconds(elapsed.Seconds())
			return netip.Addr{}, fmt.Errorf("no address after %s: %w", elapsed, ErrAcquireTimeout)
		}

		if elapsed-lastLog >= m.logInterval {
			m.logger.Info("still waiting for address",
				slog.String("link_state", m.stack.LinkState().String()),
				slog.Duration("elapsed", elapsed),
				slog.Duration("timeout", m.total),
			)
			lastLog = elapsed
		}

		if err := m.clock.Sleep(ctx, m.poll); err != nil {
			return netip.Addr{}, fmt.Errorf("address wait: %w", err)
		}
		elapsed = m.clock.Now().Sub(start)
	}
}
