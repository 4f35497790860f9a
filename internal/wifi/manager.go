package wifi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Sentinel errors for Manager operations.
var (
	// ErrAttemptsExhausted indicates every allowed association attempt
	// failed. This is fatal to the whole bring-up; no higher layer
	// retries.
	ErrAttemptsExhausted = errors.New("association attempts exhausted")
)

// MetricsReporter receives association events for metric accounting.
// The production implementation is metrics.Collector; a no-op reporter
// is used when none is attached.
type MetricsReporter interface {
	// IncAssociationAttempt counts one issued association request.
	IncAssociationAttempt()

	// ObserveAssociationTransition records an FSM state change.
	ObserveAssociationTransition(from, to string)
}

// noopMetrics is the default MetricsReporter.
type noopMetrics struct{}

func (noopMetrics) IncAssociationAttempt() {}

func (noopMetrics) ObserveAssociationTransition(_, _ string) {}

// SleepFunc suspends the calling task for d, honoring ctx cancellation.
type SleepFunc func(ctx context.Context, d time.Duration) error

// defaultSleep is the timer-based SleepFunc used when none is injected.
func defaultSleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithManagerMetrics sets the MetricsReporter for the manager.
// If mr is nil, a no-op reporter is used.
func WithManagerMetrics(mr MetricsReporter) ManagerOption {
	return func(m *Manager) {
		if mr != nil {
			m.metrics = mr
		}
	}
}

// WithSleepFunc replaces the retry-delay suspension primitive. Tests use
// this to avoid real waits; production wiring injects the configured
// timing discipline.
func WithSleepFunc(sleep SleepFunc) ManagerOption {
	return func(m *Manager) {
		if sleep != nil {
			m.sleep = sleep
		}
	}
}

// Manager drives bounded-retry wireless association against a Controller.
//
// A Manager performs exactly one bring-up: the attempt bookkeeping is
// created fresh per Associate call and discarded on success or
// exhaustion.
type Manager struct {
	ctrl        Controller
	creds       Credentials
	maxAttempts int
	retryDelay  time.Duration
	sleep       SleepFunc
	metrics     MetricsReporter
	logger      *slog.Logger
}

// NewManager creates an association manager. maxAttempts must be >= 1
// (enforced at configuration time).
func NewManager(
	ctrl Controller,
	creds Credentials,
	maxAttempts int,
	retryDelay time.Duration,
	logger *slog.Logger,
	opts ...ManagerOption,
) *Manager {
	m := &Manager{
		ctrl:        ctrl,
		creds:       creds,
		maxAttempts: maxAttempts,
		retryDelay:  retryDelay,
		sleep:       defaultSleep,
		metrics:     noopMetrics{},
		logger:      logger.With(slog.String("component", "wifi.manager")),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Associate installs the credentials on the radio and runs the bounded
// retry loop until an association request succeeds or maxAttempts have
// failed.
//
// Exactly one request is issued per attempt. A failed attempt with
// attempts remaining waits out the retry delay before the next request;
// the final failure returns ErrAttemptsExhausted without a trailing
// delay. Context cancellation aborts the loop from any suspension point.
func (m *Manager) Associate(ctx context.Context) error {
	if err := m.ctrl.Configure(ctx, m.creds); err != nil {
		return fmt.Errorf("configure radio for %q: %w", m.creds.SSID, err)
	}

	state := StateIdle
	event := EventStart
	attempt := 0

	for {
		res := ApplyEvent(state, event)
		if res.Changed {
			m.metrics.ObserveAssociationTransition(res.OldState.String(), res.NewState.String())
		}
		state = res.NewState

		for _, action := range res.Actions {
			switch action {
			case ActionIssueConnect:
				attempt++
				event = m.issueConnect(ctx, attempt)

			case ActionQueryLinkStatus:
				m.queryLinkStatus()

			case ActionWaitRetry:
				m.logger.Info("retrying association",
					slog.Duration("delay", m.retryDelay),
					slog.Int("attempt", attempt),
					slog.Int("max_attempts", m.maxAttempts),
				)
				if err := m.sleep(ctx, m.retryDelay); err != nil {
					return fmt.Errorf("association retry wait: %w", err)
				}
				event = EventRetryElapsed

			case ActionReportExhausted:
				m.logger.Error("association failed",
					slog.Int("attempts", attempt),
					slog.String("ssid", m.creds.SSID),
				)
			}
		}

		switch state {
		case StateConnected:
			return nil
		case StateExhausted:
			return fmt.Errorf("associate with %q after %d attempts: %w",
				m.creds.SSID, attempt, ErrAttemptsExhausted)
		}
	}
}

// issueConnect performs one association request and maps its outcome to
// the next FSM event.
func (m *Manager) issueConnect(ctx context.Context, attempt int) Event {
	m.logger.Info("association attempt",
		slog.Int("attempt", attempt),
		slog.Int("max_attempts", m.maxAttempts),
		slog.String("ssid", m.creds.SSID),
	)
	m.metrics.IncAssociationAttempt()

	err := m.ctrl.Connect(ctx)
	if err == nil {
		m.logger.Info("association succeeded",
			slog.Int("attempt", attempt),
		)
		return EventConnectSucceeded
	}

	m.logger.Warn("association attempt failed",
		slog.Int("attempt", attempt),
		slog.String("error", err.Error()),
	)
	if attempt >= m.maxAttempts {
		return EventConnectFailedFinal
	}
	return EventConnectFailedRetry
}

// queryLinkStatus asks the radio for link-level connectivity after a
// successful association request. The answer is diagnostic only: the
// supplicant's state read can lag the radio, and the address monitor is
// the authoritative gate, so a not-connected answer does not abort.
func (m *Manager) queryLinkStatus() {
	connected, err := m.ctrl.IsConnected()
	switch {
	case err != nil:
		m.logger.Warn("link status query failed",
			slog.String("error", err.Error()),
		)
	case !connected:
		m.logger.Warn("radio reports not connected after successful association request")
	default:
		m.logger.Debug("radio confirms link-level connectivity")
	}
}
