package wifi_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/CodingInGreen/linkup/internal/wifi"
)

// errRadio is the failure injected by fake controllers.
var errRadio = errors.New("radio rejected request")

// fakeController fails the first failures Connect calls, then succeeds.
type fakeController struct {
	failures   int
	connects   int
	configured bool

	linkStatus    bool
	linkStatusErr error
	statusQueries int
}

func (f *fakeController) Configure(_ context.Context, _ wifi.Credentials) error {
	f.configured = true
	return nil
}

func (f *fakeController) Connect(_ context.Context) error {
	f.connects++
	if f.connects <= f.failures {
		return errRadio
	}
	return nil
}

func (f *fakeController) IsConnected() (bool, error) {
	f.statusQueries++
	return f.linkStatus, f.linkStatusErr
}

// countingSleep records retry delays instead of waiting them out.
func countingSleep(delays *[]time.Duration) wifi.SleepFunc {
	return func(_ context.Context, d time.Duration) error {
		*delays = append(*delays, d)
		return nil
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// TestAssociateRetries verifies the attempt/delay accounting: when the
// first k attempts fail and attempt k+1 succeeds, exactly k+1 requests are
// issued and k retry delays are waited.
func TestAssociateRetries(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		failures    int
		maxAttempts int
		wantErr     error
		wantConns   int
		wantDelays  int
	}{
		{
			name:        "first attempt succeeds",
			failures:    0,
			maxAttempts: 10,
			wantConns:   1,
			wantDelays:  0,
		},
		{
			name:        "third attempt succeeds",
			failures:    2,
			maxAttempts: 10,
			wantConns:   3,
			wantDelays:  2,
		},
		{
			name:        "last allowed attempt succeeds",
			failures:    9,
			maxAttempts: 10,
			wantConns:   10,
			wantDelays:  9,
		},
		{
			name:        "all attempts fail",
			failures:    10,
			maxAttempts: 10,
			wantErr:     wifi.ErrAttemptsExhausted,
			wantConns:   10,
			wantDelays:  9,
		},
		{
			name:        "single attempt budget fails",
			failures:    1,
			maxAttempts: 1,
			wantErr:     wifi.ErrAttemptsExhausted,
			wantConns:   1,
			wantDelays:  0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ctrl := &fakeController{failures: tt.failures, linkStatus: true}
			var delays []time.Duration

			mgr := wifi.NewManager(ctrl,
				wifi.Credentials{SSID: "lab-net", Passphrase: "hunter22"},
				tt.maxAttempts, 5*time.Second, testLogger(),
				wifi.WithSleepFunc(countingSleep(&delays)),
			)

			err := mgr.Associate(context.Background())
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("Associate() error: %v", err)
				}
			} else if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Associate() = %v, want %v", err, tt.wantErr)
			}

			if !ctrl.configured {
				t.Error("Configure was never called")
			}
			if ctrl.connects != tt.wantConns {
				t.Errorf("connect requests = %d, want %d", ctrl.connects, tt.wantConns)
			}
			if len(delays) != tt.wantDelays {
				t.Errorf("retry delays = %d, want %d", len(delays), tt.wantDelays)
			}
			for _, d := range delays {
				if d != 5*time.Second {
					t.Errorf("retry delay = %v, want %v", d, 5*time.Second)
				}
			}
		})
	}
}

// TestAssociateLinkStatusDiagnostic verifies that the post-success link
// status query never fails the bring-up, whatever it reports.
func TestAssociateLinkStatusDiagnostic(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		status    bool
		statusErr error
	}{
		{name: "radio confirms connectivity", status: true},
		{name: "radio reports not connected", status: false},
		{name: "status query errors", statusErr: errors.New("query failed")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ctrl := &fakeController{linkStatus: tt.status, linkStatusErr: tt.statusErr}
			mgr := wifi.NewManager(ctrl, wifi.Credentials{SSID: "lab-net"},
				3, time.Second, testLogger(),
				wifi.WithSleepFunc(func(context.Context, time.Duration) error { return nil }),
			)

			if err := mgr.Associate(context.Background()); err != nil {
				t.Fatalf("Associate() error: %v", err)
			}
			if ctrl.statusQueries != 1 {
				t.Errorf("status queries = %d, want 1", ctrl.statusQueries)
			}
		})
	}
}

// TestAssociateCancelledDuringRetryWait verifies that context cancellation
// aborts the retry suspension.
func TestAssociateCancelledDuringRetryWait(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())

	ctrl := &fakeController{failures: 100}
	mgr := wifi.NewManager(ctrl, wifi.Credentials{SSID: "lab-net"},
		5, time.Minute, testLogger(),
		wifi.WithSleepFunc(func(ctx context.Context, _ time.Duration) error {
			cancel()
			return ctx.Err()
		}),
	)

	err := mgr.Associate(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Associate() = %v, want context.Canceled", err)
	}
	if ctrl.connects != 1 {
		t.Errorf("connect requests = %d, want 1", ctrl.connects)
	}
}

// TestAssociateConfigureFailure verifies a radio configuration failure
// aborts before any attempt is issued.
func TestAssociateConfigureFailure(t *testing.T) {
	t.Parallel()

	ctrl := &failingConfigController{}
	mgr := wifi.NewManager(ctrl, wifi.Credentials{SSID: "lab-net"},
		3, time.Second, testLogger())

	if err := mgr.Associate(context.Background()); !errors.Is(err, errRadio) {
		t.Fatalf("Associate() = %v, want %v", err, errRadio)
	}
	if ctrl.connects != 0 {
		t.Errorf("connect requests = %d, want 0", ctrl.connects)
	}
}

type failingConfigController struct {
	connects int
}

func (f *failingConfigController) Configure(_ context.Context, _ wifi.Credentials) error {
	return errRadio
}

func (f *failingConfigController) Connect(_ context.Context) error {
	f.connects++
	return nil
}

func (f *failingConfigController) IsConnected() (bool, error) { return false, nil }
