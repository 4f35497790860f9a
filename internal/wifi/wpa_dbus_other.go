//go:build !linux

package wifi

import (
	"context"
	"errors"
	"log/slog"
)

// ErrUnsupportedPlatform indicates the wpa_supplicant backend is only
// available on Linux.
var ErrUnsupportedPlatform = errors.New("wpa_supplicant controller requires linux")

// WPAController is a stub on non-Linux platforms.
type WPAController struct{}

// NewWPAController always fails on non-Linux platforms.
func NewWPAController(_ context.Context, _ string, _ *slog.Logger) (*WPAController, error) {
	return nil, ErrUnsupportedPlatform
}

// Configure always fails on non-Linux platforms.
func (c *WPAController) Configure(_ context.Context, _ Credentials) error {
	return ErrUnsupportedPlatform
}

// Connect always fails on non-Linux platforms.
func (c *WPAController) Connect(_ context.Context) error {
	return ErrUnsupportedPlatform
}

// IsConnected always fails on non-Linux platforms.
func (c *WPAController) IsConnected() (bool, error) {
	return false, ErrUnsupportedPlatform
}

// Close is a no-op on non-Linux platforms.
func (c *WPAController) Close() error { return nil }
