package wifi

import "context"

// Credentials identifies the wireless network to join.
type Credentials struct {
	// SSID is the network name.
	SSID string

	// Passphrase is the WPA passphrase. Empty means an open network.
	Passphrase string
}

// Controller is the radio subsystem boundary. One implementation talks to
// wpa_supplicant over D-Bus; tests substitute fakes.
type Controller interface {
	// Configure installs the network credentials on the radio. Called
	// once before the first association attempt.
	Configure(ctx context.Context, creds Credentials) error

	// Connect issues one association request and blocks until the radio
	// reports an outcome.
	Connect(ctx context.Context) error

	// IsConnected reports link-level connectivity status as seen by the
	// radio. The Manager uses it only as a diagnostic after a
	// successful Connect.
	IsConnected() (bool, error)
}
