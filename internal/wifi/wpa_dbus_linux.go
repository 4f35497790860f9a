//go:build linux

package wifi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/godbus/dbus/v5"
)

// wpa_supplicant D-Bus constants (fi.w1.wpa_supplicant1 API).
const (
	wpaService       = "fi.w1.wpa_supplicant1"
	wpaRootIface     = "fi.w1.wpa_supplicant1"
	wpaIfaceIface    = "fi.w1.wpa_supplicant1.Interface"
	dbusPropsIface   = "org.freedesktop.DBus.Properties"
	wpaStateProperty = wpaIfaceIface + ".State"
)

// wpaRootPath is the wpa_supplicant root object path.
const wpaRootPath dbus.ObjectPath = "/fi/w1/wpa_supplicant1"

// wpaStateCompleted is the interface State value once association and the
// four-way handshake have finished.
const wpaStateCompleted = "completed"

// wpaStatePoll is how often Connect re-reads the interface State while an
// association request is in flight.
const wpaStatePoll = 500 * time.Millisecond

// connectTimeout bounds a single association request. wpa_supplicant keeps
// scanning and retrying internally; without a bound a dead AP would stall
// the attempt loop forever instead of burning an attempt.
const connectTimeout = 15 * time.Second

// Sentinel errors for the wpa_supplicant controller.
var (
	// ErrNoNetworkConfigured indicates Connect was called before Configure.
	ErrNoNetworkConfigured = errors.New("no network configured")

	// ErrConnectTimeout indicates a single association request did not
	// reach the completed state within its bound.
	ErrConnectTimeout = errors.New("association request timed out")
)

// WPAController implements Controller against wpa_supplicant's D-Bus API.
//
// Each Connect call selects the configured network and polls the
// interface State property until wpa_supplicant reports "completed".
type WPAController struct {
	conn    *dbus.Conn
	ifPath  dbus.ObjectPath
	netPath dbus.ObjectPath
	logger  *slog.Logger
}

// NewWPAController connects to the system bus and resolves the
// wpa_supplicant interface object for ifname. The interface is registered
// with wpa_supplicant if it is not already.
func NewWPAController(ctx context.Context, ifname string, logger *slog.Logger) (*WPAController, error) {
	conn, err := dbus.SystemBus()
	if err != nil {
		return nil, fmt.Errorf("connect system bus: %w", err)
	}

	root := conn.Object(wpaService, wpaRootPath)

	var ifPath dbus.ObjectPath
	err = root.CallWithContext(ctx, wpaRootIface+".GetInterface", 0, ifname).Store(&ifPath)
	if err != nil {
		// Interface not yet known to wpa_supplicant; register it.
		args := map[string]any{"Ifname": ifname}
		err = root.CallWithContext(ctx, wpaRootIface+".CreateInterface", 0, args).Store(&ifPath)
		if err != nil {
			return nil, fmt.Errorf("register interface %q with wpa_supplicant: %w", ifname, err)
		}
	}

	return &WPAController{
		conn:   conn,
		ifPath: ifPath,
		logger: logger.With(
			slog.String("component", "wifi.wpa"),
			slog.String("interface", ifname),
		),
	}, nil
}

// Configure replaces any existing network blocks with one for creds.
func (c *WPAController) Configure(ctx context.Context, creds Credentials) error {
	iface := c.conn.Object(wpaService, c.ifPath)

	if err := iface.CallWithContext(ctx, wpaIfaceIface+".RemoveAllNetworks", 0).Err; err != nil {
		return fmt.Errorf("remove existing networks: %w", err)
	}

	props := map[string]any{
		"ssid": creds.SSID,
	}
	if creds.Passphrase != "" {
		props["psk"] = creds.Passphrase
		props["key_mgmt"] = "WPA-PSK"
	} else {
		props["key_mgmt"] = "NONE"
	}

	var netPath dbus.ObjectPath
	if err := iface.CallWithContext(ctx, wpaIfaceIface+".AddNetwork", 0, props).Store(&netPath); err != nil {
		return fmt.Errorf("add network %q: %w", creds.SSID, err)
	}
	c.netPath = netPath

	c.logger.Debug("network block installed",
		slog.String("ssid", creds.SSID),
	)
	return nil
}

// Connect selects the configured network and waits until wpa_supplicant
// reports the completed state, the request times out, or ctx is cancelled.
func (c *WPAController) Connect(ctx context.Context) error {
	if c.netPath == "" {
		return ErrNoNetworkConfigured
	}

	iface := c.conn.Object(wpaService, c.ifPath)
	if err := iface.CallWithContext(ctx, wpaIfaceIface+".SelectNetwork", 0, c.netPath).Err; err != nil {
		return fmt.Errorf("select network: %w", err)
	}

	deadline := time.Now().Add(connectTimeout)
	for {
		state, err := c.state(ctx)
		if err != nil {
			return err
		}
		if state == wpaStateCompleted {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("state %q after %s: %w", state, connectTimeout, ErrConnectTimeout)
		}

		t := time.NewTimer(wpaStatePoll)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
}

// IsConnected reports whether the interface State is "completed".
func (c *WPAController) IsConnected() (bool, error) {
	state, err := c.state(context.Background())
	if err != nil {
		return false, err
	}
	return state == wpaStateCompleted, nil
}

// state reads the wpa_supplicant interface State property.
func (c *WPAController) state(ctx context.Context) (string, error) {
	iface := c.conn.Object(wpaService, c.ifPath)

	var v dbus.Variant
	err := iface.CallWithContext(ctx, dbusPropsIface+".Get", 0, wpaIfaceIface, "State").Store(&v)
	if err != nil {
		return "", fmt.Errorf("read interface state: %w", err)
	}

	state, ok := v.Value().(string)
	if !ok {
		return "", fmt.Errorf("interface state has unexpected type %T", v.Value())
	}
	return state, nil
}

// Close releases the D-Bus connection.
func (c *WPAController) Close() error {
	return c.conn.Close()
}
