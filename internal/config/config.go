// Package config manages linkup configuration using koanf/v2.
//
// Supports YAML files and environment variables layered over defaults.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/netip"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// -------------------------------------------------------------------------
// Configuration Structures
// -------------------------------------------------------------------------

// Config holds the complete linkup configuration.
type Config struct {
	Wireless WirelessConfig `koanf:"wireless"`
	Bringup  BringupConfig  `koanf:"bringup"`
	Session  SessionConfig  `koanf:"session"`
	Entropy  EntropyConfig  `koanf:"entropy"`
	Log      LogConfig      `koanf:"log"`
	Metrics  MetricsConfig  `koanf:"metrics"`
}

// WirelessConfig identifies the station interface and the network to join.
type WirelessConfig struct {
	// Interface is the wireless interface name (e.g., "wlan0").
	Interface string `koanf:"interface"`

	// SSID is the wireless network name to associate with.
	SSID string `koanf:"ssid"`

	// Passphrase is the WPA passphrase. Empty means an open network.
	Passphrase string `koanf:"passphrase"`
}

// BringupConfig holds the association retry and address acquisition timing.
type BringupConfig struct {
	// MaxAttempts is the number of association attempts before giving up.
	// Must be >= 1.
	MaxAttempts int `koanf:"max_attempts"`

	// RetryDelay is the wait between failed association attempts.
	RetryDelay time.Duration `koanf:"retry_delay"`

	// AddressTimeout is the total time to wait for address assignment
	// after association.
	AddressTimeout time.Duration `koanf:"address_timeout"`

	// PollInterval is the delay between link-state polls while waiting
	// for an address. Must be > 0 or the wait loop never terminates.
	PollInterval time.Duration `koanf:"poll_interval"`

	// LogInterval is how often a "still waiting" progress notice is
	// emitted during the address wait.
	LogInterval time.Duration `koanf:"log_interval"`

	// Timer selects the timing discipline for bring-up waits:
	// "sleep" (timer suspension) or "spin" (busy-poll against the
	// monotonic clock). Both produce the same observable behavior.
	Timer string `koanf:"timer"`
}

// SessionConfig holds the secure session target and buffer sizing.
type SessionConfig struct {
	// Host is the remote host IP address (IPv4 or IPv6).
	Host string `koanf:"host"`

	// Port is the remote TCP port.
	Port uint16 `koanf:"port"`

	// ServerName is the hostname announced in the TLS handshake (SNI)
	// and verified against the server certificate.
	ServerName string `koanf:"server_name"`

	// Verify is the certificate verification policy: "system" verifies
	// the chain against system roots; "none" accepts any server
	// identity. "none" removes the security guarantee TLS provides and
	// is logged loudly at startup.
	Verify string `koanf:"verify"`

	// Request is the raw request payload. Empty means a minimal
	// HTTP/1.1 GET built from ServerName.
	Request string `koanf:"request"`

	// TLSReadBuffer and TLSWriteBuffer are the TLS record buffer
	// capacities. Each must hold a maximum-size negotiated record
	// (16 KiB) or the handshake fails.
	TLSReadBuffer  int `koanf:"tls_read_buffer"`
	TLSWriteBuffer int `koanf:"tls_write_buffer"`

	// SocketReadBuffer and SocketWriteBuffer are the raw socket buffer
	// capacities. Sized independently of the TLS record buffers.
	SocketReadBuffer  int `koanf:"socket_read_buffer"`
	SocketWriteBuffer int `koanf:"socket_write_buffer"`

	// ResponseBuffer is the response capacity. A longer response is
	// silently truncated to this size.
	ResponseBuffer int `koanf:"response_buffer"`
}

// EntropyConfig selects the handshake random source.
type EntropyConfig struct {
	// Source is "device" (platform entropy pool) or "counter"
	// (deterministic debug source, no cryptographic security).
	Source string `koanf:"source"`
}

// LogConfig holds the logging configuration.
type LogConfig struct {
	// Level is the log level: "debug", "info", "warn", "error".
	Level string `koanf:"level"`
	// Format is the log output format: "json" or "text".
	Format string `koanf:"format"`
}

// MetricsConfig holds the Prometheus metrics endpoint configuration.
type MetricsConfig struct {
	// Addr is the HTTP listen address for the metrics endpoint
	// (e.g., ":9100"). Empty disables the endpoint.
	Addr string `koanf:"addr"`
	// Path is the URL path for the metrics endpoint (e.g., "/metrics").
	Path string `koanf:"path"`
}

// HostAddr parses the session host as a netip.Addr.
func (sc SessionConfig) HostAddr() (netip.Addr, error) {
	addr, err := netip.ParseAddr(sc.Host)
	if err != nil {
		return netip.Addr{}, fmt.Errorf("parse session host %q: %w", sc.Host, err)
	}
	return addr, nil
}

// RequestBytes returns the request payload. When Request is empty, a
// minimal HTTP/1.1 GET with a Host header derived from ServerName is used.
func (sc SessionConfig) RequestBytes() []byte {
	if sc.Request != "" {
		return []byte(sc.Request)
	}
	return []byte("GET / HTTP/1.1\r\nHost: " + sc.ServerName + "\r\n\r\n")
}

// -------------------------------------------------------------------------
// Defaults
// -------------------------------------------------------------------------

// minTLSBuffer is the smallest allowed TLS record buffer capacity. A TLS
// record may carry up to 16 KiB of payload; a smaller buffer cannot hold a
// maximum-size record and the handshake fails.
const minTLSBuffer = 16384

// DefaultConfig returns a Config populated with sensible defaults.
//
// The bring-up timing defaults to ten association attempts five seconds
// apart, and a 90 second address acquisition budget polled every 200ms
// with a progress notice every 30 seconds.
func DefaultConfig() *Config {
	return &Config{
		Wireless: WirelessConfig{
			Interface: "wlan0",
		},
		Bringup: BringupConfig{
			MaxAttempts:    10,
			RetryDelay:     5 * time.Second,
			AddressTimeout: 90 * time.Second,
			PollInterval:   200 * time.Millisecond,
			LogInterval:    30 * time.Second,
			Timer:          "sleep",
		},
		Session: SessionConfig{
			Port:              443,
			Verify:            "system",
			TLSReadBuffer:     minTLSBuffer,
			TLSWriteBuffer:    minTLSBuffer,
			SocketReadBuffer:  1024,
			SocketWriteBuffer: 1024,
			ResponseBuffer:    1024,
		},
		Entropy: EntropyConfig{
			Source: "device",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Addr: "",
			Path: "/metrics",
		},
	}
}

// -------------------------------------------------------------------------
// Loader
// -------------------------------------------------------------------------

// envPrefix is the environment variable prefix for linkup configuration.
// Variables are named LINKUP_<section>_<key>, e.g., LINKUP_LOG_LEVEL.
const envPrefix = "LINKUP_"

// Load reads configuration from a YAML file at path, overlays environment
// variable overrides (LINKUP_ prefix), and merges on top of DefaultConfig().
// Missing fields inherit defaults. An empty path skips the file layer, so
// the process can be configured from the environment alone.
//
// Environment variable mapping:
//
//	LINKUP_WIRELESS_SSID  -> wireless.ssid
//	LINKUP_LOG_LEVEL      -> log.level
//	LINKUP_METRICS_ADDR   -> metrics.addr
//
// Uses koanf/v2 with file + env providers and YAML parser.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	// Load defaults first.
	defaults := DefaultConfig()
	if err := loadDefaults(k, defaults); err != nil {
		return nil, fmt.Errorf("load config defaults: %w", err)
	}

	// Load YAML file on top of defaults when one is given.
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config from %s: %w", path, err)
		}
	}

	// Load environment variable overrides on top of YAML.
	// LINKUP_WIRELESS_SSID -> wireless.ssid (strip prefix, lowercase,
	// first _ separates section from key).
	if err := k.Load(env.Provider(envPrefix, ".", envKeyMapper), nil); err != nil {
		return nil, fmt.Errorf("load env overrides: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("validate config from %s: %w", path, err)
	}

	return cfg, nil
}

// envKeyMapper transforms LINKUP_SESSION_SERVER_NAME -> session.server_name.
// Strips the LINKUP_ prefix, lowercases, and splits the section from the
// key at the first underscore. Section names are single words, so any
// later underscore belongs to the key itself.
func envKeyMapper(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, envPrefix))
	return strings.Replace(s, "_", ".", 1)
}

// loadDefaults marshals the default config into koanf as the base layer.
func loadDefaults(k *koanf.Koanf, defaults *Config) error {
	defaultMap := map[string]any{
		"wireless.interface":          defaults.Wireless.Interface,
		"bringup.max_attempts":        defaults.Bringup.MaxAttempts,
		"bringup.retry_delay":         defaults.Bringup.RetryDelay.String(),
		"bringup.address_timeout":     defaults.Bringup.AddressTimeout.String(),
		"bringup.poll_interval":       defaults.Bringup.PollInterval.String(),
		"bringup.log_interval":        defaults.Bringup.LogInterval.String(),
		"bringup.timer":               defaults.Bringup.Timer,
		"session.port":                defaults.Session.Port,
		"session.verify":              defaults.Session.Verify,
		"session.tls_read_buffer":     defaults.Session.TLSReadBuffer,
		"session.tls_write_buffer":    defaults.Session.TLSWriteBuffer,
		"session.socket_read_buffer":  defaults.Session.SocketReadBuffer,
		"session.socket_write_buffer": defaults.Session.SocketWriteBuffer,
		"session.response_buffer":     defaults.Session.ResponseBuffer,
		"entropy.source":              defaults.Entropy.Source,
		"log.level":                   defaults.Log.Level,
		"log.format":                  defaults.Log.Format,
		"metrics.addr":                defaults.Metrics.Addr,
		"metrics.path":                defaults.Metrics.Path,
	}

	for key, val := range defaultMap {
		if err := k.Set(key, val); err != nil {
			return fmt.Errorf("set default %s: %w", key, err)
		}
	}

	return nil
}

// -------------------------------------------------------------------------
// Validation
// -------------------------------------------------------------------------

// Validation errors.
var (
	// ErrEmptyInterface indicates the wireless interface name is empty.
	ErrEmptyInterface = errors.New("wireless.interface must not be empty")

	// ErrEmptySSID indicates the wireless network name is empty.
	ErrEmptySSID = errors.New("wireless.ssid must not be empty")

	// ErrInvalidMaxAttempts indicates the association attempt count is below one.
	ErrInvalidMaxAttempts = errors.New("bringup.max_attempts must be >= 1")

	// ErrInvalidRetryDelay indicates the association retry delay is negative.
	ErrInvalidRetryDelay = errors.New("bringup.retry_delay must be >= 0")

	// ErrInvalidAddressTimeout indicates the address acquisition timeout is invalid.
	ErrInvalidAddressTimeout = errors.New("bringup.address_timeout must be > 0")

	// ErrInvalidPollInterval indicates a poll interval that would never
	// let the address wait loop terminate.
	ErrInvalidPollInterval = errors.New("bringup.poll_interval must be > 0")

	// ErrInvalidLogInterval indicates the progress notice interval is invalid.
	ErrInvalidLogInterval = errors.New("bringup.log_interval must be > 0")

	// ErrInvalidTimer indicates an unknown timing discipline.
	ErrInvalidTimer = errors.New(`bringup.timer must be "sleep" or "spin"`)

	// ErrEmptyHost indicates the session host is empty.
	ErrEmptyHost = errors.New("session.host must not be empty")

	// ErrInvalidPort indicates the session port is zero.
	ErrInvalidPort = errors.New("session.port must be >= 1")

	// ErrEmptyServerName indicates the TLS server name is empty.
	ErrEmptyServerName = errors.New("session.server_name must not be empty")

	// ErrInvalidVerifyPolicy indicates an unknown certificate verification policy.
	ErrInvalidVerifyPolicy = errors.New(`session.verify must be "system" or "none"`)

	// ErrTLSBufferTooSmall indicates a TLS record buffer that cannot hold
	// a maximum-size negotiated record.
	ErrTLSBufferTooSmall = errors.New("session TLS buffers must be >= 16384 bytes")

	// ErrInvalidSocketBuffer indicates a socket buffer capacity below one.
	ErrInvalidSocketBuffer = errors.New("session socket buffers must be >= 1 byte")

	// ErrInvalidResponseBuffer indicates a response buffer capacity below one.
	ErrInvalidResponseBuffer = errors.New("session.response_buffer must be >= 1 byte")

	// ErrInvalidEntropySource indicates an unknown entropy source.
	ErrInvalidEntropySource = errors.New(`entropy.source must be "device" or "counter"`)
)

// Validate checks the configuration for values that cannot work at runtime.
// All violations are reported as wrapped sentinel errors.
func Validate(cfg *Config) error {
	if err := validateWireless(cfg.Wireless); err != nil {
		return err
	}
	if err := validateBringup(cfg.Bringup); err != nil {
		return err
	}
	if err := validateSession(cfg.Session); err != nil {
		return err
	}
	switch cfg.Entropy.Source {
	case "device", "counter":
	default:
		return fmt.Errorf("%w (got %q)", ErrInvalidEntropySource, cfg.Entropy.Source)
	}
	return nil
}

func validateWireless(wc WirelessConfig) error {
	if wc.Interface == "" {
		return ErrEmptyInterface
	}
	if wc.SSID == "" {
		return ErrEmptySSID
	}
	return nil
}

func validateBringup(bc BringupConfig) error {
	if bc.MaxAttempts < 1 {
		return fmt.Errorf("%w (got %d)", ErrInvalidMaxAttempts, bc.MaxAttempts)
	}
	if bc.RetryDelay < 0 {
		return fmt.Errorf("%w (got %s)", ErrInvalidRetryDelay, bc.RetryDelay)
	}
	if bc.AddressTimeout <= 0 {
		return fmt.Errorf("%w (got %s)", ErrInvalidAddressTimeout, bc.AddressTimeout)
	}
	if bc.PollInterval <= 0 {
		return fmt.Errorf("%w (got %s)", ErrInvalidPollInterval, bc.PollInterval)
	}
	if bc.LogInterval <= 0 {
		return fmt.Errorf("%w (got %s)", ErrInvalidLogInterval, bc.LogInterval)
	}
	switch bc.Timer {
	case "sleep", "spin":
	default:
		return fmt.Errorf("%w (got %q)", ErrInvalidTimer, bc.Timer)
	}
	return nil
}

func validateSession(sc SessionConfig) error {
	if sc.Host == "" {
		return ErrEmptyHost
	}
	if _, err := sc.HostAddr(); err != nil {
		return err
	}
	if sc.Port == 0 {
		return ErrInvalidPort
	}
	if sc.ServerName == "" {
		return ErrEmptyServerName
	}
	switch sc.Verify {
	case "system", "none":
	default:
		return fmt.Errorf("%w (got %q)", ErrInvalidVerifyPolicy, sc.Verify)
	}
	if sc.TLSReadBuffer < minTLSBuffer || sc.TLSWriteBuffer < minTLSBuffer {
		return fmt.Errorf("%w (got read=%d write=%d)",
			ErrTLSBufferTooSmall, sc.TLSReadBuffer, sc.TLSWriteBuffer)
	}
	if sc.SocketReadBuffer < 1 || sc.SocketWriteBuffer < 1 {
		return fmt.Errorf("%w (got read=%d write=%d)",
			ErrInvalidSocketBuffer, sc.SocketReadBuffer, sc.SocketWriteBuffer)
	}
	if sc.ResponseBuffer < 1 {
		return fmt.Errorf("%w (got %d)", ErrInvalidResponseBuffer, sc.ResponseBuffer)
	}
	return nil
}

// -------------------------------------------------------------------------
// Logging helpers
// -------------------------------------------------------------------------

// ParseLogLevel maps a configuration log level string to the corresponding
// slog.Level. Unknown values default to slog.LevelInfo.
//
// Recognized values: "debug", "info", "warn", "error" (case-insensitive).
func ParseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
