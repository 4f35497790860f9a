package session

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"log/slog"
	"net"
	"unicode/utf8"
)

// VerifyPolicy selects how the server certificate chain is checked.
type VerifyPolicy uint8

const (
	// VerifySystemRoots verifies the chain against the system root
	// store and the endpoint's ServerName.
	VerifySystemRoots VerifyPolicy = iota + 1

	// VerifyNone accepts any server identity. This removes the
	// authentication guarantee TLS exists to provide; it must be an
	// explicit configuration choice and is logged loudly when active.
	VerifyNone
)

// String returns the human-readable name of the policy.
func (p VerifyPolicy) String() string {
	switch p {
	case VerifySystemRoots:
		return "SystemRoots"
	case VerifyNone:
		return "None"
	default:
		return "Unknown"
	}
}

// Dialer opens raw transport connections. netstack.Stack satisfies it.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// MetricsReporter receives exchange outcomes for metric accounting.
type MetricsReporter interface {
	// ObserveExchange records an exchange outcome: "ok" or the name of
	// the phase that failed.
	ObserveExchange(outcome string)

	// AddResponseBytes counts bytes stored from the response read.
	AddResponseBytes(n int)
}

// noopMetrics is the default MetricsReporter.
type noopMetrics struct{}

func (noopMetrics) ObserveExchange(string) {}

func (noopMetrics) AddResponseBytes(int) {}

// Exchange outcome labels.
const (
	outcomeOK        = "ok"
	outcomeConnect   = "connect"
	outcomeHandshake = "handshake"
	outcomeWrite     = "write"
	outcomeFlush     = "flush"
	outcomeRead      = "read"
	outcomeDecode    = "decode"
)

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithClientMetrics sets the MetricsReporter for the client.
// If mr is nil, a no-op reporter is used.
func WithClientMetrics(mr MetricsReporter) ClientOption {
	return func(c *Client) {
		if mr != nil {
			c.metrics = mr
		}
	}
}

// Client performs the single request/response exchange. It exclusively
// owns its buffer arena and response buffer for the session's lifetime;
// no session concurrency exists in this design.
type Client struct {
	dialer   Dialer
	endpoint Endpoint
	bufs     *Buffers
	resp     *ResponseBuffer
	random   io.Reader
	policy   VerifyPolicy
	metrics  MetricsReporter
	logger   *slog.Logger
}

// NewClient creates a secure session client. random seeds the TLS
// handshake and is one of the entropy sources, selected at configuration
// time. A VerifyNone policy is announced immediately so a disabled
// certificate check can never pass unnoticed in the logs.
func NewClient(
	dialer Dialer,
	endpoint Endpoint,
	bufs *Buffers,
	resp *ResponseBuffer,
	random io.Reader,
	policy VerifyPolicy,
	logger *slog.Logger,
	opts ...ClientOption,
) *Client {
	c := &Client{
		dialer:   dialer,
		endpoint: endpoint,
		bufs:     bufs,
		resp:     resp,
		random:   random,
		policy:   policy,
		metrics:  noopMetrics{},
		logger: logger.With(
			slog.String("component", "session.client"),
			slog.String("endpoint", endpoint.Addr()),
		),
	}
	for _, opt := range opts {
		opt(c)
	}

	if policy == VerifyNone {
		c.logger.Warn("CERTIFICATE VERIFICATION DISABLED: any server can impersonate " +
			endpoint.ServerName + "; use only against controlled test peers")
	}

	return c
}

// Exchange opens the transport, negotiates TLS, writes and flushes the
// request, performs exactly one bounded read, and decodes the result as
// text. Every failure aborts the exchange; no step is retried. The
// connection is closed on all paths and the arena is rezeroed for reuse.
func (c *Client) Exchange(ctx context.Context, request []byte) (string, error) {
	defer c.bufs.Reset()

	raw, err := c.dialer.DialContext(ctx, "tcp", c.endpoint.Addr())
	if err != nil {
		c.metrics.ObserveExchange(outcomeConnect)
		return "", fmt.Errorf("connect %s: %w: %w", c.endpoint.Addr(), ErrConnectFailed, err)
	}
	defer raw.Close()

	bc := newBufferedConn(raw, c.bufs.sockRead, c.bufs.sockWrite)
	tconn := tls.Client(bc, c.tlsConfig())

	if err := tconn.HandshakeContext(ctx); err != nil {
		c.metrics.ObserveExchange(outcomeHandshake)
		return "", fmt.Errorf("handshake with %s: %w: %w", c.endpoint.ServerName, ErrHandshakeFailed, err)
	}
	c.logger.Debug("tls session established",
		slog.String("server_name", c.endpoint.ServerName),
		slog.Uint64("cipher_suite", uint64(tconn.ConnectionState().CipherSuite)),
	)

	if err := c.writeRequest(tconn, request); err != nil {
		return "", err
	}
	if err := bc.Flush(); err != nil {
		c.metrics.ObserveExchange(outcomeFlush)
		return "", fmt.Errorf("flush request: %w: %w", ErrFlushFailed, err)
	}

	// Exactly one read. The response may be longer than one record or
	// longer than the response buffer; whatever this read does not
	// deliver is never fetched.
	n, err := tconn.Read(c.bufs.tlsRead)
	if n == 0 {
		c.metrics.ObserveExchange(outcomeRead)
		return "", fmt.Errorf("read response: %w: %w", ErrReadFailed, err)
	}

	stored := c.resp.Fill(c.bufs.tlsRead[:n])
	c.metrics.AddResponseBytes(stored)
	if stored < n {
		c.logger.Debug("response truncated to buffer capacity",
			slog.Int("received", n),
			slog.Int("stored", stored),
		)
	}

	if !utf8.Valid(c.resp.Bytes()) {
		c.metrics.ObserveExchange(outcomeDecode)
		return "", fmt.Errorf("decode %d response bytes: %w", stored, ErrInvalidText)
	}

	c.metrics.ObserveExchange(outcomeOK)
	return string(c.resp.Bytes()), nil
}

// writeRequest stages the request in the TLS write region and writes it
// in full through the TLS session.
func (c *Client) writeRequest(tconn *tls.Conn, request []byte) error {
	if len(request) > len(c.bufs.tlsWrite) {
		c.metrics.ObserveExchange(outcomeWrite)
		return fmt.Errorf("request of %d bytes exceeds %d byte write region: %w",
			len(request), len(c.bufs.tlsWrite), ErrWriteFailed)
	}

	staged := c.bufs.tlsWrite[:copy(c.bufs.tlsWrite, request)]
	if _, err := tconn.Write(staged); err != nil {
		c.metrics.ObserveExchange(outcomeWrite)
		return fmt.Errorf("write request: %w: %w", ErrWriteFailed, err)
	}
	return nil
}

// tlsConfig builds the session's TLS configuration: the endpoint's server
// name as SNI, the configured random source, and AES-128-GCM-SHA256
// pinned for pre-1.3 negotiation (1.3 suites are fixed by the runtime and
// already prefer the same cipher).
func (c *Client) tlsConfig() *tls.Config {
	cfg := &tls.Config{
		ServerName: c.endpoint.ServerName,
		Rand:       c.random,
		MinVersion: tls.VersionTLS12,
		CipherSuites: []uint16{
			tls.TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256,
			tls.TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256,
		},
	}
	if c.policy == VerifyNone {
		cfg.InsecureSkipVerify = true
	}
	return cfg
}
