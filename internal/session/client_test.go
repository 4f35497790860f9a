package session_test

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"errors"
	"io"
	"log/slog"
	"math/big"
	"net"
	"net/netip"
	"testing"
	"time"

	"github.com/CodingInGreen/linkup/internal/session"
)

const testServerName = "linkup.test"

// netDialer dials with the default resolver and no interface binding.
type netDialer struct{}

func (netDialer) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	var d net.Dialer
	return d.DialContext(ctx, network, address)
}

// failingDialer refuses every connection attempt.
type failingDialer struct{ err error }

func (d failingDialer) DialContext(context.Context, string, string) (net.Conn, error) {
	return nil, d.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func selfSignedCert(t *testing.T) tls.Certificate {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: testServerName},
		DNSNames:     []string{testServerName},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	if err != nil {
		t.Fatalf("create certificate: %v", err)
	}
	return tls.Certificate{Certificate: [][]byte{der}, PrivateKey: key}
}

// startTLSServer accepts one connection, reads one request, writes the
// given response, and closes. Cleanup waits for the serving goroutine.
func startTLSServer(t *testing.T, response []byte) session.Endpoint {
	t.Helper()

	ln, err := tls.Listen("tcp", "127.0.0.1:0", &tls.Config{
		Certificates: []tls.Certificate{selfSignedCert(t)},
		MinVersion:   tls.VersionTLS12,
	})
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		buf := make([]byte, 4096)
		if _, err := conn.Read(buf); err != nil {
			return
		}
		conn.Write(response)
	}()
	t.Cleanup(func() {
		ln.Close()
		<-done
	})

	ap := netip.MustParseAddrPort(ln.Addr().String())
	return session.Endpoint{Host: ap.Addr(), Port: ap.Port(), ServerName: testServerName}
}

func newTestBuffers(t *testing.T) *session.Buffers {
	t.Helper()
	bufs, err := session.NewBuffers(session.MinTLSBuffer, session.MinTLSBuffer, 2048, 2048)
	if err != nil {
		t.Fatalf("NewBuffers() unexpected error: %v", err)
	}
	return bufs
}

func newResponse(t *testing.T, capacity int) *session.ResponseBuffer {
	t.Helper()
	rb, err := session.NewResponseBuffer(capacity)
	if err != nil {
		t.Fatalf("NewResponseBuffer() unexpected error: %v", err)
	}
	return rb
}

// TestExchange verifies the full happy path against a real TLS peer on
// loopback: the response text comes back intact and unmodified.
func TestExchange(t *testing.T) {
	t.Parallel()

	// 37 bytes exactly, so a length drift in the read path shows up.
	const want = "HTTP/1.1 200 OK\r\n\r\nlink up, all good!"
	ep := startTLSServer(t, []byte(want))

	client := session.NewClient(
		netDialer{}, ep, newTestBuffers(t), newResponse(t, 1024),
		rand.Reader, session.VerifyNone, discardLogger(),
	)

	got, err := client.Exchange(context.Background(), []byte("GET / HTTP/1.1\r\nHost: linkup.test\r\n\r\n"))
	if err != nil {
		t.Fatalf("Exchange() unexpected error: %v", err)
	}
	if got != want {
		t.Fatalf("Exchange() = %q, want %q", got, want)
	}
}

// TestExchangeTruncatesResponse verifies that a response longer than the
// response buffer is cut at capacity without an error.
func TestExchangeTruncatesResponse(t *testing.T) {
	t.Parallel()

	ep := startTLSServer(t, []byte("0123456789abcdef"))

	client := session.NewClient(
		netDialer{}, ep, newTestBuffers(t), newResponse(t, 8),
		rand.Reader, session.VerifyNone, discardLogger(),
	)

	got, err := client.Exchange(context.Background(), []byte("ping\r\n"))
	if err != nil {
		t.Fatalf("Exchange() unexpected error: %v", err)
	}
	if got != "01234567" {
		t.Fatalf("Exchange() = %q, want %q", got, "01234567")
	}
}

// TestExchangeInvalidText verifies that non-UTF-8 response bytes surface
// as a decode failure rather than a mangled string.
func TestExchangeInvalidText(t *testing.T) {
	t.Parallel()

	ep := startTLSServer(t, []byte{0xff, 0xfe, 0xfd, 0x00})

	client := session.NewClient(
		netDialer{}, ep, newTestBuffers(t), newResponse(t, 64),
		rand.Reader, session.VerifyNone, discardLogger(),
	)

	if _, err := client.Exchange(context.Background(), []byte("ping\r\n")); !errors.Is(err, session.ErrInvalidText) {
		t.Fatalf("Exchange() error = %v, want %v", err, session.ErrInvalidText)
	}
}

// TestExchangeConnectFailure verifies the connect stage wraps dial
// failures and that nothing further is attempted.
func TestExchangeConnectFailure(t *testing.T) {
	t.Parallel()

	dialErr := errors.New("no route to host")
	ep := session.Endpoint{
		Host:       netip.MustParseAddr("192.0.2.1"),
		Port:       443,
		ServerName: testServerName,
	}

	client := session.NewClient(
		failingDialer{err: dialErr}, ep, newTestBuffers(t), newResponse(t, 64),
		rand.Reader, session.VerifyNone, discardLogger(),
	)

	_, err := client.Exchange(context.Background(), []byte("ping\r\n"))
	if !errors.Is(err, session.ErrConnectFailed) {
		t.Fatalf("Exchange() error = %v, want %v", err, session.ErrConnectFailed)
	}
	if !errors.Is(err, dialErr) {
		t.Fatalf("Exchange() error = %v, want wrapped %v", err, dialErr)
	}
}

// TestExchangeHandshakeFailure verifies that a peer speaking plain TCP
// surfaces as a handshake failure.
func TestExchangeHandshakeFailure(t *testing.T) {
	t.Parallel()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	done := make(chan struct{})
	go func() {
		defer close(done)
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		// Garbage instead of a ServerHello.
		conn.Write([]byte("not a tls server\r\n"))
		conn.Close()
	}()
	t.Cleanup(func() {
		ln.Close()
		<-done
	})

	ap := netip.MustParseAddrPort(ln.Addr().String())
	ep := session.Endpoint{Host: ap.Addr(), Port: ap.Port(), ServerName: testServerName}

	client := session.NewClient(
		netDialer{}, ep, newTestBuffers(t), newResponse(t, 64),
		rand.Reader, session.VerifyNone, discardLogger(),
	)

	if _, err := client.Exchange(context.Background(), []byte("ping\r\n")); !errors.Is(err, session.ErrHandshakeFailed) {
		t.Fatalf("Exchange() error = %v, want %v", err, session.ErrHandshakeFailed)
	}
}

// TestExchangeOversizedRequest verifies that a request larger than the
// TLS write region is rejected before touching the wire.
func TestExchangeOversizedRequest(t *testing.T) {
	t.Parallel()

	ep := startTLSServer(t, []byte("unused"))

	client := session.NewClient(
		netDialer{}, ep, newTestBuffers(t), newResponse(t, 64),
		rand.Reader, session.VerifyNone, discardLogger(),
	)

	request := make([]byte, session.MinTLSBuffer+1)
	if _, err := client.Exchange(context.Background(), request); !errors.Is(err, session.ErrWriteFailed) {
		t.Fatalf("Exchange() error = %v, want %v", err, session.ErrWriteFailed)
	}
}
