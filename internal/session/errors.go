package session

import "errors"

// Sentinel errors for the exchange steps. Each maps to exactly one phase
// so a failure report names where the exchange died without extra
// instrumentation.
var (
	// ErrConnectFailed indicates the raw transport connection could not
	// be opened. No handshake is attempted after this.
	ErrConnectFailed = errors.New("transport connect failed")

	// ErrHandshakeFailed indicates TLS negotiation failed.
	ErrHandshakeFailed = errors.New("tls handshake failed")

	// ErrWriteFailed indicates the request could not be written in full.
	ErrWriteFailed = errors.New("transport write failed")

	// ErrFlushFailed indicates buffered request bytes could not be
	// pushed to the wire.
	ErrFlushFailed = errors.New("transport flush failed")

	// ErrReadFailed indicates the single response read produced no bytes.
	ErrReadFailed = errors.New("transport read failed")

	// ErrInvalidText indicates the response bytes are not valid UTF-8.
	ErrInvalidText = errors.New("response is not valid text")
)
