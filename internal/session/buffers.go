package session

import (
	"errors"
	"fmt"
)

// MinTLSBuffer is the smallest allowed TLS record buffer capacity. A
// negotiated TLS record may carry up to 16 KiB; a smaller staging buffer
// cannot hold a maximum-size record.
const MinTLSBuffer = 16384

// Buffer sizing errors.
var (
	// ErrTLSBufferTooSmall indicates a TLS record buffer below MinTLSBuffer.
	ErrTLSBufferTooSmall = errors.New("tls record buffer below 16 KiB record size")

	// ErrEmptySocketBuffer indicates a socket buffer with zero capacity.
	ErrEmptySocketBuffer = errors.New("socket buffer capacity must be >= 1")
)

// Buffers is the fixed-capacity byte arena a secure session runs in: two
// TLS record staging regions and two raw socket regions. The arena is
// exclusively owned by one Client for the session's duration and is never
// resized; Reset rezeroes it for reuse once the session is over.
//
// The TLS regions must each hold a maximum-size record (MinTLSBuffer).
// The socket regions are sized independently and may be much smaller.
type Buffers struct {
	tlsRead   []byte
	tlsWrite  []byte
	sockRead  []byte
	sockWrite []byte
}

// NewBuffers allocates a session arena with the given capacities.
func NewBuffers(tlsRead, tlsWrite, sockRead, sockWrite int) (*Buffers, error) {
	if tlsRead < MinTLSBuffer || tlsWrite < MinTLSBuffer {
		return nil, fmt.Errorf("%w (got read=%d write=%d)", ErrTLSBufferTooSmall, tlsRead, tlsWrite)
	}
	if sockRead < 1 || sockWrite < 1 {
		return nil, fmt.Errorf("%w (got read=%d write=%d)", ErrEmptySocketBuffer, sockRead, sockWrite)
	}
	return &Buffers{
		tlsRead:   make([]byte, tlsRead),
		tlsWrite:  make([]byte, tlsWrite),
		sockRead:  make([]byte, sockRead),
		sockWrite: make([]byte, sockWrite),
	}, nil
}

// Reset rezeroes every region. Called between sessions so a reused arena
// cannot leak a previous response.
func (b *Buffers) Reset() {
	clear(b.tlsRead)
	clear(b.tlsWrite)
	clear(b.sockRead)
	clear(b.sockWrite)
}
