package session

import (
	"errors"
	"fmt"
)

// ErrInvalidResponseCapacity indicates a response buffer sized below one byte.
var ErrInvalidResponseCapacity = errors.New("response buffer capacity must be >= 1")

// ResponseBuffer is a fixed-capacity region holding the bytes of the
// single response read. Bytes beyond the capacity are never stored:
// filling truncates silently rather than failing.
type ResponseBuffer struct {
	buf []byte
	n   int
}

// NewResponseBuffer allocates a response buffer of the given capacity.
func NewResponseBuffer(capacity int) (*ResponseBuffer, error) {
	if capacity < 1 {
		return nil, fmt.Errorf("%w (got %d)", ErrInvalidResponseCapacity, capacity)
	}
	return &ResponseBuffer{buf: make([]byte, capacity)}, nil
}

// Fill copies p into the buffer, truncating at capacity, and returns the
// number of bytes stored.
func (r *ResponseBuffer) Fill(p []byte) int {
	r.n = copy(r.buf, p)
	return r.n
}

// Bytes returns the stored response bytes. The slice aliases the buffer;
// it is valid until the next Fill or Reset.
func (r *ResponseBuffer) Bytes() []byte {
	return r.buf[:r.n]
}

// Len returns the number of bytes stored by the last Fill.
func (r *ResponseBuffer) Len() int { return r.n }

// Cap returns the buffer capacity.
func (r *ResponseBuffer) Cap() int { return len(r.buf) }

// Reset discards the stored bytes and rezeroes the region.
func (r *ResponseBuffer) Reset() {
	clear(r.buf)
	r.n = 0
}
