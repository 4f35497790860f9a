// Package entropy provides the random byte sources used to seed the TLS
// handshake.
//
// Two interchangeable implementations exist: DeviceSource, backed by the
// platform entropy pool, and CounterSource, a deterministic counter-based
// stand-in for controlled debugging. The source is selected once at
// configuration time; the two are never mixed within a run.
package entropy

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"io"
)

// Source produces random bytes for cryptographic use. It is an io.Reader
// so it can be plugged directly into tls.Config.Rand.
type Source interface {
	io.Reader

	// Fill overwrites p completely with random bytes.
	Fill(p []byte) error
}

// -------------------------------------------------------------------------
// DeviceSource — platform entropy pool
// -------------------------------------------------------------------------

// DeviceSource reads from the platform entropy pool (getrandom(2) or
// equivalent). This is the production source.
type DeviceSource struct{}

// Read fills p from the platform entropy pool. It never returns a short
// read without an error.
func (DeviceSource) Read(p []byte) (int, error) {
	return rand.Read(p)
}

// Fill overwrites p completely with platform entropy.
func (s DeviceSource) Fill(p []byte) error {
	if _, err := s.Read(p); err != nil {
		return fmt.Errorf("read device entropy: %w", err)
	}
	return nil
}

// -------------------------------------------------------------------------
// CounterSource — deterministic debug source
// -------------------------------------------------------------------------

// CounterSource generates pseudo-random bytes from an incrementing 32-bit
// counter, expanded little-endian in 4-byte chunks. Output is fully
// deterministic: two CounterSources started from zero produce identical
// streams.
//
// This source provides NO cryptographic security. It exists so that TLS
// handshakes can be reproduced byte-for-byte while debugging.
type CounterSource struct {
	counter uint32
}

// NewCounterSource returns a CounterSource starting at zero.
func NewCounterSource() *CounterSource {
	return &CounterSource{}
}

// Read fills p with the counter stream. It always reads len(p) bytes and
// never fails.
func (s *CounterSource) Read(p []byte) (int, error) {
	var word [4]byte
	for i := 0; i < len(p); i += 4 {
		s.counter++
		binary.LittleEndian.PutUint32(word[:], s.counter)
		copy(p[i:], word[:])
	}
	return len(p), nil
}

// Fill overwrites p completely with the counter stream.
func (s *CounterSource) Fill(p []byte) error {
	_, _ = s.Read(p)
	return nil
}
