package entropy_test

import (
	"bytes"
	"testing"

	"github.com/CodingInGreen/linkup/internal/entropy"
)

// TestCounterSourceDeterministic verifies that two counter sources started
// from zero produce identical byte streams.
func TestCounterSourceDeterministic(t *testing.T) {
	t.Parallel()

	a := entropy.NewCounterSource()
	b := entropy.NewCounterSource()

	bufA := make([]byte, 64)
	bufB := make([]byte, 64)

	if _, err := a.Read(bufA); err != nil {
		t.Fatalf("Read() error: %v", err)
	}
	if err := b.Fill(bufB); err != nil {
		t.Fatalf("Fill() error: %v", err)
	}

	if !bytes.Equal(bufA, bufB) {
		t.Errorf("counter streams differ:\n a=%x\n b=%x", bufA, bufB)
	}
}

// TestCounterSourceStream verifies the little-endian 4-byte chunk expansion,
// including the tail of a buffer whose length is not a multiple of 4.
func TestCounterSourceStream(t *testing.T) {
	t.Parallel()

	s := entropy.NewCounterSource()

	buf := make([]byte, 6)
	n, err := s.Read(buf)
	if err != nil {
		t.Fatalf("Read() error: %v", err)
	}
	if n != len(buf) {
		t.Fatalf("Read() = %d, want %d", n, len(buf))
	}

	// Counter values 1 and 2, little-endian, truncated to 6 bytes.
	want := []byte{0x01, 0x00, 0x00, 0x00, 0x02, 0x00}
	if !bytes.Equal(buf, want) {
		t.Errorf("stream = %x, want %x", buf, want)
	}

	// The stream continues where it left off.
	buf2 := make([]byte, 4)
	if _, err := s.Read(buf2); err != nil {
		t.Fatalf("Read() error: %v", err)
	}
	want2 := []byte{0x03, 0x00, 0x00, 0x00}
	if !bytes.Equal(buf2, want2) {
		t.Errorf("continued stream = %x, want %x", buf2, want2)
	}
}

// TestDeviceSourceFill verifies the device source fills buffers without error.
func TestDeviceSourceFill(t *testing.T) {
	t.Parallel()

	var s entropy.DeviceSource

	buf := make([]byte, 32)
	if err := s.Fill(buf); err != nil {
		t.Fatalf("Fill() error: %v", err)
	}
	if bytes.Equal(buf, make([]byte, 32)) {
		t.Error("Fill() left buffer all zero")
	}
}
