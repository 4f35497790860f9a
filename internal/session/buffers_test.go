package session_test

import (
	"errors"
	"testing"

	"github.com/CodingInGreen/linkup/internal/session"
)

// TestNewBuffersValidation verifies the sizing rules for the session
// arena: both TLS regions must hold a full record, both socket regions
// must be non-empty.
func TestNewBuffersValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		tlsRead   int
		tlsWrite  int
		sockRead  int
		sockWrite int
		wantErr   error
	}{
		{
			name:    "minimum sizes accepted",
			tlsRead: session.MinTLSBuffer, tlsWrite: session.MinTLSBuffer,
			sockRead: 1, sockWrite: 1,
		},
		{
			name:    "generous sizes accepted",
			tlsRead: 32768, tlsWrite: 20480,
			sockRead: 4096, sockWrite: 4096,
		},
		{
			name:    "tls read region too small",
			tlsRead: session.MinTLSBuffer - 1, tlsWrite: session.MinTLSBuffer,
			sockRead: 1024, sockWrite: 1024,
			wantErr: session.ErrTLSBufferTooSmall,
		},
		{
			name:    "tls write region too small",
			tlsRead: session.MinTLSBuffer, tlsWrite: 0,
			sockRead: 1024, sockWrite: 1024,
			wantErr: session.ErrTLSBufferTooSmall,
		},
		{
			name:    "empty socket read region",
			tlsRead: session.MinTLSBuffer, tlsWrite: session.MinTLSBuffer,
			sockRead: 0, sockWrite: 1024,
			wantErr: session.ErrEmptySocketBuffer,
		},
		{
			name:    "empty socket write region",
			tlsRead: session.MinTLSBuffer, tlsWrite: session.MinTLSBuffer,
			sockRead: 1024, sockWrite: 0,
			wantErr: session.ErrEmptySocketBuffer,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			bufs, err := session.NewBuffers(tt.tlsRead, tt.tlsWrite, tt.sockRead, tt.sockWrite)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("NewBuffers() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("NewBuffers() unexpected error: %v", err)
			}
			if bufs == nil {
				t.Fatal("NewBuffers() returned nil arena without error")
			}
		})
	}
}
