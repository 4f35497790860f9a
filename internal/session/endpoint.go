package session

import "net/netip"

// Endpoint identifies the remote peer of a secure session. Immutable once
// constructed.
type Endpoint struct {
	// Host is the remote IP address (IPv4 or IPv6).
	Host netip.Addr

	// Port is the remote TCP port.
	Port uint16

	// ServerName is the hostname announced in the TLS handshake (SNI)
	// and, under VerifySystemRoots, checked against the server
	// certificate.
	ServerName string
}

// Addr returns the host:port dial string.
func (e Endpoint) Addr() string {
	return netip.AddrPortFrom(e.Host, e.Port).String()
}
