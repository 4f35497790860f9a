//go:build !linux

package netstack

import "syscall"

// bindToDeviceControl is a no-op off Linux: SO_BINDTODEVICE does not
// exist, so connections follow the routing table.
func bindToDeviceControl(_ string) func(network, address string, c syscall.RawConn) error {
	return nil
}
