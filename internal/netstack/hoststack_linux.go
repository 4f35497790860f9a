//go:build linux

package netstack

import (
	"fmt"
	"syscall"

	"golang.org/x/sys/unix"
)

// bindToDeviceControl returns a dialer control function that binds the
// socket to ifname with SO_BINDTODEVICE, pinning the connection to the
// wireless interface regardless of the routing table.
func bindToDeviceControl(ifname string) func(network, address string, c syscall.RawConn) error {
	return func(_, _ string, c syscall.RawConn) error {
		var soErr error
		err := c.Control(func(fd uintptr) {
			soErr = unix.SetsockoptString(int(fd), unix.SOL_SOCKET, unix.SO_BINDTODEVICE, ifname)
		})
		if err != nil {
			return err
		}
		if soErr != nil {
			return fmt.Errorf("bind socket to %s: %w", ifname, soErr)
		}
		return nil
	}
}
