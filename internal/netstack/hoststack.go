package netstack

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/netip"
	"time"
)

// pumpPoll is how often the host stack's Run task re-checks that the
// interface is still present and up.
const pumpPoll = time.Second

// HostStack adapts the operating system's network stack, scoped to one
// interface, to the Stack interface.
//
// The kernel moves the packets; the Run pump reduces to a watchdog that
// detects the interface disappearing out from under the process.
type HostStack struct {
	ifname string
	logger *slog.Logger
}

// NewHostStack creates a host stack view of the named interface.
func NewHostStack(ifname string, logger *slog.Logger) *HostStack {
	return &HostStack{
		ifname: ifname,
		logger: logger.With(
			slog.String("component", "netstack.host"),
			slog.String("interface", ifname),
		),
	}
}

// LinkState inspects the interface flags and addresses.
func (s *HostStack) LinkState() LinkState {
	ifi, err := net.InterfaceByName(s.ifname)
	if err != nil || ifi.Flags&net.FlagUp == 0 {
		return LinkDown
	}
	if _, ok := s.Address(); ok {
		return LinkUp
	}
	return LinkAcquiring
}

// Address returns the interface's first global unicast address,
// preferring IPv4.
func (s *HostStack) Address() (netip.Addr, bool) {
	ifi, err := net.InterfaceByName(s.ifname)
	if err != nil {
		return netip.Addr{}, false
	}
	addrs, err := ifi.Addrs()
	if err != nil {
		return netip.Addr{}, false
	}

	var v6 netip.Addr
	for _, a := range addrs {
		ipnet, ok := a.(*net.IPNet)
		if !ok {
			continue
		}
		addr, ok := netip.AddrFromSlice(ipnet.IP)
		if !ok {
			continue
		}
		addr = addr.Unmap()
		if !addr.IsGlobalUnicast() {
			continue
		}
		if addr.Is4() {
			return addr, true
		}
		if !v6.IsValid() {
			v6 = addr
		}
	}
	if v6.IsValid() {
		return v6, true
	}
	return netip.Addr{}, false
}

// DialContext opens a TCP connection bound to the stack's interface, so
// traffic cannot leak out over another uplink.
func (s *HostStack) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	d := net.Dialer{
		Control: bindToDeviceControl(s.ifname),
	}
	conn, err := d.DialContext(ctx, network, address)
	if err != nil {
		return nil, fmt.Errorf("dial %s via %s: %w", address, s.ifname, err)
	}
	return conn, nil
}

// Run is the perpetual pump task. The kernel forwards packets on its own;
// Run watches that the interface keeps existing and stays up, and returns
// an error when it vanishes -- at that point no further packets will flow
// and the process must treat the run as failed.
func (s *HostStack) Run(ctx context.Context) error {
	ticker := time.NewTicker(pumpPoll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := net.InterfaceByName(s.ifname); err != nil {
				return fmt.Errorf("interface %s lost: %w", s.ifname, err)
			}
		}
	}
}
