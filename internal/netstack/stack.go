package netstack

import (
	"context"
	"net"
	"net/netip"
)

// LinkState is the address assignment state of the network interface.
type LinkState uint8

const (
	// LinkDown indicates the interface is administratively or physically down.
	LinkDown LinkState = iota + 1

	// LinkAcquiring indicates the interface is up but has no usable address yet.
	LinkAcquiring

	// LinkUp indicates the interface holds a usable address.
	LinkUp
)

// String returns the human-readable name of the link state.
func (s LinkState) String() string {
	switch s {
	case LinkDown:
		return "Down"
	case LinkAcquiring:
		return "Acquiring"
	case LinkUp:
		return "Up"
	default:
		return "Unknown"
	}
}

// Stack is the network stack handle shared between the driver task and the
// bring-up flow.
//
// Ownership contract: only the driver task (via Run) mutates internal
// stack state. Every other holder is restricted to the side-effect-free
// queries LinkState and Address, or to creating new transport connections
// with DialContext. No locking is needed under this contract.
type Stack interface {
	// LinkState reports the current address assignment state.
	LinkState() LinkState

	// Address returns the assigned address. ok is false unless
	// LinkState is Up.
	Address() (addr netip.Addr, ok bool)

	// DialContext opens a transport connection through this stack.
	DialContext(ctx context.Context, network, address string) (net.Conn, error)

	// Run pumps the stack's send/receive queues until ctx is cancelled.
	// It blocks for the remainder of the process under normal operation;
	// returning earlier means no further packets will be processed.
	Run(ctx context.Context) error
}
