// Package netstack models the device's view of the IP network stack.
//
// This includes the link state query surface, the perpetual stack driver
// task, the address acquisition monitor, and the timing disciplines the
// monitor runs on.
package netstack
