// Package wifi drives bounded-retry wireless association.
//
// This includes the association FSM, the retry manager, and the
// wpa_supplicant D-Bus controller backend.
package wifi
