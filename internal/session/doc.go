// Package session implements the single-shot secure exchange: one TCP
// connection, one TLS session layered on it, one request written and
// flushed, one bounded read, one text decode.
//
// The package owns no retry policy. Callers wanting resilience or an
// overall deadline wrap Exchange externally.
package session
