package socks5

// Package socks5 holds the wire-level SOCKS5 subset sockstat speaks.
//
// The server side is a few constants and a fixed-shape reply writer; the
// request parsing lives with the session state machine in internal/proxy
// where it can control exactly which reply (or none) each malformed input
// gets. The client side wraps github.com/txthinking/socks5's protocol types
// and is used by sockstat-cli and the round-trip tests, which deliberately
// exercise the server through an independent client implementation.
