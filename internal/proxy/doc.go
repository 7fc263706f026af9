package proxy

// Package proxy implements the sockstat SOCKS5 server.
//
// It contains the accept loop, the per-connection session state machine
// (greeting, request, outbound connect, reply), and the bidirectional relay
// that moves payload bytes while keeping directional counters live. Each
// finished session is reported to a sink.Sink exactly once.
