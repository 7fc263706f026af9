package dialer

// Package dialer establishes the outbound side of each session.
//
// All destinations are dialed directly; there is no upstream chaining.
// Domain destinations are resolved to IPv4 through the system resolver, with
// a short TTL cache in front of it so bursts of connections to the same name
// don't hammer DNS.
