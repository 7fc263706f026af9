package sink

// Package sink defines where finished session records go.
//
// The proxy emits exactly one Start and one End record per session that
// reaches the relay phase. Sinks must be safe for concurrent use from many
// sessions; a failing sink never changes the outcome of the session that
// called it, the proxy just logs the failure and moves on.
//
// Three implementations ship here: a zerolog-backed sink for plain log
// output, a Postgres sink matching the proxy_logs analytics table, and an
// in-memory sink used by tests.
