package sink

import (
	"context"
)

// Status is the terminal disposition of a session. A session is active from
// the moment the destination connects until it is finalized as closed or
// error; it never leaves a terminal status.
type Status string

const (
	StatusActive Status = "active"
	StatusClosed Status = "closed"
	StatusError  Status = "error"
)

// StartRecord is emitted once per session, after the destination connection
// is established and before any payload byte is relayed.
type StartRecord struct {
	SessionID          string
	ClientAddress      string
	DestinationAddress string
	DestinationPort    uint16
}

// EndRecord is emitted once per session at finalization. Byte counts are the
// exact totals copied in each direction, including partial transfers from
// sessions that ended in error.
type EndRecord struct {
	SessionID     string
	BytesSent     int64
	BytesReceived int64
	Status        Status
	ErrorMessage  string
}

// Sink receives session records. Implementations must tolerate concurrent
// calls from independent sessions.
type Sink interface {
	Start(ctx context.Context, rec StartRecord) error
	End(ctx context.Context, rec EndRecord) error
}

type nopSink struct{}

// NewNop returns a Sink that discards all records.
func NewNop() Sink {
	return nopSink{}
}

func (nopSink) Start(context.Context, StartRecord) error { return nil }
func (nopSink) End(context.Context, EndRecord) error     { return nil }
