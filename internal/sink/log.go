package sink

import (
	"context"

	"github.com/rs/zerolog"
)

type logSink struct {
	log zerolog.Logger
}

// NewLog returns a Sink that writes each record as a structured log event.
// This is the default sink when no database is configured.
func NewLog(log zerolog.Logger) Sink {
	return &logSink{log: log}
}

func (s *logSink) Start(_ context.Context, rec StartRecord) error {
	s.log.Info().
		Str("session_id", rec.SessionID).
		Str("client", rec.ClientAddress).
		Str("destination", rec.DestinationAddress).
		Uint16("port", rec.DestinationPort).
		Msg("session start")
	return nil
}

func (s *logSink) End(_ context.Context, rec EndRecord) error {
	ev := s.log.Info().
		Str("session_id", rec.SessionID).
		Int64("bytes_sent", rec.BytesSent).
		Int64("bytes_received", rec.BytesReceived).
		Str("status", string(rec.Status))
	if rec.ErrorMessage != "" {
		ev = ev.Str("error", rec.ErrorMessage)
	}
	ev.Msg("session end")
	return nil
}
