package proxy

import (
	"net"
	"time"

	"github.com/rs/zerolog"

	"github.com/sockstat/sockstat/internal/dialer"
	"github.com/sockstat/sockstat/internal/sink"
)

type Config struct {
	// NegotiationTimeout bounds the handshake and request phases; it is
	// lifted once the relay starts.
	NegotiationTimeout time.Duration

	// IOTimeout, when non-zero, is an overall deadline on the relay phase.
	IOTimeout time.Duration

	// MaxSessions caps concurrent sessions; excess connections are closed
	// at accept. Zero means unlimited.
	MaxSessions int

	// StrictAuth refuses clients that did not offer the no-auth method.
	// The default is to select no-auth regardless of what was offered.
	StrictAuth bool

	KeepAlive net.KeepAliveConfig

	Dialer dialer.Dialer
	Sink   sink.Sink
	Logger zerolog.Logger
}
