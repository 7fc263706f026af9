package dialer

import (
	"net"
	"time"
)

type Config struct {
	DialTimeout time.Duration
	KeepAlive   net.KeepAliveConfig

	// ResolveTTL bounds how long a cached domain lookup is reused.
	// Zero means the one-minute default.
	ResolveTTL time.Duration
}
