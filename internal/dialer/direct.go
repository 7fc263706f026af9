package dialer

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/patrickmn/go-cache"
)

// Dialer mirrors the net.Dialer interface.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

const defaultResolveTTL = time.Minute

type directDialer struct {
	cfg   Config
	cache *cache.Cache

	// lookup is swappable for tests; it defaults to the system resolver.
	lookup func(ctx context.Context, host string) ([]net.IP, error)
}

func NewDirectDialer(cfg Config) Dialer {
	ttl := cfg.ResolveTTL
	if ttl <= 0 {
		ttl = defaultResolveTTL
	}

	return &directDialer{
		cfg:   cfg,
		cache: cache.New(ttl, 2*ttl),
		lookup: func(ctx context.Context, host string) ([]net.IP, error) {
			return net.DefaultResolver.LookupIP(ctx, "ip4", host)
		},
	}
}

func (d *directDialer) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	host, port, err := net.SplitHostPort(address)
	if err != nil {
		return nil, fmt.Errorf("split address %q: %w", address, err)
	}

	if net.ParseIP(host) == nil {
		resolved, err := d.resolve(ctx, host)
		if err != nil {
			return nil, err
		}
		address = net.JoinHostPort(resolved, port)
	}

	nd := net.Dialer{Timeout: d.cfg.DialTimeout}
	conn, err := nd.DialContext(ctx, network, address)
	if err != nil {
		return nil, fmt.Errorf("dial %s %s: %w", network, address, err)
	}

	if tc, ok := conn.(*net.TCPConn); ok {
		_ = tc.SetKeepAliveConfig(d.cfg.KeepAlive)
	}

	return conn, nil
}

func (d *directDialer) resolve(ctx context.Context, host string) (string, error) {
	if v, ok := d.cache.Get(host); ok {
		return v.(string), nil
	}

	ips, err := d.lookup(ctx, host)
	if err != nil {
		return "", fmt.Errorf("resolve %q: %w", host, err)
	}
	if len(ips) == 0 {
		return "", fmt.Errorf("resolve %q: no addresses", host)
	}

	addr := ips[0].String()
	d.cache.Set(host, addr, cache.DefaultExpiration)
	return addr, nil
}
