package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/sockstat/sockstat/internal/config"
	"github.com/sockstat/sockstat/internal/dialer"
	"github.com/sockstat/sockstat/internal/proxy"
	"github.com/sockstat/sockstat/internal/sink"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	var (
		listen = pflag.String("listen", "127.0.0.1:1080", "SOCKS5 listen address")

		sinkKind = pflag.String("sink", "log", "Session record sink: log | postgres | none. postgres reads DB_* environment variables")

		dialTimeout        = pflag.Duration("dial-timeout", 10*time.Second, "Timeout for outbound DNS lookup and TCP connect")
		negotiationTimeout = pflag.Duration("negotiation-timeout", 10*time.Second, "Timeout for SOCKS5 negotiation to set up a session")
		ioTimeout          = pflag.Duration("io-timeout", 0, "Overall deadline on the relay phase of each session. 0 disables")
		maxSessions        = pflag.Int("max-sessions", 0, "Maximum concurrent sessions; excess connections are rejected at accept. 0 means unlimited")
		strictAuth         = pflag.Bool("strict-auth", false, "Refuse clients that do not offer the no-auth method instead of selecting it anyway")
		tcpKeepAlive       = pflag.String("tcp-keepalive", "45:45:3", "TCP keepalive: on|off|keepidle:keepintvl:keepcnt")
		verbose            = pflag.Bool("verbose", false, "Enable per-session debug logging")
	)

	pflag.CommandLine.SortFlags = false
	pflag.Parse()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMs
	level := zerolog.InfoLevel
	if *verbose {
		level = zerolog.DebugLevel
	}
	log := zerolog.New(os.Stderr).Level(level).With().Timestamp().Logger()

	ka, err := parseTCPKeepAlive(*tcpKeepAlive)
	if err != nil {
		return fmt.Errorf("invalid --tcp-keepalive: %w", err)
	}

	g, ctx := errgroup.WithContext(context.Background())

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	var recSink sink.Sink
	switch *sinkKind {
	case "log":
		recSink = sink.NewLog(log)
	case "none":
		recSink = sink.NewNop()
	case "postgres":
		db, err := config.LoadDB()
		if err != nil {
			return err
		}
		pg, err := sink.NewPostgres(ctx, db.DSN())
		if err != nil {
			return fmt.Errorf("postgres sink: %w", err)
		}
		defer pg.Close()
		recSink = pg
	default:
		return fmt.Errorf("invalid --sink: %q", *sinkKind)
	}

	cfg := proxy.Config{
		NegotiationTimeout: *negotiationTimeout,
		IOTimeout:          *ioTimeout,
		MaxSessions:        *maxSessions,
		StrictAuth:         *strictAuth,
		KeepAlive:          ka,
		Dialer: dialer.NewDirectDialer(dialer.Config{
			DialTimeout: *dialTimeout,
			KeepAlive:   ka,
		}),
		Sink:   recSink,
		Logger: log,
	}

	ln, err := proxy.ListenTCP("tcp", *listen, ka)
	if err != nil {
		return fmt.Errorf("socks5 listen: %w", err)
	}

	// Shutdown stops the accept loop; in-flight sessions run to
	// completion on their own connections.
	context.AfterFunc(ctx, func() {
		_ = ln.Close()
	})

	srv := proxy.NewServer(cfg)
	g.Go(func() error {
		if err := srv.Serve(ln); err != nil {
			return fmt.Errorf("socks5 serve: %w", err)
		}
		return nil
	})
	log.Info().Str("addr", *listen).Msg("socks5 proxy listening")

	err = g.Wait()
	log.Info().Msg("shutting down")
	return err
}

func parseTCPKeepAlive(s string) (net.KeepAliveConfig, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		return net.KeepAliveConfig{}, errors.New("empty")
	}
	if s == "on" {
		return net.KeepAliveConfig{Enable: true}, nil
	}
	if s == "off" {
		return net.KeepAliveConfig{Enable: false}, nil
	}

	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return net.KeepAliveConfig{}, errors.New("expected on|off|keepidle:keepintvl:keepcnt")
	}
	keepIdle, err := parsePositiveSeconds(parts[0])
	if err != nil {
		return net.KeepAliveConfig{}, fmt.Errorf("keepidle: %w", err)
	}
	keepIntvl, err := parsePositiveSeconds(parts[1])
	if err != nil {
		return net.KeepAliveConfig{}, fmt.Errorf("keepintvl: %w", err)
	}
	keepCnt, err := parsePositiveInt(parts[2])
	if err != nil {
		return net.KeepAliveConfig{}, fmt.Errorf("keepcnt: %w", err)
	}

	return net.KeepAliveConfig{
		Enable:   true,
		Idle:     keepIdle,
		Interval: keepIntvl,
		Count:    keepCnt,
	}, nil
}

func parsePositiveSeconds(s string) (time.Duration, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, errors.New("must be > 0")
	}
	return time.Duration(n) * time.Second, nil
}

func parsePositiveInt(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, errors.New("must be > 0")
	}
	return n, nil
}
