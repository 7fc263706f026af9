package proxy

import (
	"bufio"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"github.com/sockstat/sockstat/internal/dialer"
	"github.com/sockstat/sockstat/internal/sink"
	"github.com/sockstat/sockstat/internal/socks5"
)

// Server accepts SOCKS5 clients and runs one session per connection.
type Server struct {
	cfg Config
	log zerolog.Logger
	sem *semaphore.Weighted
}

func NewServer(cfg Config) *Server {
	if cfg.Dialer == nil {
		cfg.Dialer = dialer.NewDirectDialer(dialer.Config{})
	}
	if cfg.Sink == nil {
		cfg.Sink = sink.NewNop()
	}

	s := &Server{cfg: cfg, log: cfg.Logger}
	if cfg.MaxSessions > 0 {
		s.sem = semaphore.NewWeighted(int64(cfg.MaxSessions))
	}
	return s
}

// Serve accepts connections until the listener is closed. Accept errors
// other than listener shutdown are logged and the loop continues.
func (s *Server) Serve(ln net.Listener) error {
	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			s.log.Warn().Err(err).Msg("accept failed")
			continue
		}

		if s.sem != nil && !s.sem.TryAcquire(1) {
			s.log.Warn().Str("client", conn.RemoteAddr().String()).Msg("session limit reached, rejecting")
			_ = conn.Close()
			continue
		}

		go func() {
			if s.sem != nil {
				defer s.sem.Release(1)
			}
			s.handleConn(conn)
		}()
	}
}

// handleConn drives one session through greeting, request, outbound connect,
// relay, and finalization. Sessions run to completion even during server
// shutdown, so everything below uses its own background context.
func (s *Server) handleConn(conn net.Conn) {
	defer conn.Close()

	sess := newSession(conn.RemoteAddr().String())
	log := s.log.With().Str("session_id", sess.ID()).Str("client", sess.ClientAddr()).Logger()

	if s.cfg.NegotiationTimeout > 0 {
		_ = conn.SetDeadline(time.Now().Add(s.cfg.NegotiationTimeout))
	}

	br := bufio.NewReader(conn)

	if err := s.negotiate(br, conn); err != nil {
		sess.finalize(sink.StatusError, err.Error())
		log.Debug().Err(err).Msg("negotiation failed")
		return
	}

	host, port, err := s.readRequest(br, conn)
	if err != nil {
		sess.finalize(sink.StatusError, err.Error())
		log.Debug().Err(err).Msg("request failed")
		return
	}
	sess.setDestination(host, port)

	ctx := context.Background()
	dest, err := s.cfg.Dialer.DialContext(ctx, "tcp", net.JoinHostPort(host, strconv.Itoa(int(port))))
	if err != nil {
		_ = socks5.WriteReply(conn, socks5.RepGeneralFailure)
		sess.finalize(sink.StatusError, err.Error())
		log.Debug().Err(err).Msg("destination connect failed")
		return
	}

	if err := socks5.WriteReply(conn, socks5.RepSuccess); err != nil {
		_ = dest.Close()
		sess.finalize(sink.StatusError, err.Error())
		return
	}

	// Handshake done; the relay phase runs on its own deadline.
	_ = conn.SetDeadline(time.Time{})

	sess.beginRelay()
	if err := s.cfg.Sink.Start(ctx, sess.startRecord()); err != nil {
		log.Warn().Err(err).Msg("sink start failed")
	}
	log.Info().Str("destination", host).Uint16("port", port).Msg("relaying")

	relayErr := flushPipelined(br, dest, &sess.bytesSent)
	if relayErr == nil {
		relayErr = Relay(ctx, conn, dest, &sess.bytesSent, &sess.bytesReceived, s.cfg.IOTimeout)
	} else {
		_ = dest.Close()
	}

	if relayErr != nil {
		sess.finalize(sink.StatusError, relayErr.Error())
	} else {
		sess.finalize(sink.StatusClosed, "")
	}

	if err := s.cfg.Sink.End(ctx, sess.endRecord()); err != nil {
		log.Warn().Err(err).Msg("sink end failed")
	}
	log.Info().
		Int64("bytes_sent", sess.BytesSent()).
		Int64("bytes_received", sess.BytesReceived()).
		Str("status", string(sess.Status())).
		Msg("session finished")
}

// flushPipelined forwards any bytes the client sent ahead of the reply.
// The handshake reads through br while the relay reads the raw conn, so
// anything br buffered past the request would otherwise be stranded.
func flushPipelined(br *bufio.Reader, dest net.Conn, sent *atomic.Int64) error {
	n := br.Buffered()
	if n == 0 {
		return nil
	}

	b, err := br.Peek(n)
	if err != nil {
		return fmt.Errorf("client->destination: buffered read: %w", err)
	}
	nw, werr := dest.Write(b)
	sent.Add(int64(nw))
	if _, err := br.Discard(nw); err != nil {
		return fmt.Errorf("client->destination: buffered discard: %w", err)
	}
	if werr != nil {
		return fmt.Errorf("client->destination: write: %w", werr)
	}
	return nil
}

// negotiate handles the greeting. A wrong version closes the connection with
// nothing written. By default no-auth is selected no matter which methods
// the client offered; StrictAuth instead answers "no acceptable methods"
// when no-auth wasn't among them.
func (s *Server) negotiate(br *bufio.Reader, conn net.Conn) error {
	ver, err := br.ReadByte()
	if err != nil {
		return fmt.Errorf("read greeting: %w", err)
	}
	if ver != socks5.Version {
		return fmt.Errorf("unsupported socks version %d", ver)
	}

	nMethods, err := br.ReadByte()
	if err != nil {
		return fmt.Errorf("read method count: %w", err)
	}
	methods := make([]byte, int(nMethods))
	if _, err := io.ReadFull(br, methods); err != nil {
		return fmt.Errorf("read methods: %w", err)
	}

	if s.cfg.StrictAuth && !containsMethod(methods, socks5.MethodNone) {
		_, _ = conn.Write([]byte{socks5.Version, socks5.MethodNoAcceptable})
		return errors.New("client did not offer no-auth")
	}

	if _, err := conn.Write([]byte{socks5.Version, socks5.MethodNone}); err != nil {
		return fmt.Errorf("write method selection: %w", err)
	}
	return nil
}

// readRequest parses the CONNECT request and returns the destination host
// (IPv4 literal or domain name) and port. Unsupported commands and address
// types get their reply code before the error return.
func (s *Server) readRequest(br *bufio.Reader, conn net.Conn) (string, uint16, error) {
	hdr := make([]byte, 4)
	if _, err := io.ReadFull(br, hdr); err != nil {
		return "", 0, fmt.Errorf("read request header: %w", err)
	}

	ver, cmd, atyp := hdr[0], hdr[1], hdr[3]
	if ver != socks5.Version || cmd != socks5.CmdConnect {
		_ = socks5.WriteReply(conn, socks5.RepCommandNotSupported)
		return "", 0, fmt.Errorf("unsupported version %d or command %d", ver, cmd)
	}

	var host string
	switch atyp {
	case socks5.ATYPIPv4:
		b := make([]byte, 4)
		if _, err := io.ReadFull(br, b); err != nil {
			return "", 0, fmt.Errorf("read ipv4 address: %w", err)
		}
		host = net.IP(b).String()
	case socks5.ATYPDomain:
		n, err := br.ReadByte()
		if err != nil {
			return "", 0, fmt.Errorf("read domain length: %w", err)
		}
		b := make([]byte, int(n))
		if _, err := io.ReadFull(br, b); err != nil {
			return "", 0, fmt.Errorf("read domain: %w", err)
		}
		host = string(b)
	default:
		_ = socks5.WriteReply(conn, socks5.RepAddressNotSupported)
		return "", 0, fmt.Errorf("unsupported address type %d", atyp)
	}

	portBytes := make([]byte, 2)
	if _, err := io.ReadFull(br, portBytes); err != nil {
		return "", 0, fmt.Errorf("read port: %w", err)
	}

	return host, binary.BigEndian.Uint16(portBytes), nil
}

func containsMethod(methods []byte, want byte) bool {
	for _, m := range methods {
		if m == want {
			return true
		}
	}
	return false
}
