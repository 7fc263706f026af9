// sockstat-cli dials a destination through a running sockstat instance and
// pipes stdin/stdout over the relayed connection. Handy for smoke-testing:
//
//	echo -e 'GET / HTTP/1.0\r\n\r\n' | sockstat-cli --proxy 127.0.0.1:1080 example.com:80
package main

import (
	"fmt"
	"io"
	"net"
	"os"
	"time"

	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/sockstat/sockstat/internal/socks5"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	proxyAddr := pflag.String("proxy", "127.0.0.1:1080", "sockstat proxy address")
	timeout := pflag.Duration("timeout", 10*time.Second, "proxy connect timeout")
	pflag.Parse()

	if pflag.NArg() != 1 {
		return fmt.Errorf("usage: %s [flags] host:port", os.Args[0])
	}
	dest := pflag.Arg(0)

	conn, err := net.DialTimeout("tcp", *proxyAddr, *timeout)
	if err != nil {
		return fmt.Errorf("dial proxy: %w", err)
	}
	defer conn.Close()

	if err := socks5.ClientDial(conn, dest); err != nil {
		return fmt.Errorf("socks5 handshake: %w", err)
	}

	var g errgroup.Group
	g.Go(func() error {
		_, err := io.Copy(conn, os.Stdin)
		if cw, ok := conn.(*net.TCPConn); ok {
			_ = cw.CloseWrite()
		}
		return err
	})
	g.Go(func() error {
		_, err := io.Copy(os.Stdout, conn)
		return err
	})

	return g.Wait()
}
