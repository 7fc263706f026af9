package proxy

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

const relayBufferSize = 4096

// Relay pumps bytes between client and dest until either side reaches EOF or
// an I/O error occurs. sent counts client-to-destination bytes, received the
// reverse; both are updated as each chunk lands so they can be observed
// mid-flight. Both sockets are closed before Relay returns. A nil return
// means orderly shutdown; a non-nil return describes the first real failure,
// with whatever was copied so far already reflected in the counters.
func Relay(ctx context.Context, client, dest net.Conn, sent, received *atomic.Int64, ioTimeout time.Duration) error {
	if ioTimeout > 0 {
		dl := time.Now().Add(ioTimeout)
		_ = client.SetDeadline(dl)
		_ = dest.SetDeadline(dl)
	}

	var closeOnce sync.Once
	closeBoth := func() {
		closeOnce.Do(func() {
			_ = client.Close()
			_ = dest.Close()
		})
	}
	defer closeBoth()

	// Unblock both pumps if the caller's context goes away.
	stop := context.AfterFunc(ctx, closeBoth)
	defer stop()

	var g errgroup.Group

	g.Go(func() error {
		err := pump(dest, client, sent)
		// One direction finishing ends the relay; tear down so the
		// other pump's blocked Read returns.
		closeBoth()
		if err != nil {
			return fmt.Errorf("client->destination: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		err := pump(client, dest, received)
		closeBoth()
		if err != nil {
			return fmt.Errorf("destination->client: %w", err)
		}
		return nil
	})

	return g.Wait()
}

// pump copies src to dst in relayBufferSize chunks, adding each successfully
// written chunk to count. EOF is an orderly end, as is net.ErrClosed: the
// latter only happens once the peer pump has finished and torn the pair
// down, and any real failure is reported by whichever pump hit it first.
// isClosed matches the errors a conn returns once its own end has been
// closed; net.Pipe reports io.ErrClosedPipe where TCP reports net.ErrClosed.
func isClosed(err error) bool {
	return errors.Is(err, net.ErrClosed) || errors.Is(err, io.ErrClosedPipe)
}

func pump(dst io.Writer, src io.Reader, count *atomic.Int64) error {
	buf := make([]byte, relayBufferSize)
	for {
		n, err := src.Read(buf)
		if n > 0 {
			nw, werr := dst.Write(buf[:n])
			count.Add(int64(nw))
			if werr != nil {
				if isClosed(werr) {
					return nil
				}
				return fmt.Errorf("write: %w", werr)
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) || isClosed(err) {
				return nil
			}
			return fmt.Errorf("read: %w", err)
		}
	}
}
