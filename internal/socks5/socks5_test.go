package socks5

import (
	"bytes"
	"fmt"
	"io"
	"net"
	"testing"

	txsocks5 "github.com/txthinking/socks5"
	"golang.org/x/sync/errgroup"
)

func TestWriteReplyLayout(t *testing.T) {
	tests := []struct {
		name string
		rep  byte
	}{
		{name: "success", rep: RepSuccess},
		{name: "general_failure", rep: RepGeneralFailure},
		{name: "command_not_supported", rep: RepCommandNotSupported},
		{name: "address_not_supported", rep: RepAddressNotSupported},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := WriteReply(&buf, tt.rep); err != nil {
				t.Fatal(err)
			}

			want := []byte{Version, tt.rep, 0x00, ATYPIPv4, 0, 0, 0, 0, 0, 0}
			if !bytes.Equal(buf.Bytes(), want) {
				t.Fatalf("expected % x got % x", want, buf.Bytes())
			}
		})
	}
}

func TestClientDialToServer(t *testing.T) {
	clientConn, serverConn := net.Pipe()
	defer clientConn.Close()
	defer serverConn.Close()

	g := errgroup.Group{}
	g.Go(func() error {
		hdr := make([]byte, 2)
		if _, err := io.ReadFull(serverConn, hdr); err != nil {
			return err
		}
		if hdr[0] != Version {
			return fmt.Errorf("unexpected version: %d", hdr[0])
		}
		methods := make([]byte, int(hdr[1]))
		if _, err := io.ReadFull(serverConn, methods); err != nil {
			return err
		}
		if !bytes.Contains(methods, []byte{MethodNone}) {
			return fmt.Errorf("client did not offer no-auth: % x", methods)
		}
		if _, err := serverConn.Write([]byte{Version, MethodNone}); err != nil {
			return err
		}

		req, err := txsocks5.NewRequestFrom(serverConn)
		if err != nil {
			return err
		}
		if req.Cmd != CmdConnect {
			return fmt.Errorf("unexpected command: %d", req.Cmd)
		}
		if req.Address() != "127.0.0.1:80" {
			return fmt.Errorf("unexpected address: %s", req.Address())
		}

		return WriteReply(serverConn, RepSuccess)
	})

	if err := ClientDial(clientConn, "127.0.0.1:80"); err != nil {
		t.Fatal(err)
	}
	if err := g.Wait(); err != nil {
		t.Fatal(err)
	}
}

func TestClientNegotiateRejectsOtherMethods(t *testing.T) {
	clientConn, serverConn := net.Pipe()
	defer clientConn.Close()
	defer serverConn.Close()

	go func() {
		buf := make([]byte, 3)
		_, _ = io.ReadFull(serverConn, buf)
		_, _ = serverConn.Write([]byte{Version, MethodNoAcceptable})
	}()

	if err := ClientNegotiate(clientConn); err == nil {
		t.Fatal("expected error when server refuses no-auth")
	}
}

func TestClientConnectReportsFailureCode(t *testing.T) {
	clientConn, serverConn := net.Pipe()
	defer clientConn.Close()
	defer serverConn.Close()

	go func() {
		if _, err := txsocks5.NewRequestFrom(serverConn); err != nil {
			return
		}
		_ = WriteReply(serverConn, RepGeneralFailure)
	}()

	err := ClientConnect(clientConn, "192.0.2.1:80")
	if err == nil {
		t.Fatal("expected error on failure reply")
	}
}
