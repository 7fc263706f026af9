package socks5

import (
	"io"
)

const (
	Version = 0x05

	MethodNone         = 0x00
	MethodNoAcceptable = 0xff

	CmdConnect = 0x01

	ATYPIPv4   = 0x01
	ATYPDomain = 0x03
	ATYPIPv6   = 0x04
)

// Reply codes as this proxy has always sent them. RepCommandNotSupported is
// 0x05 rather than RFC 1928's 0x07; clients treat both as terminal, and
// changing the value would break consumers that key on the recorded codes.
const (
	RepSuccess             = 0x00
	RepGeneralFailure      = 0x01
	RepCommandNotSupported = 0x05
	RepAddressNotSupported = 0x08
)

// WriteReply writes a 10-byte SOCKS5 reply with the bound address fixed at
// 0.0.0.0:0. The true local endpoint is never reported; see the README note
// on strict clients.
func WriteReply(w io.Writer, rep byte) error {
	_, err := w.Write([]byte{Version, rep, 0x00, ATYPIPv4, 0, 0, 0, 0, 0, 0})
	return err
}
