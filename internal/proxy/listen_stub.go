//go:build !unix

package proxy

import "syscall"

func reuseAddrControl(network, address string, c syscall.RawConn) error {
	return nil
}
