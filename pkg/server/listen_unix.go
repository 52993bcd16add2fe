//go:build unix

package server

import (
	"syscall"

	"golang.org/x/sys/unix"
)

type control func(network, address string, c syscall.RawConn) error

// reuseAddr lets a restarted server bind the well-known port right away.
func reuseAddr() control {
	return func(network, address string, c syscall.RawConn) error {
		var opErr error

		err := c.Control(func(fd uintptr) {
			opErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1)
		})
		if err != nil {
			return err
		}

		return opErr
	}
}
