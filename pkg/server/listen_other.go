//go:build !unix

package server

import "syscall"

type control func(network, address string, c syscall.RawConn) error

func reuseAddr() control {
	return nil
}
