package server

import (
	"net"

	"golang.org/x/net/ipv4"
	"golang.org/x/net/ipv6"
)

// setTOS marks outgoing datagrams of conn with the given traffic class.
func setTOS(conn net.PacketConn, tos int) error {
	if ua, ok := conn.LocalAddr().(*net.UDPAddr); ok && ua.IP.To4() == nil && !ua.IP.IsUnspecified() {
		return ipv6.NewPacketConn(conn).SetTrafficClass(tos)
	}

	if err := ipv4.NewPacketConn(conn).SetTOS(tos); err != nil {
		return ipv6.NewPacketConn(conn).SetTrafficClass(tos)
	}

	return nil
}
