package server

import (
	"fmt"
	"net"
	"time"

	"github.com/Wa4h1h/go-tftpd/pkg/types"
	"github.com/Wa4h1h/go-tftpd/pkg/utils"
)

func notDefinedError() *types.Error {
	return types.NewError(types.ErrNotDefined, "no defined error")
}

// sendErrorPacket writes errorPacket to addr. It sets its own write deadline,
// since the one left on conn by the last exchange may already have passed.
func sendErrorPacket(conn net.PacketConn, addr net.Addr, errorPacket *types.Error, timeout time.Duration) error {
	b, err := errorPacket.MarshalBinary()
	if err != nil {
		return fmt.Errorf("error while marshal error packet: %w", err)
	}

	if err := conn.SetWriteDeadline(time.Now().Add(timeout)); err != nil {
		return fmt.Errorf("%w: %w", utils.ErrCanNotSetWriteTimeout, err)
	}

	if _, err := conn.WriteTo(b, addr); err != nil {
		return fmt.Errorf("error while writing error packet: %w", err)
	}

	return nil
}

// sameTID reports whether a and b are the same ip:port pair.
func sameTID(a, b net.Addr) bool {
	ua, okA := a.(*net.UDPAddr)
	ub, okB := b.(*net.UDPAddr)

	if okA && okB {
		return ua.Port == ub.Port && ua.IP.Equal(ub.IP)
	}

	return a.String() == b.String()
}

// transferHost is the host transfer sockets bind to: the listener's own ip
// when it is bound to one, any address otherwise.
func transferHost(local net.Addr) string {
	ua, ok := local.(*net.UDPAddr)
	if !ok || ua.IP == nil || ua.IP.IsUnspecified() {
		return ""
	}

	return ua.IP.String()
}
