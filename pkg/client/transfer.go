package client

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/Wa4h1h/go-tftpd/pkg/types"
	"github.com/Wa4h1h/go-tftpd/pkg/utils"
	"go.uber.org/zap"
)

// transfer is the client end of one transfer. The server answers from a new
// port; the first reply from the server's host fixes peer.
type transfer struct {
	conn    net.PacketConn
	server  *net.UDPAddr
	peer    *net.UDPAddr
	timeout time.Duration
	tries   int
	l       *zap.SugaredLogger
	buf     []byte
}

func (t *transfer) close() {
	if err := t.conn.Close(); err != nil {
		t.l.Errorf("error while closing transfer socket: %s", err.Error())
	}
}

func (t *transfer) dest() net.Addr {
	if t.peer != nil {
		return t.peer
	}

	return t.server
}

func (t *transfer) send(b []byte) error {
	if err := t.conn.SetWriteDeadline(time.Now().Add(t.timeout)); err != nil {
		return fmt.Errorf("%w: %w", utils.ErrCanNotSetWriteTimeout, err)
	}

	if _, err := t.conn.WriteTo(b, t.dest()); err != nil {
		return fmt.Errorf("%w: %w", utils.ErrPacketCanNotBeSent, err)
	}

	return nil
}

// abort tells the server the transfer is over.
func (t *transfer) abort(code types.ErrCode, msg string) {
	b, err := types.NewError(code, msg).MarshalBinary()
	if err != nil {
		return
	}

	if err := t.send(b); err != nil {
		t.l.Errorf("error while sending error packet: %s", err.Error())
	}
}

// exchange sends unit and waits for a packet accept takes, re-sending unit
// on timeout. An error packet from the server is returned as *types.Error.
func (t *transfer) exchange(ctx context.Context, unit []byte, accept func(types.Packet) (bool, error)) error {
	for i := 0; i <= t.tries; i++ {
		if err := ctx.Err(); err != nil {
			t.abort(types.ErrNotDefined, "transfer cancelled")

			return err
		}

		if i > 0 {
			t.l.Debugf("timed out, retransmitting (%d/%d)", i, t.tries)
		}

		if err := t.send(unit); err != nil {
			return err
		}

		deadline := time.Now().Add(t.timeout)
		if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
			deadline = d
		}

		done, err := t.await(deadline, accept)
		if err != nil {
			return err
		}

		if done {
			return nil
		}
	}

	t.abort(types.ErrNotDefined, "transfer timed out")

	return utils.ErrTransferTimedOut
}

func (t *transfer) await(deadline time.Time, accept func(types.Packet) (bool, error)) (bool, error) {
	for {
		if err := t.conn.SetReadDeadline(deadline); err != nil {
			return false, fmt.Errorf("%w: %w", utils.ErrCanNotSetReadTimeout, err)
		}

		n, addr, err := t.conn.ReadFrom(t.buf)
		if err != nil {
			if errors.Is(err, os.ErrDeadlineExceeded) {
				return false, nil
			}

			return false, fmt.Errorf("error while reading from server: %w", err)
		}

		from, ok := addr.(*net.UDPAddr)
		if !ok || !t.fromPeer(from) {
			t.l.Warnf("ignoring datagram from unknown transfer id %s", addr)

			continue
		}

		p, err := types.Decode(t.buf[:n])
		if err != nil {
			t.abort(types.ErrIllegalTftpOp, "invalid packet format")

			return false, err
		}

		if pe, ok := p.(*types.Error); ok {
			return false, pe
		}

		if done, err := accept(p); err != nil || done {
			if err != nil {
				t.abort(types.ErrIllegalTftpOp, "")
			}

			return done, err
		}
	}
}

func (t *transfer) fromPeer(addr *net.UDPAddr) bool {
	if t.peer != nil {
		return t.peer.Port == addr.Port && t.peer.IP.Equal(addr.IP)
	}

	if !sameHost(t.server.IP, addr.IP) {
		return false
	}

	t.peer = addr

	return true
}

// sameHost treats every loopback address as the same host and an unspecified
// server address as any host.
func sameHost(a, b net.IP) bool {
	if a.IsUnspecified() || a.Equal(b) {
		return true
	}

	return a.IsLoopback() && b.IsLoopback()
}
