package server

import (
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/Wa4h1h/go-tftpd/pkg/types"
	"github.com/Wa4h1h/go-tftpd/pkg/utils"
)

type verdict uint8

const (
	pending verdict = iota
	accepted
)

// acceptFunc judges a packet received from the peer while a unit is in
// flight. A pending verdict keeps waiting within the current timeout.
type acceptFunc func(p types.Packet) (verdict, error)

var errTimeout = errors.New("timeout")

// exchange delivers one unit stop-and-wait: it sends unit, waits for a
// packet the accept func takes, and re-sends the same unit on every timeout
// until MaxRetries re-sends are used up.
func (s *Session) exchange(unit []byte, accept acceptFunc) error {
	for attempt := 0; attempt <= s.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			s.stats.Retransmissions++
			s.l.Warnf("timed out waiting for peer, retransmitting (%d/%d)", attempt, s.cfg.MaxRetries)
		}

		if err := s.write(unit); err != nil {
			return err
		}

		done, err := s.await(time.Now().Add(s.cfg.Timeout), accept)
		if err != nil {
			return err
		}

		if done {
			return nil
		}
	}

	return &TransferError{
		Code:   types.ErrNotDefined,
		Msg:    "transfer timed out",
		Err:    utils.ErrTransferTimedOut,
		Notify: true,
	}
}

// await reads packets until one is accepted or the deadline passes.
func (s *Session) await(deadline time.Time, accept acceptFunc) (bool, error) {
	for {
		p, err := s.read(deadline)
		if err != nil {
			if errors.Is(err, errTimeout) {
				return false, nil
			}

			return false, err
		}

		v, err := accept(p)
		if err != nil {
			return false, err
		}

		if v == accepted {
			return true, nil
		}
	}
}

func (s *Session) write(b []byte) error {
	if err := s.conn.SetWriteDeadline(time.Now().Add(s.cfg.Timeout)); err != nil {
		return &TransferError{
			Code: types.ErrNotDefined,
			Msg:  "server internal error",
			Err:  fmt.Errorf("%w: %w", utils.ErrCanNotSetWriteTimeout, err),
		}
	}

	if _, err := s.conn.WriteTo(b, s.peer); err != nil {
		return &TransferError{
			Code: types.ErrNotDefined,
			Msg:  "server internal error",
			Err:  fmt.Errorf("%w: %w", utils.ErrPacketCanNotBeSent, err),
		}
	}

	return nil
}

// read returns the next packet from the peer. Error packets from the peer
// and datagrams from any other address end the transfer.
func (s *Session) read(deadline time.Time) (types.Packet, error) {
	if err := s.conn.SetReadDeadline(deadline); err != nil {
		return nil, &TransferError{
			Code:   types.ErrNotDefined,
			Msg:    "server internal error",
			Err:    fmt.Errorf("%w: %w", utils.ErrCanNotSetReadTimeout, err),
			Notify: true,
		}
	}

	n, addr, err := s.conn.ReadFrom(s.buf)
	if err != nil {
		if errors.Is(err, os.ErrDeadlineExceeded) {
			return nil, errTimeout
		}

		return nil, &TransferError{
			Code:   types.ErrNotDefined,
			Msg:    "server internal error",
			Err:    fmt.Errorf("error while reading from peer: %w", err),
			Notify: true,
		}
	}

	if !sameTID(addr, s.peer) {
		return nil, s.strayDatagram(addr)
	}

	p, err := types.Decode(s.buf[:n])
	if err != nil {
		return nil, &TransferError{
			Code:   types.ErrIllegalTftpOp,
			Msg:    "invalid packet format",
			Err:    err,
			Notify: true,
		}
	}

	if pe, ok := p.(*types.Error); ok {
		s.l.Errorf("peer reported error %d: %s", pe.ErrorCode, pe.ErrMsg)

		return nil, &TransferError{
			Code: pe.ErrorCode,
			Msg:  pe.ErrMsg,
			Err:  utils.ErrPeerReportedError,
		}
	}

	return p, nil
}

func (s *Session) strayDatagram(addr net.Addr) error {
	s.l.Errorf("datagram from unknown transfer id %s", addr)

	if err := sendErrorPacket(s.conn, addr, types.NewError(types.ErrUnknownTransferId, ""), s.cfg.Timeout); err != nil {
		s.l.Errorf("error while answering unknown transfer id: %s", err.Error())
	}

	return &TransferError{
		Code:   types.ErrUnknownTransferId,
		Msg:    types.ErrUnknownTransferId.Message(),
		Err:    fmt.Errorf("%w: %s", utils.ErrUnknownTransferID, addr),
		Notify: true,
	}
}

func unexpected(p types.Packet) error {
	return &TransferError{
		Code:   types.ErrIllegalTftpOp,
		Msg:    fmt.Sprintf("unexpected %s packet", p.OpCode()),
		Err:    utils.ErrUnexpectedPacket,
		Notify: true,
	}
}
