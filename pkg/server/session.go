package server

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net"
	"time"

	"github.com/Wa4h1h/go-tftpd/pkg/types"
	"github.com/Wa4h1h/go-tftpd/pkg/utils"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

type Direction uint8

const (
	Download Direction = iota
	Upload
)

func (d Direction) String() string {
	if d == Upload {
		return "upload"
	}

	return "download"
}

func directionOf(op types.OpCode) Direction {
	if op == types.OpCodeWRQ {
		return Upload
	}

	return Download
}

// Session is one transfer. It exclusively owns its file and its socket and
// releases both on every exit path of Run.
type Session struct {
	peer      net.Addr
	request   types.Request
	mode      types.Mode
	direction Direction

	src   fs.File
	dst   io.WriteCloser
	files FileStore

	cfg  Config
	l    *zap.SugaredLogger
	bind func() (net.PacketConn, error)
	conn net.PacketConn
	buf  []byte

	stats Stats
}

func (s *Session) Peer() net.Addr {
	return s.peer
}

func (s *Session) Filename() string {
	return s.request.Filename
}

func (s *Session) Mode() types.Mode {
	return s.mode
}

func (s *Session) Direction() Direction {
	return s.direction
}

// Stats is only meaningful once Run has returned.
func (s *Session) Stats() Stats {
	return s.stats
}

func (s *Session) String() string {
	return fmt.Sprintf("%s %s from %s", s.request.Opcode, s.request.Filename, s.peer)
}

// Run binds the transfer socket and drives the transfer to completion or
// terminal failure.
func (s *Session) Run() error {
	s.stats.Start = time.Now()

	conn, err := s.bind()
	if err != nil {
		return multierr.Append(err, s.teardown(err))
	}

	s.conn = conn
	s.buf = make([]byte, types.DatagramSize+1)
	s.l = s.l.With("tid", conn.LocalAddr().String())

	switch s.direction {
	case Download:
		err = s.download()
	case Upload:
		err = s.upload()
	}

	if err != nil {
		var te *TransferError

		if errors.As(err, &te) && te.Notify {
			if errS := sendErrorPacket(s.conn, s.peer, te.Packet(), s.cfg.Timeout); errS != nil {
				s.l.Errorf("error while sending error packet: %s", errS.Error())
			}
		}
	}

	return multierr.Append(err, s.teardown(err))
}

// abandon releases a session that will never run.
func (s *Session) abandon() {
	if err := s.teardown(utils.ErrServerClosed); err != nil {
		s.l.Errorf("error while abandoning session: %s", err.Error())
	}
}

func (s *Session) teardown(cause error) error {
	var errs error

	s.stats.End = time.Now()

	if s.src != nil {
		errs = multierr.Append(errs, s.src.Close())
	}

	if s.dst != nil {
		errs = multierr.Append(errs, s.dst.Close())

		if cause != nil {
			if err := s.files.Remove(s.request.Filename); err != nil {
				errs = multierr.Append(errs, err)
			} else {
				s.l.Infof("removed partial upload %s", s.request.Filename)
			}
		}
	}

	if s.conn != nil {
		errs = multierr.Append(errs, s.conn.Close())
	}

	s.report(cause)

	return errs
}

func (s *Session) report(cause error) {
	if cause != nil {
		s.l.Errorf("%s of %s failed: %s", s.direction, s.request.Filename, cause.Error())
	} else {
		s.l.Infof("%s of %s completed", s.direction, s.request.Filename)
	}

	throughput := "unavailable"
	if bps, ok := s.stats.Throughput(); ok {
		throughput = fmt.Sprintf("%.2f bytes/s", bps)
	}

	s.l.Infof("transfer statistics - bytes: %d, blocks: %d, duration: %s, throughput: %s, retransmissions: %d",
		s.stats.Bytes, s.stats.Blocks, s.stats.Duration(), throughput, s.stats.Retransmissions)
}
