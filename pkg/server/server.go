package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net"
	"sync"

	"github.com/Wa4h1h/go-tftpd/pkg/types"
	"github.com/Wa4h1h/go-tftpd/pkg/utils"
	"go.uber.org/zap"
)

// FileStore is the file root sessions read from and write to.
type FileStore interface {
	Open(name string) (fs.File, error)
	Create(name string) (io.WriteCloser, error)
	Remove(name string) error
}

type Server struct {
	cfg    Config
	files  FileStore
	logger *zap.SugaredLogger
	conn   net.PacketConn

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

func NewServer(l *zap.SugaredLogger, files FileStore, cfg Config) *Server {
	return &Server{
		logger: l,
		files:  files,
		cfg:    cfg.withDefaults(),
	}
}

// Listen binds the well-known port.
func (s *Server) Listen() error {
	if err := s.cfg.Validate(); err != nil {
		return fmt.Errorf("%w: %w", utils.ErrStartingServer, err)
	}

	l := net.ListenConfig{
		Control: reuseAddr(),
	}

	conn, err := l.ListenPacket(context.Background(), "udp", s.cfg.Addr)
	if err != nil {
		s.logger.Error(err.Error())

		return fmt.Errorf("%w: %w", utils.ErrStartingServer, err)
	}

	s.conn = conn

	return nil
}

func (s *Server) Addr() net.Addr {
	if s.conn == nil {
		return nil
	}

	return s.conn.LocalAddr()
}

// Serve reads requests until the listener is closed. Each accepted request
// runs in its own goroutine on its own socket.
func (s *Server) Serve() error {
	if s.conn == nil {
		return utils.ErrStartingServer
	}

	for {
		datagram := make([]byte, types.DatagramSize)

		n, addr, err := s.conn.ReadFrom(datagram)
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}

			s.logger.Errorf("error while reading request: %s", err.Error())

			continue
		}

		s.handlePacket(addr, datagram[:n])
	}
}

func (s *Server) ListenAndServe() error {
	if err := s.Listen(); err != nil {
		return err
	}

	return s.Serve()
}

// Close stops accepting requests and waits for running sessions to finish.
func (s *Server) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		s.wg.Wait()

		return nil
	}
	s.closed = true
	s.mu.Unlock()

	var err error
	if s.conn != nil {
		if errC := s.conn.Close(); errC != nil {
			err = fmt.Errorf("error while closing connection: %w", errC)
		}
	}

	s.wg.Wait()

	return err
}

func (s *Server) handlePacket(addr net.Addr, datagram []byte) {
	sess, err := s.Accept(datagram, addr)
	if err != nil {
		var rej *RejectionError

		if !errors.As(err, &rej) {
			s.logger.Errorf("error while accepting request from %s: %s", addr, err.Error())

			if err := sendErrorPacket(s.conn, addr, notDefinedError(), s.cfg.Timeout); err != nil {
				s.logger.Errorf("error while responding to request: %s", err.Error())
			}

			return
		}

		if !rej.Reply {
			s.logger.Infof("%s reported error %d: %s", addr, rej.Code, rej.Msg)

			return
		}

		s.logger.Errorf("rejected request from %s: %s", addr, err.Error())

		if err := sendErrorPacket(s.conn, addr, rej.Packet(), s.cfg.Timeout); err != nil {
			s.logger.Errorf("error while responding to request: %s", err.Error())
		}

		return
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		sess.abandon()

		return
	}
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()

		if err := sess.Run(); err != nil {
			s.logger.Errorf("error while serving %s: %s", sess, err.Error())
		}
	}()
}

// Accept validates one datagram received on the well-known port. For a
// RRQ/WRQ whose file passes its precondition it returns a Session owning the
// opened file; no socket is bound until the session runs.
func (s *Server) Accept(raw []byte, peer net.Addr) (*Session, error) {
	p, err := types.Decode(raw)
	if err != nil {
		return nil, &RejectionError{
			Code:  types.ErrIllegalTftpOp,
			Msg:   "invalid packet format",
			Err:   err,
			Reply: true,
		}
	}

	switch pkt := p.(type) {
	case *types.Request:
		return s.newSession(pkt, peer)
	case *types.Data, *types.Ack:
		return nil, &RejectionError{
			Code:  types.ErrUnknownTransferId,
			Msg:   types.ErrUnknownTransferId.Message(),
			Err:   utils.ErrUnknownTransferID,
			Reply: true,
		}
	case *types.Error:
		return nil, &RejectionError{
			Code: pkt.ErrorCode,
			Msg:  pkt.ErrMsg,
			Err:  utils.ErrPeerReportedError,
		}
	default:
		return nil, &RejectionError{
			Code:  types.ErrIllegalTftpOp,
			Msg:   "unsupported operation",
			Err:   utils.ErrUnexpectedPacket,
			Reply: true,
		}
	}
}

func (s *Server) newSession(req *types.Request, peer net.Addr) (*Session, error) {
	l := s.logger.With("peer", peer.String(), "file", req.Filename, "op", req.Opcode.String())

	l.Infof("client %s requests %s of %s, mode: %s", peer, directionOf(req.Opcode), req.Filename, req.Mode)

	sess := &Session{
		peer:    peer,
		request: *req,
		mode:    req.TransferMode(),
		files:   s.files,
		cfg:     s.cfg,
		l:       l,
		bind:    s.bindTransfer,
	}

	switch req.Opcode {
	case types.OpCodeRRQ:
		sess.direction = Download

		f, err := s.files.Open(req.Filename)
		if err != nil {
			return nil, rejectOpen(err)
		}

		if info, err := f.Stat(); err == nil && info.Size()/types.MaxPayloadSize >= types.MaxBlocks {
			_ = f.Close()

			return nil, &RejectionError{
				Code:  types.ErrNotDefined,
				Msg:   "file too large to be transferred over tftp",
				Err:   utils.ErrFileTooLarge,
				Reply: true,
			}
		}

		sess.src = f
	case types.OpCodeWRQ:
		sess.direction = Upload

		f, err := s.files.Create(req.Filename)
		if err != nil {
			return nil, rejectCreate(err)
		}

		sess.dst = f
	}

	return sess, nil
}

func rejectOpen(err error) error {
	if errors.Is(err, fs.ErrPermission) {
		return &RejectionError{Code: types.ErrAccessViolation, Msg: types.ErrAccessViolation.Message(), Err: err, Reply: true}
	}

	return &RejectionError{Code: types.ErrFileNotFound, Msg: types.ErrFileNotFound.Message(), Err: err, Reply: true}
}

func rejectCreate(err error) error {
	if errors.Is(err, fs.ErrExist) {
		return &RejectionError{Code: types.ErrFileAlreadyExists, Msg: types.ErrFileAlreadyExists.Message(), Err: err, Reply: true}
	}

	return &RejectionError{Code: types.ErrAccessViolation, Msg: types.ErrAccessViolation.Message(), Err: err, Reply: true}
}

// bindTransfer opens the private socket of one transfer on a fresh port.
func (s *Server) bindTransfer() (net.PacketConn, error) {
	host := ""
	if s.conn != nil {
		host = transferHost(s.conn.LocalAddr())
	}

	conn, err := net.ListenPacket("udp", net.JoinHostPort(host, "0"))
	if err != nil {
		return nil, fmt.Errorf("error while binding transfer socket: %w", err)
	}

	if s.cfg.TOS != 0 {
		if err := setTOS(conn, s.cfg.TOS); err != nil {
			s.logger.Warnf("error while setting tos on %s: %s", conn.LocalAddr(), err.Error())
		}
	}

	return conn, nil
}
