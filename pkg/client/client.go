package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/Wa4h1h/go-tftpd/pkg/types"
	"github.com/Wa4h1h/go-tftpd/pkg/utils"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

type Connector interface {
	Connect(addr string) error
	Get(ctx context.Context, filename string) error
	Put(ctx context.Context, filename string) error
	SetTimeout(timeout uint)
	SetTrace()
	Close() error
}

type Client struct {
	server   *net.UDPAddr
	l        *zap.SugaredLogger
	timeout  time.Duration
	numTries uint
	trace    bool
	dir      string
}

// NewClient returns a client that re-sends each unit up to numTries times.
func NewClient(l *zap.SugaredLogger, numTries uint) *Client {
	return &Client{
		l:        l,
		numTries: numTries,
		timeout:  time.Duration(types.DefaultClientTimeout) * time.Second,
		dir:      ".",
	}
}

func (c *Client) SetTimeout(timeout uint) {
	c.timeout = time.Duration(timeout) * time.Second
}

func (c *Client) SetTimeoutDuration(timeout time.Duration) {
	c.timeout = timeout
}

// SetTrace toggles per-block logging.
func (c *Client) SetTrace() {
	c.trace = !c.trace
}

// SetDir sets the local directory Get writes to and Put reads from.
func (c *Client) SetDir(dir string) {
	c.dir = dir
}

func (c *Client) Connect(addr string) error {
	if _, _, err := net.SplitHostPort(addr); err != nil {
		addr = net.JoinHostPort(addr, fmt.Sprint(types.DefaultPort))
	}

	server, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return fmt.Errorf("error while resolving %s: %w", addr, err)
	}

	c.server = server

	return nil
}

// Close forgets the server. Every transfer uses its own socket, so there is
// nothing else to release.
func (c *Client) Close() error {
	c.server = nil

	return nil
}

// Get downloads filename into the local directory.
func (c *Client) Get(ctx context.Context, filename string) (err error) {
	local := filepath.Join(c.dir, filepath.Base(filename))

	f, err := os.Create(local)
	if err != nil {
		return fmt.Errorf("error while creating %s: %w", local, err)
	}

	defer func() {
		err = multierr.Append(err, f.Close())
		if err != nil {
			_ = os.Remove(local)
		}
	}()

	n, err := c.Download(ctx, filename, f)
	if err != nil {
		return err
	}

	c.l.Infof("received %s, %d bytes", filename, n)

	return nil
}

// Put uploads filename from the local directory.
func (c *Client) Put(ctx context.Context, filename string) error {
	local := filepath.Join(c.dir, filename)

	f, err := os.Open(local)
	if err != nil {
		return fmt.Errorf("error while opening %s: %w", local, err)
	}

	defer func() {
		if err := f.Close(); err != nil {
			c.l.Errorf("error while closing file: %s", err.Error())
		}
	}()

	n, err := c.Upload(ctx, filepath.Base(filename), f)
	if err != nil {
		return err
	}

	c.l.Infof("sent %s, %d bytes", filename, n)

	return nil
}

// Download reads remote from the server into w.
func (c *Client) Download(ctx context.Context, remote string, w io.Writer) (int64, error) {
	t, err := c.open()
	if err != nil {
		return 0, err
	}
	defer t.close()

	req := &types.Request{Opcode: types.OpCodeRRQ, Filename: remote, Mode: types.ModeOctet.String()}

	unit, err := req.MarshalBinary()
	if err != nil {
		return 0, fmt.Errorf("error while marshalling request: %w", err)
	}

	var (
		written  int64
		expected uint16 = 1
	)

	for {
		var data *types.Data

		err := t.exchange(ctx, unit, func(p types.Packet) (bool, error) {
			d, ok := p.(*types.Data)
			if !ok {
				return false, fmt.Errorf("%w: %s", utils.ErrUnexpectedPacket, p.OpCode())
			}

			if d.BlockNum != expected {
				return false, nil
			}

			data = d

			return true, nil
		})
		if err != nil {
			return written, err
		}

		if _, err := w.Write(data.Payload); err != nil {
			t.abort(types.ErrDiskFull, "")

			return written, fmt.Errorf("error while writing block %d: %w", expected, err)
		}

		written += int64(len(data.Payload))

		if c.trace {
			c.l.Debugf("received block#=%d, received #bytes=%d", expected, len(data.Payload))
		}

		ack := &types.Ack{BlockNum: expected}
		if unit, err = ack.MarshalBinary(); err != nil {
			return written, err
		}

		if data.Final() {
			return written, t.send(unit)
		}

		expected++
	}
}

// Upload sends everything read from r to the server as remote.
func (c *Client) Upload(ctx context.Context, remote string, r io.Reader) (int64, error) {
	t, err := c.open()
	if err != nil {
		return 0, err
	}
	defer t.close()

	req := &types.Request{Opcode: types.OpCodeWRQ, Filename: remote, Mode: types.ModeOctet.String()}

	unit, err := req.MarshalBinary()
	if err != nil {
		return 0, fmt.Errorf("error while marshalling request: %w", err)
	}

	var (
		sent     int64
		blockNum uint16
	)

	block := make([]byte, types.MaxPayloadSize)

	for {
		err := t.exchange(ctx, unit, func(p types.Packet) (bool, error) {
			ack, ok := p.(*types.Ack)
			if !ok {
				return false, fmt.Errorf("%w: %s", utils.ErrUnexpectedPacket, p.OpCode())
			}

			return ack.BlockNum == blockNum, nil
		})
		if err != nil {
			return sent, err
		}

		if blockNum > 0 && len(block) < types.MaxPayloadSize {
			return sent, nil
		}

		n, err := io.ReadFull(r, block[:types.MaxPayloadSize])
		if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
			t.abort(types.ErrNotDefined, "client can not read file")

			return sent, fmt.Errorf("error while reading local file: %w", err)
		}

		blockNum++
		block = block[:n]

		data := &types.Data{BlockNum: blockNum, Payload: block}
		if unit, err = data.MarshalBinary(); err != nil {
			return sent, err
		}

		sent += int64(n)

		if c.trace {
			c.l.Debugf("sending block#=%d, #bytes=%d", blockNum, n)
		}
	}
}

func (c *Client) open() (*transfer, error) {
	if c.server == nil {
		return nil, utils.ErrNotConnected
	}

	conn, err := net.ListenPacket("udp", ":0")
	if err != nil {
		return nil, fmt.Errorf("error while opening transfer socket: %w", err)
	}

	return &transfer{
		conn:    conn,
		server:  c.server,
		timeout: c.timeout,
		tries:   int(c.numTries),
		l:       c.l,
		buf:     make([]byte, types.DatagramSize+1),
	}, nil
}
