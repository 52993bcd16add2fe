package server

import (
	"errors"
	"io"
	"io/fs"
	"net"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Wa4h1h/go-tftpd/pkg/storage"
	"github.com/Wa4h1h/go-tftpd/pkg/types"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

const recvWait = 2 * time.Second

// peer is a hand-driven client used to script lossy and misbehaving
// counterparts.
type peer struct {
	t      *testing.T
	conn   *net.UDPConn
	server *net.UDPAddr
	tid    *net.UDPAddr
}

func newPeer(t *testing.T, server net.Addr) *peer {
	t.Helper()

	conn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = conn.Close()
	})

	return &peer{t: t, conn: conn, server: server.(*net.UDPAddr)}
}

func (p *peer) addr() *net.UDPAddr {
	return p.conn.LocalAddr().(*net.UDPAddr)
}

func (p *peer) send(pkt types.Packet) {
	p.t.Helper()

	dst := p.server
	if p.tid != nil {
		dst = p.tid
	}

	p.sendTo(dst, pkt)
}

func (p *peer) sendTo(dst *net.UDPAddr, pkt types.Packet) {
	p.t.Helper()

	b, err := pkt.MarshalBinary()
	require.NoError(p.t, err)

	p.sendRaw(dst, b)
}

func (p *peer) sendRaw(dst *net.UDPAddr, b []byte) {
	p.t.Helper()

	_, err := p.conn.WriteToUDP(b, dst)
	require.NoError(p.t, err)
}

// recv waits for the next packet. The first packet from a port other than
// the well-known one fixes the transfer id.
func (p *peer) recv() (types.Packet, *net.UDPAddr) {
	p.t.Helper()

	pkt, from, err := p.tryRecv(recvWait)
	require.NoError(p.t, err)

	return pkt, from
}

func (p *peer) tryRecv(wait time.Duration) (types.Packet, *net.UDPAddr, error) {
	buf := make([]byte, types.DatagramSize+1)

	if err := p.conn.SetReadDeadline(time.Now().Add(wait)); err != nil {
		return nil, nil, err
	}

	n, from, err := p.conn.ReadFromUDP(buf)
	if err != nil {
		return nil, nil, err
	}

	if p.tid == nil && from.Port != p.server.Port {
		p.tid = from
	}

	pkt, err := types.Decode(buf[:n])

	return pkt, from, err
}

func (p *peer) expectData(blockNum uint16) *types.Data {
	p.t.Helper()

	pkt, _ := p.recv()
	data, ok := pkt.(*types.Data)
	require.True(p.t, ok, "expected DATA, got %#v", pkt)
	require.Equal(p.t, blockNum, data.BlockNum)

	return data
}

func (p *peer) expectAck(blockNum uint16) {
	p.t.Helper()

	pkt, _ := p.recv()
	ack, ok := pkt.(*types.Ack)
	require.True(p.t, ok, "expected ACK, got %#v", pkt)
	require.Equal(p.t, blockNum, ack.BlockNum)
}

func (p *peer) expectError(code types.ErrCode) (*types.Error, *net.UDPAddr) {
	p.t.Helper()

	pkt, from := p.recv()
	e, ok := pkt.(*types.Error)
	require.True(p.t, ok, "expected ERROR, got %#v", pkt)
	require.Equal(p.t, code, e.ErrorCode, e.ErrMsg)

	return e, from
}

func (p *peer) expectSilence(wait time.Duration) {
	p.t.Helper()

	pkt, _, err := p.tryRecv(wait)
	require.True(p.t, errors.Is(err, os.ErrDeadlineExceeded), "expected nothing, got %#v (%v)", pkt, err)
}

type fixture struct {
	s    *Server
	root string
	dir  *storage.Dir
}

func newFixture(t *testing.T, cfg Config) *fixture {
	t.Helper()

	root := t.TempDir()

	dir, err := storage.OpenDir(root)
	require.NoError(t, err)

	return newFixtureWithStore(t, cfg, root, dir)
}

func newFixtureWithStore(t *testing.T, cfg Config, root string, files FileStore) *fixture {
	t.Helper()

	return newLoggedFixture(t, cfg, root, files, zaptest.NewLogger(t).Sugar())
}

func newLoggedFixture(t *testing.T, cfg Config, root string, files FileStore, l *zap.SugaredLogger) *fixture {
	t.Helper()

	cfg.Addr = "127.0.0.1:0"
	if cfg.Timeout == 0 {
		cfg.Timeout = 200 * time.Millisecond
	}

	s := NewServer(l, files, cfg)
	require.NoError(t, s.Listen())

	go func() {
		_ = s.Serve()
	}()

	t.Cleanup(func() {
		require.NoError(t, s.Close())

		if c, ok := files.(io.Closer); ok {
			_ = c.Close()
		}
	})

	d, _ := files.(*storage.Dir)

	return &fixture{s: s, root: root, dir: d}
}

func (f *fixture) writeFile(t *testing.T, name string, b []byte) {
	t.Helper()

	require.NoError(t, os.WriteFile(filepath.Join(f.root, name), b, 0o644))
}

func (f *fixture) path(name string) string {
	return filepath.Join(f.root, name)
}

// start accepts req as if it came from p and runs the session. The returned
// channel yields Run's result.
func (f *fixture) start(t *testing.T, p *peer, req *types.Request) (*Session, <-chan error) {
	t.Helper()

	raw, err := req.MarshalBinary()
	require.NoError(t, err)

	sess, err := f.s.Accept(raw, p.addr())
	require.NoError(t, err)

	done := make(chan error, 1)

	go func() {
		done <- sess.Run()
	}()

	return sess, done
}

func wait(t *testing.T, done <-chan error) error {
	t.Helper()

	select {
	case err := <-done:
		return err
	case <-time.After(10 * time.Second):
		t.Fatal("session did not finish")

		return nil
	}
}

func rrq(name string) *types.Request {
	return &types.Request{Opcode: types.OpCodeRRQ, Filename: name, Mode: "octet"}
}

func wrq(name string) *types.Request {
	return &types.Request{Opcode: types.OpCodeWRQ, Filename: name, Mode: "octet"}
}

// countingStore wraps a store and counts writes; it fails every write
// after failAfter successful ones when failAfter is positive.
type countingStore struct {
	FileStore
	writes    atomic.Int32
	failAfter int32
}

func (c *countingStore) Create(name string) (io.WriteCloser, error) {
	w, err := c.FileStore.Create(name)
	if err != nil {
		return nil, err
	}

	return &countingWriter{WriteCloser: w, store: c}, nil
}

func (c *countingStore) Open(name string) (fs.File, error) {
	return c.FileStore.Open(name)
}

type countingWriter struct {
	io.WriteCloser
	store *countingStore
}

func (w *countingWriter) Write(b []byte) (int, error) {
	n := w.store.writes.Add(1)
	if w.store.failAfter > 0 && n > w.store.failAfter {
		return 0, errors.New("no space left on device")
	}

	return w.WriteCloser.Write(b)
}
