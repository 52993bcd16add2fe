package server

import (
	"bytes"
	"net"
	"os"
	"testing"
	"time"

	"github.com/Wa4h1h/go-tftpd/pkg/storage"
	"github.com/Wa4h1h/go-tftpd/pkg/types"
	"github.com/Wa4h1h/go-tftpd/pkg/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCountingFixture(t *testing.T, cfg Config, failAfter int32) (*fixture, *countingStore) {
	t.Helper()

	root := t.TempDir()

	dir, err := storage.OpenDir(root)
	require.NoError(t, err)

	store := &countingStore{FileStore: dir, failAfter: failAfter}

	return newFixtureWithStore(t, cfg, root, store), store
}

func sendBlocks(p *peer, content []byte, blocks int) {
	p.t.Helper()

	for block := 1; block <= blocks; block++ {
		start := (block - 1) * types.MaxPayloadSize
		end := min(start+types.MaxPayloadSize, len(content))

		p.send(&types.Data{BlockNum: uint16(block), Payload: content[start:end]})
		p.expectAck(uint16(block))
	}
}

func TestUpload(t *testing.T) {
	f := newFixture(t, Config{Timeout: time.Second})
	server := f.s.Addr().(*net.UDPAddr)

	tests := map[string]int{
		"empty":          0,
		"short":          100,
		"one block":      512,
		"several blocks": 1300,
	}

	for name, size := range tests {
		t.Run(name, func(t *testing.T) {
			content := payload(size)
			target := name + ".bin"

			p := newPeer(t, server)
			p.sendTo(server, wrq(target))
			p.expectAck(0)
			assert.NotEqual(t, server.Port, p.tid.Port)

			sendBlocks(p, content, size/types.MaxPayloadSize+1)

			b, err := os.ReadFile(f.path(target))
			require.NoError(t, err)
			assert.Len(t, b, len(content))
			assert.True(t, bytes.Equal(content, b))

			p.expectSilence(200 * time.Millisecond)
		})
	}
}

func TestUploadStats(t *testing.T) {
	f := newFixture(t, Config{Timeout: time.Second})

	p := newPeer(t, f.s.Addr())
	sess, done := f.start(t, p, wrq("stats.bin"))

	p.expectAck(0)
	sendBlocks(p, payload(1300), 3)

	require.NoError(t, wait(t, done))

	stats := sess.Stats()
	assert.Equal(t, int64(1300), stats.Bytes)
	assert.Equal(t, 3, stats.Blocks)
	assert.Zero(t, stats.Duplicates)

	_, ok := stats.Throughput()
	assert.True(t, ok)
}

func TestUploadDuplicateBlock(t *testing.T) {
	f, store := newCountingFixture(t, Config{Timeout: time.Second}, 0)

	p := newPeer(t, f.s.Addr())
	sess, done := f.start(t, p, wrq("dup.bin"))

	p.expectAck(0)

	first := payload(512)
	p.send(&types.Data{BlockNum: 1, Payload: first})
	p.expectAck(1)

	p.send(&types.Data{BlockNum: 1, Payload: first})
	p.expectAck(1)

	p.send(&types.Data{BlockNum: 2, Payload: []byte("tail")})
	p.expectAck(2)

	require.NoError(t, wait(t, done))
	p.expectSilence(200 * time.Millisecond)

	assert.Equal(t, int32(2), store.writes.Load())
	assert.Equal(t, 1, sess.Stats().Duplicates)

	b, err := os.ReadFile(f.path("dup.bin"))
	require.NoError(t, err)
	assert.Equal(t, append(first, []byte("tail")...), b)
}

func TestUploadRetransmitsAck(t *testing.T) {
	f := newFixture(t, Config{Timeout: 100 * time.Millisecond})

	p := newPeer(t, f.s.Addr())
	sess, done := f.start(t, p, wrq("slow.bin"))

	p.expectAck(0)
	p.expectAck(0)

	p.send(&types.Data{BlockNum: 1, Payload: []byte("done")})
	p.expectAck(1)

	require.NoError(t, wait(t, done))
	assert.GreaterOrEqual(t, sess.Stats().Retransmissions, 1)
}

func TestUploadWriteFailureRemovesFile(t *testing.T) {
	f, _ := newCountingFixture(t, Config{Timeout: time.Second}, 3)

	p := newPeer(t, f.s.Addr())
	_, done := f.start(t, p, wrq("full.bin"))

	p.expectAck(0)

	content := payload(5 * types.MaxPayloadSize)
	sendBlocks(p, content, 3)

	p.send(&types.Data{BlockNum: 4, Payload: content[3*types.MaxPayloadSize : 4*types.MaxPayloadSize]})

	e, _ := p.expectError(types.ErrDiskFull)
	assert.Equal(t, "disk full or allocation exceeded", e.ErrMsg)

	err := wait(t, done)

	var te *TransferError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, types.ErrDiskFull, te.Code)

	assert.NoFileExists(t, f.path("full.bin"))
}

func TestUploadTimeoutRemovesFile(t *testing.T) {
	f := newFixture(t, Config{Timeout: 100 * time.Millisecond, MaxRetries: 2})

	p := newPeer(t, f.s.Addr())
	sess, done := f.start(t, p, wrq("partial.bin"))

	p.expectAck(0)
	sendBlocks(p, payload(5*types.MaxPayloadSize), 3)

	p.expectAck(3)
	p.expectAck(3)
	p.expectError(types.ErrNotDefined)

	require.ErrorIs(t, wait(t, done), utils.ErrTransferTimedOut)
	assert.Equal(t, 2, sess.Stats().Retransmissions)
	assert.NoFileExists(t, f.path("partial.bin"))
}

func TestUploadOutOfOrderBlock(t *testing.T) {
	f := newFixture(t, Config{Timeout: time.Second})

	p := newPeer(t, f.s.Addr())
	_, done := f.start(t, p, wrq("skip.bin"))

	p.expectAck(0)
	p.send(&types.Data{BlockNum: 3, Payload: payload(512)})

	p.expectError(types.ErrIllegalTftpOp)
	require.ErrorIs(t, wait(t, done), utils.ErrOutOfOrderBlock)
	assert.NoFileExists(t, f.path("skip.bin"))
}

func TestUploadPeerErrorRemovesFile(t *testing.T) {
	f := newFixture(t, Config{Timeout: time.Second})

	p := newPeer(t, f.s.Addr())
	_, done := f.start(t, p, wrq("gone.bin"))

	p.expectAck(0)
	sendBlocks(p, payload(1024), 1)
	p.send(types.NewError(types.ErrNotDefined, "user cancelled"))

	require.ErrorIs(t, wait(t, done), utils.ErrPeerReportedError)
	p.expectSilence(200 * time.Millisecond)
	assert.NoFileExists(t, f.path("gone.bin"))
}

func TestUploadUnknownTransferID(t *testing.T) {
	f := newFixture(t, Config{Timeout: time.Second})

	p := newPeer(t, f.s.Addr())
	_, done := f.start(t, p, wrq("tid.bin"))

	p.expectAck(0)

	intruder := newPeer(t, f.s.Addr())
	intruder.sendTo(p.tid, &types.Data{BlockNum: 1, Payload: []byte("x")})
	intruder.expectError(types.ErrUnknownTransferId)

	p.expectError(types.ErrUnknownTransferId)
	require.ErrorIs(t, wait(t, done), utils.ErrUnknownTransferID)
	assert.NoFileExists(t, f.path("tid.bin"))
}
