package server

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStats(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := map[string]struct {
		stats    Stats
		duration time.Duration
		bps      float64
		ok       bool
	}{
		"completed": {
			stats:    Stats{Start: start, End: start.Add(2 * time.Second), Bytes: 1024},
			duration: 2 * time.Second,
			bps:      512,
			ok:       true,
		},
		"no bytes": {
			stats:    Stats{Start: start, End: start.Add(time.Second)},
			duration: time.Second,
		},
		"no time": {
			stats: Stats{Start: start, End: start, Bytes: 10},
		},
		"not started": {
			stats: Stats{End: start, Bytes: 10},
		},
		"end before start": {
			stats: Stats{Start: start, End: start.Add(-time.Second), Bytes: 10},
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, test.duration, test.stats.Duration())

			bps, ok := test.stats.Throughput()
			assert.Equal(t, test.ok, ok)
			assert.InDelta(t, test.bps, bps, 0.001)
		})
	}
}

func TestTransferErrorPacket(t *testing.T) {
	err := &TransferError{Code: 3, Msg: "disk full or allocation exceeded", Notify: true}

	p := err.Packet()
	assert.EqualValues(t, 3, p.ErrorCode)
	assert.Equal(t, "disk full or allocation exceeded", p.ErrMsg)
	assert.Contains(t, err.Error(), "transfer failed (3")

	rej := &RejectionError{Code: 1}
	assert.Equal(t, "file not found", rej.Packet().ErrMsg)
}
