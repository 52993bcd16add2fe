package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/armon/circbuf"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger builds the process-wide logger. Lines go to stdout and, when
// logFile is set, are appended to that file as well.
func NewLogger(level string, logFile string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("error while parsing log level %q: %w", level, err)
	}

	sinks := []zapcore.WriteSyncer{zapcore.AddSync(os.Stdout)}

	if logFile != "" {
		if err := EnsureDir(filepath.Dir(logFile)); err != nil {
			return nil, err
		}

		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("error while opening log file: %w", err)
		}

		sinks = append(sinks, f)
	}

	return NewLoggerTo(lvl, zapcore.NewMultiWriteSyncer(sinks...)), nil
}

// NewLoggerTo builds a logger writing timestamped, leveled text lines to ws.
// All writes go through one mutex so concurrent sessions never interleave
// inside a line.
func NewLoggerTo(level zapcore.Level, ws zapcore.WriteSyncer) *zap.Logger {
	cfg := zap.NewProductionEncoderConfig()
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncodeLevel = zapcore.CapitalLevelEncoder

	core := zapcore.NewCore(zapcore.NewConsoleEncoder(cfg), zapcore.Lock(ws), level)

	return zap.New(core)
}

// MemorySink keeps the most recent log output in a bounded ring buffer.
type MemorySink struct {
	mu  sync.Mutex
	buf *circbuf.Buffer
}

func NewMemorySink(size int64) (*MemorySink, error) {
	buf, err := circbuf.NewBuffer(size)
	if err != nil {
		return nil, fmt.Errorf("error while creating memory sink: %w", err)
	}

	return &MemorySink{buf: buf}, nil
}

func (m *MemorySink) Write(p []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.buf.Write(p)
}

func (m *MemorySink) Sync() error {
	return nil
}

func (m *MemorySink) String() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.buf.String()
}

// Lines returns the complete lines held by the sink. A line cut by the
// ring's wraparound is dropped.
func (m *MemorySink) Lines() []string {
	m.mu.Lock()
	wrapped := m.buf.TotalWritten() > m.buf.Size()
	s := m.buf.String()
	m.mu.Unlock()

	lines := strings.Split(strings.TrimSuffix(s, "\n"), "\n")
	if wrapped && len(lines) > 0 {
		lines = lines[1:]
	}

	if len(lines) == 1 && lines[0] == "" {
		return nil
	}

	return lines
}
