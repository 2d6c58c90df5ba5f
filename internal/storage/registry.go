package storage

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/dgnsrekt/chartwindow/internal/types"
)

// Tape manages one JSONLWriter per symbol and timeframe and implements the
// window recorder hook.
type Tape struct {
	baseDir   string
	maxSizeMB int
	queueSize int
	now       func() time.Time

	writers map[string]*JSONLWriter
	mu      sync.RWMutex
	closed  bool
}

// NewTape creates a tape rooted at baseDir.
func NewTape(baseDir string, queueSize int, maxSizeMB int) *Tape {
	return &Tape{
		baseDir:   baseDir,
		maxSizeMB: maxSizeMB,
		queueSize: queueSize,
		now:       time.Now,
		writers:   make(map[string]*JSONLWriter),
	}
}

// writer returns (or creates) the writer for a stream.
func (t *Tape) writer(stream string) *JSONLWriter {
	t.mu.RLock()
	w, ok := t.writers[stream]
	closed := t.closed
	t.mu.RUnlock()
	if ok || closed {
		return w
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	if w, ok := t.writers[stream]; ok {
		return w
	}
	w = NewJSONLWriter(t.baseDir, stream, t.queueSize, t.maxSizeMB)
	t.writers[stream] = w
	slog.Debug("created tape writer", "stream", stream)
	return w
}

// RecordBars journals bars received from source. Synthetic bars are never
// written.
func (t *Tape) RecordBars(symbol string, tf types.Timeframe, source string, bars []types.Bar) {
	w := t.writer(StreamName(symbol, tf))
	if w == nil {
		return
	}
	at := t.now().UTC()
	recs := make([]Record, 0, len(bars))
	for _, b := range bars {
		if !b.Synthetic {
			recs = append(recs, Record{RecordedAt: at, Symbol: symbol, Timeframe: tf, Source: source, Bar: b})
		}
	}
	if err := w.Write(recs...); err != nil && !errors.Is(err, ErrTapeFull) {
		slog.Debug("tape write skipped", "stream", w.stream, "error", err)
	}
}

// Close flushes and closes every writer.
func (t *Tape) Close() error {
	t.mu.Lock()
	t.closed = true
	writers := t.writers
	t.writers = make(map[string]*JSONLWriter)
	t.mu.Unlock()

	var firstErr error
	for stream, w := range writers {
		if err := w.Close(); err != nil {
			slog.Error("failed to close tape writer", "error", err, "stream", stream)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
