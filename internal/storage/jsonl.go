// Package storage journals received bars to date-organized JSONL files
// rotated by lumberjack.
package storage

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/dgnsrekt/chartwindow/internal/types"
)

// Record is one journaled bar.
type Record struct {
	RecordedAt time.Time       `json:"recorded_at"`
	Symbol     string          `json:"symbol"`
	Timeframe  types.Timeframe `json:"timeframe"`
	Source     string          `json:"source"` // "live" or "fetch:<direction>"
	Bar        types.Bar       `json:"bar"`
}

// JSONLWriter appends batches of records asynchronously to
// baseDir/<date>/<stream>.jsonl. One fetched page is one batch and one
// file write.
type JSONLWriter struct {
	baseDir   string
	stream    string // e.g. "AAPL_1h"
	maxSizeMB int

	batches   chan []Record
	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
	dropped   atomic.Int64

	mu          sync.Mutex // guards file and currentDate
	file        *lumberjack.Logger
	currentDate string
}

// NewJSONLWriter starts the write loop. queueSize bounds the number of
// pending batches.
func NewJSONLWriter(baseDir, stream string, queueSize int, maxSizeMB int) *JSONLWriter {
	w := &JSONLWriter{
		baseDir:   baseDir,
		stream:    stream,
		maxSizeMB: maxSizeMB,
		batches:   make(chan []Record, max(1, queueSize)),
		done:      make(chan struct{}),
	}
	w.wg.Add(1)
	go w.loop()
	return w
}

// ErrTapeClosed is returned by Write after Close.
var ErrTapeClosed = errors.New("storage: tape writer closed")

// ErrTapeFull is returned when the queue is full and the batch is dropped.
var ErrTapeFull = errors.New("storage: tape queue full")

// Write queues recs as one batch without blocking.
func (w *JSONLWriter) Write(recs ...Record) error {
	if len(recs) == 0 {
		return nil
	}
	select {
	case <-w.done:
		return ErrTapeClosed
	default:
	}
	select {
	case w.batches <- recs:
		return nil
	default:
		if n := w.dropped.Add(int64(len(recs))); n == int64(len(recs)) {
			slog.Warn("tape queue full, dropping records", "stream", w.stream, "count", len(recs))
		}
		return ErrTapeFull
	}
}

// Dropped returns how many records were discarded because the queue was full.
func (w *JSONLWriter) Dropped() int64 { return w.dropped.Load() }

// Close writes everything queued before it and closes the file.
func (w *JSONLWriter) Close() error {
	w.closeOnce.Do(func() { close(w.done) })
	w.wg.Wait()

	w.mu.Lock()
	defer w.mu.Unlock()
	if n := w.dropped.Load(); n > 0 {
		slog.Warn("tape closed with dropped records", "stream", w.stream, "dropped", n)
	}
	if w.file == nil {
		return nil
	}
	err := w.file.Close()
	w.file = nil
	return err
}

func (w *JSONLWriter) loop() {
	defer w.wg.Done()
	for {
		select {
		case recs := <-w.batches:
			w.writeBatch(recs)
		case <-w.done:
			for {
				select {
				case recs := <-w.batches:
					w.writeBatch(recs)
				default:
					return
				}
			}
		}
	}
}

// writeBatch encodes recs and writes each run of records sharing a UTC date
// with a single call.
func (w *JSONLWriter) writeBatch(recs []Record) {
	w.mu.Lock()
	defer w.mu.Unlock()

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	date := ""
	flush := func() {
		if buf.Len() == 0 {
			return
		}
		if date != w.currentDate || w.file == nil {
			w.openForDate(date)
		}
		if w.file != nil {
			if _, err := w.file.Write(buf.Bytes()); err != nil {
				slog.Error("failed to write tape batch", "error", err, "stream", w.stream)
			}
		}
		buf.Reset()
	}

	for _, rec := range recs {
		d := rec.RecordedAt.UTC().Format("2006-01-02")
		if d != date {
			flush()
			date = d
		}
		if err := enc.Encode(rec); err != nil {
			slog.Error("failed to encode tape record", "error", err, "stream", w.stream)
		}
	}
	flush()
}

func (w *JSONLWriter) openForDate(date string) {
	if w.file != nil {
		if err := w.file.Close(); err != nil {
			slog.Debug("tape file close failed", "error", err, "stream", w.stream)
		}
		w.file = nil
	}

	dir := filepath.Join(w.baseDir, date)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		slog.Error("failed to create tape directory", "error", err, "dir", dir)
		return
	}

	filename := filepath.Join(dir, w.stream+".jsonl")
	w.file = &lumberjack.Logger{
		Filename:   filename,
		MaxSize:    w.maxSizeMB,
		MaxBackups: 100,
		MaxAge:     30,
	}
	w.currentDate = date
	slog.Info("opened tape file", "file", filename, "stream", w.stream)
}
