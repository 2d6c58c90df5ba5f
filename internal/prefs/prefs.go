// Package prefs persists small client preferences such as the last chart
// timeframe. Read and write failures are logged and never block the chart.
package prefs

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/dgnsrekt/chartwindow/internal/types"
)

// TimeframeKey is the storage key of the last selected timeframe.
const TimeframeKey = "chartTimeframe"

// DefaultTimeframe is used when nothing valid is stored.
const DefaultTimeframe = types.Timeframe1h

// KV is a string key-value store.
type KV interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
}

// Timeframes reads and writes the persisted timeframe. The last value is
// also kept in memory so a failing store still behaves sensibly.
type Timeframes struct {
	kv       KV
	fallback types.Timeframe

	mu      sync.Mutex
	current types.Timeframe
}

// NewTimeframes wraps kv. A zero fallback means DefaultTimeframe.
func NewTimeframes(kv KV, fallback types.Timeframe) *Timeframes {
	if fallback == "" {
		fallback = DefaultTimeframe
	}
	return &Timeframes{kv: kv, fallback: fallback}
}

// LoadTimeframe returns the stored timeframe, or the in-memory value, or the
// fallback.
func (t *Timeframes) LoadTimeframe(ctx context.Context) types.Timeframe {
	t.mu.Lock()
	defer t.mu.Unlock()
	def := t.fallback
	if t.current != "" {
		def = t.current
	}
	if t.kv == nil {
		return def
	}

	raw, ok, err := t.kv.Get(ctx, TimeframeKey)
	if err != nil {
		slog.Warn("timeframe preference read failed", "key", TimeframeKey,
			"error", types.NewError(types.CodePersistence, "read preference", err))
		return def
	}
	if !ok {
		return def
	}
	var s string
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		slog.Warn("timeframe preference malformed", "key", TimeframeKey, "value", raw, "error", err)
		return def
	}
	tf, err := types.ParseTimeframe(s)
	if err != nil {
		slog.Warn("timeframe preference invalid", "key", TimeframeKey, "value", s, "error", err)
		return def
	}
	t.current = tf
	return tf
}

// SaveTimeframe stores tf JSON-encoded.
func (t *Timeframes) SaveTimeframe(ctx context.Context, tf types.Timeframe) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.current = tf
	if t.kv == nil {
		return
	}
	data, _ := json.Marshal(string(tf))
	if err := t.kv.Set(ctx, TimeframeKey, string(data)); err != nil {
		slog.Warn("timeframe preference write failed", "key", TimeframeKey, "timeframe", tf,
			"error", types.NewError(types.CodePersistence, "write preference", err))
	}
}

// MemoryStore is a KV for tests and stateless deployments.
type MemoryStore struct {
	mu sync.Mutex
	m  map[string]string
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore { return &MemoryStore{m: make(map[string]string)} }

func (s *MemoryStore) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.m[key]
	return v, ok, nil
}

func (s *MemoryStore) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[key] = value
	return nil
}
