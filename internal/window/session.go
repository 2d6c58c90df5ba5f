// Package window owns one chart's bar series and viewport. It decides when
// to fetch more history, folds streamed bars in, and trims the series so
// memory stays bounded while the visible bars stay put.
//
// All state changes happen under the session mutex and run to completion.
// Network fetches run without the lock and re-acquire it on completion;
// results issued for a symbol, timeframe or epoch that is no longer current
// are dropped.
package window

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/dgnsrekt/chartwindow/internal/schedule"
	"github.com/dgnsrekt/chartwindow/internal/series"
	"github.com/dgnsrekt/chartwindow/internal/types"
	"github.com/dgnsrekt/chartwindow/internal/viewport"
)

// ErrClosed is returned by operations on a closed session.
var ErrClosed = errors.New("window: session closed")

const (
	past   = 0
	future = 1
)

var directions = [2]types.Direction{types.DirectionPast, types.DirectionFuture}

// LoadState tracks one fetch direction.
type LoadState struct {
	ReachedEnd bool
	ReachedAt  time.Time
	Loading    bool
}

// exhausted reports whether the end flag is set and still inside its
// cooldown.
func (l LoadState) exhausted(now time.Time, cooldown time.Duration) bool {
	return l.ReachedEnd && now.Sub(l.ReachedAt) < cooldown
}

// DirectionState is the per-direction part of a Snapshot.
type DirectionState struct {
	Past   bool `json:"past"`
	Future bool `json:"future"`
}

// Snapshot is the read-only view handed to renderers.
type Snapshot struct {
	SessionID    string            `json:"session_id"`
	Symbol       string            `json:"symbol"`
	Timeframe    types.Timeframe   `json:"timeframe"`
	Bars         []types.Bar       `json:"bars"`
	Viewport     viewport.Viewport `json:"viewport"`
	SeriesLength int               `json:"series_length"`
	Loading      DirectionState    `json:"loading"`
	ReachedEnd   DirectionState    `json:"reached_end"`
	Live         bool              `json:"live"`
	Gesture      bool              `json:"gesture"`
	Error        string            `json:"error,omitempty"`
	Version      uint64            `json:"version"`
}

// tag identifies the state a fetch was issued against.
type tag struct {
	symbol string
	tf     types.Timeframe
	epoch  uint64
}

// Session is the windowing state for one chart.
type Session struct {
	id   string
	opts Options
	deps Deps

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	settle   *schedule.Coalescer
	pruner   *schedule.Coalescer
	cooldown [2]*schedule.Coalescer

	mu       sync.Mutex
	symbol   string
	tf       types.Timeframe
	epoch    uint64
	bars     []types.Bar
	view     viewport.Viewport
	load     [2]LoadState
	skipSeq  uint64
	skipping bool
	live     bool
	gesture  bool
	lastTick types.QuoteKey
	haveTick bool
	unsub    func()
	lastErr  error
	version  uint64
	closed   bool
}

// New creates an idle session. Call Start to perform the initial load.
func New(id, symbol string, tf types.Timeframe, opts Options, deps Deps) *Session {
	opts = opts.withDefaults()
	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		id:     id,
		opts:   opts,
		deps:   deps,
		ctx:    ctx,
		cancel: cancel,
		symbol: symbol,
		tf:     tf,
	}
	s.settle = schedule.NewCoalescer(opts.SettleDelay, s.Settle)
	s.pruner = schedule.NewCoalescer(opts.PruneDelay, s.Prune)
	for d := range s.cooldown {
		s.cooldown[d] = schedule.NewCoalescer(opts.Cooldown, s.Settle)
	}
	return s
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Options returns the effective tuning.
func (s *Session) Options() Options { return s.opts }

// Snapshot returns the current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() Snapshot {
	now := s.opts.Now()
	snap := Snapshot{
		SessionID:    s.id,
		Symbol:       s.symbol,
		Timeframe:    s.tf,
		Viewport:     s.view,
		SeriesLength: len(s.bars),
		Loading:      DirectionState{Past: s.load[past].Loading || s.skipping, Future: s.load[future].Loading},
		ReachedEnd: DirectionState{
			Past:   s.load[past].exhausted(now, s.opts.Cooldown),
			Future: s.load[future].exhausted(now, s.opts.Cooldown),
		},
		Live:    s.live,
		Gesture: s.gesture,
		Version: s.version,
	}
	if s.lastErr != nil {
		snap.Error = s.lastErr.Error()
	}
	if len(s.bars) > 0 && s.view.Valid(len(s.bars)) {
		snap.Bars, _ = series.Slice(s.bars, s.view.Start, s.view.End)
	}
	return snap
}

// Series returns a copy of the whole retained series.
func (s *Session) Series() []types.Bar {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]types.Bar, len(s.bars))
	copy(out, s.bars)
	return out
}

// unlockAndEmit releases the lock and publishes the state as of release.
func (s *Session) unlockAndEmit() {
	snap := s.snapshotLocked()
	s.mu.Unlock()
	if s.deps.OnChange != nil {
		s.deps.OnChange(snap)
	}
}

// changedLocked records a state change and schedules the debounced passes.
func (s *Session) changedLocked() {
	s.version++
	s.view = viewport.Clamp(s.view, len(s.bars), s.opts.DefaultWindow)
	s.settle.Trigger()
	s.pruner.Trigger()
}

func (s *Session) tagLocked() tag {
	return tag{symbol: s.symbol, tf: s.tf, epoch: s.epoch}
}

// resetLocked drops all data for a symbol or timeframe change.
func (s *Session) resetLocked() {
	s.epoch++
	s.bars = nil
	s.view = viewport.Viewport{}
	s.load = [2]LoadState{}
	s.skipping = false
	s.haveTick = false
	s.lastErr = nil
	s.version++
}

// Settle clamps the viewport and starts any edge load it calls for. It runs
// debounced after every change and may be called directly.
func (s *Session) Settle() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	prev := s.view
	s.view = viewport.Clamp(s.view, len(s.bars), s.opts.DefaultWindow)
	started := s.maybeLoadLocked()
	if prev == s.view && !started {
		s.mu.Unlock()
		return
	}
	s.version++
	s.unlockAndEmit()
}

// Wait blocks until every fetch issued so far has completed.
func (s *Session) Wait() { s.wg.Wait() }

// Close stops timers, cancels in-flight fetches and waits for them. Results
// arriving afterwards are discarded.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	if s.unsub != nil {
		s.unsub()
		s.unsub = nil
	}
	s.mu.Unlock()

	s.settle.Stop()
	s.pruner.Stop()
	for _, c := range s.cooldown {
		c.Stop()
	}
	s.cancel()
	s.wg.Wait()
	slog.Debug("window session closed", "session_id", s.id)
}

func (s *Session) fetch(ctx context.Context, q types.Query) ([]types.Bar, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opts.FetchTimeout)
	defer cancel()
	bars, err := s.deps.Fetcher.FetchBars(ctx, q)
	if err != nil {
		var coded *types.CodedError
		if !errors.As(err, &coded) {
			err = types.NewError(types.CodeTransport, "fetch "+string(q.Direction)+" bars", err)
		}
		return nil, err
	}
	if s.deps.Recorder != nil && len(bars) > 0 {
		s.deps.Recorder.RecordBars(q.Symbol, q.Timeframe, "fetch:"+string(q.Direction), bars)
	}
	return bars, nil
}

// prepare turns provider bars into a series: synthetic input is ignored,
// invalid bars are dropped, and 1m series get their gaps filled.
func (s *Session) prepare(tf types.Timeframe, existing, incoming []types.Bar) []types.Bar {
	clean := make([]types.Bar, 0, len(incoming))
	for _, b := range incoming {
		if b.Synthetic {
			continue
		}
		if err := b.Valid(); err != nil {
			slog.Debug("dropping invalid bar", "session_id", s.id, "error", err)
			continue
		}
		clean = append(clean, b)
	}
	merged := series.Merge(series.StripSynthetic(existing), clean)
	return s.format(tf, merged)
}

func (s *Session) format(tf types.Timeframe, bars []types.Bar) []types.Bar {
	if tf != types.Timeframe1m {
		return bars
	}
	return series.FillMinuteGaps(bars, s.opts.Now(), s.opts.MaxGap)
}

// leftShift is how far the first real bar of before moved in after.
func leftShift(before, after []types.Bar) int {
	i := series.FirstRealIndex(before)
	if i < 0 {
		return 0
	}
	return series.CountBefore(after, before[i].Time()) - i
}

// Symbol returns the current symbol.
func (s *Session) Symbol() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.symbol
}

// Timeframe returns the current timeframe.
func (s *Session) Timeframe() types.Timeframe {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tf
}
