package window

import (
	"context"
	"log/slog"
	"time"

	"github.com/dgnsrekt/chartwindow/internal/series"
	"github.com/dgnsrekt/chartwindow/internal/types"
	"github.com/dgnsrekt/chartwindow/internal/viewport"
)

// Start performs the initial load: BufferSize bars back from now, showing
// the newest DefaultWindow of them. A transport failure is recorded in the
// snapshot and also returned.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if s.load[past].Loading {
		s.mu.Unlock()
		return nil
	}
	t := s.tagLocked()
	s.load[past].Loading = true
	s.version++
	s.wg.Add(1)
	q := types.Query{Symbol: t.symbol, Timeframe: t.tf, Limit: s.opts.BufferSize, Direction: types.DirectionPast}
	s.unlockAndEmit()
	defer s.wg.Done()

	bars, err := s.fetch(ctx, q)
	prepared := s.prepare(q.Timeframe, nil, bars)

	s.mu.Lock()
	if s.closed || s.tagLocked() != t {
		s.mu.Unlock()
		slog.Debug("discarding stale initial load", "session_id", s.id, "symbol", t.symbol, "timeframe", t.tf)
		return nil
	}
	s.load[past].Loading = false
	if err != nil {
		s.lastErr = err
		s.version++
		s.pruner.Trigger()
		s.unlockAndEmit()
		slog.Warn("initial load failed", "session_id", s.id, "symbol", t.symbol, "timeframe", t.tf, "error", err)
		return err
	}

	now := s.opts.Now()
	s.lastErr = nil
	s.bars = prepared
	s.load[past] = s.endStateLocked(past, series.RealCount(prepared), q.Limit, now)
	// Nothing exists after now; the cooldown lets the right edge poll.
	s.markEndLocked(future, now)
	s.view = viewport.NewestWindow(len(s.bars), s.opts.DefaultWindow)
	s.changedLocked()
	slog.Info("initial load complete", "session_id", s.id, "symbol", t.symbol, "timeframe", t.tf, "bars", len(s.bars))
	s.unlockAndEmit()
	return nil
}

// maybeLoadLocked starts a past or future fetch when the viewport is within
// LoadMargin of an edge. It reports whether anything started.
func (s *Session) maybeLoadLocked() bool {
	total := len(s.bars)
	if total == 0 || s.closed || s.skipping || s.lastErr != nil {
		return false
	}
	now := s.opts.Now()
	started := false
	if s.view.Start <= s.opts.LoadMargin && s.canLoadLocked(past, now) {
		s.startLoadLocked(past)
		started = true
	}
	if s.view.End >= total-1-s.opts.LoadMargin && s.canLoadLocked(future, now) {
		s.startLoadLocked(future)
		started = true
	}
	return started
}

func (s *Session) canLoadLocked(dir int, now time.Time) bool {
	st := s.load[dir]
	if st.Loading {
		return false
	}
	if st.exhausted(now, s.opts.Cooldown) {
		return false
	}
	return true
}

func (s *Session) anchorLocked(dir int) time.Time {
	if dir == past {
		if i := series.FirstRealIndex(s.bars); i >= 0 {
			return s.bars[i].Time()
		}
	} else if i := series.LastRealIndex(s.bars); i >= 0 {
		return s.bars[i].Time()
	}
	return time.Time{}
}

func (s *Session) startLoadLocked(dir int) {
	t := s.tagLocked()
	q := types.Query{
		Symbol:    t.symbol,
		Timeframe: t.tf,
		Limit:     s.opts.BufferSize,
		Start:     s.anchorLocked(dir),
		Direction: directions[dir],
	}
	s.load[dir].Loading = true
	s.wg.Add(1)
	slog.Debug("edge load started", "session_id", s.id, "direction", q.Direction, "anchor", types.FormatTimestamp(q.Start))
	go func() {
		defer s.wg.Done()
		bars, err := s.fetch(s.ctx, q)
		s.completeLoad(t, dir, q, bars, err)
	}()
}

// completeLoad folds an edge fetch into the series. The viewport shift is
// the number of bars that landed before the previously first bar, applied
// to the viewport as it is now, so concurrent past and future loads
// compose in either completion order.
func (s *Session) completeLoad(t tag, dir int, q types.Query, bars []types.Bar, err error) {
	s.mu.Lock()
	if s.closed || s.tagLocked() != t {
		s.mu.Unlock()
		slog.Debug("discarding stale edge load", "session_id", s.id, "direction", q.Direction)
		return
	}
	// Prune skips while a load is in flight; every outcome below re-arms it.
	s.load[dir].Loading = false
	now := s.opts.Now()

	if err != nil {
		s.lastErr = err
		s.version++
		s.pruner.Trigger()
		slog.Warn("edge load failed", "session_id", s.id, "direction", q.Direction, "error", err)
		s.unlockAndEmit()
		return
	}
	s.lastErr = nil

	before := s.bars
	merged := s.prepare(t.tf, before, bars)
	added := series.NewCount(before, merged)
	if added == 0 {
		s.markEndLocked(dir, now)
		s.version++
		s.pruner.Trigger()
		slog.Debug("edge load added nothing", "session_id", s.id, "direction", q.Direction, "returned", len(bars))
		s.unlockAndEmit()
		return
	}

	s.load[dir] = s.endStateLocked(dir, series.RealCount(bars), q.Limit, now)
	shift := leftShift(before, merged)
	s.bars = merged
	s.view = viewport.AnchorAfterLoad(s.view, shift, len(merged), s.opts.DefaultWindow)
	s.changedLocked()
	slog.Debug("edge load merged", "session_id", s.id, "direction", q.Direction, "added", added, "shift", shift, "total", len(merged))
	s.unlockAndEmit()
}

// endStateLocked applies the end-of-data heuristic to a successful fetch of
// returned out of requested bars.
func (s *Session) endStateLocked(dir, returned, requested int, now time.Time) LoadState {
	if returned == 0 || requested <= 0 || float64(returned)/float64(requested) < s.opts.EndOfDataRatio {
		s.cooldown[dir].Trigger()
		return LoadState{ReachedEnd: true, ReachedAt: now}
	}
	return LoadState{}
}

func (s *Session) markEndLocked(dir int, now time.Time) {
	s.load[dir].ReachedEnd = true
	s.load[dir].ReachedAt = now
	s.cooldown[dir].Trigger()
}

// SkipTo replaces the series with BufferSize bars centered on target and
// shows DefaultWindow bars around the bar nearest to it. When several skips
// overlap the latest one wins.
func (s *Session) SkipTo(ctx context.Context, target time.Time) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	s.skipSeq++
	seq := s.skipSeq
	t := s.tagLocked()
	s.skipping = true
	s.version++
	s.wg.Add(1)
	s.unlockAndEmit()
	defer s.wg.Done()

	q := types.Query{Symbol: t.symbol, Timeframe: t.tf, Limit: s.opts.BufferSize, Start: target, Direction: types.DirectionCentered}
	bars, err := s.fetch(ctx, q)
	prepared := s.prepare(t.tf, nil, bars)

	s.mu.Lock()
	if s.closed || s.tagLocked() != t || seq != s.skipSeq {
		s.mu.Unlock()
		slog.Debug("discarding superseded skip", "session_id", s.id, "target", types.FormatTimestamp(target))
		return nil
	}
	s.skipping = false
	if err != nil {
		s.lastErr = err
		s.version++
		s.pruner.Trigger()
		s.unlockAndEmit()
		slog.Warn("skip load failed", "session_id", s.id, "target", types.FormatTimestamp(target), "error", err)
		return err
	}
	if len(prepared) == 0 {
		s.version++
		s.pruner.Trigger()
		s.unlockAndEmit()
		slog.Warn("skip returned no bars", "session_id", s.id, "target", types.FormatTimestamp(target))
		return nil
	}

	s.epoch++
	s.lastErr = nil
	s.load = [2]LoadState{}
	s.bars = prepared
	s.view = viewport.CenteredOn(series.NearestIndex(prepared, target), len(prepared), s.opts.DefaultWindow)
	s.changedLocked()
	slog.Info("skipped to time", "session_id", s.id, "target", types.FormatTimestamp(target), "bars", len(prepared), "viewport", s.view.String())
	s.unlockAndEmit()
	return nil
}

// Retry clears a transport error and loads again: the initial load when
// the series is empty, otherwise whatever edge loads the viewport needs.
func (s *Session) Retry(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	s.lastErr = nil
	empty := len(s.bars) == 0
	s.version++
	s.unlockAndEmit()

	if empty {
		return s.Start(ctx)
	}
	s.Settle()
	return nil
}
