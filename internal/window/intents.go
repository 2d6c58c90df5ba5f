package window

import (
	"context"
	"log/slog"

	"github.com/dgnsrekt/chartwindow/internal/types"
	"github.com/dgnsrekt/chartwindow/internal/viewport"
)

// Pan moves the viewport by delta bars. Negative deltas move into history.
func (s *Session) Pan(delta int) Snapshot {
	return s.mutate(func() {
		s.view = viewport.Pan(s.view, delta, len(s.bars))
	})
}

// Zoom resizes the viewport to width bars around anchor. The width is capped
// at the retention limit so pruning never cuts into a zoomed-out view.
func (s *Session) Zoom(width, anchor int) Snapshot {
	return s.mutate(func() {
		width = min(width, 2*s.opts.BufferSize)
		s.view = viewport.Zoom(s.view, width, anchor, len(s.bars), s.opts.MinZoomWidth)
	})
}

// SetVisibleRange accepts a fractional range reported by a renderer.
func (s *Session) SetVisibleRange(start, end float64) Snapshot {
	return s.mutate(func() {
		s.view = viewport.ClampFloat(start, end, len(s.bars), s.opts.DefaultWindow)
	})
}

// BeginGesture pauses pruning until EndGesture.
func (s *Session) BeginGesture() Snapshot {
	return s.mutate(func() { s.gesture = true })
}

// EndGesture resumes pruning and re-evaluates edge loads. A prune held back
// by the gesture runs before it returns.
func (s *Session) EndGesture() Snapshot {
	s.mutate(func() { s.gesture = false })
	s.pruner.Flush()
	return s.Snapshot()
}

func (s *Session) mutate(fn func()) Snapshot {
	s.mu.Lock()
	if s.closed {
		defer s.mu.Unlock()
		return s.snapshotLocked()
	}
	fn()
	s.changedLocked()
	snap := s.snapshotLocked()
	s.mu.Unlock()
	if s.deps.OnChange != nil {
		s.deps.OnChange(snap)
	}
	return snap
}

// SetTimeframe discards the series, persists the choice and reloads.
func (s *Session) SetTimeframe(ctx context.Context, tf types.Timeframe) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if tf == s.tf && len(s.bars) > 0 {
		s.mu.Unlock()
		return nil
	}
	slog.Info("timeframe changed", "session_id", s.id, "from", s.tf, "to", tf)
	s.tf = tf
	s.resetLocked()
	s.unlockAndEmit()

	if s.deps.Prefs != nil {
		s.deps.Prefs.SaveTimeframe(ctx, tf)
	}
	return s.Start(ctx)
}

// SetSymbol discards the series, moves the live subscription and reloads.
func (s *Session) SetSymbol(ctx context.Context, symbol string) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if symbol == s.symbol && len(s.bars) > 0 {
		s.mu.Unlock()
		return nil
	}
	slog.Info("symbol changed", "session_id", s.id, "from", s.symbol, "to", symbol)
	s.symbol = symbol
	s.resetLocked()
	s.subscribeLocked()
	s.unlockAndEmit()
	return s.Start(ctx)
}

// SetLiveMode turns streamed updates on or off.
func (s *Session) SetLiveMode(enabled bool) Snapshot {
	s.mu.Lock()
	if s.closed || s.live == enabled {
		defer s.mu.Unlock()
		return s.snapshotLocked()
	}
	s.live = enabled
	s.haveTick = false
	s.subscribeLocked()
	s.version++
	snap := s.snapshotLocked()
	s.mu.Unlock()
	if s.deps.OnChange != nil {
		s.deps.OnChange(snap)
	}
	slog.Info("live mode changed", "session_id", s.id, "symbol", snap.Symbol, "live", enabled)
	return snap
}
