package window

import (
	"log/slog"

	"github.com/dgnsrekt/chartwindow/internal/series"
	"github.com/dgnsrekt/chartwindow/internal/types"
	"github.com/dgnsrekt/chartwindow/internal/viewport"
)

// followDepth is how many of the newest real bars keep the viewport pinned
// to the live edge when any of them is visible.
const followDepth = 5

// OnTick folds one streamed bar into the series. Ticks for another symbol,
// ticks while live mode is off and exact repeats of the previous tick are
// dropped. The viewport follows the new bar only when it already showed one
// of the most recent bars.
func (s *Session) OnTick(symbol string, bar types.Bar) {
	s.mu.Lock()
	if s.closed || !s.live || symbol != s.symbol || len(s.bars) == 0 {
		s.mu.Unlock()
		return
	}
	t, err := types.ParseTimestamp(bar.Timestamp)
	if err != nil {
		s.mu.Unlock()
		slog.Debug("dropping live tick", "session_id", s.id, "error", err)
		return
	}
	bar.Timestamp = types.FormatTimestamp(s.tf.Align(t))
	bar.Synthetic = false
	if err := bar.Valid(); err != nil {
		s.mu.Unlock()
		slog.Debug("dropping live tick", "session_id", s.id, "error", err)
		return
	}

	key := bar.Key()
	if s.haveTick && key == s.lastTick {
		s.mu.Unlock()
		return
	}
	s.lastTick, s.haveTick = key, true

	updated, shift := s.foldTick(s.bars, bar)
	s.bars = updated

	if s.view.Overlaps(series.RecentRealIndices(updated, followDepth)) {
		s.view = viewport.Follow(s.view, len(updated))
	} else {
		s.view = viewport.AnchorAfterLoad(s.view, shift, len(updated), s.opts.DefaultWindow)
	}
	tf := s.tf
	s.changedLocked()
	s.unlockAndEmit()

	if s.deps.Recorder != nil {
		s.deps.Recorder.RecordBars(symbol, tf, "live", []types.Bar{bar})
	}
}

// foldTick applies the update-vs-append rule relative to the last real bar
// and returns the new series with the shift to apply to an unfollowed
// viewport.
func (s *Session) foldTick(bars []types.Bar, bar types.Bar) ([]types.Bar, int) {
	li := series.LastRealIndex(bars)
	if li < 0 {
		return s.format(s.tf, series.Merge(bars, []types.Bar{bar})), 0
	}
	last, bt := bars[li].Time(), bar.Time()

	switch {
	case bt.Equal(last):
		out := make([]types.Bar, len(bars))
		copy(out, bars)
		out[li] = bar
		return out, 0

	case bt.After(last):
		out := make([]types.Bar, 0, len(bars)+1)
		out = append(out, bars[:li+1]...)
		tail := bars[li+1:]
		i := 0
		for ; i < len(tail) && tail[i].Time().Before(bt); i++ {
			out = append(out, tail[i])
		}
		out = append(out, bar)
		for ; i < len(tail); i++ {
			if tail[i].Time().After(bt) {
				out = append(out, tail[i])
			}
		}
		return s.format(s.tf, out), 0

	default:
		// A late correction for an older bucket.
		merged := s.format(s.tf, series.Merge(bars, []types.Bar{bar}))
		return merged, visibleShift(bars, merged, s.view)
	}
}

// visibleShift keeps the first visible bar in place across an interior
// insert.
func visibleShift(before, after []types.Bar, v viewport.Viewport) int {
	if !v.Valid(len(before)) {
		return 0
	}
	return series.CountBefore(after, before[v.Start].Time()) - v.Start
}

// subscribeLocked (re)binds the feed subscription to the current symbol.
func (s *Session) subscribeLocked() {
	if s.unsub != nil {
		s.unsub()
		s.unsub = nil
	}
	if !s.live || s.deps.Feed == nil || s.closed {
		return
	}
	s.unsub = s.deps.Feed.Subscribe(s.symbol, s.OnTick)
}
