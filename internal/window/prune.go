package window

import (
	"log/slog"

	"github.com/dgnsrekt/chartwindow/internal/series"
	"github.com/dgnsrekt/chartwindow/internal/viewport"
)

// Prune trims the series to 2×BufferSize bars around the viewport. It is a
// no-op during a gesture, a skip or while any load is in flight. Each of
// those re-arms the prune timer when it ends, whatever its outcome, and
// EndGesture runs the pending prune at once.
func (s *Session) Prune() {
	s.mu.Lock()
	if s.closed || s.gesture || s.skipping || s.load[past].Loading || s.load[future].Loading {
		s.mu.Unlock()
		return
	}
	total := len(s.bars)
	keepStart, keepEnd, ok := retention(s.view, total, 2*s.opts.BufferSize, s.opts.PrunePolicy)
	if !ok {
		s.mu.Unlock()
		return
	}

	before := s.bars
	kept, err := series.Slice(before, keepStart, keepEnd)
	if err != nil {
		s.mu.Unlock()
		slog.Warn("prune range rejected", "session_id", s.id, "error", err)
		return
	}
	shift := -keepStart
	if keepStart > 0 {
		// The head just dropped is known to exist.
		s.load[past] = LoadState{}
	}
	if keepEnd < total-1 {
		s.load[future] = LoadState{}
	}
	s.bars = kept
	s.view = viewport.AnchorAfterLoad(s.view, shift, len(kept), s.opts.DefaultWindow)
	s.changedLocked()
	slog.Debug("pruned series", "session_id", s.id, "from", total, "to", len(kept), "shift", shift)
	s.unlockAndEmit()
}

// retention returns the inclusive range to keep, or ok=false when nothing
// needs trimming.
func retention(v viewport.Viewport, total, limit int, policy PrunePolicy) (keepStart, keepEnd int, ok bool) {
	if total <= limit || limit <= 0 {
		return 0, total - 1, false
	}
	desired := min(total, limit)
	maxStart := total - desired

	switch policy {
	case PruneAnchorStart:
		keepStart = v.Start
	default:
		mid := v.Start + v.Span()/2
		keepStart = mid - desired/2
		// Never cut into the viewport when it fits.
		if v.Width() <= desired {
			keepStart = min(keepStart, v.Start)
			keepStart = max(keepStart, v.End-desired+1)
		} else {
			keepStart = v.Start
		}
	}
	keepStart = max(0, min(keepStart, maxStart))
	keepEnd = min(total-1, keepStart+desired-1)
	return keepStart, keepEnd, keepStart > 0 || keepEnd < total-1
}
