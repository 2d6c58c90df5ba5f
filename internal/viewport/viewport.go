// Package viewport tracks the visible index range of a bar series. All
// functions return a new Viewport; clamping is the only way an out of range
// viewport is repaired and it never fails.
package viewport

import (
	"fmt"
	"math"
)

// Viewport is an inclusive index range into a bar series.
type Viewport struct {
	Start int `json:"start" doc:"First visible index (inclusive)"`
	End   int `json:"end" doc:"Last visible index (inclusive)"`
}

func (v Viewport) String() string { return fmt.Sprintf("[%d,%d]", v.Start, v.End) }

// Width is the number of visible bars.
func (v Viewport) Width() int { return v.End - v.Start + 1 }

// Span is End-Start, the quantity preserved by pan and follow.
func (v Viewport) Span() int { return v.End - v.Start }

// Valid reports whether v satisfies 0 <= Start <= End <= total-1.
func (v Viewport) Valid(total int) bool {
	return total > 0 && v.Start >= 0 && v.Start <= v.End && v.End <= total-1
}

// Contains reports whether index i is visible.
func (v Viewport) Contains(i int) bool { return i >= v.Start && i <= v.End }

// Overlaps reports whether any of indices is visible.
func (v Viewport) Overlaps(indices []int) bool {
	for _, i := range indices {
		if v.Contains(i) {
			return true
		}
	}
	return false
}

// Clamp restores 0 <= Start <= End <= total-1. When total is zero the
// viewport is returned unchanged and the caller skips rendering. A collapsed
// range is reopened to defaultWindow bars starting at Start.
func Clamp(v Viewport, total, defaultWindow int) Viewport {
	if total <= 0 {
		return v
	}
	if defaultWindow < 1 {
		defaultWindow = 1
	}
	end := min(v.End, total-1)
	start := max(v.Start, 0)
	if end < start {
		if start > total-1 {
			return Viewport{Start: max(0, total-defaultWindow), End: total - 1}
		}
		end = min(total-1, start+defaultWindow-1)
	}
	return Viewport{Start: start, End: end}
}

// ClampFloat floors start and ceils end before clamping. Renderers report
// fractional ranges while zooming.
func ClampFloat(start, end float64, total, defaultWindow int) Viewport {
	return Clamp(Viewport{Start: int(math.Floor(start)), End: int(math.Ceil(end))}, total, defaultWindow)
}

// AnchorAfterLoad shifts prev by shift (positive when bars were added on the
// left, negative when removed) and clamps against newTotal, so the same bars
// stay on screen across a background load or prune.
func AnchorAfterLoad(prev Viewport, shift, newTotal, defaultWindow int) Viewport {
	return Clamp(Viewport{Start: prev.Start + shift, End: prev.End + shift}, newTotal, defaultWindow)
}

// NewestWindow shows the last size bars.
func NewestWindow(total, size int) Viewport {
	if total <= 0 {
		return Viewport{}
	}
	return Viewport{Start: max(0, total-size), End: total - 1}
}

// CenteredOn returns a size-bar window centered on index, shifted to stay
// inside the series.
func CenteredOn(index, total, size int) Viewport {
	if total <= 0 {
		return Viewport{}
	}
	size = max(1, min(size, total))
	index = max(0, min(index, total-1))
	return fit(index-size/2, size, total)
}

// Pan moves v by delta indices, preserving its width at the edges.
func Pan(v Viewport, delta, total int) Viewport {
	if total <= 0 {
		return v
	}
	return fit(v.Start+delta, min(v.Width(), total), total)
}

// Follow slides v so its right edge is the last index, preserving its span.
func Follow(v Viewport, total int) Viewport {
	if total <= 0 {
		return v
	}
	end := total - 1
	return Viewport{Start: max(0, end-v.Span()), End: end}
}

// Zoom resizes v to newWidth bars keeping anchor at the same relative
// position. newWidth is bounded to [minWidth, total].
func Zoom(v Viewport, newWidth, anchor, total, minWidth int) Viewport {
	if total <= 0 {
		return v
	}
	width := max(1, min(max(newWidth, minWidth), total))
	anchor = max(0, min(anchor, total-1))

	ratio := 0.5
	if v.Span() > 0 && v.Contains(anchor) {
		ratio = float64(anchor-v.Start) / float64(v.Span())
	}
	start := anchor - int(math.Round(ratio*float64(width-1)))
	return fit(start, width, total)
}

// fit places a width-bar window at start, shifted back inside [0,total-1].
func fit(start, width, total int) Viewport {
	if width >= total {
		return Viewport{Start: 0, End: total - 1}
	}
	start = max(0, min(start, total-width))
	return Viewport{Start: start, End: start + width - 1}
}
