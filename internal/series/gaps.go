package series

import (
	"time"

	"github.com/dgnsrekt/chartwindow/internal/types"
)

// DefaultMaxGap is the longest run of missing minutes that FillMinuteGaps
// bridges. Longer gaps are session breaks and stay visible.
const DefaultMaxGap = 30

// FillMinuteGaps inserts synthetic bars for missing minutes between real 1m
// bars, and after the last real bar up to the minute before until. Existing
// synthetic bars are recomputed, so repeated calls are stable and real bars
// always win. A zero until disables tail filling.
func FillMinuteGaps(series []types.Bar, until time.Time, maxGap int) []types.Bar {
	real := StripSynthetic(series)
	if len(real) == 0 {
		return real
	}
	if maxGap <= 0 {
		maxGap = DefaultMaxGap
	}

	out := make([]types.Bar, 0, len(real))
	for i, b := range real {
		if i > 0 {
			out = appendFillers(out, real[i-1], b.Time(), maxGap)
		}
		out = append(out, b)
	}
	if !until.IsZero() {
		out = appendFillers(out, real[len(real)-1], types.Timeframe1m.Align(until), maxGap)
	}
	return out
}

// appendFillers bridges the minutes strictly between prev and next.
func appendFillers(out []types.Bar, prev types.Bar, next time.Time, maxGap int) []types.Bar {
	pt := prev.Time()
	missing := int(next.Sub(pt)/time.Minute) - 1
	if missing <= 0 || missing > maxGap {
		return out
	}
	for k := 1; k <= missing; k++ {
		out = append(out, types.Bar{
			Timestamp: types.FormatTimestamp(pt.Add(time.Duration(k) * time.Minute)),
			Open:      prev.Close,
			High:      prev.Close,
			Low:       prev.Close,
			Close:     prev.Close,
			Synthetic: true,
		})
	}
	return out
}
