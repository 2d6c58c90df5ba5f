package series

import "github.com/dgnsrekt/chartwindow/internal/types"

// LastRealIndex returns the index of the last non-synthetic bar, or -1.
func LastRealIndex(series []types.Bar) int {
	for i := len(series) - 1; i >= 0; i-- {
		if !series[i].Synthetic {
			return i
		}
	}
	return -1
}

// FirstRealIndex returns the index of the first non-synthetic bar, or -1.
func FirstRealIndex(series []types.Bar) int {
	for i, b := range series {
		if !b.Synthetic {
			return i
		}
	}
	return -1
}

// RecentRealIndices returns the indices of the n most recent real bars,
// newest first.
func RecentRealIndices(series []types.Bar, n int) []int {
	out := make([]int, 0, n)
	for i := len(series) - 1; i >= 0 && len(out) < n; i-- {
		if !series[i].Synthetic {
			out = append(out, i)
		}
	}
	return out
}

// RealCount counts non-synthetic bars.
func RealCount(bars []types.Bar) int {
	n := 0
	for _, b := range bars {
		if !b.Synthetic {
			n++
		}
	}
	return n
}

// StripSynthetic returns a copy of bars without gap fillers.
func StripSynthetic(bars []types.Bar) []types.Bar {
	out := make([]types.Bar, 0, len(bars))
	for _, b := range bars {
		if !b.Synthetic {
			out = append(out, b)
		}
	}
	return out
}
