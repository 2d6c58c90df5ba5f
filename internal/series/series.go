// Package series implements the ordered, de-duplicated bar store. Every
// function is pure: inputs are never mutated and callers swap in the
// returned slice.
package series

import (
	"fmt"
	"sort"
	"time"

	"github.com/dgnsrekt/chartwindow/internal/types"
)

// RangeError reports an invalid inclusive index range.
type RangeError struct {
	Start, End, Len int
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("series range [%d,%d] invalid for length %d", e.Start, e.End, e.Len)
}

// barKey is the parsed instant, so "Z" and "+00:00" spellings collide.
type barKey int64

func keyOf(b types.Bar) (barKey, time.Time, bool) {
	t, err := types.ParseTimestamp(b.Timestamp)
	if err != nil {
		return 0, time.Time{}, false
	}
	return barKey(t.UnixNano()), t, true
}

// Merge concatenates existing and incoming, keeps the incoming bar when two
// share a timestamp, and sorts ascending by time. Bars whose timestamp does
// not parse are dropped.
func Merge(existing, incoming []types.Bar) []types.Bar {
	out := make([]types.Bar, 0, len(existing)+len(incoming))
	times := make([]time.Time, 0, len(existing)+len(incoming))
	pos := make(map[barKey]int, len(existing)+len(incoming))

	add := func(b types.Bar) {
		k, t, ok := keyOf(b)
		if !ok {
			return
		}
		if i, seen := pos[k]; seen {
			out[i] = b
			return
		}
		pos[k] = len(out)
		out = append(out, b)
		times = append(times, t)
	}
	for _, b := range existing {
		add(b)
	}
	for _, b := range incoming {
		add(b)
	}

	idx := make([]int, len(out))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return times[idx[a]].Before(times[idx[b]]) })

	sorted := make([]types.Bar, len(out))
	for i, j := range idx {
		sorted[i] = out[j]
	}
	return sorted
}

// Slice returns a copy of series[start..end] inclusive.
func Slice(series []types.Bar, start, end int) ([]types.Bar, error) {
	if start > end || start < 0 || end >= len(series) {
		return nil, &RangeError{Start: start, End: end, Len: len(series)}
	}
	out := make([]types.Bar, end-start+1)
	copy(out, series[start:end+1])
	return out, nil
}

// IsStrictlyAscending reports whether timestamps strictly increase.
func IsStrictlyAscending(series []types.Bar) bool {
	for i := 1; i < len(series); i++ {
		if !series[i-1].Time().Before(series[i].Time()) {
			return false
		}
	}
	return true
}

// NewCount returns how many timestamps in merged are absent from before.
func NewCount(before, merged []types.Bar) int {
	seen := make(map[barKey]struct{}, len(before))
	for _, b := range before {
		if k, _, ok := keyOf(b); ok && !b.Synthetic {
			seen[k] = struct{}{}
		}
	}
	n := 0
	for _, b := range merged {
		if b.Synthetic {
			continue
		}
		if k, _, ok := keyOf(b); ok {
			if _, dup := seen[k]; !dup {
				n++
			}
		}
	}
	return n
}

// CountBefore returns how many bars precede t.
func CountBefore(series []types.Bar, t time.Time) int {
	return sort.Search(len(series), func(i int) bool { return !series[i].Time().Before(t) })
}

// NearestIndex returns the index of the bar closest in time to target. Ties
// favor the earlier index. It returns -1 for an empty series.
func NearestIndex(series []types.Bar, target time.Time) int {
	best := -1
	var bestDelta time.Duration
	for i, b := range series {
		d := b.Time().Sub(target)
		if d < 0 {
			d = -d
		}
		if best < 0 || d < bestDelta {
			best, bestDelta = i, d
		}
	}
	return best
}
