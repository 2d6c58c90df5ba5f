package series

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dgnsrekt/chartwindow/internal/types"
)

func TestFillMinuteGapsInterior(t *testing.T) {
	s := []types.Bar{bar(0, 10), bar(3, 13)}
	filled := FillMinuteGaps(s, time.Time{}, 0)
	require.Len(t, filled, 4)
	require.True(t, IsStrictlyAscending(filled))

	for _, f := range filled[1:3] {
		require.True(t, f.Synthetic)
		require.Zero(t, f.Volume)
		require.Equal(t, 10.0, f.Open)
		require.Equal(t, 10.0, f.High)
		require.Equal(t, 10.0, f.Low)
		require.Equal(t, 10.0, f.Close)
	}
}

func TestFillMinuteGapsTailAndStability(t *testing.T) {
	s := []types.Bar{bar(0, 10)}
	until := t0.Add(3*time.Minute + 30*time.Second)
	filled := FillMinuteGaps(s, until, 0)
	require.Len(t, filled, 3)
	require.Equal(t, 0, LastRealIndex(filled))
	require.Equal(t, filled, FillMinuteGaps(filled, until, 0))

	// A real bar arriving for a filled minute replaces the filler.
	withReal := Merge(filled, []types.Bar{bar(1, 11)})
	refilled := FillMinuteGaps(withReal, until, 0)
	require.False(t, refilled[1].Synthetic)
	require.Equal(t, 11.0, refilled[2].Close)
}

func TestFillMinuteGapsSkipsSessionBreaks(t *testing.T) {
	s := []types.Bar{bar(0, 10), bar(200, 12)}
	require.Len(t, FillMinuteGaps(s, time.Time{}, 30), 2)
}

func TestRealIndexHelpers(t *testing.T) {
	s := FillMinuteGaps([]types.Bar{bar(0, 1), bar(1, 2), bar(2, 3)}, t0.Add(6*time.Minute), 0)
	require.Equal(t, 2, LastRealIndex(s))
	require.Equal(t, 0, FirstRealIndex(s))
	require.Equal(t, []int{2, 1}, RecentRealIndices(s, 2))
	require.Equal(t, 3, RealCount(s))
	require.Len(t, StripSynthetic(s), 3)
	require.Equal(t, -1, LastRealIndex(nil))
}
