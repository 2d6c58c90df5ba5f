package series

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dgnsrekt/chartwindow/internal/types"
)

var t0 = time.Date(2024, 1, 2, 14, 30, 0, 0, time.UTC)

func bar(i int, close float64) types.Bar {
	return types.Bar{
		Timestamp: types.FormatTimestamp(t0.Add(time.Duration(i) * time.Minute)),
		Open:      close,
		High:      close + 1,
		Low:       close - 1,
		Close:     close,
		Volume:    100,
	}
}

func run(from, to int) []types.Bar {
	out := make([]types.Bar, 0, to-from)
	for i := from; i < to; i++ {
		out = append(out, bar(i, float64(i)))
	}
	return out
}

func timestamps(bars []types.Bar) []string {
	out := make([]string, len(bars))
	for i, b := range bars {
		out[i] = b.Timestamp
	}
	return out
}

func TestMergeOrdersAndDeduplicates(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for iter := 0; iter < 50; iter++ {
		var existing, incoming []types.Bar
		for i := 0; i < 40; i++ {
			existing = append(existing, bar(rng.Intn(60), float64(i)))
			incoming = append(incoming, bar(rng.Intn(60), float64(100+i)))
		}
		merged := Merge(existing, incoming)
		require.True(t, IsStrictlyAscending(merged), "iteration %d", iter)

		seen := map[string]bool{}
		for _, b := range merged {
			require.False(t, seen[b.Timestamp], "duplicate %s", b.Timestamp)
			seen[b.Timestamp] = true
		}
	}
}

func TestMergeIncomingWins(t *testing.T) {
	existing := run(0, 5)
	replacement := bar(2, 999)
	merged := Merge(existing, []types.Bar{replacement})
	require.Len(t, merged, 5)
	require.Equal(t, replacement, merged[2])
}

func TestMergeIdempotent(t *testing.T) {
	s := run(10, 20)
	require.Equal(t, s, Merge(s, nil))

	a := append(run(0, 5), bar(15, 77))
	once := Merge(s, a)
	require.Equal(t, once, Merge(once, a))
}

func TestMergeEquivalentTimestampSpellings(t *testing.T) {
	a := types.Bar{Timestamp: "2024-01-02T14:30:00Z", Close: 1, High: 1, Low: 1, Open: 1}
	b := types.Bar{Timestamp: "2024-01-02T14:30:00+00:00", Close: 2, High: 2, Low: 2, Open: 2}
	merged := Merge([]types.Bar{a}, []types.Bar{b})
	require.Len(t, merged, 1)
	require.Equal(t, 2.0, merged[0].Close)
}

func TestMergeDropsUnparseable(t *testing.T) {
	merged := Merge(run(0, 2), []types.Bar{{Timestamp: "not-a-time"}})
	require.Len(t, merged, 2)
}

func TestSlice(t *testing.T) {
	s := run(0, 10)
	got, err := Slice(s, 3, 5)
	require.NoError(t, err)
	require.Equal(t, timestamps(s[3:6]), timestamps(got))

	got[0].Close = -1
	require.NotEqual(t, -1.0, s[3].Close, "Slice must copy")

	_, err = Slice(s, 5, 3)
	var rangeErr *RangeError
	require.ErrorAs(t, err, &rangeErr)
	require.Equal(t, 10, rangeErr.Len)

	_, err = Slice(s, 0, 10)
	require.ErrorAs(t, err, &rangeErr)
}

func TestNearestIndexTiesFavorEarlier(t *testing.T) {
	s := []types.Bar{bar(0, 1), bar(2, 2), bar(4, 3)}
	require.Equal(t, 0, NearestIndex(s, t0.Add(time.Minute)))
	require.Equal(t, 2, NearestIndex(s, t0.Add(10*time.Minute)))
	require.Equal(t, 1, NearestIndex(s, t0.Add(2*time.Minute+10*time.Second)))
	require.Equal(t, -1, NearestIndex(nil, t0))
}

func TestCountBefore(t *testing.T) {
	s := run(0, 10)
	require.Equal(t, 0, CountBefore(s, t0))
	require.Equal(t, 3, CountBefore(s, t0.Add(3*time.Minute)))
	require.Equal(t, 10, CountBefore(s, t0.Add(time.Hour)))
}

func TestNewCountIgnoresSynthetic(t *testing.T) {
	before := run(0, 3)
	merged := Merge(before, []types.Bar{bar(3, 3), {Timestamp: bar(4, 0).Timestamp, Synthetic: true}})
	require.Equal(t, 1, NewCount(before, merged))
}
