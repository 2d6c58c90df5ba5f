package viewport

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClampContainment(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	for i := 0; i < 2000; i++ {
		total := 1 + rng.Intn(300)
		v := Viewport{Start: rng.Intn(800) - 400, End: rng.Intn(800) - 400}
		got := Clamp(v, total, 80)
		require.True(t, got.Valid(total), "clamp(%s, %d) = %s", v, total, got)
	}
}

func TestClampCases(t *testing.T) {
	cases := []struct {
		name  string
		in    Viewport
		total int
		want  Viewport
	}{
		{"inside", Viewport{5, 9}, 10, Viewport{5, 9}},
		{"end past total", Viewport{5, 40}, 10, Viewport{5, 9}},
		{"negative start", Viewport{-3, 4}, 10, Viewport{0, 4}},
		{"inverted reopens default", Viewport{20, 4}, 100, Viewport{20, 99}},
		{"start past total", Viewport{150, 160}, 100, Viewport{20, 99}},
		{"both negative", Viewport{-10, -5}, 100, Viewport{0, 79}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, Clamp(tc.in, tc.total, 80))
		})
	}
}

func TestClampEmptySeriesUnchanged(t *testing.T) {
	v := Viewport{Start: 7, End: 3}
	require.Equal(t, v, Clamp(v, 0, 80))
}

func TestClampFloat(t *testing.T) {
	require.Equal(t, Viewport{2, 8}, ClampFloat(2.7, 7.1, 10, 80))
}

func TestAnchorAfterPrepend(t *testing.T) {
	// Ten bars showing [5,9]; three bars prepended on the left.
	got := AnchorAfterLoad(Viewport{5, 9}, 3, 13, 80)
	require.Equal(t, Viewport{8, 12}, got)
}

func TestAnchorAfterPrune(t *testing.T) {
	got := AnchorAfterLoad(Viewport{400, 480}, -300, 700, 80)
	require.Equal(t, Viewport{100, 180}, got)
}

func TestNewestWindow(t *testing.T) {
	require.Equal(t, Viewport{20, 99}, NewestWindow(100, 80))
	require.Equal(t, Viewport{0, 9}, NewestWindow(10, 80))
	require.Equal(t, Viewport{}, NewestWindow(0, 80))
}

func TestCenteredOn(t *testing.T) {
	v := CenteredOn(50, 100, 80)
	require.Equal(t, 80, v.Width())
	require.True(t, v.Contains(50))
	require.Equal(t, Viewport{10, 89}, v)

	require.Equal(t, Viewport{0, 79}, CenteredOn(2, 100, 80))
	require.Equal(t, Viewport{20, 99}, CenteredOn(98, 100, 80))
	require.Equal(t, Viewport{0, 29}, CenteredOn(10, 30, 80))
}

func TestPanPreservesWidth(t *testing.T) {
	require.Equal(t, Viewport{15, 24}, Pan(Viewport{10, 19}, 5, 100))
	require.Equal(t, Viewport{0, 9}, Pan(Viewport{10, 19}, -50, 100))
	require.Equal(t, Viewport{90, 99}, Pan(Viewport{10, 19}, 500, 100))
}

func TestFollow(t *testing.T) {
	require.Equal(t, Viewport{96, 100}, Follow(Viewport{95, 99}, 101))
	require.Equal(t, Viewport{0, 4}, Follow(Viewport{10, 30}, 5))
}

func TestZoom(t *testing.T) {
	// Zoom in around the right edge keeps the right edge in place.
	got := Zoom(Viewport{20, 99}, 40, 99, 100, 5)
	require.Equal(t, Viewport{60, 99}, got)

	// Zoom out past the series shows everything.
	require.Equal(t, Viewport{0, 99}, Zoom(Viewport{20, 99}, 500, 50, 100, 5))

	// Never narrower than the minimum.
	require.Equal(t, 5, Zoom(Viewport{20, 99}, 1, 50, 100, 5).Width())

	// Centered anchor stays centered.
	mid := Zoom(Viewport{0, 100}, 21, 50, 200, 5)
	require.Equal(t, Viewport{40, 60}, mid)
}

func TestOverlaps(t *testing.T) {
	v := Viewport{0, 4}
	require.False(t, v.Overlaps([]int{100, 99, 98}))
	require.True(t, Viewport{95, 99}.Overlaps([]int{100, 99}))
}
