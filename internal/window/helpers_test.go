package window

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dgnsrekt/chartwindow/internal/types"
)

var testNow = time.Date(2024, 3, 5, 12, 0, 0, 0, time.UTC)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// fakeMarket serves gap-free bars between first and last for any timeframe.
type fakeMarket struct {
	mu    sync.Mutex
	first time.Time
	last  time.Time
	err   error
	calls []types.Query
	holds map[types.Direction][]chan struct{}
}

func newMarket(first, last time.Time) *fakeMarket {
	return &fakeMarket{first: first, last: last, holds: map[types.Direction][]chan struct{}{}}
}

// hold blocks the next fetch in dir until the returned func is called.
func (m *fakeMarket) hold(dir types.Direction) func() {
	ch := make(chan struct{})
	m.mu.Lock()
	m.holds[dir] = append(m.holds[dir], ch)
	m.mu.Unlock()
	var once sync.Once
	return func() { once.Do(func() { close(ch) }) }
}

func (m *fakeMarket) setErr(err error) {
	m.mu.Lock()
	m.err = err
	m.mu.Unlock()
}

func (m *fakeMarket) count(dir types.Direction) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, q := range m.calls {
		if q.Direction == dir {
			n++
		}
	}
	return n
}

func (m *fakeMarket) FetchBars(ctx context.Context, q types.Query) ([]types.Bar, error) {
	m.mu.Lock()
	m.calls = append(m.calls, q)
	var gate chan struct{}
	if hs := m.holds[q.Direction]; len(hs) > 0 {
		gate, m.holds[q.Direction] = hs[0], hs[1:]
	}
	m.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	// A held fetch sees the error set while it was blocked.
	m.mu.Lock()
	err := m.err
	m.mu.Unlock()
	if err != nil {
		return nil, err
	}
	switch q.Direction {
	case types.DirectionPast:
		return m.before(q.Timeframe, q.Start, q.Limit), nil
	case types.DirectionFuture:
		return m.from(q.Timeframe, q.Start, q.Limit), nil
	case types.DirectionCentered:
		half := q.Limit / 2
		return append(m.before(q.Timeframe, q.Start, half), m.from(q.Timeframe, q.Start, half)...), nil
	}
	return nil, errors.New("bad direction")
}

func (m *fakeMarket) bar(tf types.Timeframe, t time.Time) types.Bar {
	k := float64(t.Sub(m.first) / tf.Duration())
	p := 100 + math.Mod(k, 17)
	return types.Bar{Timestamp: types.FormatTimestamp(t), Open: p, High: p + 2, Low: p - 1, Close: p + 1, Volume: 10}
}

// before returns up to n bars strictly before anchor, ascending. A zero
// anchor means the newest bars.
func (m *fakeMarket) before(tf types.Timeframe, anchor time.Time, n int) []types.Bar {
	step := tf.Duration()
	end := tf.Align(m.last)
	if !anchor.IsZero() {
		a := tf.Align(anchor)
		if !a.Before(anchor) {
			a = a.Add(-step)
		}
		if a.Before(end) {
			end = a
		}
	}
	var out []types.Bar
	for t := end; !t.Before(m.first) && len(out) < n; t = t.Add(-step) {
		out = append([]types.Bar{m.bar(tf, t)}, out...)
	}
	return out
}

// from returns up to n bars at or after anchor, ascending.
func (m *fakeMarket) from(tf types.Timeframe, anchor time.Time, n int) []types.Bar {
	step := tf.Duration()
	start := tf.Align(anchor)
	if start.Before(anchor) {
		start = start.Add(step)
	}
	for start.Before(m.first) {
		start = start.Add(step)
	}
	var out []types.Bar
	for t := start; !t.After(m.last) && len(out) < n; t = t.Add(step) {
		out = append(out, m.bar(tf, t))
	}
	return out
}

type savedPrefs struct {
	mu    sync.Mutex
	saved []types.Timeframe
}

func (p *savedPrefs) SaveTimeframe(_ context.Context, tf types.Timeframe) {
	p.mu.Lock()
	p.saved = append(p.saved, tf)
	p.mu.Unlock()
}

func testOptions(clock *fakeClock) Options {
	return Options{
		BufferSize:    100,
		DefaultWindow: 80,
		LoadMargin:    10,
		Cooldown:      30 * time.Second,
		SettleDelay:   time.Hour,
		PruneDelay:    time.Hour,
		Now:           clock.Now,
	}
}

// newHourly returns a started 1h session over a market of n bars ending one
// hour before testNow.
func newHourly(t *testing.T, n int, opts func(*Options)) (*Session, *fakeMarket, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: testNow}
	m := newMarket(testNow.Add(-time.Duration(n)*time.Hour), testNow.Add(-time.Hour))
	o := testOptions(clock)
	if opts != nil {
		opts(&o)
	}
	s := New("test", "AAPL", types.Timeframe1h, o, Deps{Fetcher: m})
	t.Cleanup(s.Close)
	require.NoError(t, s.Start(context.Background()))
	return s, m, clock
}

func visibleTimestamps(snap Snapshot) []string {
	out := make([]string, len(snap.Bars))
	for i, b := range snap.Bars {
		out[i] = b.Timestamp
	}
	return out
}
