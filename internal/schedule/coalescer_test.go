package schedule

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCoalescerBurstRunsOnce(t *testing.T) {
	var calls atomic.Int32
	c := NewCoalescer(20*time.Millisecond, func() { calls.Add(1) })
	for i := 0; i < 10; i++ {
		c.Trigger()
	}
	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	require.EqualValues(t, 1, calls.Load())
	require.False(t, c.scheduled())
}

func TestCoalescerFlush(t *testing.T) {
	var calls atomic.Int32
	c := NewCoalescer(time.Hour, func() { calls.Add(1) })
	c.Flush()
	require.Zero(t, calls.Load())

	c.Trigger()
	require.True(t, c.scheduled())
	c.Flush()
	require.EqualValues(t, 1, calls.Load())
	require.False(t, c.scheduled())
}

func TestCoalescerStop(t *testing.T) {
	var calls atomic.Int32
	c := NewCoalescer(10*time.Millisecond, func() { calls.Add(1) })
	c.Trigger()
	c.Stop()
	c.Trigger()
	time.Sleep(40 * time.Millisecond)
	require.Zero(t, calls.Load())
}
