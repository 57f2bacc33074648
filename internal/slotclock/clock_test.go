package slotclock

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFetcher struct {
	slot atomic.Uint64
	fail atomic.Bool
}

func (f *fakeFetcher) GetSlot(ctx context.Context) (uint64, error) {
	if f.fail.Load() {
		return 0, errors.New("rpc timeout")
	}
	return f.slot.Load(), nil
}

func TestSlotTiming_TimeRemainingNeverNegative(t *testing.T) {
	start := time.Now()
	timing := SlotTiming{Slot: 100, StartedAt: start, EstimatedDuration: 400 * time.Millisecond}

	assert.Equal(t, 400*time.Millisecond, timing.TimeRemaining(start))
	assert.Equal(t, 150*time.Millisecond, timing.TimeRemaining(start.Add(250*time.Millisecond)))
	assert.Equal(t, time.Duration(0), timing.TimeRemaining(start.Add(400*time.Millisecond)))
	assert.Equal(t, time.Duration(0), timing.TimeRemaining(start.Add(5*time.Second)))
}

func TestClock_ObserveRollingAverage(t *testing.T) {
	c := NewClock(nil, Config{DefaultSlotTime: 400 * time.Millisecond})

	base := time.Now()
	c.Observe(100, base)
	// No samples yet, default duration.
	assert.Equal(t, 400*time.Millisecond, c.Current().EstimatedDuration)

	c.Observe(101, base.Add(300*time.Millisecond))
	cur := c.Current()
	assert.Equal(t, uint64(101), cur.Slot)
	assert.Equal(t, 300*time.Millisecond, cur.EstimatedDuration)

	c.Observe(102, base.Add(800*time.Millisecond))
	// Average of 300ms and 500ms.
	assert.Equal(t, 400*time.Millisecond, c.Current().EstimatedDuration)
}

func TestClock_ObserveIgnoresStaleSlots(t *testing.T) {
	c := NewClock(nil, Config{})
	base := time.Now()
	c.Observe(100, base)
	c.Observe(99, base.Add(time.Millisecond))

	assert.Equal(t, uint64(100), c.Current().Slot)
}

func TestClock_ObserveMultiSlotAdvance(t *testing.T) {
	c := NewClock(nil, Config{})
	base := time.Now()
	c.Observe(100, base)
	// Four slots in 1600ms is 400ms apiece.
	c.Observe(104, base.Add(1600*time.Millisecond))

	assert.Equal(t, 400*time.Millisecond, c.Current().EstimatedDuration)
}

func TestClock_PollSurvivesFetchErrors(t *testing.T) {
	fetcher := &fakeFetcher{}
	fetcher.slot.Store(500)
	c := NewClock(fetcher, Config{PollInterval: 5 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		c.Start(ctx)
	}()

	require.Eventually(t, func() bool {
		return c.Current().Slot == 500
	}, time.Second, time.Millisecond)

	fetcher.fail.Store(true)
	time.Sleep(20 * time.Millisecond)
	// Stale but still readable.
	assert.Equal(t, uint64(500), c.Current().Slot)

	fetcher.fail.Store(false)
	fetcher.slot.Store(501)
	require.Eventually(t, func() bool {
		return c.Current().Slot == 501
	}, time.Second, time.Millisecond)

	cancel()
	<-done
}

func TestClock_HasExecutionWindow(t *testing.T) {
	c := NewClock(nil, Config{DefaultSlotTime: 400 * time.Millisecond})
	c.Observe(100, time.Now())

	assert.True(t, c.HasExecutionWindow(50*time.Millisecond))
	assert.False(t, c.HasExecutionWindow(10*time.Second))
}

func TestClock_ExecutionWindowIsStrict(t *testing.T) {
	c := NewClock(nil, Config{DefaultSlotTime: 400 * time.Millisecond})
	c.Observe(100, time.Now().Add(-time.Second))

	// The slot is fully elapsed: zero remaining is not a window, even
	// for a zero requirement.
	assert.Zero(t, c.TimeRemaining())
	assert.False(t, c.HasExecutionWindow(0))
}
