// Package slotclock tracks Solana slot progression and estimates how much
// time remains inside the current slot.
package slotclock

import (
	"context"
	"sync"
	"time"

	"github.com/your-org/sol-arb-bot/pkg/logger"
)

const durationSamples = 10

// SlotFetcher returns the current slot from an upstream source.
type SlotFetcher interface {
	GetSlot(ctx context.Context) (uint64, error)
}

// SlotTiming is a point-in-time view of the chain clock. Values are read
// as a whole; a reader never sees the slot number from one update and the
// start time from another.
type SlotTiming struct {
	Slot              uint64
	StartedAt         time.Time
	EstimatedDuration time.Duration
}

// TimeRemaining estimates the time left in the slot at now. It never
// returns a negative duration.
func (s SlotTiming) TimeRemaining(now time.Time) time.Duration {
	elapsed := now.Sub(s.StartedAt)
	if elapsed >= s.EstimatedDuration {
		return 0
	}
	return s.EstimatedDuration - elapsed
}

// Config controls the polling cadence and the duration estimate fallback.
type Config struct {
	PollInterval    time.Duration
	DefaultSlotTime time.Duration
}

// Clock polls a SlotFetcher and maintains a rolling estimate of slot
// duration. Reads stay available on fetch errors; they just go stale.
type Clock struct {
	fetcher SlotFetcher
	cfg     Config

	mu        sync.RWMutex
	current   SlotTiming
	durations []time.Duration
}

// NewClock creates a Clock. Until the first successful poll, Current
// reports slot 0 with the default duration.
func NewClock(fetcher SlotFetcher, cfg Config) *Clock {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 100 * time.Millisecond
	}
	if cfg.DefaultSlotTime <= 0 {
		cfg.DefaultSlotTime = 400 * time.Millisecond
	}
	return &Clock{
		fetcher: fetcher,
		cfg:     cfg,
		current: SlotTiming{EstimatedDuration: cfg.DefaultSlotTime},
	}
}

// Start runs the polling loop until ctx is done.
func (c *Clock) Start(ctx context.Context) {
	ticker := time.NewTicker(c.cfg.PollInterval)
	defer ticker.Stop()

	c.poll(ctx)
	for {
		select {
		case <-ctx.Done():
			logger.Info("Slot clock stopped.")
			return
		case <-ticker.C:
			c.poll(ctx)
		}
	}
}

func (c *Clock) poll(ctx context.Context) {
	slot, err := c.fetcher.GetSlot(ctx)
	if err != nil {
		if ctx.Err() == nil {
			logger.Warnf("Slot poll failed, keeping stale timing: %v", err)
		}
		return
	}
	c.Observe(slot, time.Now())
}

// Observe records a slot observation. Exposed so a push source (the
// websocket slot subscription) can feed the clock directly.
func (c *Clock) Observe(slot uint64, at time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if slot <= c.current.Slot && c.current.Slot != 0 {
		return
	}

	if c.current.Slot != 0 {
		advanced := slot - c.current.Slot
		per := at.Sub(c.current.StartedAt) / time.Duration(advanced)
		if per > 0 {
			c.durations = append(c.durations, per)
			if len(c.durations) > durationSamples {
				c.durations = c.durations[1:]
			}
		}
	}

	c.current = SlotTiming{
		Slot:              slot,
		StartedAt:         at,
		EstimatedDuration: c.averageDurationLocked(),
	}
}

func (c *Clock) averageDurationLocked() time.Duration {
	if len(c.durations) == 0 {
		return c.cfg.DefaultSlotTime
	}
	var total time.Duration
	for _, d := range c.durations {
		total += d
	}
	return total / time.Duration(len(c.durations))
}

// Current returns the latest slot timing snapshot.
func (c *Clock) Current() SlotTiming {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current
}

// TimeRemaining is a convenience over Current().TimeRemaining(now).
func (c *Clock) TimeRemaining() time.Duration {
	return c.Current().TimeRemaining(time.Now())
}

// HasExecutionWindow reports whether strictly more than required time
// remains in the current slot.
func (c *Clock) HasExecutionWindow(required time.Duration) bool {
	return c.TimeRemaining() > required
}
