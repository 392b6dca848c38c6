package cache

import (
	"context"
	"maps"
	"sync"
	"time"
)

// MemoryAlertCooldown is the single-process cooldown used when Redis is not configured.
type MemoryAlertCooldown struct {
	mu      sync.Mutex
	expires map[string]time.Time
	now     func() time.Time
}

func NewMemoryAlertCooldown() *MemoryAlertCooldown {
	return &MemoryAlertCooldown{expires: map[string]time.Time{}, now: time.Now}
}

// WithClock returns a copy of the cooldown, including held keys, that reads
// time from now.
func (c *MemoryAlertCooldown) WithClock(now func() time.Time) *MemoryAlertCooldown {
	c.mu.Lock()
	defer c.mu.Unlock()

	return &MemoryAlertCooldown{expires: maps.Clone(c.expires), now: now}
}

func (c *MemoryAlertCooldown) Acquire(_ context.Context, key string, window time.Duration) (bool, error) {
	if window <= 0 {
		return true, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if until, ok := c.expires[key]; ok && now.Before(until) {
		return false, nil
	}

	// Drop expired keys so the map stays bounded by live cooldowns.
	for k, until := range c.expires {
		if !now.Before(until) {
			delete(c.expires, k)
		}
	}

	c.expires[key] = now.Add(window)
	return true, nil
}
