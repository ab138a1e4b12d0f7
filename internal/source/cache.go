package source

import (
	"context"
	"sync"
	"time"

	"tourcal/internal/model"
)

// Cached reuses the events of an underlying source for TTL so that repeated
// API calls do not refetch and re-expand every feed.
type Cached struct {
	src Source
	ttl time.Duration

	mu        sync.RWMutex
	events    []model.CalEvent
	updatedAt time.Time
}

func NewCached(src Source, ttl time.Duration) *Cached {
	return &Cached{src: src, ttl: ttl}
}

func (c *Cached) Events(ctx context.Context) ([]model.CalEvent, error) {
	now := time.Now()

	c.mu.RLock()
	events, updatedAt := c.events, c.updatedAt
	c.mu.RUnlock()
	if events != nil && now.Sub(updatedAt) < c.ttl {
		return append([]model.CalEvent(nil), events...), nil
	}

	fresh, err := c.src.Events(ctx)
	if err != nil {
		return nil, err
	}
	if fresh == nil {
		fresh = []model.CalEvent{}
	}

	c.mu.Lock()
	c.events = fresh
	c.updatedAt = time.Now()
	c.mu.Unlock()
	return append([]model.CalEvent(nil), fresh...), nil
}

// Invalidate drops the cached events.
func (c *Cached) Invalidate() {
	c.mu.Lock()
	c.events = nil
	c.mu.Unlock()
}
