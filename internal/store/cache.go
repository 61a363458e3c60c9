package store

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	appLog "techevents/internal/log"
	"techevents/internal/model"
)

// Cache serves an in-memory snapshot of a Provider's events. The snapshot is
// replaced only by a successful Refresh, so readers keep seeing the last good
// collection when the underlying file is broken.
type Cache struct {
	provider Provider

	mu       sync.RWMutex
	events   []model.Event
	loadedAt time.Time
	loaded   bool

	onReload func(count int, err error)
}

func NewCache(p Provider) *Cache {
	return &Cache{provider: p}
}

// OnReload registers a hook called after every Refresh attempt.
func (c *Cache) OnReload(fn func(count int, err error)) {
	c.mu.Lock()
	c.onReload = fn
	c.mu.Unlock()
}

// Refresh reloads from the provider.
func (c *Cache) Refresh(ctx context.Context) error {
	events, err := c.provider.LoadAll(ctx)

	c.mu.Lock()
	hook := c.onReload
	if err == nil {
		c.events = events
		c.loadedAt = time.Now()
		c.loaded = true
	}
	count := len(c.events)
	c.mu.Unlock()

	if hook != nil {
		hook(count, err)
	}
	if err != nil {
		appLog.Error("event reload failed; keeping previous snapshot", err, "events", count)
		return err
	}
	appLog.Debug("events reloaded", "events", count)
	return nil
}

// Events returns the current snapshot. Callers must not modify it.
func (c *Cache) Events() []model.Event {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.events
}

// LoadedAt reports when the current snapshot was taken.
func (c *Cache) LoadedAt() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loadedAt
}

// LoadAll makes Cache a Provider: it loads on first use and serves the
// snapshot afterwards.
func (c *Cache) LoadAll(ctx context.Context) ([]model.Event, error) {
	c.mu.RLock()
	loaded := c.loaded
	c.mu.RUnlock()

	if !loaded {
		if err := c.Refresh(ctx); err != nil {
			return nil, err
		}
	}
	return c.Events(), nil
}

// Schedule registers a periodic Refresh on cr using a cron spec such as
// "@every 60s".
func (c *Cache) Schedule(cr *cron.Cron, spec string) (cron.EntryID, error) {
	return cr.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		_ = c.Refresh(ctx)
	})
}
