// Package memory provides process-local implementations of the domain cache
// interfaces for single-instance deployments and tests.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/alanyoungcy/flipbot/internal/domain"
)

// VolumeCache implements domain.VolumeCache with a mutex-guarded map.
// Entries are dropped once they have been stored for longer than the TTL:
// Get deletes an expired entry it finds, and Set sweeps the whole map at most
// once per TTL. A non-positive TTL keeps entries forever.
type VolumeCache struct {
	mu        sync.Mutex
	ttl       time.Duration
	now       func() time.Time
	lastSweep time.Time
	entries   map[string]volumeItem
}

type volumeItem struct {
	entry  domain.VolumeEntry
	stored time.Time
}

// NewVolumeCache returns an empty VolumeCache that forgets entries after ttl.
func NewVolumeCache(ttl time.Duration) *VolumeCache {
	return &VolumeCache{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]volumeItem),
	}
}

func (c *VolumeCache) expired(it volumeItem, now time.Time) bool {
	return c.ttl > 0 && now.Sub(it.stored) >= c.ttl
}

// Get returns the entry for identifier or domain.ErrNotFound.
func (c *VolumeCache) Get(_ context.Context, identifier string) (domain.VolumeEntry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	it, ok := c.entries[identifier]
	if !ok {
		return domain.VolumeEntry{}, domain.ErrNotFound
	}
	if c.expired(it, c.now()) {
		delete(c.entries, identifier)
		return domain.VolumeEntry{}, domain.ErrNotFound
	}
	return it.entry, nil
}

// Set stores entry for identifier.
func (c *VolumeCache) Set(_ context.Context, identifier string, entry domain.VolumeEntry) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	c.entries[identifier] = volumeItem{entry: entry, stored: now}
	if c.ttl > 0 && now.Sub(c.lastSweep) >= c.ttl {
		for id, it := range c.entries {
			if c.expired(it, now) {
				delete(c.entries, id)
			}
		}
		c.lastSweep = now
	}
	return nil
}

// Len returns the number of stored entries, expired or not.
func (c *VolumeCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

var _ domain.VolumeCache = (*VolumeCache)(nil)
