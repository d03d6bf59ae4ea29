package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/alanyoungcy/flipbot/internal/domain"
)

// VolumeCache implements domain.VolumeCache with one JSON string per
// identifier at "<prefix>volume:<identifier>". Keys carry a native TTL so
// stale estimates disappear even if no instance reads them again.
type VolumeCache struct {
	c   *Client
	ttl time.Duration
}

// NewVolumeCache creates a VolumeCache whose keys expire after ttl.
func NewVolumeCache(c *Client, ttl time.Duration) *VolumeCache {
	return &VolumeCache{c: c, ttl: ttl}
}

func (vc *VolumeCache) key(identifier string) string {
	return vc.c.Key("volume", identifier)
}

// Get returns the cached entry or domain.ErrNotFound.
func (vc *VolumeCache) Get(ctx context.Context, identifier string) (domain.VolumeEntry, error) {
	raw, err := vc.c.Underlying().Get(ctx, vc.key(identifier)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.VolumeEntry{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.VolumeEntry{}, fmt.Errorf("redis: get volume %s: %w", identifier, err)
	}

	var e domain.VolumeEntry
	if err := json.Unmarshal(raw, &e); err != nil {
		return domain.VolumeEntry{}, fmt.Errorf("redis: decode volume %s: %w", identifier, err)
	}
	return e, nil
}

// Set stores entry with the cache TTL.
func (vc *VolumeCache) Set(ctx context.Context, identifier string, entry domain.VolumeEntry) error {
	raw, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("redis: encode volume %s: %w", identifier, err)
	}
	if err := vc.c.Underlying().Set(ctx, vc.key(identifier), raw, vc.ttl).Err(); err != nil {
		return fmt.Errorf("redis: set volume %s: %w", identifier, err)
	}
	return nil
}

var _ domain.VolumeCache = (*VolumeCache)(nil)
