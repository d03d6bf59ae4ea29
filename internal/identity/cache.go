// Package identity maps listing payloads to canonical item ids, caching
// every outcome under a content hash of the payload.
package identity

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/klauspost/compress/gzip"
	"golang.org/x/crypto/blake2b"

	"github.com/alanyoungcy/flipbot/internal/domain"
)

// Decoder turns a payload into an item. *itemdecode.Decoder satisfies it.
type Decoder interface {
	Decode(payload string) (domain.DecodedItem, error)
}

// Cache resolves payloads to canonical ids. A nil entry records a payload
// that failed to decode or carried no id, so it is never decoded again.
type Cache struct {
	dec Decoder

	mu      sync.RWMutex
	entries map[string]*string

	decodes atomic.Int64
}

// NewCache returns an empty Cache that falls back to dec on a miss.
func NewCache(dec Decoder) *Cache {
	return &Cache{dec: dec, entries: make(map[string]*string)}
}

// Key returns the cache key for payload: the hex blake2b-256 digest of its
// bytes.
func Key(payload string) string {
	sum := blake2b.Sum256([]byte(payload))
	return hex.EncodeToString(sum[:])
}

// Resolve returns the canonical id for payload and whether one exists.
// Concurrent calls for the same uncached payload may both decode; the
// stored outcome is identical either way.
func (c *Cache) Resolve(payload string) (string, bool) {
	key := Key(payload)

	c.mu.RLock()
	id, hit := c.entries[key]
	c.mu.RUnlock()
	if hit {
		if id == nil {
			return "", false
		}
		return *id, true
	}

	c.decodes.Add(1)
	var resolved *string
	if item, err := c.dec.Decode(payload); err == nil && item.CanonicalID != nil && *item.CanonicalID != "" {
		v := *item.CanonicalID
		resolved = &v
	}

	c.mu.Lock()
	c.entries[key] = resolved
	c.mu.Unlock()

	if resolved == nil {
		return "", false
	}
	return *resolved, true
}

// Decodes returns how many times the underlying decoder has been invoked.
func (c *Cache) Decodes() int64 { return c.decodes.Load() }

// Len returns the number of cached payload hashes.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Snapshot writes the table as gzip compressed JSON mapping hash to id or
// null.
func (c *Cache) Snapshot() ([]byte, error) {
	c.mu.RLock()
	raw, err := json.Marshal(c.entries)
	c.mu.RUnlock()
	if err != nil {
		return nil, fmt.Errorf("identity: snapshot: %w", err)
	}

	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(raw); err != nil {
		return nil, fmt.Errorf("identity: snapshot: compress: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("identity: snapshot: compress: %w", err)
	}
	return buf.Bytes(), nil
}

// Load merges a snapshot produced by Snapshot into the table.
func (c *Cache) Load(data []byte) error {
	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("identity: load: %w", err)
	}
	defer zr.Close()

	raw, err := io.ReadAll(zr)
	if err != nil {
		return fmt.Errorf("identity: load: %w", err)
	}
	var stored map[string]*string
	if err := json.Unmarshal(raw, &stored); err != nil {
		return fmt.Errorf("identity: load: %w", err)
	}

	c.mu.Lock()
	for k, v := range stored {
		c.entries[k] = v
	}
	c.mu.Unlock()
	return nil
}
