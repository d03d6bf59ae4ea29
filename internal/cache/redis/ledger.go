package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/alanyoungcy/flipbot/internal/domain"
)

// markLua adds ARGV[1] to the membership set and, when it is new, pushes it
// on the order list. Entries past capacity ARGV[2] are popped from the tail
// (oldest first) and removed from the set.
const markLua = `
if redis.call('SADD', KEYS[1], ARGV[1]) == 0 then
    return 0
end
redis.call('LPUSH', KEYS[2], ARGV[1])
local cap = tonumber(ARGV[2])
while redis.call('LLEN', KEYS[2]) > cap do
    local old = redis.call('RPOP', KEYS[2])
    redis.call('SREM', KEYS[1], old)
end
return 1
`

// DedupLedger implements domain.DedupLedger as a bounded FIFO set shared by
// every instance using the same key prefix. Membership lives in a set at
// "<prefix>ledger:set"; insertion order lives in a list at
// "<prefix>ledger:order".
type DedupLedger struct {
	c        *Client
	capacity int
	markSc   *redis.Script
}

// NewDedupLedger creates a DedupLedger holding at most capacity ids.
func NewDedupLedger(c *Client, capacity int) *DedupLedger {
	if capacity <= 0 {
		capacity = 10000
	}
	return &DedupLedger{c: c, capacity: capacity, markSc: redis.NewScript(markLua)}
}

func (l *DedupLedger) setKey() string   { return l.c.Key("ledger", "set") }
func (l *DedupLedger) orderKey() string { return l.c.Key("ledger", "order") }

// ShouldReport reports whether listingID is absent from the shared set.
func (l *DedupLedger) ShouldReport(ctx context.Context, listingID string) (bool, error) {
	seen, err := l.c.Underlying().SIsMember(ctx, l.setKey(), listingID).Result()
	if err != nil {
		return false, fmt.Errorf("redis: ledger check %s: %w", listingID, err)
	}
	return !seen, nil
}

// MarkReported records listingID, evicting the oldest ids beyond capacity.
func (l *DedupLedger) MarkReported(ctx context.Context, listingID string) error {
	keys := []string{l.setKey(), l.orderKey()}
	if err := l.markSc.Run(ctx, l.c.Underlying(), keys, listingID, l.capacity).Err(); err != nil {
		return fmt.Errorf("redis: ledger mark %s: %w", listingID, err)
	}
	return nil
}

// Len returns the number of ids held.
func (l *DedupLedger) Len(ctx context.Context) (int64, error) {
	n, err := l.c.Underlying().SCard(ctx, l.setKey()).Result()
	if err != nil {
		return 0, fmt.Errorf("redis: ledger len: %w", err)
	}
	return n, nil
}

var _ domain.DedupLedger = (*DedupLedger)(nil)
