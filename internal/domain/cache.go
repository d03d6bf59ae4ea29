package domain

import (
	"context"
	"time"
)

// VolumeEntry is a cached average-daily-volume estimate for one identifier.
type VolumeEntry struct {
	AverageDailyVolume float64   `json:"average_daily_volume"`
	FetchedAt          time.Time `json:"fetched_at"`
}

// VolumeCache stores short-lived volume estimates keyed by identifier.
// Get returns ErrNotFound when no entry exists; freshness is decided by the
// caller from FetchedAt.
type VolumeCache interface {
	Get(ctx context.Context, identifier string) (VolumeEntry, error)
	Set(ctx context.Context, identifier string, entry VolumeEntry) error
}

// LockManager provides distributed locking.
type LockManager interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (unlock func(), err error)
}

// SignalBus provides pub/sub fan-out of flip events.
type SignalBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
}

// FlipsChannel is the bus channel every reported flip is published on.
const FlipsChannel = "flips"

// DedupLedger remembers which listings have already been reported.
// Implementations shared between processes make report-once hold across
// instances that take turns scanning.
type DedupLedger interface {
	ShouldReport(ctx context.Context, listingID string) (bool, error)
	MarkReported(ctx context.Context, listingID string) error
}
