package domain

import (
	"context"
	"time"
)

// FlipStore persists the history of reported flips.
type FlipStore interface {
	Insert(ctx context.Context, flip Flip) error
	ListRecent(ctx context.Context, limit int) ([]Flip, error)
	ListBetween(ctx context.Context, from, to time.Time) ([]Flip, error)
	RecentListingIDs(ctx context.Context, limit int) ([]string, error)
}

// AuditLogger records operational events such as completed scan cycles.
type AuditLogger interface {
	Log(ctx context.Context, event string, detail map[string]any) error
}
