// Package service holds the side effects that follow a flip detection:
// history, live fan-out and notification.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/alanyoungcy/flipbot/internal/domain"
)

// DefaultRecentCapacity is how many flips the dashboard keeps in memory.
const DefaultRecentCapacity = 200

// FlipNotifier delivers one flip alert. *notify.Notifier satisfies it.
type FlipNotifier interface {
	NotifyFlip(ctx context.Context, f domain.Flip) error
}

// FlipEvent is the JSON published on domain.FlipsChannel.
type FlipEvent struct {
	Event string      `json:"event"`
	Flip  domain.Flip `json:"flip"`
}

// FlipService records reported flips. Store, Bus and Notifier are each
// optional.
type FlipService struct {
	store    domain.FlipStore
	bus      domain.SignalBus
	notifier FlipNotifier
	logger   *slog.Logger

	mu       sync.RWMutex
	recent   []domain.Flip
	next     int
	capacity int
}

// FlipServiceConfig configures a FlipService.
type FlipServiceConfig struct {
	Store          domain.FlipStore
	Bus            domain.SignalBus
	Notifier       FlipNotifier
	RecentCapacity int
	Logger         *slog.Logger
}

// NewFlipService creates a FlipService.
func NewFlipService(cfg FlipServiceConfig) *FlipService {
	capacity := cfg.RecentCapacity
	if capacity <= 0 {
		capacity = DefaultRecentCapacity
	}
	return &FlipService{
		store:    cfg.Store,
		bus:      cfg.Bus,
		notifier: cfg.Notifier,
		capacity: capacity,
		recent:   make([]domain.Flip, 0, capacity),
		logger:   cfg.Logger.With(slog.String("component", "flip_service")),
	}
}

// Record keeps f in the recent ring, then persists, publishes and notifies.
// Each step is attempted regardless of earlier failures, which are logged.
func (s *FlipService) Record(ctx context.Context, f domain.Flip) {
	s.remember(f)

	s.logger.InfoContext(ctx, "flip found",
		slog.String("listing_id", f.ListingID),
		slog.String("identifier", f.Identifier),
		slog.String("name", f.DisplayName),
		slog.Int64("cost", f.CheapestPrice),
		slog.Int64("profit", f.Profit),
		slog.Float64("volume", f.AverageDailyVolume),
	)

	if s.store != nil {
		if err := s.store.Insert(ctx, f); err != nil {
			s.logger.WarnContext(ctx, "flip store insert failed",
				slog.String("listing_id", f.ListingID),
				slog.String("error", err.Error()),
			)
		}
	}
	if s.bus != nil {
		if err := s.publish(ctx, f); err != nil {
			s.logger.WarnContext(ctx, "flip publish failed",
				slog.String("listing_id", f.ListingID),
				slog.String("error", err.Error()),
			)
		}
	}
	if s.notifier != nil {
		if err := s.notifier.NotifyFlip(ctx, f); err != nil {
			s.logger.WarnContext(ctx, "flip notification failed",
				slog.String("listing_id", f.ListingID),
				slog.String("error", err.Error()),
			)
		}
	}
}

func (s *FlipService) publish(ctx context.Context, f domain.Flip) error {
	payload, err := json.Marshal(FlipEvent{Event: "flip", Flip: f})
	if err != nil {
		return fmt.Errorf("service: marshal flip event: %w", err)
	}
	return s.bus.Publish(ctx, domain.FlipsChannel, payload)
}

func (s *FlipService) remember(f domain.Flip) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.recent) < s.capacity {
		s.recent = append(s.recent, f)
		return
	}
	s.recent[s.next] = f
	s.next = (s.next + 1) % s.capacity
}

// Recent returns up to limit in-memory flips, newest first. A limit of zero
// or less returns all of them.
func (s *FlipService) Recent(limit int) []domain.Flip {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := len(s.recent)
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]domain.Flip, 0, limit)
	// The newest entry sits just before next once the ring has wrapped.
	newest := n - 1
	if n == s.capacity {
		newest = (s.next - 1 + n) % n
	}
	for i := 0; i < limit; i++ {
		out = append(out, s.recent[(newest-i+n)%n])
	}
	return out
}

// History returns up to limit flips from the store, newest first, or
// domain.ErrNotFound when no store is configured.
func (s *FlipService) History(ctx context.Context, limit int) ([]domain.Flip, error) {
	if s.store == nil {
		return nil, fmt.Errorf("service: flip history: %w", domain.ErrNotFound)
	}
	flips, err := s.store.ListRecent(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("service: flip history: %w", err)
	}
	return flips, nil
}
