package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/flipbot/internal/domain"
	"github.com/alanyoungcy/flipbot/internal/flip"
)

// scanLockKey serializes cycles across instances sharing a lock manager.
const scanLockKey = "scan"

// AuctionFetcher retrieves the current fixed-price listings.
type AuctionFetcher interface {
	FetchAuctions(ctx context.Context) ([]domain.RawListing, error)
}

// IdentityResolver maps a payload to its canonical id.
type IdentityResolver interface {
	Resolve(payload string) (string, bool)
}

// NameNormalizer canonicalizes display names.
type NameNormalizer interface {
	Normalize(raw string) string
}

// FlipFinder evaluates one cycle's entries.
type FlipFinder interface {
	Find(ctx context.Context, entries []domain.ListingEntry) (flip.Result, error)
}

// FlipRecorder handles a reported flip.
type FlipRecorder interface {
	Record(ctx context.Context, f domain.Flip)
}

// ScannerConfig configures a Scanner. Lock and Audit are optional.
type ScannerConfig struct {
	Fetcher    AuctionFetcher
	Resolver   IdentityResolver
	Normalizer NameNormalizer
	Finder     FlipFinder
	Recorder   FlipRecorder
	Lock       domain.LockManager
	LockTTL    time.Duration
	Audit      domain.AuditLogger
	Workers    int
	Logger     *slog.Logger
}

// Scanner runs one polling cycle end to end.
type Scanner struct {
	fetcher    AuctionFetcher
	resolver   IdentityResolver
	normalizer NameNormalizer
	finder     FlipFinder
	recorder   FlipRecorder
	lock       domain.LockManager
	lockTTL    time.Duration
	audit      domain.AuditLogger
	workers    int
	logger     *slog.Logger
}

// NewScanner creates a Scanner. Workers defaults to runtime.NumCPU().
func NewScanner(cfg ScannerConfig) *Scanner {
	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	lockTTL := cfg.LockTTL
	if lockTTL <= 0 {
		lockTTL = 2 * time.Minute
	}
	return &Scanner{
		fetcher:    cfg.Fetcher,
		resolver:   cfg.Resolver,
		normalizer: cfg.Normalizer,
		finder:     cfg.Finder,
		recorder:   cfg.Recorder,
		lock:       cfg.Lock,
		lockTTL:    lockTTL,
		audit:      cfg.Audit,
		workers:    workers,
		logger:     cfg.Logger.With(slog.String("component", "scanner")),
	}
}

// CycleStats summarizes one cycle.
type CycleStats struct {
	ID         string        `json:"cycle_id"`
	StartedAt  time.Time     `json:"started_at"`
	Duration   time.Duration `json:"duration"`
	Listings   int           `json:"listings"`
	Resolved   int           `json:"resolved"`
	Failed     int           `json:"failed"`
	Candidates int           `json:"candidates"`
	Flips      int           `json:"flips"`
	Skipped    bool          `json:"skipped"`
}

// Run executes one cycle. A cycle skipped because another instance holds
// the scan lock returns Skipped stats and no error.
func (s *Scanner) Run(ctx context.Context) (CycleStats, error) {
	stats := CycleStats{ID: uuid.NewString(), StartedAt: time.Now().UTC()}
	logger := s.logger.With(slog.String("cycle_id", stats.ID))

	if s.lock != nil {
		unlock, err := s.lock.Acquire(ctx, scanLockKey, s.lockTTL)
		if errors.Is(err, domain.ErrLockHeld) {
			stats.Skipped = true
			logger.Debug("scan lock held elsewhere, skipping cycle")
			return stats, nil
		}
		if err != nil {
			return stats, fmt.Errorf("pipeline: acquire scan lock: %w", err)
		}
		defer unlock()
	}

	listings, err := s.fetcher.FetchAuctions(ctx)
	if err != nil {
		return stats, fmt.Errorf("pipeline: fetch auctions: %w", err)
	}
	stats.Listings = len(listings)

	entries, resolved, failed := s.resolve(ctx, logger, listings)
	stats.Resolved, stats.Failed = resolved, failed
	if err := ctx.Err(); err != nil {
		return stats, fmt.Errorf("pipeline: resolve: %w", err)
	}

	res, err := s.finder.Find(ctx, entries)
	stats.Candidates = res.Candidates
	if err != nil {
		return stats, fmt.Errorf("pipeline: find flips: %w", err)
	}
	for _, f := range res.Flips {
		s.recorder.Record(ctx, f)
	}
	stats.Flips = len(res.Flips)
	stats.Duration = time.Since(stats.StartedAt)

	logger.Info("cycle complete",
		slog.Int("listings", stats.Listings),
		slog.Int("resolved", stats.Resolved),
		slog.Int("failed", stats.Failed),
		slog.Int("candidates", stats.Candidates),
		slog.Int("flips", stats.Flips),
		slog.Duration("duration", stats.Duration),
	)
	if s.audit != nil {
		if err := s.audit.Log(ctx, "scan.cycle", map[string]any{
			"cycle_id":    stats.ID,
			"listings":    stats.Listings,
			"resolved":    stats.Resolved,
			"failed":      stats.Failed,
			"candidates":  stats.Candidates,
			"flips":       stats.Flips,
			"duration_ms": stats.Duration.Milliseconds(),
		}); err != nil {
			logger.Warn("audit log failed", slog.String("error", err.Error()))
		}
	}
	return stats, nil
}

// resolve turns listings into entries on a bounded worker pool, keeping
// input order. A listing whose processing panics is dropped and counted in
// failed; its siblings are unaffected.
func (s *Scanner) resolve(ctx context.Context, logger *slog.Logger, listings []domain.RawListing) ([]domain.ListingEntry, int, int) {
	entries := make([]domain.ListingEntry, len(listings))
	done := make([]bool, len(listings))
	hit := make([]bool, len(listings))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i, l := range listings {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					logger.Error("listing processing panicked",
						slog.String("listing_id", l.ListingID),
						slog.String("panic", fmt.Sprint(r)),
					)
				}
			}()
			entries[i], hit[i] = s.entry(l)
			done[i] = true
			return nil
		})
	}
	_ = g.Wait()

	out := make([]domain.ListingEntry, 0, len(listings))
	resolved, failed := 0, 0
	for i := range listings {
		if !done[i] {
			failed++
			continue
		}
		if hit[i] {
			resolved++
		}
		out = append(out, entries[i])
	}
	return out, resolved, failed
}

func (s *Scanner) entry(l domain.RawListing) (domain.ListingEntry, bool) {
	normalized := s.normalizer.Normalize(l.DisplayName)
	id, ok := s.resolver.Resolve(l.Payload)
	if !ok {
		id = domain.FallbackIdentifier(normalized)
	}
	return domain.ListingEntry{
		Price:          l.Price,
		ListingID:      l.ListingID,
		DisplayName:    l.DisplayName,
		NormalizedName: normalized,
		Identifier:     id,
	}, ok
}
