package flip

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/flipbot/internal/domain"
)

// defaultVolumeConcurrency bounds parallel volume lookups within one cycle.
const defaultVolumeConcurrency = 16

// FinderConfig configures a Finder.
type FinderConfig struct {
	Grouper           *Grouper
	Gate              *Gate
	Ledger            domain.DedupLedger
	VolumeConcurrency int
	Now               func() time.Time
	Logger            *slog.Logger
}

// Finder runs the admission chain for one cycle: grouping and thresholds,
// dedup, volume gating, then ledger bookkeeping.
type Finder struct {
	grouper     *Grouper
	gate        *Gate
	ledger      domain.DedupLedger
	concurrency int
	now         func() time.Time
	logger      *slog.Logger
}

// NewFinder builds a Finder from cfg.
func NewFinder(cfg FinderConfig) *Finder {
	conc := cfg.VolumeConcurrency
	if conc <= 0 {
		conc = defaultVolumeConcurrency
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Finder{
		grouper:     cfg.Grouper,
		gate:        cfg.Gate,
		ledger:      cfg.Ledger,
		concurrency: conc,
		now:         now,
		logger:      logger.With(slog.String("component", "flip_finder")),
	}
}

// Result summarizes one cycle. LedgerErrors counts candidates skipped
// because the ledger could not be read.
type Result struct {
	Candidates   int
	Unreported   int
	LedgerErrors int
	Flips        []domain.Flip
}

type gated struct {
	volume float64
	ok     bool
}

// Find returns the flips admitted from entries, in identifier order, and
// marks each in the ledger. If ctx ends before gating completes the ledger
// is left untouched and ctx's error is returned.
func (f *Finder) Find(ctx context.Context, entries []domain.ListingEntry) (Result, error) {
	candidates := f.grouper.FindCandidates(entries)
	res := Result{Candidates: len(candidates)}

	pending := make([]domain.Candidate, 0, len(candidates))
	for _, c := range candidates {
		ok, err := f.ledger.ShouldReport(ctx, c.Cheapest.ListingID)
		if err != nil {
			// Unknown state is treated as reported.
			res.LedgerErrors++
			f.logger.Warn("ledger check failed",
				slog.String("listing_id", c.Cheapest.ListingID),
				slog.String("error", err.Error()),
			)
			continue
		}
		if ok {
			pending = append(pending, c)
		}
	}
	res.Unreported = len(pending)
	if len(pending) == 0 {
		return res, nil
	}

	results := make([]gated, len(pending))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.concurrency)
	for i, c := range pending {
		g.Go(func() error {
			vol, ok := f.gate.Admit(gctx, c.Identifier)
			results[i] = gated{volume: vol, ok: ok}
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return res, fmt.Errorf("flip: find: %w", err)
	}

	at := f.now().UTC()
	for i, c := range pending {
		if !results[i].ok {
			continue
		}
		if err := f.ledger.MarkReported(ctx, c.Cheapest.ListingID); err != nil {
			f.logger.Warn("ledger mark failed",
				slog.String("listing_id", c.Cheapest.ListingID),
				slog.String("error", err.Error()),
			)
		}
		res.Flips = append(res.Flips, domain.NewFlip(c, results[i].volume, at))
	}

	f.logger.Debug("cycle evaluated",
		slog.Int("candidates", res.Candidates),
		slog.Int("unreported", res.Unreported),
		slog.Int("flips", len(res.Flips)),
	)
	return res, nil
}
