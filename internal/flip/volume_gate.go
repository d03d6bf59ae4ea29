package flip

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/alanyoungcy/flipbot/internal/domain"
)

// VolumeLookup fetches an identifier's average daily trade volume. A nil
// result with a nil error means the source had no usable answer.
type VolumeLookup interface {
	AverageDailyVolume(ctx context.Context, identifier string) (*float64, error)
}

// VolumeLookupFunc adapts a function to VolumeLookup.
type VolumeLookupFunc func(ctx context.Context, identifier string) (*float64, error)

func (f VolumeLookupFunc) AverageDailyVolume(ctx context.Context, identifier string) (*float64, error) {
	return f(ctx, identifier)
}

// GateConfig configures a Gate.
type GateConfig struct {
	Cache         domain.VolumeCache
	Lookup        VolumeLookup
	TTL           time.Duration
	MinVolume     float64
	LookupTimeout time.Duration
	Now           func() time.Time
	Logger        *slog.Logger
}

// Gate admits candidates whose identifier trades often enough.
type Gate struct {
	cache     domain.VolumeCache
	lookup    VolumeLookup
	ttl       time.Duration
	minVolume float64
	timeout   time.Duration
	now       func() time.Time
	logger    *slog.Logger
}

// NewGate builds a Gate from cfg. Now defaults to time.Now.
func NewGate(cfg GateConfig) *Gate {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Gate{
		cache:     cfg.Cache,
		lookup:    cfg.Lookup,
		ttl:       cfg.TTL,
		minVolume: cfg.MinVolume,
		timeout:   cfg.LookupTimeout,
		now:       now,
		logger:    logger.With(slog.String("component", "volume_gate")),
	}
}

// Volume returns the identifier's volume estimate, or nil when it is
// unknown. Fresh cache entries are served without a lookup; looked-up
// values, including a confirmed zero, are cached.
func (g *Gate) Volume(ctx context.Context, identifier string) *float64 {
	now := g.now()
	entry, err := g.cache.Get(ctx, identifier)
	switch {
	case err == nil && now.Sub(entry.FetchedAt) < g.ttl:
		v := entry.AverageDailyVolume
		return &v
	case err != nil && !errors.Is(err, domain.ErrNotFound):
		g.logger.Warn("volume cache read failed",
			slog.String("identifier", identifier),
			slog.String("error", err.Error()),
		)
	}

	lookupCtx := ctx
	if g.timeout > 0 {
		var cancel context.CancelFunc
		lookupCtx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}
	vol, err := g.lookup.AverageDailyVolume(lookupCtx, identifier)
	if err != nil {
		g.logger.Debug("volume lookup failed",
			slog.String("identifier", identifier),
			slog.String("error", err.Error()),
		)
		return nil
	}
	if vol == nil {
		return nil
	}

	if err := g.cache.Set(ctx, identifier, domain.VolumeEntry{
		AverageDailyVolume: *vol,
		FetchedAt:          now,
	}); err != nil {
		g.logger.Warn("volume cache write failed",
			slog.String("identifier", identifier),
			slog.String("error", err.Error()),
		)
	}
	return vol
}

// Admit resolves the identifier's volume and reports whether it meets the
// minimum. An unknown volume is never admitted.
func (g *Gate) Admit(ctx context.Context, identifier string) (float64, bool) {
	vol := g.Volume(ctx, identifier)
	if vol == nil {
		return 0, false
	}
	return *vol, *vol >= g.minVolume
}
