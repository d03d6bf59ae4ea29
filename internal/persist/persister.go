package persist

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/alanyoungcy/flipbot/internal/domain"
)

// Snapshotter is a cache that can serialize itself whole.
type Snapshotter interface {
	Snapshot() ([]byte, error)
	Load(data []byte) error
}

type entry struct {
	name string
	snap Snapshotter
}

// Persister owns the snapshot lifecycle of a fixed set of caches: load once
// at startup, save on an interval, save again at shutdown. Failures are
// logged and never returned to the scan loop.
type Persister struct {
	store   Store
	entries []entry
	logger  *slog.Logger
}

// New creates a Persister over store.
func New(store Store, logger *slog.Logger) *Persister {
	return &Persister{
		store:  store,
		logger: logger.With(slog.String("component", "persister")),
	}
}

// Register adds a cache saved under name.
func (p *Persister) Register(name string, s Snapshotter) {
	p.entries = append(p.entries, entry{name: name, snap: s})
}

// LoadAll restores every registered cache. A missing or unreadable snapshot
// leaves that cache empty.
func (p *Persister) LoadAll(ctx context.Context) {
	for _, e := range p.entries {
		data, err := p.store.Load(ctx, e.name)
		if errors.Is(err, domain.ErrNotFound) {
			p.logger.Info("no snapshot, starting empty", slog.String("name", e.name))
			continue
		}
		if err != nil {
			p.logger.Warn("snapshot load failed",
				slog.String("name", e.name),
				slog.String("error", err.Error()),
			)
			continue
		}
		if err := e.snap.Load(data); err != nil {
			p.logger.Warn("snapshot decode failed",
				slog.String("name", e.name),
				slog.String("error", err.Error()),
			)
			continue
		}
		p.logger.Info("snapshot loaded", slog.String("name", e.name), slog.Int("bytes", len(data)))
	}
}

// SaveAll writes every registered cache and returns how many succeeded.
func (p *Persister) SaveAll(ctx context.Context) int {
	saved := 0
	for _, e := range p.entries {
		data, err := e.snap.Snapshot()
		if err == nil {
			err = p.store.Save(ctx, e.name, data)
		}
		if err != nil {
			p.logger.Warn("snapshot save failed",
				slog.String("name", e.name),
				slog.String("error", err.Error()),
			)
			continue
		}
		saved++
	}
	p.logger.Debug("snapshots saved", slog.Int("saved", saved), slog.Int("total", len(p.entries)))
	return saved
}

// RunLoop saves every interval until ctx is cancelled. The shutdown save
// is left to the caller, which must use a context that is still live.
func (p *Persister) RunLoop(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			p.SaveAll(ctx)
		}
	}
}
