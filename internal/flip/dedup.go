package flip

import (
	"context"
	"errors"

	"github.com/alanyoungcy/flipbot/internal/domain"
)

// Dedup exposes l as a domain.DedupLedger.
func (l *Ledger) Dedup() domain.DedupLedger { return localDedup{l: l} }

type localDedup struct{ l *Ledger }

func (d localDedup) ShouldReport(_ context.Context, id string) (bool, error) {
	return d.l.ShouldReport(id), nil
}

func (d localDedup) MarkReported(_ context.Context, id string) error {
	d.l.MarkReported(id)
	return nil
}

// ChainDedup combines ledgers. A listing is reportable only when every
// ledger agrees, and marks are written to all of them. The first error
// from ShouldReport stops the check.
func ChainDedup(ledgers ...domain.DedupLedger) domain.DedupLedger {
	return chainDedup(ledgers)
}

type chainDedup []domain.DedupLedger

func (c chainDedup) ShouldReport(ctx context.Context, id string) (bool, error) {
	for _, l := range c {
		ok, err := l.ShouldReport(ctx, id)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

func (c chainDedup) MarkReported(ctx context.Context, id string) error {
	var errs []error
	for _, l := range c {
		if err := l.MarkReported(ctx, id); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
