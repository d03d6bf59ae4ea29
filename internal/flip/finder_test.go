package flip

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alanyoungcy/flipbot/internal/cache/memory"
	"github.com/alanyoungcy/flipbot/internal/domain"
)

func newTestFinder(lookup VolumeLookup, ledger domain.DedupLedger) *Finder {
	gate := NewGate(GateConfig{
		Cache:     memory.NewVolumeCache(time.Minute),
		Lookup:    lookup,
		TTL:       time.Minute,
		MinVolume: 5,
	})
	return NewFinder(FinderConfig{
		Grouper: NewGrouper(absolute(100, 10_000, 2)),
		Gate:    gate,
		Ledger:  ledger,
		Now:     func() time.Time { return time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC) },
	})
}

func cycleEntries() []domain.ListingEntry {
	return []domain.ListingEntry{
		entry("HYPERION", "h-cheap", 1000), entry("HYPERION", "h-2", 2000),
		entry("JUJU", "j-cheap", 500), entry("JUJU", "j-2", 550),
		entry("TERMINATOR", "t-cheap", 3000), entry("TERMINATOR", "t-2", 5000),
	}
}

func TestFinderReportsOnce(t *testing.T) {
	volumes := map[string]float64{"HYPERION": 10, "TERMINATOR": 1}
	lookup := VolumeLookupFunc(func(_ context.Context, id string) (*float64, error) {
		v, ok := volumes[id]
		if !ok {
			return nil, nil
		}
		return &v, nil
	})
	ledger := NewLedger(10)
	f := newTestFinder(lookup, ledger.Dedup())

	res, err := f.Find(context.Background(), cycleEntries())
	if err != nil {
		t.Fatal(err)
	}
	if res.Candidates != 2 {
		t.Errorf("Candidates = %d, want 2", res.Candidates)
	}
	if len(res.Flips) != 1 {
		t.Fatalf("Flips = %+v, want 1", res.Flips)
	}
	fl := res.Flips[0]
	if fl.ListingID != "h-cheap" || fl.Profit != 1000 || fl.SecondCheapestPrice != 2000 || fl.AverageDailyVolume != 10 {
		t.Errorf("flip = %+v", fl)
	}
	if ledger.ShouldReport("h-cheap") {
		t.Error("reported listing not in ledger")
	}
	if !ledger.ShouldReport("t-cheap") {
		t.Error("volume-rejected listing entered the ledger")
	}

	again, err := f.Find(context.Background(), cycleEntries())
	if err != nil {
		t.Fatal(err)
	}
	if len(again.Flips) != 0 {
		t.Errorf("second cycle reported %d flips, want 0", len(again.Flips))
	}
	if again.Unreported != 1 {
		t.Errorf("Unreported = %d, want 1", again.Unreported)
	}
}

func TestFinderCancelledCycleLeavesLedger(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var calls atomic.Int64
	lookup := VolumeLookupFunc(func(context.Context, string) (*float64, error) {
		if calls.Add(1) == 1 {
			cancel()
		}
		v := 100.0
		return &v, nil
	})
	ledger := NewLedger(10)
	f := newTestFinder(lookup, ledger.Dedup())

	_, err := f.Find(ctx, cycleEntries())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if ledger.Len() != 0 {
		t.Errorf("ledger has %d ids after cancelled cycle", ledger.Len())
	}
}

func fixedVolume(v float64) VolumeLookup {
	return VolumeLookupFunc(func(context.Context, string) (*float64, error) {
		return &v, nil
	})
}

// Two finders with private ledgers and one shared ledger stand in for two
// instances that take turns under the scan lock.
func TestFinderSharedLedgerAcrossInstances(t *testing.T) {
	shared := NewLedger(10).Dedup()
	first := newTestFinder(fixedVolume(50), ChainDedup(NewLedger(10).Dedup(), shared))
	second := newTestFinder(fixedVolume(50), ChainDedup(NewLedger(10).Dedup(), shared))

	var total int
	for _, f := range []*Finder{first, second, first, second} {
		res, err := f.Find(context.Background(), cycleEntries())
		if err != nil {
			t.Fatal(err)
		}
		total += len(res.Flips)
	}
	if total != 2 {
		t.Errorf("reported %d flips across instances, want 2", total)
	}
}

type failingLedger struct{ err error }

func (l failingLedger) ShouldReport(context.Context, string) (bool, error) { return false, l.err }
func (l failingLedger) MarkReported(context.Context, string) error         { return l.err }

func TestFinderLedgerErrorSkipsCandidate(t *testing.T) {
	f := newTestFinder(fixedVolume(50), failingLedger{err: errors.New("down")})

	res, err := f.Find(context.Background(), cycleEntries())
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Flips) != 0 {
		t.Errorf("Flips = %+v, want none while the ledger is unreadable", res.Flips)
	}
	if res.LedgerErrors != 2 {
		t.Errorf("LedgerErrors = %d, want 2", res.LedgerErrors)
	}
}

func TestChainDedup(t *testing.T) {
	boom := errors.New("boom")
	tests := []struct {
		name    string
		seedA   []string
		seedB   []string
		extra   domain.DedupLedger
		want    bool
		wantErr error
	}{
		{name: "unseen everywhere", want: true},
		{name: "seen in first", seedA: []string{"x"}, want: false},
		{name: "seen in second", seedB: []string{"x"}, want: false},
		{name: "error fails closed", extra: failingLedger{err: boom}, want: false, wantErr: boom},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, b := NewLedger(4), NewLedger(4)
			a.Seed(tt.seedA)
			b.Seed(tt.seedB)
			ledgers := []domain.DedupLedger{a.Dedup(), b.Dedup()}
			if tt.extra != nil {
				ledgers = append(ledgers, tt.extra)
			}
			chain := ChainDedup(ledgers...)

			got, err := chain.ShouldReport(context.Background(), "x")
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ShouldReport = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestChainDedupMarksAll(t *testing.T) {
	a, b := NewLedger(4), NewLedger(4)
	if err := ChainDedup(a.Dedup(), b.Dedup()).MarkReported(context.Background(), "x"); err != nil {
		t.Fatal(err)
	}
	if a.ShouldReport("x") || b.ShouldReport("x") {
		t.Error("mark did not reach every ledger")
	}
}
