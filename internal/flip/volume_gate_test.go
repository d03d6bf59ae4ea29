package flip

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alanyoungcy/flipbot/internal/cache/memory"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

type countingLookup struct {
	calls atomic.Int64
	vol   *float64
	err   error
	delay time.Duration
}

func (l *countingLookup) AverageDailyVolume(ctx context.Context, _ string) (*float64, error) {
	l.calls.Add(1)
	if l.delay > 0 {
		select {
		case <-time.After(l.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return l.vol, l.err
}

func vol(v float64) *float64 { return &v }

func TestGateTTL(t *testing.T) {
	const ttl = 5 * time.Minute
	clk := &clock{t: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	t0 := clk.t
	lookup := &countingLookup{vol: vol(12)}
	g := NewGate(GateConfig{
		Cache:     memory.NewVolumeCache(0),
		Lookup:    lookup,
		TTL:       ttl,
		MinVolume: 10,
		Now:       clk.now,
	})
	ctx := context.Background()

	if v, ok := g.Admit(ctx, "HYPERION"); !ok || v != 12 {
		t.Fatalf("Admit = (%v, %v), want (12, true)", v, ok)
	}

	clk.t = t0.Add(ttl - time.Second)
	g.Admit(ctx, "HYPERION")
	if got := lookup.calls.Load(); got != 1 {
		t.Errorf("lookups before expiry = %d, want 1", got)
	}

	clk.t = t0.Add(ttl + time.Second)
	g.Admit(ctx, "HYPERION")
	if got := lookup.calls.Load(); got != 2 {
		t.Errorf("lookups after expiry = %d, want 2", got)
	}
}

func TestGateThresholds(t *testing.T) {
	tests := []struct {
		name   string
		lookup *countingLookup
		wantOK bool
	}{
		{"above minimum", &countingLookup{vol: vol(20)}, true},
		{"at minimum", &countingLookup{vol: vol(10)}, true},
		{"below minimum", &countingLookup{vol: vol(9.99)}, false},
		{"confirmed zero", &countingLookup{vol: vol(0)}, false},
		{"no data", &countingLookup{}, false},
		{"lookup error", &countingLookup{err: errors.New("boom")}, false},
	}
	for _, tt := range tests {
		g := NewGate(GateConfig{
			Cache:     memory.NewVolumeCache(time.Minute),
			Lookup:    tt.lookup,
			TTL:       time.Minute,
			MinVolume: 10,
		})
		if _, ok := g.Admit(context.Background(), "X"); ok != tt.wantOK {
			t.Errorf("%s: admitted = %v, want %v", tt.name, ok, tt.wantOK)
		}
	}
}

func TestGateNilIsNotZero(t *testing.T) {
	ctx := context.Background()
	cache := memory.NewVolumeCache(time.Minute)

	failing := NewGate(GateConfig{Cache: cache, Lookup: &countingLookup{err: errors.New("down")}, TTL: time.Minute})
	if v := failing.Volume(ctx, "A"); v != nil {
		t.Errorf("Volume on failure = %v, want nil", *v)
	}
	if cache.Len() != 0 {
		t.Error("failed lookup was cached")
	}

	zero := NewGate(GateConfig{Cache: cache, Lookup: &countingLookup{vol: vol(0)}, TTL: time.Minute})
	v := zero.Volume(ctx, "A")
	if v == nil || *v != 0 {
		t.Fatalf("Volume on empty history = %v, want 0", v)
	}
	if cache.Len() != 1 {
		t.Error("confirmed zero was not cached")
	}
}

func TestGateLookupTimeout(t *testing.T) {
	lookup := &countingLookup{vol: vol(100), delay: time.Second}
	g := NewGate(GateConfig{
		Cache:         memory.NewVolumeCache(time.Minute),
		Lookup:        lookup,
		TTL:           time.Minute,
		LookupTimeout: 20 * time.Millisecond,
	})
	start := time.Now()
	if _, ok := g.Admit(context.Background(), "SLOW"); ok {
		t.Error("timed out lookup was admitted")
	}
	if time.Since(start) > 500*time.Millisecond {
		t.Error("lookup timeout not enforced")
	}
}
