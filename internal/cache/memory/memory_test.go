package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alanyoungcy/flipbot/internal/domain"
)

func TestVolumeCache(t *testing.T) {
	ctx := context.Background()
	c := NewVolumeCache(time.Minute)

	if _, err := c.Get(ctx, "HYPERION"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("Get on empty cache: err = %v, want ErrNotFound", err)
	}

	at := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	if err := c.Set(ctx, "HYPERION", domain.VolumeEntry{AverageDailyVolume: 0, FetchedAt: at}); err != nil {
		t.Fatal(err)
	}
	got, err := c.Get(ctx, "HYPERION")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.AverageDailyVolume != 0 || !got.FetchedAt.Equal(at) {
		t.Errorf("Get = %+v", got)
	}
	if c.Len() != 1 {
		t.Errorf("Len = %d, want 1", c.Len())
	}
}

func TestVolumeCacheExpiry(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		ttl     time.Duration
		age     time.Duration
		wantHit bool
		wantLen int
	}{
		{name: "fresh", ttl: time.Minute, age: 30 * time.Second, wantHit: true, wantLen: 1},
		{name: "expired on read", ttl: time.Minute, age: time.Minute, wantHit: false, wantLen: 0},
		{name: "no ttl keeps forever", ttl: 0, age: 24 * time.Hour, wantHit: true, wantLen: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			now := base
			c := NewVolumeCache(tt.ttl)
			c.now = func() time.Time { return now }

			if err := c.Set(ctx, "HYPERION", domain.VolumeEntry{AverageDailyVolume: 3, FetchedAt: base}); err != nil {
				t.Fatal(err)
			}
			now = base.Add(tt.age)
			_, err := c.Get(ctx, "HYPERION")
			if hit := err == nil; hit != tt.wantHit {
				t.Errorf("hit = %v (err %v), want %v", hit, err, tt.wantHit)
			}
			if c.Len() != tt.wantLen {
				t.Errorf("Len = %d, want %d", c.Len(), tt.wantLen)
			}
		})
	}
}

func TestVolumeCacheSweepsOnSet(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewVolumeCache(time.Minute)
	c.now = func() time.Time { return now }

	for _, id := range []string{"A", "B", "C"} {
		if err := c.Set(ctx, id, domain.VolumeEntry{AverageDailyVolume: 1, FetchedAt: now}); err != nil {
			t.Fatal(err)
		}
	}
	now = now.Add(2 * time.Minute)
	if err := c.Set(ctx, "D", domain.VolumeEntry{AverageDailyVolume: 1, FetchedAt: now}); err != nil {
		t.Fatal(err)
	}
	if c.Len() != 1 {
		t.Errorf("Len = %d after sweep, want 1", c.Len())
	}
}

func TestSignalBus(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	bus := NewSignalBus()

	ch, err := bus.Subscribe(ctx, domain.FlipsChannel)
	if err != nil {
		t.Fatal(err)
	}
	if err := bus.Publish(ctx, domain.FlipsChannel, []byte("hello")); err != nil {
		t.Fatal(err)
	}
	if err := bus.Publish(ctx, "other", []byte("ignored")); err != nil {
		t.Fatal(err)
	}

	select {
	case msg := <-ch:
		if string(msg) != "hello" {
			t.Errorf("msg = %q, want %q", msg, "hello")
		}
	case <-time.After(time.Second):
		t.Fatal("no message received")
	}

	cancel()
	select {
	case _, ok := <-ch:
		if ok {
			t.Error("unexpected message after cancel")
		}
	case <-time.After(time.Second):
		t.Fatal("channel not closed after cancel")
	}
}

func TestLockManager(t *testing.T) {
	ctx := context.Background()
	lm := NewLockManager()
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	lm.now = func() time.Time { return now }

	unlock, err := lm.Acquire(ctx, "scan", time.Minute)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if _, err := lm.Acquire(ctx, "scan", time.Minute); !errors.Is(err, domain.ErrLockHeld) {
		t.Fatalf("second Acquire: err = %v, want ErrLockHeld", err)
	}
	unlock()
	unlock()

	again, err := lm.Acquire(ctx, "scan", time.Minute)
	if err != nil {
		t.Fatalf("Acquire after unlock: %v", err)
	}

	now = now.Add(2 * time.Minute)
	if _, err := lm.Acquire(ctx, "scan", time.Minute); err != nil {
		t.Fatalf("Acquire after expiry: %v", err)
	}
	// A stale unlock must not release the new holder.
	again()
	if _, err := lm.Acquire(ctx, "scan", time.Minute); !errors.Is(err, domain.ErrLockHeld) {
		t.Errorf("Acquire after stale unlock: err = %v, want ErrLockHeld", err)
	}
}
