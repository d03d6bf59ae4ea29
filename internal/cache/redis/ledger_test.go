package redis

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestClient(t *testing.T, addr string) *Client {
	t.Helper()
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewFromClient(rdb, "")
}

func TestDedupLedgerEvictsOldestFirst(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()
	l := NewDedupLedger(newTestClient(t, mr.Addr()), 2)

	for _, id := range []string{"a", "b", "a", "c"} {
		if err := l.MarkReported(ctx, id); err != nil {
			t.Fatalf("MarkReported(%s): %v", id, err)
		}
	}

	tests := []struct {
		id   string
		want bool
	}{
		{"a", true},
		{"b", false},
		{"c", false},
		{"d", true},
	}
	for _, tt := range tests {
		got, err := l.ShouldReport(ctx, tt.id)
		if err != nil {
			t.Fatal(err)
		}
		if got != tt.want {
			t.Errorf("ShouldReport(%s) = %v, want %v", tt.id, got, tt.want)
		}
	}
	if n, err := l.Len(ctx); err != nil || n != 2 {
		t.Errorf("Len = %d, %v, want 2", n, err)
	}
}

func TestDedupLedgerSharedBetweenClients(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()
	first := NewDedupLedger(newTestClient(t, mr.Addr()), 10)
	second := NewDedupLedger(newTestClient(t, mr.Addr()), 10)

	if err := first.MarkReported(ctx, "x1"); err != nil {
		t.Fatal(err)
	}
	ok, err := second.ShouldReport(ctx, "x1")
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Error("listing marked by one instance is reportable by another")
	}
}

func TestDedupLedgerUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	l := NewDedupLedger(newTestClient(t, mr.Addr()), 10)
	mr.Close()

	if _, err := l.ShouldReport(context.Background(), "x1"); err == nil {
		t.Error("ShouldReport succeeded against a closed server")
	}
}
