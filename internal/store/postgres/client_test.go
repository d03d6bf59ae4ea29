package postgres

import (
	"io/fs"
	"slices"
	"strings"
	"testing"
	"testing/fstest"
)

func TestDSN(t *testing.T) {
	tests := []struct {
		name string
		cfg  ClientConfig
		want string
	}{
		{
			name: "explicit dsn wins",
			cfg:  ClientConfig{DSN: "postgres://u@h/db", Host: "ignored"},
			want: "postgres://u@h/db",
		},
		{
			name: "defaults port and sslmode",
			cfg:  ClientConfig{Host: "db", Database: "flipbot", User: "bot", Password: "pw"},
			want: "postgres://bot:pw@db:5432/flipbot?sslmode=disable",
		},
		{
			name: "custom port and sslmode",
			cfg:  ClientConfig{Host: "db", Port: 6543, Database: "flipbot", User: "bot", Password: "pw", SSLMode: "require"},
			want: "postgres://bot:pw@db:6543/flipbot?sslmode=require",
		},
		{
			name: "escapes credentials",
			cfg:  ClientConfig{Host: "db", Database: "flipbot", User: "bot", Password: "p@ss:w/rd"},
			want: "postgres://bot:p%40ss%3Aw%2Frd@db:5432/flipbot?sslmode=disable",
		},
		{
			name: "ipv6 host",
			cfg:  ClientConfig{Host: "::1", Database: "flipbot", User: "bot"},
			want: "postgres://bot@[::1]:5432/flipbot?sslmode=disable",
		},
	}
	for _, tt := range tests {
		if got := DSN(tt.cfg); got != tt.want {
			t.Errorf("%s: DSN = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestEmbeddedMigrations(t *testing.T) {
	entries, err := fs.ReadDir(migrationsFS, "migrations")
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"001_flips.sql", "002_audit_log.sql"}
	if len(entries) != len(want) {
		t.Fatalf("got %d migrations, want %d", len(entries), len(want))
	}
	for i, e := range entries {
		if e.Name() != want[i] {
			t.Errorf("migration %d = %s, want %s", i, e.Name(), want[i])
		}
	}

	flips, err := migrationsFS.ReadFile("migrations/001_flips.sql")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(flips), "listing_id            TEXT        NOT NULL UNIQUE") {
		t.Error("flips.listing_id must be unique for ON CONFLICT inserts")
	}
}

func TestPendingMigrations(t *testing.T) {
	fsys := fstest.MapFS{
		"migrations/002_b.sql": {Data: []byte("SELECT 2;")},
		"migrations/001_a.sql": {Data: []byte("SELECT 1;")},
		"migrations/README.md": {Data: []byte("notes")},
		"migrations/003_c.sql": {Data: []byte("SELECT 3;")},
	}
	tests := []struct {
		name    string
		applied map[string]bool
		want    []string
	}{
		{"fresh database", nil, []string{"001_a.sql", "002_b.sql", "003_c.sql"}},
		{"partially applied", map[string]bool{"001_a.sql": true}, []string{"002_b.sql", "003_c.sql"}},
		{"up to date", map[string]bool{"001_a.sql": true, "002_b.sql": true, "003_c.sql": true}, nil},
	}
	for _, tt := range tests {
		got, err := pendingMigrations(fsys, tt.applied)
		if err != nil {
			t.Fatal(err)
		}
		if !slices.Equal(got, tt.want) {
			t.Errorf("%s: pending = %v, want %v", tt.name, got, tt.want)
		}
	}
}
