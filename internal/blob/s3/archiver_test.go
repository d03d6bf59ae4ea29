package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/alanyoungcy/flipbot/internal/domain"
)

type memWriter struct {
	objects map[string][]byte
	types   map[string]string
}

func (m *memWriter) Put(_ context.Context, path string, data io.Reader, contentType string) error {
	b, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	if m.objects == nil {
		m.objects = map[string][]byte{}
		m.types = map[string]string{}
	}
	m.objects[path] = b
	m.types[path] = contentType
	return nil
}

type stubFlips struct {
	flips    []domain.Flip
	from, to time.Time
}

func (s *stubFlips) ListBetween(_ context.Context, from, to time.Time) ([]domain.Flip, error) {
	s.from, s.to = from, to
	var out []domain.Flip
	for _, f := range s.flips {
		if !f.DetectedAt.Before(from) && f.DetectedAt.Before(to) {
			out = append(out, f)
		}
	}
	return out, nil
}

func TestArchiveDay(t *testing.T) {
	day := time.Date(2025, 2, 3, 0, 0, 0, 0, time.UTC)
	store := &stubFlips{flips: []domain.Flip{
		{ListingID: "a", DetectedAt: day.Add(time.Hour)},
		{ListingID: "b", DetectedAt: day.Add(23 * time.Hour)},
		{ListingID: "c", DetectedAt: day.Add(25 * time.Hour)},
	}}
	w := &memWriter{}
	a := NewArchiver(w, store)

	n, err := a.ArchiveDay(context.Background(), day.Add(15*time.Hour))
	if err != nil {
		t.Fatalf("ArchiveDay: %v", err)
	}
	if n != 2 {
		t.Errorf("archived %d, want 2", n)
	}
	if !store.from.Equal(day) || !store.to.Equal(day.AddDate(0, 0, 1)) {
		t.Errorf("window = [%v, %v)", store.from, store.to)
	}

	path := "archive/flips/2025-02-03.jsonl"
	body, ok := w.objects[path]
	if !ok {
		t.Fatalf("no object at %s; have %v", path, w.objects)
	}
	if w.types[path] != "application/x-ndjson" {
		t.Errorf("content type = %q", w.types[path])
	}
	lines := strings.Split(strings.TrimSpace(string(body)), "\n")
	if len(lines) != 2 {
		t.Fatalf("lines = %d, want 2", len(lines))
	}
	var first domain.Flip
	if err := json.NewDecoder(bytes.NewReader([]byte(lines[0]))).Decode(&first); err != nil {
		t.Fatal(err)
	}
	if first.ListingID != "a" {
		t.Errorf("first record = %+v", first)
	}
}

func TestArchiveDayEmpty(t *testing.T) {
	w := &memWriter{}
	n, err := NewArchiver(w, &stubFlips{}).ArchiveDay(context.Background(), time.Now())
	if err != nil || n != 0 {
		t.Errorf("ArchiveDay = (%d, %v), want (0, nil)", n, err)
	}
	if len(w.objects) != 0 {
		t.Error("uploaded an empty archive")
	}
}

func TestObjectKey(t *testing.T) {
	tests := []struct {
		prefix, path, want string
	}{
		{"", "cache/sent_ids.json", "cache/sent_ids.json"},
		{"flipbot", "cache/sent_ids.json", "flipbot/cache/sent_ids.json"},
		{"flipbot/", "/cache/sent_ids.json", "flipbot/cache/sent_ids.json"},
	}
	for _, tt := range tests {
		if got := objectKey(tt.prefix, tt.path); got != tt.want {
			t.Errorf("objectKey(%q, %q) = %q, want %q", tt.prefix, tt.path, got, tt.want)
		}
	}
}

func TestNormaliseEndpoint(t *testing.T) {
	tests := []struct {
		endpoint string
		useSSL   bool
		want     string
	}{
		{"minio:9000", false, "http://minio:9000"},
		{"minio:9000", true, "https://minio:9000"},
		{"localhost:9000", false, "http://localhost:9000"},
		{"s3.example.com", true, "https://s3.example.com"},
		{"https://r2.example.com", false, "https://r2.example.com"},
		{"http://127.0.0.1:9000", true, "http://127.0.0.1:9000"},
	}
	for _, tt := range tests {
		if got := normaliseEndpoint(tt.endpoint, tt.useSSL); got != tt.want {
			t.Errorf("normaliseEndpoint(%q, %v) = %q, want %q", tt.endpoint, tt.useSSL, got, tt.want)
		}
	}
}
