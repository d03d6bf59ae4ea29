package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/alanyoungcy/flipbot/internal/domain"
)

// FlipArchiveStore is the read side the archiver needs from flip history.
type FlipArchiveStore interface {
	ListBetween(ctx context.Context, from, to time.Time) ([]domain.Flip, error)
}

// Archiver copies one UTC day of flip history to object storage as JSONL.
// Records are left in the primary store.
type Archiver struct {
	writer domain.BlobWriter
	flips  FlipArchiveStore
}

// NewArchiver creates an Archiver.
func NewArchiver(writer domain.BlobWriter, flips FlipArchiveStore) *Archiver {
	return &Archiver{writer: writer, flips: flips}
}

// ArchiveDay uploads the flips detected during day's UTC date to
// archive/flips/YYYY-MM-DD.jsonl and returns how many were written. Days
// without flips upload nothing.
func (a *Archiver) ArchiveDay(ctx context.Context, day time.Time) (int, error) {
	from := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, 1)

	flips, err := a.flips.ListBetween(ctx, from, to)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive flips query: %w", err)
	}
	if len(flips) == 0 {
		return 0, nil
	}

	buf, err := marshalJSONL(flips)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive flips marshal: %w", err)
	}
	if err := a.writer.Put(ctx, ArchivePath(from), bytes.NewReader(buf), "application/x-ndjson"); err != nil {
		return 0, fmt.Errorf("s3blob: archive flips upload: %w", err)
	}
	return len(flips), nil
}

// ArchivePath returns the object path for day's archive.
func ArchivePath(day time.Time) string {
	return fmt.Sprintf("archive/flips/%s.jsonl", day.UTC().Format("2006-01-02"))
}

// marshalJSONL writes one JSON document per line.
func marshalJSONL[T any](records []T) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for i := range records {
		if err := enc.Encode(records[i]); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}
