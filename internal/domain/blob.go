package domain

import (
	"context"
	"io"
	"time"
)

// BlobWriter uploads data to object storage.
type BlobWriter interface {
	Put(ctx context.Context, path string, data io.Reader, contentType string) error
}

// BlobReader retrieves data from object storage. Get returns an error
// wrapping ErrNotFound when the object does not exist.
type BlobReader interface {
	Get(ctx context.Context, path string) (io.ReadCloser, error)
	Exists(ctx context.Context, path string) (bool, error)
}

// FlipArchiver copies one UTC day of flip history to cold storage and
// reports how many records were written.
type FlipArchiver interface {
	ArchiveDay(ctx context.Context, day time.Time) (int, error)
}
