// Package persist saves and restores the in-memory caches as whole-file
// snapshots, locally or in object storage.
package persist

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/alanyoungcy/flipbot/internal/domain"
)

// Snapshot file names.
const (
	NameCacheFile = "name_cache.json"
	TagCacheFile  = "tag_cache.json.gz"
	LedgerFile    = "sent_ids.json"
)

// Store reads and writes named snapshots. Load returns an error wrapping
// domain.ErrNotFound when nothing has been saved under name.
type Store interface {
	Load(ctx context.Context, name string) ([]byte, error)
	Save(ctx context.Context, name string, data []byte) error
}

// DirStore keeps snapshots as files in one directory.
type DirStore struct {
	dir string
}

// NewDirStore returns a DirStore rooted at dir, creating it if needed.
func NewDirStore(dir string) (*DirStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("persist: create %s: %w", dir, err)
	}
	return &DirStore{dir: dir}, nil
}

// Load reads name from the directory.
func (s *DirStore) Load(_ context.Context, name string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("persist: load %s: %w", name, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("persist: load %s: %w", name, err)
	}
	return data, nil
}

// Save writes name through a temp file and rename so a crash mid-write
// leaves the previous snapshot intact.
func (s *DirStore) Save(_ context.Context, name string, data []byte) error {
	tmp, err := os.CreateTemp(s.dir, name+".*.tmp")
	if err != nil {
		return fmt.Errorf("persist: save %s: %w", name, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("persist: save %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("persist: save %s: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(s.dir, name)); err != nil {
		return fmt.Errorf("persist: save %s: %w", name, err)
	}
	return nil
}

// BlobStore keeps snapshots under a path prefix in object storage.
type BlobStore struct {
	reader domain.BlobReader
	writer domain.BlobWriter
	prefix string
}

// NewBlobStore returns a BlobStore writing under prefix, e.g. "cache/".
func NewBlobStore(reader domain.BlobReader, writer domain.BlobWriter, prefix string) *BlobStore {
	return &BlobStore{reader: reader, writer: writer, prefix: prefix}
}

// Load fetches name from the bucket.
func (s *BlobStore) Load(ctx context.Context, name string) ([]byte, error) {
	rc, err := s.reader.Get(ctx, s.prefix+name)
	if err != nil {
		return nil, fmt.Errorf("persist: load %s: %w", name, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("persist: load %s: %w", name, err)
	}
	return data, nil
}

// Save uploads name to the bucket.
func (s *BlobStore) Save(ctx context.Context, name string, data []byte) error {
	if err := s.writer.Put(ctx, s.prefix+name, bytes.NewReader(data), contentType(name)); err != nil {
		return fmt.Errorf("persist: save %s: %w", name, err)
	}
	return nil
}

func contentType(name string) string {
	if filepath.Ext(name) == ".gz" {
		return "application/gzip"
	}
	return "application/json"
}
