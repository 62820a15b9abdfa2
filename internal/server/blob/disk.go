package blob

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// DiskStore keeps one file per resource in a dedicated directory.
type DiskStore struct {
	dir string
}

// NewDiskStore creates the directory if needed and returns a store over it.
func NewDiskStore(dir string) (*DiskStore, error) {
	if err := os.MkdirAll(dir, 0o770); err != nil {
		return nil, fmt.Errorf("mkdir %s: %w", dir, err)
	}
	return &DiskStore{dir: dir}, nil
}

// Save writes to a temp file in the same directory and renames it into
// place, so a crash mid-write never leaves a partial blob under a valid
// hash name.
func (s *DiskStore) Save(_ context.Context, hash string, data []byte) error {
	tmp, err := os.CreateTemp(s.dir, "pending-")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write blob: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close blob: %w", err)
	}

	if err := os.Rename(tmp.Name(), filepath.Join(s.dir, hash)); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("rename blob: %w", err)
	}
	return nil
}

func (s *DiskStore) Open(_ context.Context, hash string) (io.ReadCloser, error) {
	f, err := os.Open(filepath.Join(s.dir, hash))
	if err != nil {
		return nil, fmt.Errorf("open blob %s: %w", hash, err)
	}
	return f, nil
}

func (s *DiskStore) Delete(_ context.Context, hash string) error {
	if err := os.Remove(filepath.Join(s.dir, hash)); err != nil {
		return fmt.Errorf("delete blob %s: %w", hash, err)
	}
	return nil
}
