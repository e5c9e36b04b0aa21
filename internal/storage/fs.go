package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// FSStore writes backup objects to a local directory.
type FSStore struct {
	dir string
}

func NewFSStore(dir string) (*FSStore, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create backup directory %s: %w", dir, err)
	}
	return &FSStore{dir: dir}, nil
}

func (s *FSStore) Put(_ context.Context, key string, r io.Reader) (int64, error) {
	path := filepath.Join(s.dir, filepath.Base(key))

	f, err := os.CreateTemp(s.dir, ".upload-*")
	if err != nil {
		return 0, fmt.Errorf("create temp backup file: %w", err)
	}
	tmp := f.Name()
	defer os.Remove(tmp)

	n, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return n, fmt.Errorf("write backup %s: %w", key, err)
	}

	if err := os.Rename(tmp, path); err != nil {
		return n, fmt.Errorf("finalize backup %s: %w", key, err)
	}
	return n, nil
}
