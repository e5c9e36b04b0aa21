// Package storage holds backup snapshots in an object store.
package storage

import (
	"context"
	"io"
)

// Store writes one named object per backup snapshot.
type Store interface {
	// Put streams r into the object named by key and returns the number
	// of bytes stored.
	Put(ctx context.Context, key string, r io.Reader) (int64, error)
}
