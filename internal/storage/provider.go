package storage

import (
	"context"
	"io"
)

// Provider persists finished exports. Exports are materialized buffers, so
// the interface is deliberately non-streaming.
type Provider interface {
	// Save stores data under the given key (relative path/filename).
	Save(ctx context.Context, key string, data []byte) error

	// Open reads a stored export back.
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}
