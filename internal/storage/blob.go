// Package storage holds attachment bytes outside the database.
package storage

import (
	"context"
	"io"
)

// BlobStore stores opaque objects by key.
type BlobStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Remove(ctx context.Context, key string) error
}
