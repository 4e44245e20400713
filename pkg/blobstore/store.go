package blobstore

import (
	"context"
	"errors"
	"io"
)

// ErrNotFound is returned when a blob does not exist
var ErrNotFound = errors.New("blob not found")

// Store persists opaque project payloads keyed by project uid
type Store interface {
	// Put writes the blob and returns the number of bytes stored
	Put(ctx context.Context, key string, r io.Reader) (int64, error)

	// Get opens the blob for reading. Callers must close the reader.
	Get(ctx context.Context, key string) (io.ReadCloser, error)

	// Size returns the stored size of the blob in bytes
	Size(ctx context.Context, key string) (int64, error)

	// Delete removes the blob. Deleting a missing blob is not an error.
	Delete(ctx context.Context, key string) error
}
