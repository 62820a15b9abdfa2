// Package blob stores the encrypted upload bytes, one object per resource,
// named by the resource's content hash. The disk backend is the default; an
// S3-compatible backend can be selected through configuration.
package blob

import (
	"context"
	"io"
)

// Store is the contract for blob backends.
type Store interface {
	// Save persists the blob under the given content hash.
	Save(ctx context.Context, hash string, data []byte) error

	// Open returns a reader for the blob. Callers must close it.
	Open(ctx context.Context, hash string) (io.ReadCloser, error)

	// Delete removes the blob. Deleting an absent blob is an error so the
	// caller can log storage inconsistencies.
	Delete(ctx context.Context, hash string) error
}
