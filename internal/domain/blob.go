package domain

import (
	"context"
	"io"
)

// BlobWriter uploads snapshot objects to blob storage.
type BlobWriter interface {
	Put(ctx context.Context, path string, data io.Reader, contentType string) error

	// PutMultipart uploads data in parts of partSize bytes; implementations
	// may raise partSize to the backend minimum.
	PutMultipart(ctx context.Context, path string, data io.Reader, partSize int64) error
}
