package storage

import (
	"context"
	"io"
)

// ObjectStorage is where finished reports are published.
type ObjectStorage interface {
	// Upload uploads an object under key
	Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error

	// GetURL returns the URL for accessing an object
	GetURL(key string) string

	// Exists checks if an object exists
	Exists(ctx context.Context, key string) (bool, error)
}
