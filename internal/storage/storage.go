// Package storage persists materialized result videos. It defines the
// Storage port with a local-disk implementation and an optional S3 layer
// for durable delivery of finished videos.
package storage

import (
	"context"
	"io"
)

// Storage defines the interface for result video persistence.
type Storage interface {
	// SaveVideo writes a materialized video under the given file name and
	// returns the local path.
	SaveVideo(ctx context.Context, name string, data io.Reader) (path string, err error)

	// Open reads a previously saved video.
	// The caller is responsible for closing the returned ReadCloser.
	Open(ctx context.Context, path string) (io.ReadCloser, error)

	// Remove deletes the specified saved videos.
	// It continues even if some files fail to delete.
	Remove(ctx context.Context, paths []string) error

	// UploadToS3 uploads data to S3 and returns the public URL.
	// Returns ErrS3NotConfigured if S3 is not configured.
	UploadToS3(ctx context.Context, key string, data io.Reader) (url string, err error)
}
