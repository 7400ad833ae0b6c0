package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// ErrS3NotConfigured is returned when S3 operations are attempted
// without proper configuration.
var ErrS3NotConfigured = errors.New("S3 storage is not configured")

// LocalStorage implements the Storage interface using local disk.
// Videos live in a "videos" subdirectory of the data directory and are
// served back to the browser from there.
type LocalStorage struct {
	videosDir string
}

// NewLocalStorage creates a new LocalStorage instance rooted at dataDir.
// If dataDir is empty, a directory under os.TempDir() is used.
// The directory is created if it doesn't exist.
func NewLocalStorage(dataDir string) (*LocalStorage, error) {
	if dataDir == "" {
		dataDir = filepath.Join(os.TempDir(), "minacast")
	}

	videosDir := filepath.Join(dataDir, "videos")
	if err := os.MkdirAll(videosDir, 0750); err != nil {
		return nil, fmt.Errorf("create videos directory: %w", err)
	}

	return &LocalStorage{videosDir: videosDir}, nil
}

// VideosDir returns the directory holding saved videos.
func (s *LocalStorage) VideosDir() string {
	return s.videosDir
}

// SaveVideo writes a materialized video under the given file name and
// returns the local path. An existing file with the same name is replaced.
func (s *LocalStorage) SaveVideo(ctx context.Context, name string, data io.Reader) (string, error) {
	select {
	case <-ctx.Done():
		return "", fmt.Errorf("context cancelled: %w", ctx.Err())
	default:
	}

	path := filepath.Join(s.videosDir, filepath.Base(name))

	f, err := os.Create(path) // #nosec G304 - name is reduced to its base component
	if err != nil {
		return "", fmt.Errorf("create video file: %w", err)
	}

	if _, err := io.Copy(f, data); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return "", fmt.Errorf("write video file: %w", err)
	}

	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return "", fmt.Errorf("close video file: %w", err)
	}

	return path, nil
}

// Open reads a previously saved video.
// The caller is responsible for closing the returned ReadCloser.
func (s *LocalStorage) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("context cancelled: %w", ctx.Err())
	default:
	}

	f, err := os.Open(path) // #nosec G304 - path is provided by trusted caller
	if err != nil {
		return nil, fmt.Errorf("open video file: %w", err)
	}

	return f, nil
}

// Remove deletes the specified saved videos.
// It continues even if some files fail to delete,
// returning the first error encountered.
func (s *LocalStorage) Remove(ctx context.Context, paths []string) error {
	var firstErr error
	for _, p := range paths {
		select {
		case <-ctx.Done():
			return fmt.Errorf("context cancelled: %w", ctx.Err())
		default:
		}

		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			if firstErr == nil {
				firstErr = fmt.Errorf("remove video file %s: %w", p, err)
			}
		}
	}
	return firstErr
}

// UploadToS3 is not supported by LocalStorage and returns ErrS3NotConfigured.
func (s *LocalStorage) UploadToS3(_ context.Context, _ string, _ io.Reader) (string, error) {
	return "", ErrS3NotConfigured
}

// Compile-time check that LocalStorage implements Storage.
var _ Storage = (*LocalStorage)(nil)
