package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
)

func TestNewLocalStorage(t *testing.T) {
	t.Run("creates videos directory if not exists", func(t *testing.T) {
		dataDir := filepath.Join(t.TempDir(), "minacast_test")

		storage, err := NewLocalStorage(dataDir)
		if err != nil {
			t.Fatalf("NewLocalStorage() error = %v", err)
		}

		expected := filepath.Join(dataDir, "videos")
		if storage.VideosDir() != expected {
			t.Errorf("VideosDir() = %v, want %v", storage.VideosDir(), expected)
		}

		info, err := os.Stat(expected)
		if err != nil {
			t.Fatalf("directory not created: %v", err)
		}
		if !info.IsDir() {
			t.Error("expected directory, got file")
		}
	})

	t.Run("uses default directory when empty", func(t *testing.T) {
		storage, err := NewLocalStorage("")
		if err != nil {
			t.Fatalf("NewLocalStorage() error = %v", err)
		}

		expected := filepath.Join(os.TempDir(), "minacast", "videos")
		if storage.VideosDir() != expected {
			t.Errorf("VideosDir() = %v, want %v", storage.VideosDir(), expected)
		}
	})
}

func TestLocalStorage_SaveAndOpen(t *testing.T) {
	storage, err := NewLocalStorage(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStorage() error = %v", err)
	}

	ctx := context.Background()

	path, err := storage.SaveVideo(ctx, "gen-1-video-1.mp4", bytes.NewReader([]byte("video data")))
	if err != nil {
		t.Fatalf("SaveVideo() error = %v", err)
	}
	if filepath.Base(path) != "gen-1-video-1.mp4" {
		t.Errorf("unexpected file name %q", filepath.Base(path))
	}

	reader, err := storage.Open(ctx, path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer reader.Close()

	content, err := io.ReadAll(reader)
	if err != nil {
		t.Fatalf("failed to read: %v", err)
	}
	if string(content) != "video data" {
		t.Errorf("got %q, want %q", string(content), "video data")
	}
}

func TestLocalStorage_SaveVideo_StripsPathComponents(t *testing.T) {
	storage, err := NewLocalStorage(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStorage() error = %v", err)
	}

	path, err := storage.SaveVideo(context.Background(), "../../escape.mp4", bytes.NewReader([]byte("x")))
	if err != nil {
		t.Fatalf("SaveVideo() error = %v", err)
	}
	if filepath.Dir(path) != storage.VideosDir() {
		t.Errorf("video saved outside videos dir: %s", path)
	}
}

func TestLocalStorage_SaveVideo_CancelledContext(t *testing.T) {
	storage, err := NewLocalStorage(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStorage() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := storage.SaveVideo(ctx, "video.mp4", bytes.NewReader(nil)); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestLocalStorage_Open_MissingFile(t *testing.T) {
	storage, err := NewLocalStorage(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStorage() error = %v", err)
	}

	if _, err := storage.Open(context.Background(), filepath.Join(storage.VideosDir(), "missing.mp4")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLocalStorage_Remove(t *testing.T) {
	storage, err := NewLocalStorage(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStorage() error = %v", err)
	}

	ctx := context.Background()

	p1, err := storage.SaveVideo(ctx, "video-1.mp4", bytes.NewReader([]byte("a")))
	if err != nil {
		t.Fatalf("SaveVideo() error = %v", err)
	}
	p2, err := storage.SaveVideo(ctx, "video-2.mp4", bytes.NewReader([]byte("b")))
	if err != nil {
		t.Fatalf("SaveVideo() error = %v", err)
	}

	// Missing files are skipped without error.
	missing := filepath.Join(storage.VideosDir(), "missing.mp4")
	if err := storage.Remove(ctx, []string{p1, missing, p2}); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}

	for _, p := range []string{p1, p2} {
		if _, err := os.Stat(p); !os.IsNotExist(err) {
			t.Errorf("expected %s to be removed", p)
		}
	}
}

func TestLocalStorage_UploadToS3_NotConfigured(t *testing.T) {
	storage, err := NewLocalStorage(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStorage() error = %v", err)
	}

	if _, err := storage.UploadToS3(context.Background(), "key", bytes.NewReader(nil)); !errors.Is(err, ErrS3NotConfigured) {
		t.Errorf("expected ErrS3NotConfigured, got %v", err)
	}
}
