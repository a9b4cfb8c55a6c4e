// Package storage keeps uploaded knowledge-base files. Files are addressed by
// their base name; the local and S3 stores behave the same way.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

var ErrNotFound = errors.New("file not found")

type FileInfo struct {
	Name string `json:"name"`
	Size int64  `json:"size"`
}

type FileStore interface {
	// Put stores r under name, replacing an existing file, and returns the
	// number of bytes written.
	Put(ctx context.Context, name string, r io.Reader) (int64, error)
	Get(ctx context.Context, name string) (io.ReadCloser, error)
	Delete(ctx context.Context, name string) error
	Exists(ctx context.Context, name string) (bool, error)
	List(ctx context.Context) ([]FileInfo, error)
}

// CleanName reduces name to a base name that is safe to use as a key.
func CleanName(name string) (string, error) {
	base := filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	if base == "." || base == "/" || base == ".." || strings.TrimSpace(base) == "" {
		return "", fmt.Errorf("invalid file name %q", name)
	}
	return base, nil
}

// Materialize returns a local path for a stored file. Files of a LocalStore
// are used in place; anything else is downloaded into a temporary directory
// that keeps the base name, since the name becomes the graph source. cleanup
// removes whatever was created.
func Materialize(ctx context.Context, fs FileStore, name string) (path string, cleanup func(), err error) {
	if local, ok := fs.(*LocalStore); ok {
		p, err := local.path(name)
		if err != nil {
			return "", nil, err
		}
		if _, err := os.Stat(p); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return "", nil, ErrNotFound
			}
			return "", nil, err
		}
		return p, func() {}, nil
	}

	base, err := CleanName(name)
	if err != nil {
		return "", nil, err
	}
	rc, err := fs.Get(ctx, base)
	if err != nil {
		return "", nil, err
	}
	defer rc.Close()

	dir, err := os.MkdirTemp("", "rag-source-*")
	if err != nil {
		return "", nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	cleanup = func() { _ = os.RemoveAll(dir) }

	path = filepath.Join(dir, base)
	f, err := os.Create(path)
	if err != nil {
		cleanup()
		return "", nil, err
	}
	if _, err := io.Copy(f, rc); err != nil {
		_ = f.Close()
		cleanup()
		return "", nil, fmt.Errorf("failed to download %s: %w", base, err)
	}
	if err := f.Close(); err != nil {
		cleanup()
		return "", nil, err
	}
	return path, cleanup, nil
}
