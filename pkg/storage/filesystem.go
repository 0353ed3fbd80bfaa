package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
)

// LocalStorage persists objects on disk under a base directory and publishes them through the
// API's own static route.
type LocalStorage struct {
	baseDir string
	layout  URLLayout
}

// NewLocalStorage ensures the base directory exists and returns a handle.
func NewLocalStorage(baseDir string, layout URLLayout) (*LocalStorage, error) {
	if baseDir == "" {
		baseDir = "./storage"
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage directory: %w", err)
	}
	return &LocalStorage{baseDir: baseDir, layout: layout}, nil
}

// Put streams r into path, refusing to overwrite an existing object.
func (s *LocalStorage) Put(ctx context.Context, path string, r io.Reader, contentType string) error {
	full, err := s.resolve(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return fmt.Errorf("prepare object directory: %w", err)
	}
	file, err := os.OpenFile(full, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return fmt.Errorf("%w: %s", ErrObjectExists, path)
		}
		return fmt.Errorf("create object file: %w", err)
	}
	if _, err := io.Copy(file, contextReader{ctx: ctx, r: r}); err != nil {
		file.Close() //nolint:errcheck
		_ = os.Remove(full)
		return fmt.Errorf("write object stream: %w", err)
	}
	if err := file.Close(); err != nil {
		_ = os.Remove(full)
		return fmt.Errorf("close object file: %w", err)
	}
	return nil
}

// Open returns a read handle for the stored object.
func (s *LocalStorage) Open(ctx context.Context, path string) (io.ReadCloser, ObjectInfo, error) {
	full, err := s.resolve(path)
	if err != nil {
		return nil, ObjectInfo{}, err
	}
	file, err := os.Open(full)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ObjectInfo{}, fmt.Errorf("%w: %s", ErrObjectNotFound, path)
		}
		return nil, ObjectInfo{}, fmt.Errorf("open object file: %w", err)
	}
	stat, err := file.Stat()
	if err != nil {
		file.Close() //nolint:errcheck
		return nil, ObjectInfo{}, fmt.Errorf("stat object file: %w", err)
	}
	return file, ObjectInfo{
		Path:        path,
		ContentType: mime.TypeByExtension(filepath.Ext(full)),
		Size:        stat.Size(),
	}, nil
}

// Delete removes a stored object; a missing object is not an error.
func (s *LocalStorage) Delete(ctx context.Context, path string) error {
	full, err := s.resolve(path)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete object file: %w", err)
	}
	return nil
}

// PublicURL returns the URL under which the API serves path.
func (s *LocalStorage) PublicURL(path string) string {
	return s.layout.URL(path)
}

// PathFromURL resolves a public URL back to its object path.
func (s *LocalStorage) PathFromURL(rawURL string) (string, error) {
	return s.layout.Path(rawURL)
}

// Root exposes the base directory for static serving.
func (s *LocalStorage) Root() string {
	return s.baseDir
}

func (s *LocalStorage) resolve(path string) (string, error) {
	if err := validatePath(path); err != nil {
		return "", err
	}
	return filepath.Join(s.baseDir, filepath.FromSlash(path)), nil
}

type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
