package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

var (
	// ErrObjectExists is returned by Put when the path is already taken.
	ErrObjectExists = errors.New("object already exists")
	// ErrObjectNotFound is returned by Open for unknown paths.
	ErrObjectNotFound = errors.New("object not found")
	// ErrForeignURL is returned when a URL does not point into the store.
	ErrForeignURL = errors.New("url does not belong to this store")
	// ErrInvalidPath rejects empty or escaping object paths.
	ErrInvalidPath = errors.New("invalid object path")
)

// ObjectInfo describes a stored object.
type ObjectInfo struct {
	Path        string
	ContentType string
	Size        int64
}

// ObjectStore is the hosted-object contract used for document files.
type ObjectStore interface {
	Put(ctx context.Context, path string, r io.Reader, contentType string) error
	Open(ctx context.Context, path string) (io.ReadCloser, ObjectInfo, error)
	Delete(ctx context.Context, path string) error
	PublicURL(path string) string
	PathFromURL(rawURL string) (string, error)
}

// SupabasePublicPrefix mirrors the public object URL layout of the hosted store the portal started on,
// so rows created there still resolve to paths after migrating.
func SupabasePublicPrefix(bucket string) string {
	return "/storage/v1/object/public/" + strings.Trim(bucket, "/") + "/"
}

// URLLayout maps object paths to public URLs and back.
type URLLayout struct {
	base   string
	prefix string
}

// NewURLLayout joins base (scheme://host) and prefix (/path/to/bucket/).
func NewURLLayout(base, prefix string) URLLayout {
	if !strings.HasPrefix(prefix, "/") {
		prefix = "/" + prefix
	}
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return URLLayout{base: strings.TrimRight(base, "/"), prefix: prefix}
}

// Prefix returns the route prefix under which objects are published.
func (l URLLayout) Prefix() string {
	return l.prefix
}

// URL returns the public URL for path.
func (l URLLayout) URL(path string) string {
	return l.base + l.prefix + strings.TrimLeft(path, "/")
}

// Path extracts the object path from a public URL by splitting on the bucket prefix.
func (l URLLayout) Path(rawURL string) (string, error) {
	parts := strings.SplitN(rawURL, l.prefix, 2)
	if len(parts) < 2 {
		return "", fmt.Errorf("%w: %s", ErrForeignURL, rawURL)
	}
	path := strings.SplitN(parts[1], "?", 2)[0]
	if err := validatePath(path); err != nil {
		return "", err
	}
	return path, nil
}

func validatePath(path string) error {
	if strings.TrimSpace(path) == "" || strings.HasPrefix(path, "/") {
		return ErrInvalidPath
	}
	for _, segment := range strings.Split(path, "/") {
		if segment == "" || segment == "." || segment == ".." {
			return ErrInvalidPath
		}
	}
	return nil
}
