package pdfrender

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/noah-isme/infodoc-api/pkg/storage"
)

// ErrTooLarge is returned when a document exceeds the fetch limit.
var ErrTooLarge = errors.New("document exceeds fetch limit")

// Fetcher loads the raw bytes behind a document locator.
type Fetcher interface {
	Fetch(ctx context.Context, locator string) ([]byte, error)
}

// HTTPFetcher downloads documents over HTTP(S).
type HTTPFetcher struct {
	client   *http.Client
	maxBytes int64
}

// NewHTTPFetcher builds a fetcher bounded by timeout and maxBytes.
func NewHTTPFetcher(timeout time.Duration, maxBytes int64) *HTTPFetcher {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &HTTPFetcher{client: &http.Client{Timeout: timeout}, maxBytes: maxBytes}
}

// Fetch GETs locator and returns the body.
func (f *HTTPFetcher) Fetch(ctx context.Context, locator string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, locator, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch document: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch document: unexpected status %d", resp.StatusCode)
	}
	return readLimited(resp.Body, f.maxBytes)
}

// StoreFetcher reads documents hosted by the portal's own object store directly and falls back to
// another fetcher for foreign URLs.
type StoreFetcher struct {
	store    storage.ObjectStore
	fallback Fetcher
	maxBytes int64
}

// NewStoreFetcher wires store-backed fetching with an optional fallback.
func NewStoreFetcher(store storage.ObjectStore, fallback Fetcher, maxBytes int64) *StoreFetcher {
	return &StoreFetcher{store: store, fallback: fallback, maxBytes: maxBytes}
}

// Fetch resolves locator to an object path when possible.
func (f *StoreFetcher) Fetch(ctx context.Context, locator string) ([]byte, error) {
	path, err := f.store.PathFromURL(locator)
	if err != nil {
		if f.fallback != nil && errors.Is(err, storage.ErrForeignURL) {
			return f.fallback.Fetch(ctx, locator)
		}
		return nil, err
	}
	rc, _, err := f.store.Open(ctx, path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return readLimited(rc, f.maxBytes)
}

func readLimited(r io.Reader, maxBytes int64) ([]byte, error) {
	if maxBytes <= 0 {
		return io.ReadAll(r)
	}
	data, err := io.ReadAll(io.LimitReader(r, maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}
	if int64(len(data)) > maxBytes {
		return nil, ErrTooLarge
	}
	return data, nil
}
