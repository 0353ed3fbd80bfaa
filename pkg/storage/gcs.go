package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	gcs "cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// GCSConfig configures the Cloud Storage backend.
type GCSConfig struct {
	Bucket          string
	CredentialsFile string
	Endpoint        string
	WriteTimeout    time.Duration
}

// GCSStorage keeps document objects in a Cloud Storage bucket.
type GCSStorage struct {
	client       *gcs.Client
	bucket       *gcs.BucketHandle
	layout       URLLayout
	writeTimeout time.Duration
}

// NewGCSStorage dials Cloud Storage using application default credentials unless a file is given.
func NewGCSStorage(ctx context.Context, cfg GCSConfig, layout URLLayout) (*GCSStorage, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("gcs bucket must be set")
	}
	opts := make([]option.ClientOption, 0, 2)
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint))
	}
	client, err := gcs.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 50 * time.Second
	}
	return &GCSStorage{
		client:       client,
		bucket:       client.Bucket(cfg.Bucket),
		layout:       layout,
		writeTimeout: cfg.WriteTimeout,
	}, nil
}

// Put uploads r under path with a does-not-exist precondition.
func (s *GCSStorage) Put(ctx context.Context, path string, r io.Reader, contentType string) error {
	if err := validatePath(path); err != nil {
		return err
	}
	writeCtx, cancel := context.WithTimeout(ctx, s.writeTimeout)
	defer cancel()

	writer := s.bucket.Object(path).If(gcs.Conditions{DoesNotExist: true}).NewWriter(writeCtx)
	writer.ContentType = contentType

	if _, err := io.Copy(writer, r); err != nil {
		_ = writer.Close()
		return s.translate(path, fmt.Errorf("copy to gcs: %w", err))
	}
	if err := writer.Close(); err != nil {
		return s.translate(path, fmt.Errorf("finalize gcs upload: %w", err))
	}
	return nil
}

// Open streams an object back.
func (s *GCSStorage) Open(ctx context.Context, path string) (io.ReadCloser, ObjectInfo, error) {
	if err := validatePath(path); err != nil {
		return nil, ObjectInfo{}, err
	}
	reader, err := s.bucket.Object(path).NewReader(ctx)
	if err != nil {
		if errors.Is(err, gcs.ErrObjectNotExist) {
			return nil, ObjectInfo{}, fmt.Errorf("%w: %s", ErrObjectNotFound, path)
		}
		return nil, ObjectInfo{}, fmt.Errorf("open gcs object %s: %w", path, err)
	}
	return reader, ObjectInfo{
		Path:        path,
		ContentType: reader.Attrs.ContentType,
		Size:        reader.Attrs.Size,
	}, nil
}

// Delete removes the object; deleting a missing object succeeds.
func (s *GCSStorage) Delete(ctx context.Context, path string) error {
	if err := validatePath(path); err != nil {
		return err
	}
	if err := s.bucket.Object(path).Delete(ctx); err != nil && !errors.Is(err, gcs.ErrObjectNotExist) {
		return fmt.Errorf("delete gcs object %s: %w", path, err)
	}
	return nil
}

// PublicURL returns the public URL for path.
func (s *GCSStorage) PublicURL(path string) string {
	return s.layout.URL(path)
}

// PathFromURL resolves a public URL back to its object path.
func (s *GCSStorage) PathFromURL(rawURL string) (string, error) {
	return s.layout.Path(rawURL)
}

// Close releases the client.
func (s *GCSStorage) Close() error {
	return s.client.Close()
}

func (s *GCSStorage) translate(path string, err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && gerr.Code == http.StatusPreconditionFailed {
		return fmt.Errorf("%w: %s", ErrObjectExists, path)
	}
	return err
}
