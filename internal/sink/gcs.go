//-------------------------------------------------------------------------
//
// pgEdge Retail Prep
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package sink

import (
	"context"
	"errors"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// GCS stores files as objects in a Google Cloud Storage bucket.
type GCS struct {
	client *storage.Client
	bucket *storage.BucketHandle
	name   string
	prefix string
}

// NewGCS creates a storage client. It uses Application Default Credentials
// unless an endpoint is configured, in which case it talks to that endpoint
// without authentication (the fake-gcs-server emulator).
func NewGCS(ctx context.Context, cfg Config) (*GCS, error) {
	var opts []option.ClientOption
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint), option.WithoutAuthentication())
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	return &GCS{
		client: client,
		bucket: client.Bucket(cfg.Bucket),
		name:   cfg.Bucket,
		prefix: cfg.Prefix,
	}, nil
}

func (s *GCS) object(name string) *storage.ObjectHandle {
	return s.bucket.Object(objectKey(s.prefix, name))
}

// Exists reads the attributes of name.
func (s *GCS) Exists(ctx context.Context, name string) (bool, error) {
	_, err := s.object(name).Attrs(ctx)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, storage.ErrObjectNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("stat %s: %w", s.Location(name), err)
}

// Write uploads the contents of r.
func (s *GCS) Write(ctx context.Context, name string, r io.Reader) error {
	w := s.object(name).NewWriter(ctx)
	w.ContentType = "text/csv"

	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return fmt.Errorf("copy %s to GCS writer: %w", name, err)
	}
	// Close finalizes the upload.
	if err := w.Close(); err != nil {
		return fmt.Errorf("finalize upload of %s: %w", s.Location(name), err)
	}
	return nil
}

// Open downloads name.
func (s *GCS) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	r, err := s.object(name).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, s.Location(name))
		}
		return nil, fmt.Errorf("read %s: %w", s.Location(name), err)
	}
	return r, nil
}

// Location returns the gs:// URI of name.
func (s *GCS) Location(name string) string {
	return fmt.Sprintf("gs://%s/%s", s.name, objectKey(s.prefix, name))
}

// Close closes the storage client.
func (s *GCS) Close() error {
	return s.client.Close()
}
