//-------------------------------------------------------------------------
//
// pgEdge Retail Prep
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package sink stores output files on a local directory, an S3-compatible
// bucket, a Google Cloud Storage bucket or in memory.
package sink

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
)

// Driver names.
const (
	DriverFS     = "fs"
	DriverS3     = "s3"
	DriverGCS    = "gcs"
	DriverMemory = "memory"
)

// ErrNotFound is returned by Open for a missing object.
var ErrNotFound = errors.New("object not found")

// Sink is a flat namespace of named files.
type Sink interface {
	// Exists reports whether name is already stored.
	Exists(ctx context.Context, name string) (bool, error)

	// Write stores the contents of r under name, replacing any existing
	// object.
	Write(ctx context.Context, name string, r io.Reader) error

	// Open returns the contents stored under name.
	Open(ctx context.Context, name string) (io.ReadCloser, error)

	// Location returns a human-readable location for name.
	Location(name string) string

	Close() error
}

// Config selects and configures a driver.
type Config struct {
	Driver string

	// Dir is the fs driver's root directory.
	Dir string

	// Bucket and Prefix address objects for the s3 and gcs drivers.
	Bucket string
	Prefix string

	// Region, Endpoint and PathStyle configure the s3 driver. Endpoint
	// also overrides the gcs API endpoint, e.g. for an emulator.
	Region    string
	Endpoint  string
	PathStyle bool

	// AccessKeyID and SecretAccessKey are optional static s3 credentials;
	// the default AWS credential chain is used when empty.
	AccessKeyID     string
	SecretAccessKey string
}

// Validate checks the driver and its required settings.
func (c Config) Validate() error {
	switch c.Driver {
	case DriverFS:
		if c.Dir == "" {
			return fmt.Errorf("output directory is required for the %s driver", c.Driver)
		}
	case DriverS3, DriverGCS:
		if c.Bucket == "" {
			return fmt.Errorf("bucket is required for the %s driver", c.Driver)
		}
	case DriverMemory:
	default:
		return fmt.Errorf("unknown output driver: %s", c.Driver)
	}
	return nil
}

// New opens the configured sink.
func New(ctx context.Context, cfg Config) (Sink, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch cfg.Driver {
	case DriverFS:
		return NewFS(cfg.Dir)
	case DriverS3:
		return NewS3(ctx, cfg)
	case DriverGCS:
		return NewGCS(ctx, cfg)
	default:
		return NewMemory(), nil
	}
}

// objectKey joins prefix and name into an object key.
func objectKey(prefix, name string) string {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return name
	}
	return path.Join(prefix, name)
}

// Sub returns a sink whose names are relative to dir within s.
func Sub(s Sink, dir string) Sink {
	if strings.Trim(dir, "/") == "" {
		return s
	}
	return &subSink{parent: s, dir: strings.Trim(dir, "/")}
}

type subSink struct {
	parent Sink
	dir    string
}

func (s *subSink) name(n string) string {
	return path.Join(s.dir, n)
}

func (s *subSink) Exists(ctx context.Context, name string) (bool, error) {
	return s.parent.Exists(ctx, s.name(name))
}

func (s *subSink) Write(ctx context.Context, name string, r io.Reader) error {
	return s.parent.Write(ctx, s.name(name), r)
}

func (s *subSink) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	return s.parent.Open(ctx, s.name(name))
}

func (s *subSink) Location(name string) string {
	return s.parent.Location(s.name(name))
}

// Close is a no-op; the parent owns the underlying resources.
func (s *subSink) Close() error {
	return nil
}
