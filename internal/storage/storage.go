// Package storage holds avatar images in an object store. Two backends
// are supported: MinIO (self-hosted deployments) and Google Cloud Storage.
package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/linkup-social/apiserver/config"
)

// Backend defines the object operations the app needs.
type Backend interface {
	EnsureBucket(ctx context.Context) error
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	Bucket() string
}

// Storage wraps a backend with a stable API.
type Storage struct {
	backend Backend
}

// New constructs a Storage wrapper for the provided backend.
func New(backend Backend) *Storage {
	return &Storage{backend: backend}
}

// NewFromConfig selects and constructs the configured backend. Returns
// (nil, nil) when no backend is configured; avatar features are disabled
// in that case.
func NewFromConfig(ctx context.Context, cfg config.StorageConfig) (*Storage, error) {
	switch cfg.Backend {
	case "":
		return nil, nil
	case "minio":
		backend, err := NewMinioBackend(cfg.Minio)
		if err != nil {
			return nil, err
		}
		return New(backend), nil
	case "gcs":
		backend, err := NewGCSBackend(ctx, cfg.GCS)
		if err != nil {
			return nil, err
		}
		return New(backend), nil
	}
	return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
}

// EnsureBucket ensures the configured bucket exists.
func (s *Storage) EnsureBucket(ctx context.Context) error {
	return s.backend.EnsureBucket(ctx)
}

// Put uploads an object.
func (s *Storage) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	return s.backend.Put(ctx, key, r, size, contentType)
}

// Get opens a reader for an object.
func (s *Storage) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	return s.backend.Get(ctx, key)
}

// Delete removes an object.
func (s *Storage) Delete(ctx context.Context, key string) error {
	return s.backend.Delete(ctx, key)
}

// Bucket returns the configured bucket name.
func (s *Storage) Bucket() string {
	return s.backend.Bucket()
}
