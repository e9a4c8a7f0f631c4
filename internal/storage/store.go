// Package storage keeps uploads and finished archives for asynchronous jobs.
package storage

import (
	"context"
	"fmt"

	"thumbsmith/internal/infra"
)

// ArchiveStore persists opaque blobs under slash-separated keys.
// Get returns an error wrapping domain.ErrNotFound for unknown keys.
type ArchiveStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
	Get(ctx context.Context, key string) ([]byte, error)
}

// UploadKey is where the source photo for a request fingerprint lives, so
// duplicate submissions share one object.
func UploadKey(fingerprint string) string {
	return "uploads/" + fingerprint
}

// ArchiveKey is where a job's finished zip lives.
func ArchiveKey(jobID string) string {
	return "jobs/" + jobID + "/thumbnails.zip"
}

// Open builds the store selected by STORAGE_BACKEND.
func Open(cfg *infra.Config) (ArchiveStore, error) {
	switch cfg.StorageBackend {
	case infra.StorageBackendS3:
		return NewS3(NewS3Client(cfg), cfg.S3Bucket, cfg.S3Prefix), nil
	case infra.StorageBackendFS, "":
		return NewFileStore(cfg.StoragePath)
	default:
		return nil, fmt.Errorf("storage: unsupported backend %q", cfg.StorageBackend)
	}
}
