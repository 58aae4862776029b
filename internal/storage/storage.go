package storage

import (
	"io"

	"github.com/driveon/backend/internal/config"
)

// BlobStore is the physical byte store behind file metadata. The core only
// ever holds the returned handle and size; deletes are best-effort from the
// caller's perspective (metadata transitions proceed even if Delete fails).
type BlobStore interface {
	// Save writes the content and returns an opaque location handle
	Save(r io.Reader) (handle string, size int64, err error)
	// Open returns a reader for the stored content
	Open(handle string) (io.ReadCloser, error)
	// Delete removes the stored content
	Delete(handle string) error
}

// New builds the configured blob store backend
func New(cfg *config.Config) (BlobStore, error) {
	if cfg.StorageDriver == "ftp" {
		return NewFTPStore(cfg), nil
	}
	return NewLocalStore(cfg.StorageRoot)
}
