package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// LocalStore persists blobs on the local filesystem under a date-partitioned
// root, one uuid-named file per blob. The handle is the path relative to
// the root.
type LocalStore struct {
	root string
}

func NewLocalStore(root string) (*LocalStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage root: %w", err)
	}
	return &LocalStore{root: root}, nil
}

func (s *LocalStore) Save(r io.Reader) (string, int64, error) {
	rel := filepath.Join(time.Now().UTC().Format("2006/01"), uuid.NewString())
	abs := filepath.Join(s.root, rel)

	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return "", 0, fmt.Errorf("failed to create storage directory: %w", err)
	}

	f, err := os.Create(abs)
	if err != nil {
		return "", 0, fmt.Errorf("failed to create blob file: %w", err)
	}

	size, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(abs)
		return "", 0, fmt.Errorf("failed to write blob: %w", err)
	}
	return rel, size, nil
}

func (s *LocalStore) Open(handle string) (io.ReadCloser, error) {
	f, err := os.Open(filepath.Join(s.root, handle))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("blob %s not found: %w", handle, err)
		}
		return nil, err
	}
	return f, nil
}

func (s *LocalStore) Delete(handle string) error {
	err := os.Remove(filepath.Join(s.root, handle))
	if os.IsNotExist(err) {
		// Already gone; absence is the state we wanted
		return nil
	}
	return err
}
