package services

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"

	"github.com/driveon/backend/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestDB opens a fresh in-memory database with the full schema,
// including the partial unique indexes backing the name invariant
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	if err := models.AutoMigrate(db); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return db
}

// fakeBlobStore keeps blobs in memory and records deletions
type fakeBlobStore struct {
	mu      sync.Mutex
	blobs   map[string][]byte
	next    int
	deleted []string
	failDel bool
}

func newFakeBlobStore() *fakeBlobStore {
	return &fakeBlobStore{blobs: make(map[string][]byte)}
}

func (f *fakeBlobStore) Save(r io.Reader) (string, int64, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", 0, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.next++
	handle := fmt.Sprintf("blob-%d", f.next)
	f.blobs[handle] = data
	return handle, int64(len(data)), nil
}

func (f *fakeBlobStore) Open(handle string) (io.ReadCloser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.blobs[handle]
	if !ok {
		return nil, errors.New("blob not found")
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (f *fakeBlobStore) Delete(handle string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, handle)
	if f.failDel {
		return errors.New("disk unavailable")
	}
	delete(f.blobs, handle)
	return nil
}

func (f *fakeBlobStore) has(handle string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.blobs[handle]
	return ok
}

// createUser inserts a user with the given quota and returns its id
func createUser(t *testing.T, db *gorm.DB, limit int64) uint {
	t.Helper()
	user := models.User{
		Name:         "Test User",
		Email:        fmt.Sprintf("user-%d@example.com", userSeq(db)),
		StorageLimit: limit,
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	return user.ID
}

func userSeq(db *gorm.DB) int64 {
	var count int64
	db.Model(&models.User{}).Count(&count)
	return count + 1
}

// mustUpload stores content and records the file through the hierarchy
func mustUpload(t *testing.T, h *HierarchyService, blobs *fakeBlobStore, userID uint, name string, folderID *uint, content string) *models.File {
	t.Helper()
	handle, size, err := blobs.Save(bytes.NewReader([]byte(content)))
	if err != nil {
		t.Fatalf("blob save failed: %v", err)
	}
	file, err := h.CreateFile(userID, CreateFileParams{
		Name:         name,
		OriginalName: name,
		Mimetype:     "text/plain",
		Size:         size,
		FolderID:     folderID,
		Handle:       handle,
	})
	if err != nil {
		t.Fatalf("CreateFile(%s) failed: %v", name, err)
	}
	return file
}

func storageUsed(t *testing.T, db *gorm.DB, userID uint) int64 {
	t.Helper()
	var user models.User
	if err := db.First(&user, userID).Error; err != nil {
		t.Fatalf("failed to load user: %v", err)
	}
	return user.StorageUsed
}
