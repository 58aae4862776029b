package services

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/driveon/backend/internal/models"
	"github.com/driveon/backend/internal/storage"
	"gorm.io/gorm"
)

// HierarchyService owns the folder tree and file placement within it. Every
// mutation preserves two invariants: no two live siblings of the same type
// share a name, and a live parent reference always points at a live folder
// owned by the same user. Pre-checks give friendly errors; the partial
// unique indexes created in models.AutoMigrate are the hard backstop, so a
// racing duplicate loses with ErrConflict when its insert lands.
type HierarchyService struct {
	db    *gorm.DB
	blobs storage.BlobStore
	quota *QuotaService
}

func NewHierarchyService(db *gorm.DB, blobs storage.BlobStore) *HierarchyService {
	return &HierarchyService{db: db, blobs: blobs, quota: NewQuotaService(db)}
}

// liveFolder loads a non-trashed folder owned by userID
func (s *HierarchyService) liveFolder(userID, folderID uint) (*models.Folder, error) {
	var folder models.Folder
	err := s.db.Where("id = ? AND user_id = ? AND is_trashed = false", folderID, userID).
		First(&folder).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("folder not found: %w", ErrNotFound)
		}
		return nil, err
	}
	return &folder, nil
}

// liveFile loads a non-trashed file owned by userID
func (s *HierarchyService) liveFile(userID, fileID uint) (*models.File, error) {
	var file models.File
	err := s.db.Where("id = ? AND user_id = ? AND is_trashed = false", fileID, userID).
		First(&file).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("file not found: %w", ErrNotFound)
		}
		return nil, err
	}
	return &file, nil
}

// scopeParent narrows a query to one directory, folding the nullable parent
func scopeParent(q *gorm.DB, column string, parentID *uint) *gorm.DB {
	if parentID == nil {
		return q.Where(column + " IS NULL")
	}
	return q.Where(column+" = ?", *parentID)
}

func (s *HierarchyService) folderNameTaken(userID uint, parentID *uint, name string, excludeID uint) (bool, error) {
	q := s.db.Model(&models.Folder{}).
		Where("user_id = ? AND name = ? AND is_trashed = false", userID, name)
	q = scopeParent(q, "parent_id", parentID)
	if excludeID != 0 {
		q = q.Where("id <> ?", excludeID)
	}
	var count int64
	if err := q.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *HierarchyService) fileNameTaken(userID uint, folderID *uint, name string, excludeID uint) (bool, error) {
	q := s.db.Model(&models.File{}).
		Where("user_id = ? AND name = ? AND is_trashed = false", userID, name)
	q = scopeParent(q, "folder_id", folderID)
	if excludeID != 0 {
		q = q.Where("id <> ?", excludeID)
	}
	var count int64
	if err := q.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// CreateFolder creates a folder under parentID (nil = root). The materialized
// path is computed once from the parent's path at this instant.
func (s *HierarchyService) CreateFolder(userID uint, name string, parentID *uint) (*models.Folder, error) {
	path := ""
	if parentID != nil {
		parent, err := s.liveFolder(userID, *parentID)
		if err != nil {
			return nil, fmt.Errorf("parent %w", err)
		}
		path = parent.FullPath()
	}

	taken, err := s.folderNameTaken(userID, parentID, name, 0)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, fmt.Errorf("folder with this name already exists in this location: %w", ErrConflict)
	}

	folder := models.Folder{
		Name:     name,
		UserID:   userID,
		ParentID: parentID,
		Path:     path,
	}
	if err := s.db.Create(&folder).Error; err != nil {
		if err == gorm.ErrDuplicatedKey {
			return nil, fmt.Errorf("folder with this name already exists in this location: %w", ErrConflict)
		}
		return nil, err
	}
	return &folder, nil
}

// CreateFileParams carries everything CreateFile needs beyond ownership.
// Handle references content already written to the blob store by the caller.
type CreateFileParams struct {
	Name         string
	OriginalName string
	Mimetype     string
	Size         int64
	FolderID     *uint
	Description  string
	Handle       string
}

// CreateFile records an uploaded file and commits its size to the owner's
// quota as one logical operation. On any rejection the already-written blob
// is deleted so no orphan bytes survive a failed upload; if the ledger
// commit itself fails the record is rolled back too.
func (s *HierarchyService) CreateFile(userID uint, p CreateFileParams) (*models.File, error) {
	discard := func() {
		if err := s.blobs.Delete(p.Handle); err != nil {
			log.Printf("Hierarchy: failed to discard blob %s after rejected upload: %v", p.Handle, err)
		}
	}

	if p.Name == "" {
		p.Name = p.OriginalName
	}

	if p.FolderID != nil {
		if _, err := s.liveFolder(userID, *p.FolderID); err != nil {
			discard()
			return nil, err
		}
	}

	taken, err := s.fileNameTaken(userID, p.FolderID, p.Name, 0)
	if err != nil {
		discard()
		return nil, err
	}
	if taken {
		discard()
		return nil, fmt.Errorf("file with this name already exists in this location: %w", ErrConflict)
	}

	ok, err := s.quota.Reserve(userID, p.Size)
	if err != nil {
		discard()
		return nil, err
	}
	if !ok {
		discard()
		return nil, ErrQuotaExceeded
	}

	file := models.File{
		Name:         p.Name,
		OriginalName: p.OriginalName,
		Mimetype:     p.Mimetype,
		Size:         p.Size,
		FolderID:     p.FolderID,
		UserID:       userID,
		Description:  p.Description,
		FilePath:     p.Handle,
	}
	if err := s.db.Create(&file).Error; err != nil {
		discard()
		if err == gorm.ErrDuplicatedKey {
			return nil, fmt.Errorf("file with this name already exists in this location: %w", ErrConflict)
		}
		return nil, err
	}

	if err := s.quota.Commit(userID, p.Size); err != nil {
		// Record and ledger must not diverge
		s.db.Delete(&models.File{}, file.ID)
		discard()
		return nil, err
	}
	return &file, nil
}

// RenameFolder renames a folder in place. An unchanged name skips the
// collision check entirely; otherwise the check excludes the folder itself.
func (s *HierarchyService) RenameFolder(userID, folderID uint, newName string) (*models.Folder, error) {
	folder, err := s.liveFolder(userID, folderID)
	if err != nil {
		return nil, err
	}

	if newName != "" && newName != folder.Name {
		taken, err := s.folderNameTaken(userID, folder.ParentID, newName, folder.ID)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, fmt.Errorf("folder with this name already exists in this location: %w", ErrConflict)
		}
		folder.Name = newName
	}

	folder.UpdatedAt = time.Now().UTC()
	if err := s.db.Save(folder).Error; err != nil {
		if err == gorm.ErrDuplicatedKey {
			return nil, fmt.Errorf("folder with this name already exists in this location: %w", ErrConflict)
		}
		return nil, err
	}
	return folder, nil
}

// RenameFile renames a file in place, excluding itself from the collision check
func (s *HierarchyService) RenameFile(userID, fileID uint, newName string) (*models.File, error) {
	file, err := s.liveFile(userID, fileID)
	if err != nil {
		return nil, err
	}

	taken, err := s.fileNameTaken(userID, file.FolderID, newName, file.ID)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, fmt.Errorf("file with this name already exists in this location: %w", ErrConflict)
	}

	file.Name = newName
	file.UpdatedAt = time.Now().UTC()
	if err := s.db.Save(file).Error; err != nil {
		if err == gorm.ErrDuplicatedKey {
			return nil, fmt.Errorf("file with this name already exists in this location: %w", ErrConflict)
		}
		return nil, err
	}
	return file, nil
}

// MoveFile reparents a file (nil = root)
func (s *HierarchyService) MoveFile(userID, fileID uint, folderID *uint) (*models.File, error) {
	file, err := s.liveFile(userID, fileID)
	if err != nil {
		return nil, err
	}

	if folderID != nil {
		if _, err := s.liveFolder(userID, *folderID); err != nil {
			return nil, fmt.Errorf("target %w", err)
		}
	}

	taken, err := s.fileNameTaken(userID, folderID, file.Name, file.ID)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, fmt.Errorf("file with this name already exists in the target location: %w", ErrConflict)
	}

	file.FolderID = folderID
	file.UpdatedAt = time.Now().UTC()
	if err := s.db.Save(file).Error; err != nil {
		if err == gorm.ErrDuplicatedKey {
			return nil, fmt.Errorf("file with this name already exists in the target location: %w", ErrConflict)
		}
		return nil, err
	}
	return file, nil
}

// MoveFolder reparents a folder (nil = root) and recomputes its own
// materialized path. Descendant paths are deliberately left stale; hierarchy
// logic never reads them.
func (s *HierarchyService) MoveFolder(userID, folderID uint, newParentID *uint) (*models.Folder, error) {
	folder, err := s.liveFolder(userID, folderID)
	if err != nil {
		return nil, err
	}

	path := ""
	if newParentID != nil {
		if *newParentID == folder.ID {
			return nil, fmt.Errorf("cannot move a folder into itself: %w", ErrInvalidState)
		}
		parent, err := s.liveFolder(userID, *newParentID)
		if err != nil {
			return nil, fmt.Errorf("target %w", err)
		}
		// Walk up from the target to reject moves into the folder's own subtree
		inSubtree, err := s.isDescendantOf(userID, *newParentID, folder.ID)
		if err != nil {
			return nil, err
		}
		if inSubtree {
			return nil, fmt.Errorf("cannot move a folder into its own subtree: %w", ErrInvalidState)
		}
		path = parent.FullPath()
	}

	taken, err := s.folderNameTaken(userID, newParentID, folder.Name, folder.ID)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, fmt.Errorf("folder with this name already exists in the target location: %w", ErrConflict)
	}

	folder.ParentID = newParentID
	folder.Path = path
	folder.UpdatedAt = time.Now().UTC()
	if err := s.db.Save(folder).Error; err != nil {
		if err == gorm.ErrDuplicatedKey {
			return nil, fmt.Errorf("folder with this name already exists in the target location: %w", ErrConflict)
		}
		return nil, err
	}
	return folder, nil
}

// isDescendantOf reports whether candidate sits inside ancestor's subtree
// (or is the ancestor itself) by walking parent pointers upward.
func (s *HierarchyService) isDescendantOf(userID, candidate, ancestor uint) (bool, error) {
	current := candidate
	for {
		if current == ancestor {
			return true, nil
		}
		var folder models.Folder
		err := s.db.Select("parent_id").
			Where("id = ? AND user_id = ?", current, userID).First(&folder).Error
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return false, nil
			}
			return false, err
		}
		if folder.ParentID == nil {
			return false, nil
		}
		current = *folder.ParentID
	}
}

// RemoveFromFolder moves a file back to root
func (s *HierarchyService) RemoveFromFolder(userID, fileID uint) (*models.File, error) {
	file, err := s.liveFile(userID, fileID)
	if err != nil {
		return nil, err
	}
	if file.FolderID == nil {
		return nil, fmt.Errorf("file is already in the root directory: %w", ErrInvalidState)
	}
	return s.MoveFile(userID, fileID, nil)
}

// DeleteFolder hard-deletes an empty live folder. Folders with any live
// direct child must go through the trash cascade instead.
func (s *HierarchyService) DeleteFolder(userID, folderID uint) error {
	folder, err := s.liveFolder(userID, folderID)
	if err != nil {
		return err
	}

	var children int64
	if err := s.db.Model(&models.Folder{}).
		Where("parent_id = ? AND user_id = ? AND is_trashed = false", folder.ID, userID).
		Count(&children).Error; err != nil {
		return err
	}
	var files int64
	if err := s.db.Model(&models.File{}).
		Where("folder_id = ? AND user_id = ? AND is_trashed = false", folder.ID, userID).
		Count(&files).Error; err != nil {
		return err
	}
	if children > 0 || files > 0 {
		return fmt.Errorf("cannot delete a folder that still has content, empty it first: %w", ErrConflict)
	}

	return s.db.Delete(&models.Folder{}, folder.ID).Error
}

// DeleteFile hard-deletes a live file: blob removal is best-effort, the
// quota release and row delete always proceed.
func (s *HierarchyService) DeleteFile(userID, fileID uint) (models.StorageInfo, error) {
	file, err := s.liveFile(userID, fileID)
	if err != nil {
		return models.StorageInfo{}, err
	}

	if err := s.blobs.Delete(file.FilePath); err != nil {
		log.Printf("Hierarchy: failed to delete blob %s: %v", file.FilePath, err)
	}

	if err := s.quota.Release(userID, file.Size); err != nil {
		return models.StorageInfo{}, err
	}
	if err := s.db.Delete(&models.File{}, file.ID).Error; err != nil {
		return models.StorageInfo{}, err
	}
	return s.quota.Snapshot(userID)
}

// GetFolder returns a folder owned by userID regardless of trash state
func (s *HierarchyService) GetFolder(userID, folderID uint) (*models.Folder, error) {
	var folder models.Folder
	err := s.db.Where("id = ? AND user_id = ?", folderID, userID).First(&folder).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("folder not found: %w", ErrNotFound)
		}
		return nil, err
	}
	return &folder, nil
}

// GetFile returns a file owned by userID regardless of trash state
func (s *HierarchyService) GetFile(userID, fileID uint) (*models.File, error) {
	var file models.File
	err := s.db.Where("id = ? AND user_id = ?", fileID, userID).First(&file).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("file not found: %w", ErrNotFound)
		}
		return nil, err
	}
	return &file, nil
}

// ListScope selects which directory a listing covers
type ListScope struct {
	// FolderID limits the listing to one folder; nil with Root false means
	// everywhere, nil with Root true means the root directory only
	FolderID *uint
	Root     bool
}

// ListFiles returns live files in scope, newest first, with the unpaginated
// total. Search is a case-insensitive substring match on the name.
func (s *HierarchyService) ListFiles(userID uint, scope ListScope, page, limit int, search string) ([]models.File, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}

	q := s.db.Model(&models.File{}).Where("user_id = ? AND is_trashed = false", userID)
	if scope.FolderID != nil {
		q = q.Where("folder_id = ?", *scope.FolderID)
	} else if scope.Root {
		q = q.Where("folder_id IS NULL")
	}
	if search != "" {
		q = q.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(search)+"%")
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var files []models.File
	err := q.Order("created_at DESC").Offset((page - 1) * limit).Limit(limit).Find(&files).Error
	if err != nil {
		return nil, 0, err
	}
	return files, total, nil
}

// ListFolders returns live folders in scope, newest first
func (s *HierarchyService) ListFolders(userID uint, scope ListScope, page, limit int, search string) ([]models.Folder, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}

	q := s.db.Model(&models.Folder{}).Where("user_id = ? AND is_trashed = false", userID)
	if scope.FolderID != nil {
		q = q.Where("parent_id = ?", *scope.FolderID)
	} else if scope.Root {
		q = q.Where("parent_id IS NULL")
	}
	if search != "" {
		q = q.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(search)+"%")
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var folders []models.Folder
	err := q.Order("created_at DESC").Offset((page - 1) * limit).Limit(limit).Find(&folders).Error
	if err != nil {
		return nil, 0, err
	}
	return folders, total, nil
}
