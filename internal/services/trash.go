package services

import (
	"fmt"
	"log"
	"time"

	"github.com/driveon/backend/internal/models"
	"github.com/driveon/backend/internal/storage"
	"gorm.io/gorm"
)

// ItemType distinguishes the two trashable kinds
type ItemType string

const (
	ItemFile   ItemType = "file"
	ItemFolder ItemType = "folder"
)

// ValidItemType reports whether t names a trashable kind
func ValidItemType(t ItemType) bool {
	return t == ItemFile || t == ItemFolder
}

// TrashService runs the Live -> Trashed -> Purged state machine. Folder
// transitions cascade over the whole subtree as bulk updates per level;
// individual row failures inside a cascade are logged and skipped, since an
// item that vanished concurrently is already in an acceptable terminal state.
// Trashing and restoring never touch the quota ledger; only purging does.
type TrashService struct {
	db    *gorm.DB
	blobs storage.BlobStore
	quota *QuotaService
}

func NewTrashService(db *gorm.DB, blobs storage.BlobStore) *TrashService {
	return &TrashService{db: db, blobs: blobs, quota: NewQuotaService(db)}
}

// subtreeFolderIDs collects the ids of root and every descendant folder,
// regardless of trash state, level by level.
func (s *TrashService) subtreeFolderIDs(userID, rootID uint) ([]uint, error) {
	all := []uint{rootID}
	frontier := []uint{rootID}
	for len(frontier) > 0 {
		var next []uint
		err := s.db.Model(&models.Folder{}).
			Where("user_id = ? AND parent_id IN ?", userID, frontier).
			Pluck("id", &next).Error
		if err != nil {
			return nil, err
		}
		all = append(all, next...)
		frontier = next
	}
	return all, nil
}

// Trash moves a live item to the trash. For folders the transition cascades
// to every live descendant file and folder with the same timestamp.
func (s *TrashService) Trash(userID uint, itemType ItemType, id uint) error {
	now := time.Now().UTC()

	switch itemType {
	case ItemFile:
		res := s.db.Model(&models.File{}).
			Where("id = ? AND user_id = ? AND is_trashed = false", id, userID).
			Updates(map[string]interface{}{"is_trashed": true, "trashed_at": now})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("file not found: %w", ErrNotFound)
		}
		return nil

	case ItemFolder:
		var folder models.Folder
		err := s.db.Where("id = ? AND user_id = ? AND is_trashed = false", id, userID).
			First(&folder).Error
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return fmt.Errorf("folder not found: %w", ErrNotFound)
			}
			return err
		}

		ids, err := s.subtreeFolderIDs(userID, folder.ID)
		if err != nil {
			return err
		}

		if err := s.db.Model(&models.Folder{}).
			Where("user_id = ? AND id IN ? AND is_trashed = false", userID, ids).
			Updates(map[string]interface{}{"is_trashed": true, "trashed_at": now}).Error; err != nil {
			return err
		}
		if err := s.db.Model(&models.File{}).
			Where("user_id = ? AND folder_id IN ? AND is_trashed = false", userID, ids).
			Updates(map[string]interface{}{"is_trashed": true, "trashed_at": now}).Error; err != nil {
			log.Printf("Trash: file cascade for folder %d incomplete: %v", folder.ID, err)
		}
		return nil

	default:
		return fmt.Errorf("invalid item type %q: %w", itemType, ErrInvalidState)
	}
}

// Restore brings a trashed item back to life. The item's parent, if any,
// must already be live: children are restored top-down. Folder restores are
// deliberately coarse and revive every trashed descendant, including ones
// that were trashed individually before the folder was (cascade provenance
// is not tracked).
func (s *TrashService) Restore(userID uint, itemType ItemType, id uint) error {
	switch itemType {
	case ItemFile:
		var file models.File
		err := s.db.Where("id = ? AND user_id = ? AND is_trashed = true", id, userID).
			First(&file).Error
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return fmt.Errorf("file not found in trash: %w", ErrNotFound)
			}
			return err
		}
		if file.FolderID != nil {
			if err := s.requireLiveParent(userID, *file.FolderID); err != nil {
				return err
			}
		}
		return s.db.Model(&models.File{}).Where("id = ?", file.ID).
			Updates(map[string]interface{}{"is_trashed": false, "trashed_at": nil}).Error

	case ItemFolder:
		var folder models.Folder
		err := s.db.Where("id = ? AND user_id = ? AND is_trashed = true", id, userID).
			First(&folder).Error
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return fmt.Errorf("folder not found in trash: %w", ErrNotFound)
			}
			return err
		}
		if folder.ParentID != nil {
			if err := s.requireLiveParent(userID, *folder.ParentID); err != nil {
				return err
			}
		}

		ids, err := s.subtreeFolderIDs(userID, folder.ID)
		if err != nil {
			return err
		}

		if err := s.db.Model(&models.Folder{}).
			Where("user_id = ? AND id IN ? AND is_trashed = true", userID, ids).
			Updates(map[string]interface{}{"is_trashed": false, "trashed_at": nil}).Error; err != nil {
			return err
		}
		if err := s.db.Model(&models.File{}).
			Where("user_id = ? AND folder_id IN ? AND is_trashed = true", userID, ids).
			Updates(map[string]interface{}{"is_trashed": false, "trashed_at": nil}).Error; err != nil {
			log.Printf("Trash: restore cascade for folder %d incomplete: %v", folder.ID, err)
		}
		return nil

	default:
		return fmt.Errorf("invalid item type %q: %w", itemType, ErrInvalidState)
	}
}

// requireLiveParent fails with ErrInvalidState when the parent folder is
// missing or still trashed
func (s *TrashService) requireLiveParent(userID, parentID uint) error {
	var count int64
	err := s.db.Model(&models.Folder{}).
		Where("id = ? AND user_id = ? AND is_trashed = false", parentID, userID).
		Count(&count).Error
	if err != nil {
		return err
	}
	if count == 0 {
		return fmt.Errorf("cannot restore, parent folder does not exist or is in trash: %w", ErrInvalidState)
	}
	return nil
}

// purgeFile releases the blob (best-effort), decrements the owner's quota
// and removes the record. Returns the bytes the ledger was decremented by.
func (s *TrashService) purgeFile(file *models.File) int64 {
	if err := s.blobs.Delete(file.FilePath); err != nil {
		log.Printf("Trash: failed to delete blob %s: %v", file.FilePath, err)
	}
	if err := s.quota.Release(file.UserID, file.Size); err != nil {
		log.Printf("Trash: quota release for file %d failed: %v", file.ID, err)
		return 0
	}
	if err := s.db.Delete(&models.File{}, file.ID).Error; err != nil {
		log.Printf("Trash: failed to delete file record %d: %v", file.ID, err)
	}
	return file.Size
}

// PermanentDelete purges a trashed item. Live items cannot be purged
// directly; they must be trashed first. For folders, every trashed
// descendant file and folder is purged before the folder itself.
func (s *TrashService) PermanentDelete(userID uint, itemType ItemType, id uint) error {
	switch itemType {
	case ItemFile:
		var file models.File
		err := s.db.Where("id = ? AND user_id = ? AND is_trashed = true", id, userID).
			First(&file).Error
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return fmt.Errorf("file not found in trash: %w", ErrNotFound)
			}
			return err
		}
		if err := s.blobs.Delete(file.FilePath); err != nil {
			log.Printf("Trash: failed to delete blob %s: %v", file.FilePath, err)
		}
		if err := s.quota.Release(userID, file.Size); err != nil {
			return err
		}
		return s.db.Delete(&models.File{}, file.ID).Error

	case ItemFolder:
		var folder models.Folder
		err := s.db.Where("id = ? AND user_id = ? AND is_trashed = true", id, userID).
			First(&folder).Error
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return fmt.Errorf("folder not found in trash: %w", ErrNotFound)
			}
			return err
		}

		ids, err := s.subtreeFolderIDs(userID, folder.ID)
		if err != nil {
			return err
		}

		var files []models.File
		if err := s.db.Where("user_id = ? AND folder_id IN ? AND is_trashed = true", userID, ids).
			Find(&files).Error; err != nil {
			return err
		}
		for i := range files {
			s.purgeFile(&files[i])
		}

		return s.db.Where("user_id = ? AND id IN ?", userID, ids).
			Delete(&models.Folder{}).Error

	default:
		return fmt.Errorf("invalid item type %q: %w", itemType, ErrInvalidState)
	}
}

// EmptyTrashResult reports what EmptyTrash removed
type EmptyTrashResult struct {
	Files      int64 `json:"files"`
	Folders    int64 `json:"folders"`
	BytesFreed int64 `json:"bytes_freed"`
}

// EmptyTrash purges everything the owner has in the trash. Bytes freed are
// accumulated from successfully deleted blobs only and applied to the
// ledger as a single decrement; records are removed regardless, since an
// orphaned blob is reconciled out-of-band rather than blocking the purge.
func (s *TrashService) EmptyTrash(userID uint) (EmptyTrashResult, error) {
	var result EmptyTrashResult

	var files []models.File
	if err := s.db.Where("user_id = ? AND is_trashed = true", userID).Find(&files).Error; err != nil {
		return result, err
	}

	var freed int64
	for i := range files {
		if err := s.blobs.Delete(files[i].FilePath); err != nil {
			log.Printf("Trash: failed to delete blob %s: %v", files[i].FilePath, err)
		} else {
			freed += files[i].Size
		}
		if err := s.db.Delete(&models.File{}, files[i].ID).Error; err != nil {
			log.Printf("Trash: failed to delete file record %d: %v", files[i].ID, err)
			continue
		}
		result.Files++
	}

	if freed > 0 {
		if err := s.quota.Release(userID, freed); err != nil {
			return result, err
		}
	}
	result.BytesFreed = freed

	res := s.db.Where("user_id = ? AND is_trashed = true", userID).Delete(&models.Folder{})
	if res.Error != nil {
		return result, res.Error
	}
	result.Folders = res.RowsAffected

	return result, nil
}

// TrashListing pages through a user's trashed files and folders
type TrashListing struct {
	Files   []models.File   `json:"files"`
	Folders []models.Folder `json:"folders"`
	Total   int64           `json:"total"`
}

// ListTrash returns trashed items, most recently trashed first
func (s *TrashService) ListTrash(userID uint, page, limit int) (TrashListing, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	offset := (page - 1) * limit

	var listing TrashListing

	if err := s.db.Where("user_id = ? AND is_trashed = true", userID).
		Order("trashed_at DESC").Offset(offset).Limit(limit).
		Find(&listing.Files).Error; err != nil {
		return listing, err
	}
	if err := s.db.Where("user_id = ? AND is_trashed = true", userID).
		Order("trashed_at DESC").Offset(offset).Limit(limit).
		Find(&listing.Folders).Error; err != nil {
		return listing, err
	}

	var totalFiles, totalFolders int64
	if err := s.db.Model(&models.File{}).
		Where("user_id = ? AND is_trashed = true", userID).Count(&totalFiles).Error; err != nil {
		return listing, err
	}
	if err := s.db.Model(&models.Folder{}).
		Where("user_id = ? AND is_trashed = true", userID).Count(&totalFolders).Error; err != nil {
		return listing, err
	}
	listing.Total = totalFiles + totalFolders

	return listing, nil
}
