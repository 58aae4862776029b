package services

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/driveon/backend/internal/database"
	"github.com/driveon/backend/internal/models"
	"github.com/driveon/backend/internal/storage"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// shareBcryptCost matches the hash cost used for link passwords
const shareBcryptCost = 12

// ShareService issues, validates and revokes tokenized access grants to
// files. Links hold a weak file reference: the backing file may be gone, and
// every read path treats that as a normal not-found outcome. It also keeps
// the legacy single-token public sharing that predates the link table.
type ShareService struct {
	db    *gorm.DB
	blobs storage.BlobStore
}

func NewShareService(db *gorm.DB, blobs storage.BlobStore) *ShareService {
	return &ShareService{db: db, blobs: blobs}
}

// newShareToken returns 32 random bytes as hex; never derived from the file id
func newShareToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate share token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// CreateLinkParams carries the optional link settings
type CreateLinkParams struct {
	ExpiresInDays *int
	Password      string
	MaxDownloads  *int64
}

// CreateLink issues a new share link for a live file owned by userID.
// Multiple links per file may coexist. Only the token is ever returned to
// the caller; the password hash stays internal.
func (s *ShareService) CreateLink(userID, fileID uint, p CreateLinkParams) (*models.ShareLink, error) {
	var file models.File
	err := s.db.Where("id = ? AND user_id = ? AND is_trashed = false", fileID, userID).
		First(&file).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("file not found: %w", ErrNotFound)
		}
		return nil, err
	}

	token, err := newShareToken()
	if err != nil {
		return nil, err
	}

	link := models.ShareLink{
		Token:        token,
		FileID:       file.ID,
		UserID:       userID,
		MaxDownloads: p.MaxDownloads,
	}
	if p.ExpiresInDays != nil {
		t := time.Now().Add(time.Duration(*p.ExpiresInDays) * 24 * time.Hour)
		link.ExpiresAt = &t
	}
	if p.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(p.Password), shareBcryptCost)
		if err != nil {
			return nil, err
		}
		h := string(hash)
		link.Password = &h
	}

	if err := s.db.Create(&link).Error; err != nil {
		return nil, err
	}
	return &link, nil
}

// resolveLink loads an active link by token, lazily deactivating it when
// expired or past its download cap, and resolves the weak file reference.
// The two not-found flavors carry distinct messages but the same sentinel.
func (s *ShareService) resolveLink(token string) (*models.ShareLink, error) {
	var link models.ShareLink
	err := s.db.Where("token = ? AND is_active = true", token).First(&link).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("share link not found or has expired: %w", ErrNotFound)
		}
		return nil, err
	}

	if link.IsExpired() || link.DownloadLimitReached() {
		if err := s.db.Model(&models.ShareLink{}).Where("id = ?", link.ID).
			Update("is_active", false).Error; err != nil {
			log.Printf("Share: failed to deactivate link %d: %v", link.ID, err)
		}
		if database.Redis != nil {
			database.InvalidateShareCache(link.Token)
		}
		return nil, fmt.Errorf("share link not found or has expired: %w", ErrNotFound)
	}

	var file models.File
	err = s.db.Where("id = ?", link.FileID).First(&file).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("the linked file has been deleted: %w", ErrNotFound)
		}
		return nil, err
	}
	link.File = &file
	return &link, nil
}

// SharePublicInfo is everything an unauthenticated visitor may see about a
// link: display metadata and whether a password will be required. Never the
// token owner, hash, or blob handle.
type SharePublicInfo struct {
	Name             string `json:"name"`
	Size             int64  `json:"size"`
	Mimetype         string `json:"mimetype"`
	RequiresPassword bool   `json:"requires_password"`
}

// GetPublicInfo returns the visitor-facing metadata for a token. Results are
// cached briefly in Redis; revocation invalidates the entry.
func (s *ShareService) GetPublicInfo(token string) (*SharePublicInfo, error) {
	if database.Redis != nil {
		var cached SharePublicInfo
		if err := database.CacheGet(database.CacheKeyShareInfo+token, &cached); err == nil {
			return &cached, nil
		}
	}

	link, err := s.resolveLink(token)
	if err != nil {
		return nil, err
	}

	info := SharePublicInfo{
		Name:             link.File.Name,
		Size:             link.File.Size,
		Mimetype:         link.File.Mimetype,
		RequiresPassword: link.HasPassword(),
	}
	if database.Redis != nil {
		database.CacheSet(database.CacheKeyShareInfo+token, info, database.CacheTTLShareInfo)
	}
	return &info, nil
}

// ShareDownload is an open stream plus the display metadata to serve it with
type ShareDownload struct {
	Content  io.ReadCloser
	Name     string
	Mimetype string
	Size     int64
}

// Download validates the link and password, bumps the counters and opens
// the blob. A link with no password set accepts any supplied password.
func (s *ShareService) Download(token, password string) (*ShareDownload, error) {
	link, err := s.resolveLink(token)
	if err != nil {
		return nil, err
	}

	if link.HasPassword() {
		if err := bcrypt.CompareHashAndPassword([]byte(*link.Password), []byte(password)); err != nil {
			return nil, fmt.Errorf("invalid password: %w", ErrUnauthorized)
		}
	}

	content, err := s.blobs.Open(link.File.FilePath)
	if err != nil {
		return nil, fmt.Errorf("file content not found: %w", ErrNotFound)
	}

	now := time.Now().UTC()
	if err := s.db.Model(&models.ShareLink{}).Where("id = ?", link.ID).
		Updates(map[string]interface{}{
			"download_count":   gorm.Expr("download_count + 1"),
			"last_accessed_at": now,
		}).Error; err != nil {
		log.Printf("Share: failed to update counters for link %d: %v", link.ID, err)
	}

	return &ShareDownload{
		Content:  content,
		Name:     link.File.OriginalName,
		Mimetype: link.File.Mimetype,
		Size:     link.File.Size,
	}, nil
}

// Revoke deletes a link owned by userID, immediately and unconditionally
func (s *ShareService) Revoke(userID, shareID uint) error {
	var link models.ShareLink
	err := s.db.Where("id = ? AND user_id = ?", shareID, userID).First(&link).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return fmt.Errorf("share link not found: %w", ErrNotFound)
		}
		return err
	}
	if err := s.db.Delete(&models.ShareLink{}, link.ID).Error; err != nil {
		return err
	}
	if database.Redis != nil {
		database.InvalidateShareCache(link.Token)
	}
	return nil
}

// ListForOwner returns the owner's links newest first, dropping entries
// whose backing file is gone. The total is taken before the orphan filter,
// so a page may show fewer items than the limit; callers display that as-is.
func (s *ShareService) ListForOwner(userID uint, page, limit int) ([]models.ShareLink, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}

	var total int64
	if err := s.db.Model(&models.ShareLink{}).
		Where("user_id = ?", userID).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var links []models.ShareLink
	err := s.db.Preload("File").
		Where("user_id = ?", userID).
		Order("created_at DESC").Offset((page - 1) * limit).Limit(limit).
		Find(&links).Error
	if err != nil {
		return nil, 0, err
	}

	kept := links[:0]
	for _, link := range links {
		if link.File != nil {
			kept = append(kept, link)
		}
	}
	return kept, total, nil
}

// SetFilePublic toggles the legacy single-token sharing on a file. Enabling
// mints a fresh token; disabling clears it.
func (s *ShareService) SetFilePublic(userID, fileID uint, isPublic bool) (*models.File, error) {
	var file models.File
	err := s.db.Where("id = ? AND user_id = ? AND is_trashed = false", fileID, userID).
		First(&file).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("file not found: %w", ErrNotFound)
		}
		return nil, err
	}

	file.IsPublic = isPublic
	if isPublic {
		token, err := newShareToken()
		if err != nil {
			return nil, err
		}
		file.ShareToken = &token
	} else {
		file.ShareToken = nil
	}

	if err := s.db.Save(&file).Error; err != nil {
		return nil, err
	}
	return &file, nil
}

// GetSharedFile resolves a legacy public file token
func (s *ShareService) GetSharedFile(token string) (*models.File, error) {
	var file models.File
	err := s.db.Where("share_token = ? AND is_public = true AND is_trashed = false", token).
		First(&file).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("shared file not found: %w", ErrNotFound)
		}
		return nil, err
	}
	return &file, nil
}

// DownloadShared opens a legacy publicly shared file
func (s *ShareService) DownloadShared(token string) (*ShareDownload, error) {
	file, err := s.GetSharedFile(token)
	if err != nil {
		return nil, err
	}
	content, err := s.blobs.Open(file.FilePath)
	if err != nil {
		return nil, fmt.Errorf("file content not found: %w", ErrNotFound)
	}
	return &ShareDownload{
		Content:  content,
		Name:     file.OriginalName,
		Mimetype: file.Mimetype,
		Size:     file.Size,
	}, nil
}
