package models

import (
	"path/filepath"
	"strings"
	"time"
)

// File is the metadata record for one stored object. FilePath is the blob
// store handle; the bytes themselves live behind storage.BlobStore.
// ShareToken is the legacy single-token public sharing mechanism; the
// ShareLink table supersedes it but both remain supported.
type File struct {
	ID           uint       `gorm:"column:id;primaryKey" json:"id"`
	Name         string     `gorm:"column:name;size:255;not null" json:"name"`
	OriginalName string     `gorm:"column:original_name;size:255;not null" json:"original_name"`
	Mimetype     string     `gorm:"column:mimetype;size:255;not null" json:"mimetype"`
	Size         int64      `gorm:"column:size;not null" json:"size"`
	FolderID     *uint      `gorm:"column:folder_id;index" json:"folder_id"`
	UserID       uint       `gorm:"column:user_id;not null;index" json:"user_id"`
	Description  string     `gorm:"column:description;size:1000;default:''" json:"description"`
	FilePath     string     `gorm:"column:file_path;size:1000;not null" json:"-"`
	IsTrashed    bool       `gorm:"column:is_trashed;not null;default:false;index" json:"is_trashed"`
	TrashedAt    *time.Time `gorm:"column:trashed_at" json:"trashed_at"`
	IsPublic     bool       `gorm:"column:is_public;not null;default:false" json:"is_public"`
	ShareToken   *string    `gorm:"column:share_token;size:64;uniqueIndex" json:"share_token,omitempty"`
	CreatedAt    time.Time  `gorm:"column:created_at" json:"created_at"`
	UpdatedAt    time.Time  `gorm:"column:updated_at" json:"updated_at"`
}

func (File) TableName() string {
	return "files"
}

// Extension returns the lowercase extension of the upload-time name
func (f *File) Extension() string {
	return strings.ToLower(filepath.Ext(f.OriginalName))
}

// FileType buckets the file into a coarse display category
func (f *File) FileType() string {
	switch f.Extension() {
	case ".jpg", ".jpeg", ".png", ".gif", ".bmp", ".webp":
		return "image"
	case ".pdf", ".doc", ".docx", ".txt", ".rtf":
		return "document"
	case ".xls", ".xlsx", ".csv":
		return "spreadsheet"
	case ".zip", ".rar":
		return "archive"
	default:
		return "other"
	}
}
