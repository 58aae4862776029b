package models

import "time"

// ShareLink is a tokenized access grant to one file. FileID is a weak
// reference: the backing file may be hard-deleted, leaving the link dangling.
// No FK constraint is created (see database.Connect), so read paths must
// treat a missing file as a normal typed outcome.
type ShareLink struct {
	ID             uint       `gorm:"column:id;primaryKey" json:"id"`
	Token          string     `gorm:"column:token;size:64;uniqueIndex;not null" json:"token"`
	FileID         uint       `gorm:"column:file_id;not null;index" json:"file_id"`
	File           *File      `gorm:"foreignKey:FileID" json:"file,omitempty"`
	UserID         uint       `gorm:"column:user_id;not null;index" json:"user_id"`
	ExpiresAt      *time.Time `gorm:"column:expires_at;index" json:"expires_at"`
	Password       *string    `gorm:"column:password;size:255" json:"-"`
	DownloadCount  int64      `gorm:"column:download_count;not null;default:0" json:"download_count"`
	MaxDownloads   *int64     `gorm:"column:max_downloads" json:"max_downloads"`
	IsActive       bool       `gorm:"column:is_active;not null;default:true" json:"is_active"`
	LastAccessedAt *time.Time `gorm:"column:last_accessed_at" json:"last_accessed_at"`
	CreatedAt      time.Time  `gorm:"column:created_at" json:"created_at"`
	UpdatedAt      time.Time  `gorm:"column:updated_at" json:"updated_at"`
}

func (ShareLink) TableName() string {
	return "share_links"
}

// IsExpired reports whether the link's expiry has passed
func (s *ShareLink) IsExpired() bool {
	return s.ExpiresAt != nil && time.Now().After(*s.ExpiresAt)
}

// HasPassword reports whether downloads require a password
func (s *ShareLink) HasPassword() bool {
	return s.Password != nil && *s.Password != ""
}

// DownloadLimitReached reports whether the optional download cap is hit
func (s *ShareLink) DownloadLimitReached() bool {
	return s.MaxDownloads != nil && s.DownloadCount >= *s.MaxDownloads
}
