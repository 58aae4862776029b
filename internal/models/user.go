package models

import (
	"time"

	"gorm.io/gorm"
)

// User represents an account that owns folders, files and share links.
// StorageUsed counts every byte still occupying the blob store, including
// trashed-but-not-purged files.
type User struct {
	ID           uint           `gorm:"column:id;primaryKey" json:"id"`
	Name         string         `gorm:"column:name;size:255;not null" json:"name"`
	Email        string         `gorm:"column:email;uniqueIndex;size:255;not null" json:"email"`
	Password     string         `gorm:"column:password;size:255" json:"-"`
	Avatar       string         `gorm:"column:avatar;size:500" json:"avatar,omitempty"`
	StorageUsed  int64          `gorm:"column:storage_used;not null;default:0" json:"storage_used"`
	StorageLimit int64          `gorm:"column:storage_limit;not null;default:10737418240" json:"storage_limit"`
	IsVerified   bool           `gorm:"column:is_verified;default:false" json:"is_verified"`
	LastLogin    *time.Time     `gorm:"column:last_login" json:"last_login"`
	CreatedAt    time.Time      `gorm:"column:created_at" json:"created_at"`
	UpdatedAt    time.Time      `gorm:"column:updated_at" json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"column:deleted_at;index" json:"-"`
}

func (User) TableName() string {
	return "users"
}

// StorageInfo is the quota snapshot returned alongside upload/delete results
type StorageInfo struct {
	Used       int64   `json:"used"`
	Limit      int64   `json:"limit"`
	UsedGB     float64 `json:"used_gb"`
	LimitGB    float64 `json:"limit_gb"`
	Percentage float64 `json:"percentage"`
}

// GetStorageInfo builds the quota snapshot for this user
func (u *User) GetStorageInfo() StorageInfo {
	info := StorageInfo{
		Used:    u.StorageUsed,
		Limit:   u.StorageLimit,
		UsedGB:  float64(u.StorageUsed) / 1024 / 1024 / 1024,
		LimitGB: float64(u.StorageLimit) / 1024 / 1024 / 1024,
	}
	if u.StorageLimit > 0 {
		pct := float64(u.StorageUsed) / float64(u.StorageLimit) * 100
		if pct > 100 {
			pct = 100
		}
		info.Percentage = pct
	}
	return info
}
