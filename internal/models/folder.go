package models

import "time"

// Folder is a node in a user's directory tree. ParentID nil means root.
// Path is the materialized concatenation of ancestor names computed when the
// folder is created or moved; it is a display hint only and goes stale when
// an ancestor is later renamed. Hierarchy logic always derives from ParentID.
type Folder struct {
	ID        uint       `gorm:"column:id;primaryKey" json:"id"`
	Name      string     `gorm:"column:name;size:255;not null" json:"name"`
	UserID    uint       `gorm:"column:user_id;not null;index" json:"user_id"`
	ParentID  *uint      `gorm:"column:parent_id;index" json:"parent_id"`
	Path      string     `gorm:"column:path;size:4096;default:''" json:"path"`
	IsTrashed bool       `gorm:"column:is_trashed;not null;default:false;index" json:"is_trashed"`
	TrashedAt *time.Time `gorm:"column:trashed_at" json:"trashed_at"`
	CreatedAt time.Time  `gorm:"column:created_at" json:"created_at"`
	UpdatedAt time.Time  `gorm:"column:updated_at" json:"updated_at"`
}

func (Folder) TableName() string {
	return "folders"
}

// FullPath joins the materialized path with the folder's own name
func (f *Folder) FullPath() string {
	if f.Path == "" {
		return f.Name
	}
	return f.Path + "/" + f.Name
}
