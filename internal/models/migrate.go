package models

import (
	"log"

	"github.com/driveon/backend/internal/database"
	"gorm.io/gorm"
)

// AutoMigrate creates the schema and the partial unique indexes that back
// the per-directory name-uniqueness invariant. GORM tags cannot express
// partial indexes, so those are raw DDL. The WHERE clause exempts trashed
// rows: a trashed item's name may collide with a live sibling created later.
func AutoMigrate(db *gorm.DB) error {
	log.Println("Running database migrations...")

	if err := db.AutoMigrate(
		&User{},
		&Folder{},
		&File{},
		&ShareLink{},
		&database.SystemPreference{},
	); err != nil {
		return err
	}

	// COALESCE folds the nullable parent into one key so two root-level
	// siblings with the same name still collide (NULLs are distinct in
	// unique indexes otherwise).
	statements := []string{
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_folders_sibling_name
			ON folders (user_id, COALESCE(parent_id, 0), name)
			WHERE is_trashed = false`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_files_sibling_name
			ON files (user_id, COALESCE(folder_id, 0), name)
			WHERE is_trashed = false`,
		`CREATE INDEX IF NOT EXISTS idx_files_owner_live
			ON files (user_id, is_trashed, created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_folders_owner_live
			ON folders (user_id, is_trashed, created_at)`,
	}
	for _, stmt := range statements {
		if err := db.Exec(stmt).Error; err != nil {
			return err
		}
	}

	log.Println("Database migrations completed")
	return nil
}
