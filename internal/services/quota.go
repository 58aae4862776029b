package services

import (
	"github.com/driveon/backend/internal/models"
	"gorm.io/gorm"
)

// QuotaService is the ledger for per-user storage accounting. The counter
// lives on the users row; every mutation is a single column-expression
// UPDATE so concurrent uploads and deletes for the same user cannot lose
// increments to a read-modify-write race.
type QuotaService struct {
	db *gorm.DB
}

func NewQuotaService(db *gorm.DB) *QuotaService {
	return &QuotaService{db: db}
}

// Reserve reports whether committing bytes would stay within the owner's
// limit. The check is advisory: a racing upload can still pass here and the
// loser is tolerated (existing overage is never retroactively enforced).
func (s *QuotaService) Reserve(userID uint, bytes int64) (bool, error) {
	var user models.User
	if err := s.db.First(&user, userID).Error; err != nil {
		return false, err
	}
	return user.StorageUsed+bytes <= user.StorageLimit, nil
}

// Commit adds bytes to the owner's usage counter
func (s *QuotaService) Commit(userID uint, bytes int64) error {
	if bytes == 0 {
		return nil
	}
	return s.db.Model(&models.User{}).Where("id = ?", userID).
		Update("storage_used", gorm.Expr("storage_used + ?", bytes)).Error
}

// Release subtracts bytes from the owner's usage counter, floored at zero
func (s *QuotaService) Release(userID uint, bytes int64) error {
	if bytes == 0 {
		return nil
	}
	return s.db.Model(&models.User{}).Where("id = ?", userID).
		Update("storage_used",
			gorm.Expr("CASE WHEN storage_used >= ? THEN storage_used - ? ELSE 0 END", bytes, bytes)).Error
}

// Snapshot returns the owner's current quota state
func (s *QuotaService) Snapshot(userID uint) (models.StorageInfo, error) {
	var user models.User
	if err := s.db.First(&user, userID).Error; err != nil {
		return models.StorageInfo{}, err
	}
	return user.GetStorageInfo(), nil
}
