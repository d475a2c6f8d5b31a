package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"indibox/models"
)

type CleanupStore struct {
	DB *gorm.DB
}

func NewCleanupStore(db *gorm.DB) *CleanupStore {
	return &CleanupStore{DB: db}
}

func (s *CleanupStore) Enqueue(ctx context.Context, items []models.AssetCleanup) error {
	if len(items) == 0 {
		return nil
	}
	return s.DB.WithContext(ctx).Create(&items).Error
}

func (s *CleanupStore) Pending(ctx context.Context, limit, maxAttempts int) ([]models.AssetCleanup, error) {
	var items []models.AssetCleanup
	err := s.DB.WithContext(ctx).
		Where("done_at IS NULL AND attempts < ?", maxAttempts).
		Order("id").
		Limit(limit).
		Find(&items).Error
	return items, err
}

func (s *CleanupStore) MarkDone(ctx context.Context, id uint, at time.Time) error {
	return s.DB.WithContext(ctx).Model(&models.AssetCleanup{}).Where("id = ?", id).
		Update("done_at", at).Error
}

func (s *CleanupStore) MarkFailed(ctx context.Context, id uint, reason string) error {
	return s.DB.WithContext(ctx).Model(&models.AssetCleanup{}).Where("id = ?", id).
		Updates(map[string]any{
			"attempts":   gorm.Expr("attempts + ?", 1),
			"last_error": reason,
		}).Error
}

// AutoMigrate creates or updates every table the service owns.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Game{},
		&models.GameScreenshot{},
		&models.Review{},
		&models.AssetCleanup{},
	)
}
