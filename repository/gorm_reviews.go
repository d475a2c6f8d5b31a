package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"indibox/models"
)

type ReviewStore struct {
	DB *gorm.DB
}

func NewReviewStore(db *gorm.DB) *ReviewStore {
	return &ReviewStore{DB: db}
}

func (s *ReviewStore) Create(ctx context.Context, review *models.Review) error {
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(review).Error; err != nil {
			return err
		}
		return recomputeAverage(tx, review.GameID)
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicate
	}
	return err
}

func (s *ReviewStore) Save(ctx context.Context, review *models.Review) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(review).Error; err != nil {
			return err
		}
		return recomputeAverage(tx, review.GameID)
	})
}

func (s *ReviewStore) Delete(ctx context.Context, review *models.Review) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(review).Error; err != nil {
			return err
		}
		return recomputeAverage(tx, review.GameID)
	})
}

func (s *ReviewStore) FindByID(ctx context.Context, id string) (*models.Review, error) {
	var review models.Review
	if err := s.DB.WithContext(ctx).First(&review, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &review, nil
}

func (s *ReviewStore) FindByGameAndUser(ctx context.Context, gameID, userID string) (*models.Review, error) {
	var review models.Review
	err := s.DB.WithContext(ctx).Where("game_id = ? AND user_id = ?", gameID, userID).First(&review).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &review, nil
}

func (s *ReviewStore) ListByGame(ctx context.Context, gameID string) ([]models.Review, error) {
	reviews := []models.Review{}
	err := s.DB.WithContext(ctx).Where("game_id = ?", gameID).Order("created_at DESC").Find(&reviews).Error
	return reviews, err
}

func recomputeAverage(tx *gorm.DB, gameID string) error {
	var avg float64
	err := tx.Model(&models.Review{}).Where("game_id = ?", gameID).
		Select("COALESCE(AVG(rating), 0)").Scan(&avg).Error
	if err != nil {
		return err
	}
	return tx.Model(&models.Game{}).Where("id = ?", gameID).UpdateColumn("average_rating", avg).Error
}

type UserStore struct {
	DB *gorm.DB
}

func NewUserStore(db *gorm.DB) *UserStore {
	return &UserStore{DB: db}
}

func (s *UserStore) Upsert(ctx context.Context, user *models.User) error {
	return s.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"email", "display_name", "avatar_url", "updated_at"}),
	}).Create(user).Error
}

func (s *UserStore) FindByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := s.DB.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}
