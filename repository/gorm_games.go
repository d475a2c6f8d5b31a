package repository

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"indibox/models"
)

type GameStore struct {
	DB *gorm.DB
}

func NewGameStore(db *gorm.DB) *GameStore {
	return &GameStore{DB: db}
}

func (s *GameStore) Create(ctx context.Context, game *models.Game) error {
	err := s.DB.WithContext(ctx).Create(game).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicate
	}
	return err
}

func (s *GameStore) Save(ctx context.Context, game *models.Game, replaceScreenshots bool) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if replaceScreenshots {
			if err := tx.Where("game_id = ?", game.ID).Delete(&models.GameScreenshot{}).Error; err != nil {
				return err
			}
			if len(game.Screenshots) > 0 {
				if err := tx.Create(&game.Screenshots).Error; err != nil {
					return err
				}
			}
		}
		if err := saveEditable(tx, game).Error; err != nil {
			return err
		}
		var counters struct {
			AverageRating float64
			DownloadCount int64
		}
		if err := tx.Model(&models.Game{}).Select("average_rating", "download_count").
			Where("id = ?", game.ID).Take(&counters).Error; err != nil {
			return err
		}
		game.AverageRating, game.DownloadCount = counters.AverageRating, counters.DownloadCount
		return nil
	})
}

// counterColumns are maintained by reviews and downloads, never by game edits.
var counterColumns = []string{"average_rating", "download_count"}

func saveEditable(tx *gorm.DB, game *models.Game) *gorm.DB {
	return tx.Omit(append([]string{clause.Associations}, counterColumns...)...).Save(game)
}

// Delete soft-deletes the game and hard-deletes rows that have no value without it.
func (s *GameStore) Delete(ctx context.Context, id string) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("game_id = ?", id).Delete(&models.GameScreenshot{}).Error; err != nil {
			return err
		}
		if err := tx.Where("game_id = ?", id).Delete(&models.Review{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.Game{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

func (s *GameStore) FindByID(ctx context.Context, id string) (*models.Game, error) {
	return s.findOne(ctx, "id = ?", id)
}

func (s *GameStore) FindBySlug(ctx context.Context, slug string) (*models.Game, error) {
	return s.findOne(ctx, "slug = ?", slug)
}

func (s *GameStore) findOne(ctx context.Context, cond string, arg string) (*models.Game, error) {
	var game models.Game
	err := s.DB.WithContext(ctx).
		Preload("Screenshots", func(db *gorm.DB) *gorm.DB {
			return db.Order(clause.OrderByColumn{Column: clause.Column{Name: "order"}})
		}).
		First(&game, cond, arg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &game, nil
}

func (s *GameStore) List(ctx context.Context, q ListQuery) ([]models.Game, int64, error) {
	var total int64
	if err := filterGames(s.DB.WithContext(ctx).Model(&models.Game{}), q).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	games := []models.Game{}
	if total == 0 || int64(q.Offset) >= total {
		return games, total, nil
	}
	err := pageGames(filterGames(s.DB.WithContext(ctx).Model(&models.Game{}), q), q).Find(&games).Error
	if err != nil {
		return nil, 0, err
	}
	return games, total, nil
}

func (s *GameStore) IncrementDownloads(ctx context.Context, id string) error {
	res := s.DB.WithContext(ctx).Model(&models.Game{}).
		Where("id = ? AND status = ?", id, models.StatusPublished).
		UpdateColumn("download_count", gorm.Expr("download_count + ?", 1))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func filterGames(tx *gorm.DB, q ListQuery) *gorm.DB {
	if q.Status != "" {
		tx = tx.Where("status = ?", q.Status)
	}
	if q.OwnerID != "" {
		tx = tx.Where("owner_id = ?", q.OwnerID)
	}
	if q.FeaturedOnly {
		tx = tx.Where("is_featured = ?", true)
	}
	if q.Genre != "" {
		tx = tx.Where("? = ANY(genres)", q.Genre)
	}
	if q.Search != "" {
		pattern := "%" + escapeLike(q.Search) + "%"
		tx = tx.Where("(title ILIKE ? OR short_description ILIKE ? OR long_description ILIKE ?)", pattern, pattern, pattern)
	}
	return tx
}

func pageGames(tx *gorm.DB, q ListQuery) *gorm.DB {
	return tx.
		Order(clause.OrderByColumn{Column: clause.Column{Name: q.Sort.column()}, Desc: q.Desc}).
		Order(clause.OrderByColumn{Column: clause.Column{Name: "id"}}).
		Offset(q.Offset).
		Limit(q.Limit)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
