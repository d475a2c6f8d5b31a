// Package repository persists games, reviews, user profiles and the asset
// cleanup queue. Postgres via gorm in production, memory in development.
package repository

import (
	"context"
	"errors"
	"time"

	"indibox/models"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("record already exists")
)

type SortKey string

const (
	SortCreated   SortKey = "created_at"
	SortRating    SortKey = "rating"
	SortDownloads SortKey = "downloads"
	SortTitle     SortKey = "title"
)

// column maps a sort key to its games column. Unknown keys sort by creation time.
func (k SortKey) column() string {
	switch k {
	case SortRating:
		return "average_rating"
	case SortDownloads:
		return "download_count"
	case SortTitle:
		return "title"
	}
	return "created_at"
}

// ListQuery is one page window plus filters over the games table.
type ListQuery struct {
	Offset int
	Limit  int

	// Status restricts rows to one state; empty means any.
	Status       string
	OwnerID      string
	Genre        string
	Search       string
	FeaturedOnly bool

	Sort SortKey
	Desc bool
}

type GameRepository interface {
	Create(ctx context.Context, game *models.Game) error
	// Save persists scalar fields except the rating and download counters,
	// which are read back into game. With replaceScreenshots the stored
	// screenshot rows are swapped for game.Screenshots.
	Save(ctx context.Context, game *models.Game, replaceScreenshots bool) error
	Delete(ctx context.Context, id string) error
	FindByID(ctx context.Context, id string) (*models.Game, error)
	FindBySlug(ctx context.Context, slug string) (*models.Game, error)
	List(ctx context.Context, q ListQuery) ([]models.Game, int64, error)
	IncrementDownloads(ctx context.Context, id string) error
}

type ReviewRepository interface {
	// Create, Save and Delete recompute the game's average rating in the same transaction.
	Create(ctx context.Context, review *models.Review) error
	Save(ctx context.Context, review *models.Review) error
	Delete(ctx context.Context, review *models.Review) error
	FindByID(ctx context.Context, id string) (*models.Review, error)
	FindByGameAndUser(ctx context.Context, gameID, userID string) (*models.Review, error)
	ListByGame(ctx context.Context, gameID string) ([]models.Review, error)
}

type UserRepository interface {
	Upsert(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, id string) (*models.User, error)
}

type CleanupRepository interface {
	Enqueue(ctx context.Context, items []models.AssetCleanup) error
	Pending(ctx context.Context, limit, maxAttempts int) ([]models.AssetCleanup, error)
	MarkDone(ctx context.Context, id uint, at time.Time) error
	MarkFailed(ctx context.Context, id uint, reason string) error
}
