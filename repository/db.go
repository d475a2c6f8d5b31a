package repository

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Stores bundles one implementation of every repository.
type Stores struct {
	Games    GameRepository
	Reviews  ReviewRepository
	Users    UserRepository
	Cleanups CleanupRepository
}

func NewGormStores(db *gorm.DB) Stores {
	return Stores{
		Games:    NewGameStore(db),
		Reviews:  NewReviewStore(db),
		Users:    NewUserStore(db),
		Cleanups: NewCleanupStore(db),
	}
}

func NewMemoryStores() Stores {
	m := NewMemory()
	return Stores{
		Games:    m.Games(),
		Reviews:  m.Reviews(),
		Users:    m.Users(),
		Cleanups: m.Cleanups(),
	}
}

// Open connects to Postgres and migrates the schema. Queries slower than
// slow are logged as warnings through log.
func Open(dsn string, slow time.Duration, log zerolog.Logger) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger: gormlogger.New(&log, gormlogger.Config{
			SlowThreshold:             slow,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
	})
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if err := AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	return db, nil
}

var (
	_ GameRepository    = (*GameStore)(nil)
	_ ReviewRepository  = (*ReviewStore)(nil)
	_ UserRepository    = (*UserStore)(nil)
	_ CleanupRepository = (*CleanupStore)(nil)
	_ GameRepository    = (*MemoryGames)(nil)
	_ ReviewRepository  = (*MemoryReviews)(nil)
	_ UserRepository    = (*MemoryUsers)(nil)
	_ CleanupRepository = (*MemoryCleanups)(nil)
)
