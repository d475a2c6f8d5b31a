package models

import "time"

// User is a local snapshot of the identity issued by the auth provider.
// Rows are upserted from token claims; the provider stays the source of truth.
type User struct {
	ID          string    `gorm:"primaryKey" json:"id"`
	Email       string    `gorm:"index" json:"email,omitempty"`
	DisplayName string    `json:"display_name"`
	AvatarURL   string    `json:"avatar_url,omitempty"`
	CreatedAt   time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt   time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// Review is one player's rating of a game.
type Review struct {
	ID            string    `json:"id" gorm:"primaryKey;type:uuid"`
	GameID        string    `json:"game_id" gorm:"uniqueIndex:idx_review_game_user;not null"`
	UserID        string    `json:"user_id" gorm:"uniqueIndex:idx_review_game_user;not null"`
	UserName      string    `json:"user_name"`
	UserAvatarURL string    `json:"user_avatar_url"`
	Rating        int       `json:"rating" gorm:"check:rating >= 1 and rating <= 5"`
	Comment       string    `json:"comment"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// AssetCleanup is a pending deletion of a stored object that no game references anymore.
type AssetCleanup struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	Bucket    string     `gorm:"not null" json:"bucket"`
	Path      string     `gorm:"not null" json:"path"`
	Reason    string     `json:"reason"`
	Attempts  int        `gorm:"default:0" json:"attempts"`
	LastError string     `json:"last_error,omitempty"`
	DoneAt    *time.Time `gorm:"index" json:"done_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}
