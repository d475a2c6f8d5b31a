// models/game.go
package models

import (
	"time"

	"github.com/lib/pq"
	"gorm.io/gorm"
)

const (
	StatusDraft     = "draft"
	StatusPublished = "published"
	StatusArchived  = "archived"
)

const (
	PlatformWeb     = "web"
	PlatformWindows = "windows"
	PlatformMac     = "mac"
	PlatformLinux   = "linux"
	PlatformAndroid = "android"
)

// ValidStatus reports whether s is one of the known publishing states.
func ValidStatus(s string) bool {
	switch s {
	case StatusDraft, StatusPublished, StatusArchived:
		return true
	}
	return false
}

type Game struct {
	ID               string     `json:"id" gorm:"primaryKey;type:uuid"`
	Slug             string     `json:"slug" gorm:"uniqueIndex;not null"`
	Title            string     `json:"title" gorm:"not null"`
	ShortDescription string     `json:"short_description"`
	LongDescription  string     `json:"long_description"`
	DeveloperName    string     `json:"developer_name"`
	ReleaseDate      *time.Time `json:"release_date,omitempty"`

	Genres    pq.StringArray `json:"genres" gorm:"type:text[]"`
	Tags      pq.StringArray `json:"tags" gorm:"type:text[]"`
	Platforms pq.StringArray `json:"platforms" gorm:"type:text[]"`

	// 📁 Core file
	DownloadURL   string `json:"download_url"`
	DownloadPath  string `json:"-"`
	FileSizeLabel string `json:"file_size"`

	WebsiteURL    string `json:"website_url,omitempty"`
	RepositoryURL string `json:"repository_url,omitempty"`

	// 🖼️ Media
	CoverImageURL  string           `json:"cover_image_url"`
	CoverImagePath string           `json:"-"`
	Screenshots    []GameScreenshot `json:"screenshots" gorm:"foreignKey:GameID;constraint:OnDelete:CASCADE"`

	AverageRating float64 `json:"average_rating" gorm:"default:0;index"`
	DownloadCount int64   `json:"download_count" gorm:"default:0;index"`

	// 🎛️ Publishing state
	Status     string `json:"status" gorm:"default:'draft';index"`
	IsFeatured bool   `json:"is_featured" gorm:"default:false"`
	OwnerID    string `json:"owner_id" gorm:"index;not null"`

	CreatedAt time.Time      `json:"created_at" gorm:"index"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

type GameScreenshot struct {
	ID     string `json:"id" gorm:"primaryKey;type:uuid"`
	GameID string `json:"game_id" gorm:"index;not null"`
	URL    string `json:"url"`
	Path   string `json:"-"`
	Order  int    `json:"order"`
}

// GameSummary is the lightweight card rendered in listing grids.
type GameSummary struct {
	ID               string         `json:"id"`
	Slug             string         `json:"slug"`
	Title            string         `json:"title"`
	ShortDescription string         `json:"short_description"`
	DeveloperName    string         `json:"developer_name"`
	CoverImageURL    string         `json:"cover_image_url"`
	Genres           pq.StringArray `json:"genres"`
	Platforms        pq.StringArray `json:"platforms"`
	AverageRating    float64        `json:"average_rating"`
	DownloadCount    int64          `json:"download_count"`
	IsFeatured       bool           `json:"is_featured"`
	CreatedAt        time.Time      `json:"created_at"`
}

func (g *Game) Summary() GameSummary {
	return GameSummary{
		ID:               g.ID,
		Slug:             g.Slug,
		Title:            g.Title,
		ShortDescription: g.ShortDescription,
		DeveloperName:    g.DeveloperName,
		CoverImageURL:    g.CoverImageURL,
		Genres:           g.Genres,
		Platforms:        g.Platforms,
		AverageRating:    g.AverageRating,
		DownloadCount:    g.DownloadCount,
		IsFeatured:       g.IsFeatured,
		CreatedAt:        g.CreatedAt,
	}
}
