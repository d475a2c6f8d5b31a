// Package upload validates, stores and composes the files attached to a game:
// one archive, one cover image and any number of screenshots.
package upload

import "fmt"

type Category string

const (
	CategoryArchive    Category = "game-archive"
	CategoryCover      Category = "cover-image"
	CategoryScreenshot Category = "screenshot"
)

const (
	MaxArchiveBytes = int64(50 * 1024 * 1024) // 50 MiB
	MaxImageBytes   = int64(5 * 1024 * 1024)  // 5 MiB
)

var (
	archiveExtensions = []string{"zip", "rar", "7z", "tar", "gz", "tgz", "exe", "msi", "dmg", "apk", "jar", "love"}
	imageExtensions   = []string{"jpg", "jpeg", "png", "gif", "webp"}
)

// rules returns the allow-list and size ceiling for c.
func (c Category) rules() ([]string, int64, error) {
	switch c {
	case CategoryArchive:
		return archiveExtensions, MaxArchiveBytes, nil
	case CategoryCover, CategoryScreenshot:
		return imageExtensions, MaxImageBytes, nil
	}
	return nil, 0, fmt.Errorf("unknown upload category %q", string(c))
}

// keyPrefix is prepended to object keys before the owner id.
func (c Category) keyPrefix() string {
	if c == CategoryCover {
		return "covers/"
	}
	return ""
}

// Buckets maps each category to its storage bucket.
type Buckets struct {
	Games       string
	Images      string
	Screenshots string
}

func DefaultBuckets() Buckets {
	return Buckets{Games: "games", Images: "images", Screenshots: "screenshots"}
}

func (b Buckets) For(c Category) string {
	switch c {
	case CategoryArchive:
		return b.Games
	case CategoryCover:
		return b.Images
	case CategoryScreenshot:
		return b.Screenshots
	}
	return ""
}
