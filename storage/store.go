// Package storage puts game archives and images into named buckets of an
// object store and hands back their public URLs.
package storage

import (
	"context"
	"errors"
	"io"
)

// ErrNotFound is returned by Delete when the object does not exist.
var ErrNotFound = errors.New("object not found")

// Object identifies a stored file.
type Object struct {
	Bucket    string `json:"bucket"`
	Path      string `json:"path"`
	FullPath  string `json:"full_path"`
	PublicURL string `json:"public_url"`
}

// ObjectStore is the object-storage collaborator. Implementations must be
// safe for concurrent use.
type ObjectStore interface {
	Put(ctx context.Context, bucket, key string, body io.Reader, size int64, contentType string) (Object, error)
	Delete(ctx context.Context, bucket, key string) error
	PublicURL(bucket, key string) string
}

func fullPath(bucket, key string) string {
	return bucket + "/" + key
}
