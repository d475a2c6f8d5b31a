package upload

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"

	"indibox/storage"
)

// Item is a pending file paired with its category.
type Item struct {
	Name        string
	Size        int64
	ContentType string
	Category    Category
	Open        func() (io.ReadCloser, error)
}

// FromFileHeader wraps a multipart file as an upload item.
func FromFileHeader(fh *multipart.FileHeader, category Category) Item {
	return Item{
		Name:        fh.Filename,
		Size:        fh.Size,
		ContentType: fh.Header.Get("Content-Type"),
		Category:    category,
		Open: func() (io.ReadCloser, error) {
			return fh.Open()
		},
	}
}

// Result describes one stored file. Category and Index travel with the
// result so callers never depend on list positions.
type Result struct {
	Category  Category `json:"category"`
	Index     int      `json:"index"`
	File      string   `json:"file"`
	Bucket    string   `json:"bucket"`
	Path      string   `json:"path"`
	FullPath  string   `json:"full_path"`
	PublicURL string   `json:"public_url"`
}

// UploadError is a failed remote write.
type UploadError struct {
	File    string
	Message string
	Err     error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("%s: %s", e.File, e.Message)
}

func (e *UploadError) Unwrap() error {
	return e.Err
}

type Uploader struct {
	store   storage.ObjectStore
	buckets Buckets
	keys    *KeyGenerator
}

func NewUploader(store storage.ObjectStore, buckets Buckets, keys *KeyGenerator) *Uploader {
	if keys == nil {
		keys = NewKeyGenerator(nil)
	}
	return &Uploader{store: store, buckets: buckets, keys: keys}
}

// Buckets reports where each category is stored.
func (u *Uploader) Buckets() Buckets {
	return u.buckets
}

// Upload writes one validated item to its bucket under a fresh key.
func (u *Uploader) Upload(ctx context.Context, ownerID string, item Item) (Result, error) {
	bucket := u.buckets.For(item.Category)
	if bucket == "" {
		return Result{}, &UploadError{File: item.Name, Message: "no bucket for category " + string(item.Category)}
	}
	if item.Open == nil {
		return Result{}, &UploadError{File: item.Name, Message: "file has no content"}
	}

	body, err := item.Open()
	if err != nil {
		return Result{}, &UploadError{File: item.Name, Message: "failed to open file", Err: err}
	}
	defer body.Close()

	key := u.keys.Key(ownerID, item.Name, item.Category)
	obj, err := u.store.Put(ctx, bucket, key, body, item.Size, item.ContentType)
	if err != nil {
		return Result{}, &UploadError{File: item.Name, Message: "upload failed", Err: err}
	}

	return Result{
		Category:  item.Category,
		File:      item.Name,
		Bucket:    obj.Bucket,
		Path:      obj.Path,
		FullPath:  obj.FullPath,
		PublicURL: obj.PublicURL,
	}, nil
}
