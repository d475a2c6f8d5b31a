package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// LocalStore keeps objects under Root/bucket/key. Used in development, where
// Root is also served by the HTTP server at BaseURL.
type LocalStore struct {
	root    string
	baseURL string
}

func NewLocalStore(root, baseURL string) (*LocalStore, error) {
	if err := os.MkdirAll(root, os.ModePerm); err != nil {
		return nil, fmt.Errorf("failed to ensure storage dir: %w", err)
	}
	return &LocalStore{root: root, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

func (s *LocalStore) Root() string {
	return s.root
}

func (s *LocalStore) resolve(bucket, key string) (string, error) {
	base := filepath.Join(s.root, bucket)
	path := filepath.Join(base, filepath.FromSlash(key))
	if !strings.HasPrefix(path, filepath.Clean(base)+string(os.PathSeparator)) {
		return "", fmt.Errorf("illegal object key: %s", key)
	}
	return path, nil
}

func (s *LocalStore) Put(ctx context.Context, bucket, key string, body io.Reader, _ int64, _ string) (Object, error) {
	if err := ctx.Err(); err != nil {
		return Object{}, err
	}
	path, err := s.resolve(bucket, key)
	if err != nil {
		return Object{}, err
	}
	if err := os.MkdirAll(filepath.Dir(path), os.ModePerm); err != nil {
		return Object{}, err
	}

	dst, err := os.Create(path)
	if err != nil {
		return Object{}, err
	}
	if _, err := io.Copy(dst, body); err != nil {
		dst.Close()
		os.Remove(path)
		return Object{}, fmt.Errorf("failed to write %s: %w", fullPath(bucket, key), err)
	}
	if err := dst.Close(); err != nil {
		return Object{}, err
	}

	return Object{
		Bucket:    bucket,
		Path:      key,
		FullPath:  fullPath(bucket, key),
		PublicURL: s.PublicURL(bucket, key),
	}, nil
}

func (s *LocalStore) Delete(ctx context.Context, bucket, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := s.resolve(bucket, key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

func (s *LocalStore) PublicURL(bucket, key string) string {
	return fmt.Sprintf("%s/%s/%s", s.baseURL, bucket, key)
}
