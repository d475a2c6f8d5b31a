package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorePutAndDelete(t *testing.T) {
	root := t.TempDir()
	store, err := NewLocalStore(root, "http://localhost:5200/files/")
	require.NoError(t, err)

	obj, err := store.Put(context.Background(), "games", "user-1/1700000000000_hello.zip", strings.NewReader("zipdata"), 7, "application/zip")
	require.NoError(t, err)

	assert.Equal(t, "games", obj.Bucket)
	assert.Equal(t, "user-1/1700000000000_hello.zip", obj.Path)
	assert.Equal(t, "games/user-1/1700000000000_hello.zip", obj.FullPath)
	assert.Equal(t, "http://localhost:5200/files/games/user-1/1700000000000_hello.zip", obj.PublicURL)

	data, err := os.ReadFile(filepath.Join(root, "games", "user-1", "1700000000000_hello.zip"))
	require.NoError(t, err)
	assert.Equal(t, "zipdata", string(data))

	require.NoError(t, store.Delete(context.Background(), "games", obj.Path))
	assert.ErrorIs(t, store.Delete(context.Background(), "games", obj.Path), ErrNotFound)
}

func TestLocalStoreRejectsTraversal(t *testing.T) {
	store, err := NewLocalStore(t.TempDir(), "http://localhost/files")
	require.NoError(t, err)

	_, err = store.Put(context.Background(), "images", "../../etc/passwd", strings.NewReader("x"), 1, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "illegal object key")
}

func TestLocalStoreHonoursCancelledContext(t *testing.T) {
	store, err := NewLocalStore(t.TempDir(), "http://localhost/files")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = store.Put(ctx, "images", "a.png", strings.NewReader("x"), 1, "image/png")
	assert.ErrorIs(t, err, context.Canceled)
}
