package services

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"

	"indibox/repository"
	"indibox/storage"
	"indibox/upload"
)

// flakyStore wraps a real store, counts writes and fails keys containing failOn.
type flakyStore struct {
	storage.ObjectStore
	failOn string

	mu   sync.Mutex
	puts int
}

func (s *flakyStore) Put(ctx context.Context, bucket, key string, body io.Reader, size int64, contentType string) (storage.Object, error) {
	s.mu.Lock()
	s.puts++
	s.mu.Unlock()
	if s.failOn != "" && strings.Contains(key, s.failOn) {
		return storage.Object{}, errors.New("connection reset by peer")
	}
	return s.ObjectStore.Put(ctx, bucket, key, body, size, contentType)
}

type fixture struct {
	mem     *repository.Memory
	store   *flakyStore
	games   *GameService
	reviews *ReviewService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	local, err := storage.NewLocalStore(t.TempDir(), "http://files.test")
	require.NoError(t, err)

	mem := repository.NewMemory()
	store := &flakyStore{ObjectStore: local}
	keys := upload.NewKeyGenerator(clockwork.NewFakeClockAt(time.UnixMilli(1_700_000_000_000)))
	uploader := upload.NewUploader(store, upload.DefaultBuckets(), keys)

	return &fixture{
		mem:     mem,
		store:   store,
		games:   NewGameService(mem.Games(), mem.Cleanups(), uploader),
		reviews: NewReviewService(mem.Reviews(), mem.Games()),
	}
}

func fileItem(name string, body []byte) *upload.Item {
	return &upload.Item{
		Name:        name,
		Size:        int64(len(body)),
		ContentType: "application/octet-stream",
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(body)), nil
		},
	}
}

func zipWith(t *testing.T, names ...string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, name := range names {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte("<html></html>"))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func fullFiles(t *testing.T, screenshots ...string) GameFiles {
	files := GameFiles{
		Archive: fileItem("Space Rocks.zip", zipWith(t, "build/index.html", "build/app.js")),
		Cover:   fileItem("cover.png", []byte("png")),
	}
	for _, name := range screenshots {
		files.Screenshots = append(files.Screenshots, *fileItem(name, []byte("shot")))
	}
	return files
}

var (
	dev    = Identity{UserID: "dev-1", Name: "Rocket Lab", Email: "dev@example.com"}
	other  = Identity{UserID: "dev-2", Name: "Someone Else"}
	admin  = Identity{UserID: "admin-1", Name: "Moderator", Role: RoleAdmin}
	player = Identity{UserID: "player-1", Name: "Player One", AvatarURL: "https://img.test/p1.png"}
)

func listAll() repository.ListQuery {
	return repository.ListQuery{Limit: 100}
}
