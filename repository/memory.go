package repository

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"indibox/models"
)

// Memory keeps every table in process memory. It backs development runs
// without DATABASE_URL and the service tests.
type Memory struct {
	mu       sync.RWMutex
	games    map[string]*models.Game
	reviews  map[string]*models.Review
	users    map[string]*models.User
	cleanups []models.AssetCleanup
	now      func() time.Time
}

func NewMemory() *Memory {
	return &Memory{
		games:   map[string]*models.Game{},
		reviews: map[string]*models.Review{},
		users:   map[string]*models.User{},
		now:     time.Now,
	}
}

func (m *Memory) Games() *MemoryGames       { return &MemoryGames{m} }
func (m *Memory) Reviews() *MemoryReviews   { return &MemoryReviews{m} }
func (m *Memory) Users() *MemoryUsers       { return &MemoryUsers{m} }
func (m *Memory) Cleanups() *MemoryCleanups { return &MemoryCleanups{m} }

type MemoryGames struct{ m *Memory }

func (r *MemoryGames) Create(_ context.Context, game *models.Game) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if _, ok := r.m.games[game.ID]; ok {
		return ErrDuplicate
	}
	for _, g := range r.m.games {
		if g.Slug == game.Slug {
			return ErrDuplicate
		}
	}
	now := r.m.now()
	if game.CreatedAt.IsZero() {
		game.CreatedAt = now
	}
	game.UpdatedAt = now
	if game.Status == "" {
		game.Status = models.StatusDraft
	}
	r.m.games[game.ID] = copyGame(game)
	return nil
}

func (r *MemoryGames) Save(_ context.Context, game *models.Game, replaceScreenshots bool) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	stored, ok := r.m.games[game.ID]
	if !ok {
		return ErrNotFound
	}
	game.UpdatedAt = r.m.now()
	game.AverageRating, game.DownloadCount = stored.AverageRating, stored.DownloadCount
	next := copyGame(game)
	if !replaceScreenshots {
		next.Screenshots = stored.Screenshots
	}
	r.m.games[game.ID] = next
	return nil
}

func (r *MemoryGames) Delete(_ context.Context, id string) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if _, ok := r.m.games[id]; !ok {
		return ErrNotFound
	}
	delete(r.m.games, id)
	for rid, rev := range r.m.reviews {
		if rev.GameID == id {
			delete(r.m.reviews, rid)
		}
	}
	return nil
}

func (r *MemoryGames) FindByID(_ context.Context, id string) (*models.Game, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	g, ok := r.m.games[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyGame(g), nil
}

func (r *MemoryGames) FindBySlug(_ context.Context, slug string) (*models.Game, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	for _, g := range r.m.games {
		if g.Slug == slug {
			return copyGame(g), nil
		}
	}
	return nil, ErrNotFound
}

func (r *MemoryGames) List(_ context.Context, q ListQuery) ([]models.Game, int64, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()

	var matched []*models.Game
	for _, g := range r.m.games {
		if matches(g, q) {
			matched = append(matched, g)
		}
	}
	slices.SortFunc(matched, func(a, b *models.Game) int {
		c := compareBy(a, b, q.Sort)
		if q.Desc {
			c = -c
		}
		if c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})

	total := int64(len(matched))
	out := []models.Game{}
	for i := q.Offset; i < len(matched) && i < q.Offset+q.Limit; i++ {
		g := copyGame(matched[i])
		g.Screenshots = nil
		out = append(out, *g)
	}
	return out, total, nil
}

func (r *MemoryGames) IncrementDownloads(_ context.Context, id string) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	g, ok := r.m.games[id]
	if !ok || g.Status != models.StatusPublished {
		return ErrNotFound
	}
	g.DownloadCount++
	return nil
}

func matches(g *models.Game, q ListQuery) bool {
	if q.Status != "" && g.Status != q.Status {
		return false
	}
	if q.OwnerID != "" && g.OwnerID != q.OwnerID {
		return false
	}
	if q.FeaturedOnly && !g.IsFeatured {
		return false
	}
	if q.Genre != "" && !slices.Contains(g.Genres, q.Genre) {
		return false
	}
	if q.Search != "" {
		needle := strings.ToLower(q.Search)
		if !strings.Contains(strings.ToLower(g.Title), needle) &&
			!strings.Contains(strings.ToLower(g.ShortDescription), needle) &&
			!strings.Contains(strings.ToLower(g.LongDescription), needle) {
			return false
		}
	}
	return true
}

func compareBy(a, b *models.Game, key SortKey) int {
	switch key {
	case SortRating:
		return cmp.Compare(a.AverageRating, b.AverageRating)
	case SortDownloads:
		return cmp.Compare(a.DownloadCount, b.DownloadCount)
	case SortTitle:
		return strings.Compare(strings.ToLower(a.Title), strings.ToLower(b.Title))
	}
	return a.CreatedAt.Compare(b.CreatedAt)
}

func copyGame(g *models.Game) *models.Game {
	c := *g
	c.Genres = slices.Clone(g.Genres)
	c.Tags = slices.Clone(g.Tags)
	c.Platforms = slices.Clone(g.Platforms)
	c.Screenshots = slices.Clone(g.Screenshots)
	return &c
}

type MemoryReviews struct{ m *Memory }

func (r *MemoryReviews) Create(_ context.Context, review *models.Review) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, rev := range r.m.reviews {
		if rev.GameID == review.GameID && rev.UserID == review.UserID {
			return ErrDuplicate
		}
	}
	now := r.m.now()
	review.CreatedAt, review.UpdatedAt = now, now
	c := *review
	r.m.reviews[review.ID] = &c
	r.m.recomputeAverage(review.GameID)
	return nil
}

func (r *MemoryReviews) Save(_ context.Context, review *models.Review) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if _, ok := r.m.reviews[review.ID]; !ok {
		return ErrNotFound
	}
	review.UpdatedAt = r.m.now()
	c := *review
	r.m.reviews[review.ID] = &c
	r.m.recomputeAverage(review.GameID)
	return nil
}

func (r *MemoryReviews) Delete(_ context.Context, review *models.Review) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if _, ok := r.m.reviews[review.ID]; !ok {
		return ErrNotFound
	}
	delete(r.m.reviews, review.ID)
	r.m.recomputeAverage(review.GameID)
	return nil
}

func (r *MemoryReviews) FindByID(_ context.Context, id string) (*models.Review, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	rev, ok := r.m.reviews[id]
	if !ok {
		return nil, ErrNotFound
	}
	c := *rev
	return &c, nil
}

func (r *MemoryReviews) FindByGameAndUser(_ context.Context, gameID, userID string) (*models.Review, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	for _, rev := range r.m.reviews {
		if rev.GameID == gameID && rev.UserID == userID {
			c := *rev
			return &c, nil
		}
	}
	return nil, ErrNotFound
}

func (r *MemoryReviews) ListByGame(_ context.Context, gameID string) ([]models.Review, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	out := []models.Review{}
	for _, rev := range r.m.reviews {
		if rev.GameID == gameID {
			out = append(out, *rev)
		}
	}
	slices.SortFunc(out, func(a, b models.Review) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return out, nil
}

// recomputeAverage must be called with mu held.
func (m *Memory) recomputeAverage(gameID string) {
	g, ok := m.games[gameID]
	if !ok {
		return
	}
	var sum, n int
	for _, rev := range m.reviews {
		if rev.GameID == gameID {
			sum += rev.Rating
			n++
		}
	}
	g.AverageRating = 0
	if n > 0 {
		g.AverageRating = float64(sum) / float64(n)
	}
}

type MemoryUsers struct{ m *Memory }

func (r *MemoryUsers) Upsert(_ context.Context, user *models.User) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	now := r.m.now()
	if existing, ok := r.m.users[user.ID]; ok {
		user.CreatedAt = existing.CreatedAt
	} else {
		user.CreatedAt = now
	}
	user.UpdatedAt = now
	c := *user
	r.m.users[user.ID] = &c
	return nil
}

func (r *MemoryUsers) FindByID(_ context.Context, id string) (*models.User, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	u, ok := r.m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	c := *u
	return &c, nil
}

type MemoryCleanups struct{ m *Memory }

func (r *MemoryCleanups) Enqueue(_ context.Context, items []models.AssetCleanup) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, it := range items {
		it.ID = uint(len(r.m.cleanups) + 1)
		it.CreatedAt = r.m.now()
		r.m.cleanups = append(r.m.cleanups, it)
	}
	return nil
}

func (r *MemoryCleanups) Pending(_ context.Context, limit, maxAttempts int) ([]models.AssetCleanup, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	var out []models.AssetCleanup
	for _, it := range r.m.cleanups {
		if len(out) == limit {
			break
		}
		if it.DoneAt == nil && it.Attempts < maxAttempts {
			out = append(out, it)
		}
	}
	return out, nil
}

func (r *MemoryCleanups) MarkDone(_ context.Context, id uint, at time.Time) error {
	return r.update(id, func(it *models.AssetCleanup) { it.DoneAt = &at })
}

func (r *MemoryCleanups) MarkFailed(_ context.Context, id uint, reason string) error {
	return r.update(id, func(it *models.AssetCleanup) {
		it.Attempts++
		it.LastError = reason
	})
}

// All returns a snapshot of the queue, done items included.
func (r *MemoryCleanups) All() []models.AssetCleanup {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	return slices.Clone(r.m.cleanups)
}

func (r *MemoryCleanups) update(id uint, fn func(*models.AssetCleanup)) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if id == 0 || int(id) > len(r.m.cleanups) {
		return ErrNotFound
	}
	fn(&r.m.cleanups[id-1])
	return nil
}
