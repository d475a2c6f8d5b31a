package services

import (
	"bytes"
	"context"
	"io"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"github.com/rs/zerolog"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"indibox/archive"
	"indibox/logger"
	"indibox/models"
	"indibox/repository"
	"indibox/upload"
)

const (
	MaxScreenshots = 8
	FeaturedLimit  = 8
)

// GameInput is the editable metadata of a game.
type GameInput struct {
	Title            string     `json:"title" validate:"required,max=120"`
	ShortDescription string     `json:"short_description" validate:"max=300"`
	LongDescription  string     `json:"long_description" validate:"max=20000"`
	DeveloperName    string     `json:"developer_name" validate:"max=120"`
	ReleaseDate      *time.Time `json:"release_date"`
	Genres           []string   `json:"genres" validate:"max=10,dive,max=40"`
	Tags             []string   `json:"tags" validate:"max=20,dive,max=40"`
	Platforms        []string   `json:"platforms" validate:"max=5,dive,oneof=web windows mac linux android"`
	WebsiteURL       string     `json:"website_url" validate:"omitempty,url"`
	RepositoryURL    string     `json:"repository_url" validate:"omitempty,url"`
}

// GamePatch lists the metadata fields an edit supplies. Nil pointers and nil
// slices are left as they are; an empty non-nil slice clears the list.
type GamePatch struct {
	Title            *string
	ShortDescription *string
	LongDescription  *string
	DeveloperName    *string
	ReleaseDate      *time.Time
	Genres           []string
	Tags             []string
	Platforms        []string
	WebsiteURL       *string
	RepositoryURL    *string
}

func (p GamePatch) apply(in *GameInput) {
	setString(&in.Title, p.Title)
	setString(&in.ShortDescription, p.ShortDescription)
	setString(&in.LongDescription, p.LongDescription)
	setString(&in.DeveloperName, p.DeveloperName)
	setString(&in.WebsiteURL, p.WebsiteURL)
	setString(&in.RepositoryURL, p.RepositoryURL)
	if p.ReleaseDate != nil {
		in.ReleaseDate = p.ReleaseDate
	}
	if p.Genres != nil {
		in.Genres = p.Genres
	}
	if p.Tags != nil {
		in.Tags = p.Tags
	}
	if p.Platforms != nil {
		in.Platforms = p.Platforms
	}
}

// Input is the metadata of a new game built from the supplied fields only.
func (p GamePatch) Input() GameInput {
	var in GameInput
	p.apply(&in)
	return in
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func (in GameInput) normalized() GameInput {
	in.Title = strings.TrimSpace(in.Title)
	in.ShortDescription = strings.TrimSpace(in.ShortDescription)
	in.LongDescription = strings.TrimSpace(in.LongDescription)
	in.DeveloperName = strings.TrimSpace(in.DeveloperName)
	in.WebsiteURL = strings.TrimSpace(in.WebsiteURL)
	in.RepositoryURL = strings.TrimSpace(in.RepositoryURL)
	in.Genres = normalizeLabels(in.Genres)
	in.Tags = normalizeLabels(in.Tags)
	in.Platforms = normalizeLabels(in.Platforms)
	return in
}

func (in GameInput) applyTo(g *models.Game) {
	g.Title = in.Title
	g.ShortDescription = in.ShortDescription
	g.LongDescription = in.LongDescription
	g.DeveloperName = in.DeveloperName
	g.ReleaseDate = in.ReleaseDate
	g.Genres = in.Genres
	g.Tags = in.Tags
	g.Platforms = in.Platforms
	g.WebsiteURL = in.WebsiteURL
	g.RepositoryURL = in.RepositoryURL
}

func inputOf(g *models.Game) GameInput {
	return GameInput{
		Title:            g.Title,
		ShortDescription: g.ShortDescription,
		LongDescription:  g.LongDescription,
		DeveloperName:    g.DeveloperName,
		ReleaseDate:      g.ReleaseDate,
		Genres:           g.Genres,
		Tags:             g.Tags,
		Platforms:        g.Platforms,
		WebsiteURL:       g.WebsiteURL,
		RepositoryURL:    g.RepositoryURL,
	}
}

// normalizeLabels lower-cases, trims and de-duplicates genre, tag and platform labels.
func normalizeLabels(values []string) []string {
	lower := cases.Lower(language.Und)
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = lower.String(strings.TrimSpace(v))
		if v != "" && !slices.Contains(out, v) {
			out = append(out, v)
		}
	}
	return out
}

// GameFiles are the files attached to a publish or edit request.
type GameFiles struct {
	Archive     *upload.Item
	Cover       *upload.Item
	Screenshots []upload.Item
}

// Items lists the files in upload order: archive, cover, then screenshots.
func (f GameFiles) Items() []upload.Item {
	var items []upload.Item
	if f.Archive != nil {
		it := *f.Archive
		it.Category = upload.CategoryArchive
		items = append(items, it)
	}
	if f.Cover != nil {
		it := *f.Cover
		it.Category = upload.CategoryCover
		items = append(items, it)
	}
	for _, it := range f.Screenshots {
		it.Category = upload.CategoryScreenshot
		items = append(items, it)
	}
	return items
}

func (f GameFiles) Supplied() upload.Supplied {
	return upload.Supplied{
		Archive:     f.Archive != nil,
		Cover:       f.Cover != nil,
		Screenshots: len(f.Screenshots),
	}
}

func (f GameFiles) Empty() bool {
	return f.Archive == nil && f.Cover == nil && len(f.Screenshots) == 0
}

// Validate checks every file before anything is stored.
func (f GameFiles) Validate() error {
	if len(f.Screenshots) > MaxScreenshots {
		return invalid("screenshots", "at most "+strconv.Itoa(MaxScreenshots)+" files")
	}
	verrs := upload.ValidateAll(f.Items())
	if len(verrs) == 0 {
		return nil
	}
	out := &InputError{}
	for _, ve := range verrs {
		out.Fields = append(out.Fields, FieldError{Field: ve.File, Message: ve.Reason})
	}
	return out
}

// PublishResult is a stored game plus the files that were dropped on the way.
type PublishResult struct {
	Game     *models.Game       `json:"game"`
	Warnings []upload.ItemError `json:"warnings,omitempty"`
}

type GameService struct {
	games    repository.GameRepository
	cleanups repository.CleanupRepository
	uploader *upload.Uploader
	log      zerolog.Logger
}

func NewGameService(games repository.GameRepository, cleanups repository.CleanupRepository, uploader *upload.Uploader) *GameService {
	return &GameService{
		games:    games,
		cleanups: cleanups,
		uploader: uploader,
		log:      logger.With("games"),
	}
}

// CreateGame stores the files and records a new draft game. Either a game
// row exists afterwards or every uploaded object is queued for deletion.
func (s *GameService) CreateGame(ctx context.Context, who Identity, in GameInput, files GameFiles, progress upload.ProgressFunc) (PublishResult, error) {
	if !who.Authenticated() {
		return PublishResult{}, ErrUnauthorized
	}
	in = in.normalized()
	if in.DeveloperName == "" {
		in.DeveloperName = who.Name
	}
	if err := checkStruct(in); err != nil {
		return PublishResult{}, err
	}
	if files.Archive == nil {
		return PublishResult{}, invalid("game_file", "is required")
	}
	if files.Cover == nil {
		return PublishResult{}, invalid("cover_image", "is required")
	}
	if err := files.Validate(); err != nil {
		return PublishResult{}, err
	}
	report, err := inspectArchive(*files.Archive)
	if err != nil {
		return PublishResult{}, invalid("game_file", err.Error())
	}

	batch := s.uploader.UploadBatch(ctx, who.UserID, files.Items(), progress)
	assets, err := upload.Compose(batch, files.Supplied(), upload.Assets{})
	if err != nil {
		s.discard(ctx, "incomplete upload", resultAssets(batch.Results))
		s.log.Warn().Str("owner", who.UserID).Str("errors", batch.ErrorMessage()).Msg("publish aborted")
		return PublishResult{}, &UploadFailedError{Err: err, Errors: batch.Errors}
	}

	id := uuid.NewString()
	game := &models.Game{
		ID:      id,
		Slug:    gameSlug(in.Title, id),
		Status:  models.StatusDraft,
		OwnerID: who.UserID,
	}
	in.applyTo(game)
	applyAssets(game, assets, true)
	game.FileSizeLabel = humanize.IBytes(uint64(files.Archive.Size))
	if report.IsWebBuild() && !slices.Contains(game.Platforms, models.PlatformWeb) {
		game.Platforms = append(game.Platforms, models.PlatformWeb)
	}

	if err := s.games.Create(ctx, game); err != nil {
		s.discard(ctx, "create failed", assets.All())
		s.log.Error().Err(err).Str("owner", who.UserID).Msg("create game")
		return PublishResult{}, storeErr(err)
	}

	s.log.Info().Str("game", game.ID).Str("owner", who.UserID).Int("screenshots", len(game.Screenshots)).Msg("game created")
	return PublishResult{Game: game, Warnings: batch.Errors}, nil
}

// UpdateGame edits metadata and replaces any supplied files. Files that are
// not supplied keep their stored objects.
func (s *GameService) UpdateGame(ctx context.Context, who Identity, idOrSlug string, patch GamePatch, files GameFiles, progress upload.ProgressFunc) (PublishResult, error) {
	game, err := s.owned(ctx, who, idOrSlug)
	if err != nil {
		return PublishResult{}, err
	}

	in := inputOf(game)
	patch.apply(&in)
	in = in.normalized()
	if err := checkStruct(in); err != nil {
		return PublishResult{}, err
	}
	if err := files.Validate(); err != nil {
		return PublishResult{}, err
	}
	var report archive.Report
	if files.Archive != nil {
		if report, err = inspectArchive(*files.Archive); err != nil {
			return PublishResult{}, invalid("game_file", err.Error())
		}
	}

	prior := assetsOf(game)
	var batch upload.BatchResult
	if !files.Empty() {
		batch = s.uploader.UploadBatch(ctx, who.UserID, files.Items(), progress)
	}
	assets, err := upload.Compose(batch, files.Supplied(), prior)
	if err != nil {
		s.discard(ctx, "incomplete upload", resultAssets(batch.Results))
		return PublishResult{}, &UploadFailedError{Err: err, Errors: batch.Errors}
	}

	in.applyTo(game)
	replaceShots := batch.Uploaded(upload.CategoryScreenshot) > 0
	applyAssets(game, assets, replaceShots)
	if files.Archive != nil {
		game.FileSizeLabel = humanize.IBytes(uint64(files.Archive.Size))
		if report.IsWebBuild() && !slices.Contains(game.Platforms, models.PlatformWeb) {
			game.Platforms = append(game.Platforms, models.PlatformWeb)
		}
	}

	if err := s.games.Save(ctx, game, replaceShots); err != nil {
		s.discard(ctx, "update failed", resultAssets(batch.Results))
		s.log.Error().Err(err).Str("game", game.ID).Msg("update game")
		return PublishResult{}, storeErr(err)
	}
	s.discard(ctx, "replaced", assets.Replaced(prior))

	s.log.Info().Str("game", game.ID).Msg("game updated")
	return PublishResult{Game: game, Warnings: batch.Errors}, nil
}

// DeleteGame removes the game and queues all of its objects for deletion.
func (s *GameService) DeleteGame(ctx context.Context, who Identity, idOrSlug string) error {
	game, err := s.owned(ctx, who, idOrSlug)
	if err != nil {
		return err
	}
	if err := s.games.Delete(ctx, game.ID); err != nil {
		s.log.Error().Err(err).Str("game", game.ID).Msg("delete game")
		return storeErr(err)
	}
	s.discard(ctx, "game deleted", assetsOf(game).All())
	s.log.Info().Str("game", game.ID).Msg("game deleted")
	return nil
}

func (s *GameService) SetStatus(ctx context.Context, who Identity, idOrSlug, status string) (*models.Game, error) {
	if !models.ValidStatus(status) {
		return nil, invalid("status", "must be one of: draft, published, archived")
	}
	game, err := s.owned(ctx, who, idOrSlug)
	if err != nil {
		return nil, err
	}
	if game.Status == status {
		return game, nil
	}
	game.Status = status
	if err := s.games.Save(ctx, game, false); err != nil {
		return nil, storeErr(err)
	}
	s.log.Info().Str("game", game.ID).Str("status", status).Msg("status changed")
	return game, nil
}

// SetFeatured toggles the featured flag. Admin only.
func (s *GameService) SetFeatured(ctx context.Context, who Identity, idOrSlug string, featured bool) (*models.Game, error) {
	if !who.Authenticated() {
		return nil, ErrUnauthorized
	}
	if !who.IsAdmin() {
		return nil, ErrForbidden
	}
	game, err := findGame(ctx, s.games, idOrSlug)
	if err != nil {
		return nil, err
	}
	game.IsFeatured = featured
	if err := s.games.Save(ctx, game, false); err != nil {
		return nil, storeErr(err)
	}
	return game, nil
}

// GetGame returns a published game to anyone and an unpublished one to its
// owner or an admin. Everyone else gets ErrNotFound.
func (s *GameService) GetGame(ctx context.Context, who Identity, idOrSlug string) (*models.Game, error) {
	game, err := findGame(ctx, s.games, idOrSlug)
	if err != nil {
		return nil, err
	}
	if game.Status != models.StatusPublished && !who.Owns(game.OwnerID) && !who.IsAdmin() {
		return nil, ErrNotFound
	}
	return game, nil
}

// RecordDownload counts a download of a published game and returns where to fetch it.
func (s *GameService) RecordDownload(ctx context.Context, idOrSlug string) (string, error) {
	game, err := findGame(ctx, s.games, idOrSlug)
	if err != nil {
		return "", err
	}
	if game.Status != models.StatusPublished || game.DownloadURL == "" {
		return "", ErrNotFound
	}
	if err := s.games.IncrementDownloads(ctx, game.ID); err != nil {
		return "", storeErr(err)
	}
	return game.DownloadURL, nil
}

func (s *GameService) ListGames(ctx context.Context, req PageRequest) (PageResponse[models.GameSummary], error) {
	req = req.Normalize()
	q := req.query()
	q.Status = models.StatusPublished

	games, total, err := s.games.List(ctx, q)
	if err != nil {
		s.log.Error().Err(err).Msg("list games")
		return PageResponse[models.GameSummary]{}, storeErr(err)
	}
	return newPage(summaries(games), total, req.Page), nil
}

func (s *GameService) ListFeatured(ctx context.Context) ([]models.GameSummary, error) {
	games, _, err := s.games.List(ctx, repository.ListQuery{
		Limit:        FeaturedLimit,
		Status:       models.StatusPublished,
		FeaturedOnly: true,
		Sort:         repository.SortCreated,
		Desc:         true,
	})
	if err != nil {
		s.log.Error().Err(err).Msg("list featured")
		return nil, storeErr(err)
	}
	return summaries(games), nil
}

// ListOwned pages through the caller's own games in every status, newest first.
func (s *GameService) ListOwned(ctx context.Context, who Identity, page int) (PageResponse[models.Game], error) {
	if !who.Authenticated() {
		return PageResponse[models.Game]{}, ErrUnauthorized
	}
	req := PageRequest{Page: page}.Normalize()
	q := req.query()
	q.OwnerID = who.UserID

	games, total, err := s.games.List(ctx, q)
	if err != nil {
		return PageResponse[models.Game]{}, storeErr(err)
	}
	return newPage(games, total, req.Page), nil
}

func (s *GameService) owned(ctx context.Context, who Identity, idOrSlug string) (*models.Game, error) {
	if !who.Authenticated() {
		return nil, ErrUnauthorized
	}
	game, err := findGame(ctx, s.games, idOrSlug)
	if err != nil {
		return nil, err
	}
	if !who.Owns(game.OwnerID) {
		return nil, ErrForbidden
	}
	return game, nil
}

// discard queues objects for the cleanup worker. It outlives the request
// so a cancelled upload still gets its objects removed.
func (s *GameService) discard(ctx context.Context, reason string, assets []upload.Asset) {
	if len(assets) == 0 {
		return
	}
	buckets := s.uploader.Buckets()
	items := make([]models.AssetCleanup, 0, len(assets))
	for _, a := range assets {
		items = append(items, models.AssetCleanup{Bucket: buckets.For(a.Category), Path: a.Path, Reason: reason})
	}
	if err := s.cleanups.Enqueue(context.WithoutCancel(ctx), items); err != nil {
		s.log.Error().Err(err).Int("objects", len(items)).Str("reason", reason).Msg("queue asset cleanup")
	}
}

func findGame(ctx context.Context, games repository.GameRepository, idOrSlug string) (*models.Game, error) {
	var (
		game *models.Game
		err  error
	)
	if _, perr := uuid.Parse(idOrSlug); perr == nil {
		game, err = games.FindByID(ctx, idOrSlug)
	} else {
		game, err = games.FindBySlug(ctx, idOrSlug)
	}
	if err != nil {
		return nil, storeErr(err)
	}
	return game, nil
}

func gameSlug(title, id string) string {
	base := slug.Make(title)
	if base == "" {
		base = "game"
	}
	return base + "-" + id[:8]
}

func assetsOf(g *models.Game) upload.Assets {
	a := upload.Assets{
		Archive: upload.Asset{Category: upload.CategoryArchive, URL: g.DownloadURL, Path: g.DownloadPath},
		Cover:   upload.Asset{Category: upload.CategoryCover, URL: g.CoverImageURL, Path: g.CoverImagePath},
	}
	for _, shot := range g.Screenshots {
		a.Screenshots = append(a.Screenshots, upload.Asset{Category: upload.CategoryScreenshot, URL: shot.URL, Path: shot.Path})
	}
	return a
}

func applyAssets(g *models.Game, a upload.Assets, replaceShots bool) {
	g.DownloadURL, g.DownloadPath = a.Archive.URL, a.Archive.Path
	g.CoverImageURL, g.CoverImagePath = a.Cover.URL, a.Cover.Path
	if !replaceShots {
		return
	}
	g.Screenshots = make([]models.GameScreenshot, 0, len(a.Screenshots))
	for i, shot := range a.Screenshots {
		g.Screenshots = append(g.Screenshots, models.GameScreenshot{
			ID:     uuid.NewString(),
			GameID: g.ID,
			URL:    shot.URL,
			Path:   shot.Path,
			Order:  i,
		})
	}
}

func resultAssets(results []upload.Result) []upload.Asset {
	out := make([]upload.Asset, 0, len(results))
	for _, r := range results {
		out = append(out, upload.Asset{Category: r.Category, URL: r.PublicURL, Path: r.Path})
	}
	return out
}

func summaries(games []models.Game) []models.GameSummary {
	out := make([]models.GameSummary, len(games))
	for i := range games {
		out[i] = games[i].Summary()
	}
	return out
}

// inspectArchive looks for a web build inside zip archives. Other formats
// are not inspected.
func inspectArchive(item upload.Item) (archive.Report, error) {
	if !archive.IsZip(item.Name) || item.Open == nil {
		return archive.Report{}, nil
	}
	rc, err := item.Open()
	if err != nil {
		return archive.Report{}, err
	}
	defer rc.Close()

	if ra, ok := rc.(io.ReaderAt); ok && item.Size > 0 {
		return archive.Inspect(ra, item.Size)
	}
	data, err := io.ReadAll(io.LimitReader(rc, upload.MaxArchiveBytes+1))
	if err != nil {
		return archive.Report{}, err
	}
	return archive.Inspect(bytes.NewReader(data), int64(len(data)))
}
