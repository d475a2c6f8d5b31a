package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"indibox/models"
	"indibox/upload"
)

type GameServiceSuite struct {
	suite.Suite
	fx  *fixture
	ctx context.Context
}

func (s *GameServiceSuite) SetupTest() {
	s.fx = newFixture(s.T())
	s.ctx = context.Background()
}

func (s *GameServiceSuite) create(files GameFiles) *models.Game {
	res, err := s.fx.games.CreateGame(s.ctx, dev, GameInput{Title: "Space Rocks", Genres: []string{"Arcade"}}, files, nil)
	s.Require().NoError(err)
	return res.Game
}

func (s *GameServiceSuite) publish(g *models.Game) {
	_, err := s.fx.games.SetStatus(s.ctx, dev, g.ID, models.StatusPublished)
	s.Require().NoError(err)
}

func (s *GameServiceSuite) TestCreateGameStoresDraft() {
	var progress []float64
	in := GameInput{
		Title:      "  Space Rocks ",
		Genres:     []string{"Arcade", "arcade", " Shooter "},
		Tags:       []string{"Retro"},
		WebsiteURL: "https://rocket.example",
	}
	res, err := s.fx.games.CreateGame(s.ctx, dev, in, fullFiles(s.T(), "one.png", "two.png"), func(p float64) {
		progress = append(progress, p)
	})
	s.Require().NoError(err)
	g := res.Game

	s.Equal("Space Rocks", g.Title)
	s.Equal(models.StatusDraft, g.Status)
	s.Equal("dev-1", g.OwnerID)
	s.Equal("Rocket Lab", g.DeveloperName)
	s.True(strings.HasPrefix(g.Slug, "space-rocks-"))
	s.Equal(pq.StringArray{"arcade", "shooter"}, g.Genres)
	s.Contains(g.Platforms, models.PlatformWeb)
	s.NotEmpty(g.FileSizeLabel)
	s.True(strings.HasPrefix(g.DownloadURL, "http://files.test/games/dev-1/"))
	s.True(strings.HasPrefix(g.CoverImageURL, "http://files.test/images/covers/dev-1/"))
	s.Require().Len(g.Screenshots, 2)
	s.Equal(0, g.Screenshots[0].Order)
	s.Equal(1, g.Screenshots[1].Order)
	s.Contains(g.Screenshots[1].Path, "_two.png")
	s.Empty(res.Warnings)
	s.Equal([]float64{25, 50, 75, 100}, progress)

	stored, err := s.fx.mem.Games().FindByID(s.ctx, g.ID)
	s.Require().NoError(err)
	s.Equal(g.Slug, stored.Slug)
}

func (s *GameServiceSuite) TestCreateRequiresAuthentication() {
	_, err := s.fx.games.CreateGame(s.ctx, Identity{}, GameInput{Title: "x"}, fullFiles(s.T()), nil)
	s.ErrorIs(err, ErrUnauthorized)
}

func (s *GameServiceSuite) TestCreateRequiresTitleArchiveAndCover() {
	_, err := s.fx.games.CreateGame(s.ctx, dev, GameInput{}, fullFiles(s.T()), nil)
	var inErr *InputError
	s.Require().ErrorAs(err, &inErr)
	s.Equal("title", inErr.Fields[0].Field)

	files := fullFiles(s.T())
	files.Archive = nil
	_, err = s.fx.games.CreateGame(s.ctx, dev, GameInput{Title: "x"}, files, nil)
	s.Require().ErrorAs(err, &inErr)
	s.Equal("game_file", inErr.Fields[0].Field)

	files = fullFiles(s.T())
	files.Cover = nil
	_, err = s.fx.games.CreateGame(s.ctx, dev, GameInput{Title: "x"}, files, nil)
	s.Require().ErrorAs(err, &inErr)
	s.Equal("cover_image", inErr.Fields[0].Field)
	s.Zero(s.fx.store.puts)
}

func (s *GameServiceSuite) TestInvalidFileRejectedBeforeAnyUpload() {
	files := fullFiles(s.T(), "fine.png", "notes.txt")
	_, err := s.fx.games.CreateGame(s.ctx, dev, GameInput{Title: "x"}, files, nil)

	s.ErrorIs(err, ErrInvalidInput)
	var inErr *InputError
	s.Require().ErrorAs(err, &inErr)
	s.Equal("notes.txt", inErr.Fields[0].Field)
	s.Contains(inErr.Fields[0].Message, "file type not allowed")
	s.Zero(s.fx.store.puts)
}

func (s *GameServiceSuite) TestCorruptZipRejected() {
	files := fullFiles(s.T())
	files.Archive = fileItem("broken.zip", []byte("definitely not a zip"))
	_, err := s.fx.games.CreateGame(s.ctx, dev, GameInput{Title: "x"}, files, nil)
	s.ErrorIs(err, ErrInvalidInput)
	s.Zero(s.fx.store.puts)
}

func (s *GameServiceSuite) TestNonZipArchiveSkipsInspection() {
	files := fullFiles(s.T())
	files.Archive = fileItem("setup.exe", []byte("MZ"))
	g := s.create(files)
	s.NotContains(g.Platforms, models.PlatformWeb)
	s.Equal("2 B", g.FileSizeLabel)
}

func (s *GameServiceSuite) TestCoverFailureLeavesNoGameAndQueuesUploads() {
	s.fx.store.failOn = "covers/"
	_, err := s.fx.games.CreateGame(s.ctx, dev, GameInput{Title: "x"}, fullFiles(s.T(), "a.png"), nil)

	s.ErrorIs(err, upload.ErrRequiredAssetMissing)
	var upErr *UploadFailedError
	s.Require().ErrorAs(err, &upErr)
	s.Require().Len(upErr.Errors, 1)
	s.Equal("cover.png", upErr.Errors[0].File)

	_, total, _ := s.fx.mem.Games().List(s.ctx, listAll())
	s.Zero(total)

	queued := s.fx.mem.Cleanups().All()
	s.Require().Len(queued, 2)
	s.Equal("games", queued[0].Bucket)
	s.Equal("screenshots", queued[1].Bucket)
}

func (s *GameServiceSuite) TestScreenshotFailureIsAWarning() {
	s.fx.store.failOn = "_bad.png"
	res, err := s.fx.games.CreateGame(s.ctx, dev, GameInput{Title: "x"}, fullFiles(s.T(), "good.png", "bad.png"), nil)
	s.Require().NoError(err)
	s.Len(res.Game.Screenshots, 1)
	s.Require().Len(res.Warnings, 1)
	s.Equal("bad.png", res.Warnings[0].File)
	s.Equal("upload failed", res.Warnings[0].Message)
}

func (s *GameServiceSuite) TestUpdateKeepsUnreplacedAssets() {
	g := s.create(fullFiles(s.T(), "one.png"))
	title := "Space Rocks II"

	files := GameFiles{Cover: fileItem("new-cover.webp", []byte("webp"))}
	res, err := s.fx.games.UpdateGame(s.ctx, dev, g.ID, GamePatch{Title: &title}, files, nil)
	s.Require().NoError(err)

	updated := res.Game
	s.Equal("Space Rocks II", updated.Title)
	s.Equal(g.Slug, updated.Slug)
	s.Equal(g.DownloadURL, updated.DownloadURL)
	s.NotEqual(g.CoverImageURL, updated.CoverImageURL)
	s.Contains(updated.CoverImagePath, "new-cover.webp")

	stored, _ := s.fx.mem.Games().FindByID(s.ctx, g.ID)
	s.Len(stored.Screenshots, 1)

	queued := s.fx.mem.Cleanups().All()
	s.Require().Len(queued, 1)
	s.Equal(g.CoverImagePath, queued[0].Path)
	s.Equal("images", queued[0].Bucket)
	s.Equal("replaced", queued[0].Reason)
}

func (s *GameServiceSuite) TestUpdateReplacesScreenshotsWholesale() {
	g := s.create(fullFiles(s.T(), "one.png", "two.png"))

	files := GameFiles{Screenshots: []upload.Item{*fileItem("three.png", []byte("3"))}}
	_, err := s.fx.games.UpdateGame(s.ctx, dev, g.ID, GamePatch{}, files, nil)
	s.Require().NoError(err)

	stored, _ := s.fx.mem.Games().FindByID(s.ctx, g.ID)
	s.Require().Len(stored.Screenshots, 1)
	s.Contains(stored.Screenshots[0].Path, "three.png")
	s.Len(s.fx.mem.Cleanups().All(), 2)
}

func (s *GameServiceSuite) TestUpdateKeepsScreenshotsWhenEveryUploadFails() {
	g := s.create(fullFiles(s.T(), "one.png", "two.png"))
	s.fx.store.failOn = "_bad.png"

	files := GameFiles{Screenshots: []upload.Item{*fileItem("bad.png", []byte("x"))}}
	res, err := s.fx.games.UpdateGame(s.ctx, dev, g.ID, GamePatch{}, files, nil)
	s.Require().NoError(err)
	s.Require().Len(res.Warnings, 1)

	stored, _ := s.fx.mem.Games().FindByID(s.ctx, g.ID)
	s.Require().Len(stored.Screenshots, 2)
	s.Equal(g.Screenshots[0].Path, stored.Screenshots[0].Path)
	s.Empty(s.fx.mem.Cleanups().All())
}

func (s *GameServiceSuite) TestUpdateKeepsCountersWrittenDuringUpload() {
	g := s.create(fullFiles(s.T()))
	s.publish(g)

	var once bool
	progress := func(float64) {
		if once {
			return
		}
		once = true
		_, err := s.fx.reviews.Create(s.ctx, player, g.ID, ReviewInput{Rating: 5})
		s.Require().NoError(err)
		_, err = s.fx.games.RecordDownload(s.ctx, g.ID)
		s.Require().NoError(err)
	}

	title := "Space Rocks Deluxe"
	files := GameFiles{Cover: fileItem("deluxe.png", []byte("png"))}
	res, err := s.fx.games.UpdateGame(s.ctx, dev, g.ID, GamePatch{Title: &title}, files, progress)
	s.Require().NoError(err)
	s.True(once)
	s.InDelta(5.0, res.Game.AverageRating, 0.001)
	s.Equal(int64(1), res.Game.DownloadCount)

	stored, _ := s.fx.mem.Games().FindByID(s.ctx, g.ID)
	s.Equal("Space Rocks Deluxe", stored.Title)
	s.InDelta(5.0, stored.AverageRating, 0.001)
	s.Equal(int64(1), stored.DownloadCount)

	_, err = s.fx.games.SetFeatured(s.ctx, admin, g.ID, true)
	s.Require().NoError(err)
	stored, _ = s.fx.mem.Games().FindByID(s.ctx, g.ID)
	s.Equal(int64(1), stored.DownloadCount)
}

func (s *GameServiceSuite) TestGenreFilterIgnoresCase() {
	res, err := s.fx.games.CreateGame(s.ctx, dev, GameInput{Title: "Brawl", Genres: []string{"Action"}}, fullFiles(s.T()), nil)
	s.Require().NoError(err)
	s.publish(res.Game)
	s.publish(s.create(fullFiles(s.T())))

	for _, genre := range []string{"action", "Action", " ACTION "} {
		page, err := s.fx.games.ListGames(s.ctx, PageRequest{Genre: genre})
		s.Require().NoError(err)
		s.Require().Len(page.Items, 1, "genre=%q", genre)
		s.Equal("Brawl", page.Items[0].Title)
	}
}

func (s *GameServiceSuite) TestUpdateMetadataOnlyUploadsNothing() {
	g := s.create(fullFiles(s.T()))
	puts := s.fx.store.puts

	_, err := s.fx.games.UpdateGame(s.ctx, dev, g.ID, GamePatch{Genres: []string{}}, GameFiles{}, nil)
	s.Require().NoError(err)
	s.Equal(puts, s.fx.store.puts)

	stored, _ := s.fx.mem.Games().FindByID(s.ctx, g.ID)
	s.Empty(stored.Genres)
}

func (s *GameServiceSuite) TestUpdateByAnotherUserIsForbidden() {
	g := s.create(fullFiles(s.T()))
	_, err := s.fx.games.UpdateGame(s.ctx, other, g.ID, GamePatch{}, GameFiles{}, nil)
	s.ErrorIs(err, ErrForbidden)
}

func (s *GameServiceSuite) TestVisibility() {
	g := s.create(fullFiles(s.T()))

	_, err := s.fx.games.GetGame(s.ctx, Identity{}, g.ID)
	s.ErrorIs(err, ErrNotFound)
	_, err = s.fx.games.GetGame(s.ctx, dev, g.ID)
	s.NoError(err)
	_, err = s.fx.games.GetGame(s.ctx, admin, g.Slug)
	s.NoError(err)

	s.publish(g)
	got, err := s.fx.games.GetGame(s.ctx, Identity{}, g.Slug)
	s.Require().NoError(err)
	s.Equal(g.ID, got.ID)
}

func (s *GameServiceSuite) TestSetStatusRejectsUnknownState() {
	g := s.create(fullFiles(s.T()))
	_, err := s.fx.games.SetStatus(s.ctx, dev, g.ID, "scheduled")
	s.ErrorIs(err, ErrInvalidInput)
}

func (s *GameServiceSuite) TestRecordDownload() {
	g := s.create(fullFiles(s.T()))
	_, err := s.fx.games.RecordDownload(s.ctx, g.ID)
	s.ErrorIs(err, ErrNotFound)

	s.publish(g)
	url, err := s.fx.games.RecordDownload(s.ctx, g.Slug)
	s.Require().NoError(err)
	s.Equal(g.DownloadURL, url)

	stored, _ := s.fx.mem.Games().FindByID(s.ctx, g.ID)
	s.Equal(int64(1), stored.DownloadCount)
}

func (s *GameServiceSuite) TestDeleteQueuesEveryObject() {
	g := s.create(fullFiles(s.T(), "one.png"))
	s.ErrorIs(s.fx.games.DeleteGame(s.ctx, other, g.ID), ErrForbidden)

	s.Require().NoError(s.fx.games.DeleteGame(s.ctx, dev, g.ID))
	_, err := s.fx.games.GetGame(s.ctx, dev, g.ID)
	s.ErrorIs(err, ErrNotFound)
	s.Len(s.fx.mem.Cleanups().All(), 3)
}

func (s *GameServiceSuite) TestFeaturedIsAdminOnly() {
	g := s.create(fullFiles(s.T()))
	s.publish(g)

	_, err := s.fx.games.SetFeatured(s.ctx, dev, g.ID, true)
	s.ErrorIs(err, ErrForbidden)

	_, err = s.fx.games.SetFeatured(s.ctx, admin, g.ID, true)
	s.Require().NoError(err)

	featured, err := s.fx.games.ListFeatured(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(featured, 1)
	s.Equal(g.ID, featured[0].ID)
}

func (s *GameServiceSuite) TestListOwnedIncludesDrafts() {
	s.create(fullFiles(s.T()))
	page, err := s.fx.games.ListOwned(s.ctx, dev, 1)
	s.Require().NoError(err)
	s.Equal(int64(1), page.TotalItems)

	page, err = s.fx.games.ListOwned(s.ctx, other, 1)
	s.Require().NoError(err)
	s.Empty(page.Items)
}

func TestGameServiceSuite(t *testing.T) {
	suite.Run(t, new(GameServiceSuite))
}

func TestListGamesPaging(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	for i := range 14 {
		status := models.StatusPublished
		if i == 0 {
			status = models.StatusDraft
		}
		require.NoError(t, fx.mem.Games().Create(ctx, &models.Game{
			ID:     fmt.Sprintf("00000000-0000-0000-0000-%012d", i),
			Slug:   fmt.Sprintf("game-%d", i),
			Title:  fmt.Sprintf("Game %02d", i),
			Status: status,
		}))
	}

	first, err := fx.games.ListGames(ctx, PageRequest{Page: 0, Sort: "title", Direction: "asc"})
	require.NoError(t, err)
	assert.Equal(t, 1, first.Page)
	assert.Equal(t, int64(13), first.TotalItems)
	assert.Equal(t, 2, first.TotalPages)
	assert.Len(t, first.Items, PageSize)
	assert.Equal(t, "Game 01", first.Items[0].Title)

	second, err := fx.games.ListGames(ctx, PageRequest{Page: 2, Sort: "title", Direction: "asc"})
	require.NoError(t, err)
	assert.Len(t, second.Items, 1)
	assert.Equal(t, "Game 13", second.Items[0].Title)

	beyond, err := fx.games.ListGames(ctx, PageRequest{Page: 5})
	require.NoError(t, err)
	assert.NotNil(t, beyond.Items)
	assert.Empty(t, beyond.Items)
	assert.Equal(t, 2, beyond.TotalPages)

	again, err := fx.games.ListGames(ctx, PageRequest{Page: 2, Sort: "title", Direction: "asc"})
	require.NoError(t, err)
	assert.Equal(t, second, again)
}

func TestUploadFailedErrorMessage(t *testing.T) {
	err := &UploadFailedError{
		Err:    fmt.Errorf("%w: cover image", upload.ErrRequiredAssetMissing),
		Errors: []upload.ItemError{{File: "c.png", Message: "upload failed"}},
	}
	assert.Equal(t, "required asset missing: cover image (c.png: upload failed)", err.Error())
	assert.True(t, errors.Is(err, upload.ErrRequiredAssetMissing))
}
