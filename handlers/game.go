package handlers

import (
	"context"
	"mime/multipart"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"indibox/middleware"
	"indibox/services"
	"indibox/upload"
)

const releaseDateLayout = "2006-01-02"

type GameHandler struct {
	games *services.GameService
	users *services.UserService
}

func NewGameHandler(games *services.GameService, users *services.UserService) *GameHandler {
	return &GameHandler{games: games, users: users}
}

func (h *GameHandler) List(c *fiber.Ctx) error {
	state := services.NewListState(pageRequest(c))
	page, err := h.games.ListGames(c.UserContext(), state.Request())
	if err != nil {
		return err
	}
	return c.JSON(newPaginatedResponse(page, &state))
}

// Search lists games matching ?q=. An empty term goes back to the catalogue.
func (h *GameHandler) Search(c *fiber.Ctx) error {
	state := services.NewListState(pageRequest(c))
	if state.Request().Search == "" {
		return c.Redirect(state.WithSearch("").URL(), fiber.StatusFound)
	}
	return h.List(c)
}

func (h *GameHandler) Featured(c *fiber.Ctx) error {
	games, err := h.games.ListFeatured(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": games})
}

func (h *GameHandler) Owned(c *fiber.Ctx) error {
	who := middleware.IdentityFrom(c)
	page, err := h.games.ListOwned(c.UserContext(), who, c.QueryInt("page", 1))
	if err != nil {
		return err
	}
	return c.JSON(newPaginatedResponse(page, nil))
}

func (h *GameHandler) Get(c *fiber.Ctx) error {
	game, err := h.games.GetGame(c.UserContext(), middleware.IdentityFrom(c), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(game)
}

func (h *GameHandler) Download(c *fiber.Ctx) error {
	url, err := h.games.RecordDownload(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.Redirect(url, fiber.StatusFound)
}

// Create publishes a new draft game from a multipart form.
func (h *GameHandler) Create(c *fiber.Ctx) error {
	who := middleware.IdentityFrom(c)
	patch, files, err := parseGameForm(c)
	if err != nil {
		return err
	}
	if _, err := h.users.EnsureProfile(c.UserContext(), who); err != nil {
		return err
	}
	return respond(c, fiber.StatusCreated, func(ctx context.Context, progress upload.ProgressFunc) (any, error) {
		return h.games.CreateGame(ctx, who, patch.Input(), files, progress)
	})
}

func (h *GameHandler) Update(c *fiber.Ctx) error {
	who := middleware.IdentityFrom(c)
	id := c.Params("id")
	patch, files, err := parseGameForm(c)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, func(ctx context.Context, progress upload.ProgressFunc) (any, error) {
		return h.games.UpdateGame(ctx, who, id, patch, files, progress)
	})
}

type statusRequest struct {
	Status string `json:"status"`
}

func (h *GameHandler) SetStatus(c *fiber.Ctx) error {
	var req statusRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	game, err := h.games.SetStatus(c.UserContext(), middleware.IdentityFrom(c), c.Params("id"), strings.TrimSpace(req.Status))
	if err != nil {
		return err
	}
	return c.JSON(game)
}

func (h *GameHandler) Delete(c *fiber.Ctx) error {
	if err := h.games.DeleteGame(c.UserContext(), middleware.IdentityFrom(c), c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *GameHandler) Feature(c *fiber.Ctx) error {
	return h.setFeatured(c, true)
}

func (h *GameHandler) Unfeature(c *fiber.Ctx) error {
	return h.setFeatured(c, false)
}

func (h *GameHandler) setFeatured(c *fiber.Ctx, featured bool) error {
	game, err := h.games.SetFeatured(c.UserContext(), middleware.IdentityFrom(c), c.Params("id"), featured)
	if err != nil {
		return err
	}
	return c.JSON(game)
}

// parseGameForm reads metadata and files from a multipart request and
// rejects invalid files before anything is stored.
func parseGameForm(c *fiber.Ctx) (services.GamePatch, services.GameFiles, error) {
	form, err := c.MultipartForm()
	if err != nil {
		return services.GamePatch{}, services.GameFiles{}, fiber.NewError(fiber.StatusBadRequest, "expected multipart/form-data")
	}
	patch, err := parsePatch(form)
	if err != nil {
		return services.GamePatch{}, services.GameFiles{}, err
	}
	files := parseFiles(form)
	if err := files.Validate(); err != nil {
		return services.GamePatch{}, services.GameFiles{}, err
	}
	return patch, files, nil
}

func parsePatch(form *multipart.Form) (services.GamePatch, error) {
	p := services.GamePatch{
		Title:            formValue(form, "title"),
		ShortDescription: formValue(form, "short_description"),
		LongDescription:  formValue(form, "long_description"),
		DeveloperName:    formValue(form, "developer_name"),
		WebsiteURL:       formValue(form, "website_url"),
		RepositoryURL:    formValue(form, "repository_url"),
		Genres:           formList(form, "genres"),
		Tags:             formList(form, "tags"),
		Platforms:        formList(form, "platforms"),
	}
	if raw := formValue(form, "release_date"); raw != nil && strings.TrimSpace(*raw) != "" {
		t, err := time.Parse(releaseDateLayout, strings.TrimSpace(*raw))
		if err != nil {
			return p, &services.InputError{Fields: []services.FieldError{{Field: "release_date", Message: "must be a date (YYYY-MM-DD)"}}}
		}
		p.ReleaseDate = &t
	}
	return p, nil
}

func parseFiles(form *multipart.Form) services.GameFiles {
	var files services.GameFiles
	if fhs := form.File["game_file"]; len(fhs) > 0 {
		it := upload.FromFileHeader(fhs[0], upload.CategoryArchive)
		files.Archive = &it
	}
	if fhs := form.File["cover_image"]; len(fhs) > 0 {
		it := upload.FromFileHeader(fhs[0], upload.CategoryCover)
		files.Cover = &it
	}
	for _, fh := range form.File["screenshots"] {
		files.Screenshots = append(files.Screenshots, upload.FromFileHeader(fh, upload.CategoryScreenshot))
	}
	return files
}

func formValue(form *multipart.Form, key string) *string {
	vals, ok := form.Value[key]
	if !ok || len(vals) == 0 {
		return nil
	}
	v := vals[0]
	return &v
}

// formList accepts comma separated values, repeated fields, or both. A
// present but empty field yields an empty list.
func formList(form *multipart.Form, key string) []string {
	vals, ok := form.Value[key]
	if !ok {
		return nil
	}
	out := []string{}
	for _, v := range vals {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
