package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/filesystem"

	"indibox/middleware"
)

// Options configures the HTTP surface.
type Options struct {
	// BodyLimit is the largest accepted request body in bytes.
	BodyLimit      int
	AllowedOrigins string
	// FilesDir, when set, is served under /files. Used with local storage.
	FilesDir string
}

func NewApp(auth *middleware.Authenticator, games *GameHandler, reviews *ReviewHandler, opts Options) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "indibox",
		BodyLimit:    opts.BodyLimit,
		ErrorHandler: ErrorHandler,
	})

	app.Use(middleware.RequestLogger())
	app.Use(cors.New(cors.Config{
		AllowOrigins: opts.AllowedOrigins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET,POST,PUT,PATCH,DELETE,OPTIONS",
	}))

	if opts.FilesDir != "" {
		app.Use("/files", filesystem.New(filesystem.Config{
			Root:   http.Dir(opts.FilesDir),
			MaxAge: 3600,
		}))
	}
	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	SetupGameRoutes(app, auth, games, reviews)
	return app
}

func SetupGameRoutes(app *fiber.App, auth *middleware.Authenticator, games *GameHandler, reviews *ReviewHandler) {
	public := auth.Optional()
	secured := auth.Required()
	admin := middleware.RequireAdmin()

	// Static segments go before /games/:id.
	app.Get("/games", public, games.List)
	app.Get("/games/search", public, games.Search)
	app.Get("/games/featured", public, games.Featured)
	app.Get("/me/games", secured, games.Owned)

	app.Post("/games", secured, games.Create)
	app.Get("/games/:id", public, games.Get)
	app.Put("/games/:id", secured, games.Update)
	app.Patch("/games/:id", secured, games.Update)
	app.Delete("/games/:id", secured, games.Delete)
	app.Patch("/games/:id/status", secured, games.SetStatus)
	app.Get("/games/:id/download", public, games.Download)
	app.Post("/games/:id/feature", secured, admin, games.Feature)
	app.Post("/games/:id/unfeature", secured, admin, games.Unfeature)

	app.Get("/games/:id/reviews", public, reviews.List)
	app.Post("/games/:id/reviews", secured, reviews.Create)
	app.Get("/games/:id/user-review", secured, reviews.UserReview)
	app.Put("/reviews/:review_id", secured, reviews.Update)
	app.Delete("/reviews/:review_id", secured, reviews.Delete)
}
