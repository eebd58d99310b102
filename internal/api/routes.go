package api

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	"github.com/bilgisen/newsdesk/internal/middleware"
	"github.com/bilgisen/newsdesk/internal/models"
)

// RouteOptions configures optional routes.
type RouteOptions struct {
	// MediaDir, when set, is served under /media for the local blob backend.
	MediaDir string
}

// SetupRoutes configures all the routes for the application
func SetupRoutes(app *fiber.App, handlers *Handlers, opts RouteOptions) {
	// Middleware
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middleware.RequestLogger())

	if opts.MediaDir != "" {
		app.Static("/media", opts.MediaDir, fiber.Static{
			Browse: false,
		})
	}

	// API group with versioning
	api := app.Group("/api/v1")

	api.Get("/health", handlers.HealthCheck)

	news := api.Group("/news")
	{
		news.Post("", middleware.ValidateBody[models.CreateArticleRequest](), handlers.CreateNews)
		news.Get("", middleware.ValidateQueryParams[models.ListQuery](), handlers.ListNews)
		news.Post("/list", middleware.ValidateBody[models.ListQuery](), handlers.ListNews)
		news.Post("/published/list", middleware.ValidateBody[models.ListQuery](), handlers.ListPublishedNews)
		news.Get("/slug/:slug", handlers.GetNewsBySlug)
		news.Get("/:id", handlers.GetNewsByID)
		news.Put("/:id", middleware.ValidateBody[models.UpdateArticleRequest](), handlers.UpdateNews)
		news.Delete("/:id", handlers.DeleteNews)
		news.Post("/:id/publish", handlers.PublishNews)
		news.Post("/:id/unpublish", handlers.UnpublishNews)
	}

	api.Post("/contact", middleware.ValidateBody[models.ContactRequest](), handlers.SubmitContact)

	// 404 Handler
	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Endpoint not found",
		})
	})
}

// NewApp creates a fiber app with the shared error handler. A zero timeout
// leaves reads and writes unbounded.
func NewApp(bodyLimit int, timeout time.Duration) *fiber.App {
	return fiber.New(fiber.Config{
		AppName:      "newsdesk",
		BodyLimit:    bodyLimit,
		ReadTimeout:  timeout,
		WriteTimeout: timeout,
		IdleTimeout:  120 * time.Second,
		ErrorHandler: middleware.ErrorHandler,
	})
}
