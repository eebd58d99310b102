package api

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/bilgisen/newsdesk/internal/logger"
	"github.com/bilgisen/newsdesk/internal/middleware"
	"github.com/bilgisen/newsdesk/internal/models"
	"github.com/bilgisen/newsdesk/internal/news"
)

const version = "1.0.0"

// ArticleService is the article use-case surface the handlers need.
type ArticleService interface {
	Create(ctx context.Context, m news.Mutation) (*models.Article, error)
	Update(ctx context.Context, id string, m news.Mutation) (*models.Article, error)
	Publish(ctx context.Context, id string) (*models.Article, error)
	Unpublish(ctx context.Context, id string) (*models.Article, error)
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*models.Article, error)
	GetBySlug(ctx context.Context, slug string) (*models.Article, error)
	List(ctx context.Context, q models.ListQuery) (*models.ListResult, error)
	ListPublished(ctx context.Context, q models.ListQuery) (*models.ListResult, error)
}

// ContactSubmitter forwards contact form submissions.
type ContactSubmitter interface {
	Submit(ctx context.Context, req models.ContactRequest) error
}

// HealthCheck probes one dependency.
type HealthCheck func(ctx context.Context) error

type Handlers struct {
	articles ArticleService
	contact  ContactSubmitter
	checks   map[string]HealthCheck
	timeout  time.Duration
}

// NewHandlers creates the handlers. timeout bounds each request's work,
// including blob uploads; zero disables it.
func NewHandlers(articles ArticleService, contact ContactSubmitter, checks map[string]HealthCheck, timeout time.Duration) *Handlers {
	return &Handlers{
		articles: articles,
		contact:  contact,
		checks:   checks,
		timeout:  timeout,
	}
}

func (h *Handlers) requestContext(c *fiber.Ctx) (context.Context, context.CancelFunc) {
	if h.timeout <= 0 {
		return context.WithCancel(c.UserContext())
	}
	return context.WithTimeout(c.UserContext(), h.timeout)
}

// HealthCheck handles GET /api/v1/health
func (h *Handlers) HealthCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
	defer cancel()

	status := "ok"
	code := fiber.StatusOK
	deps := make(map[string]string, len(h.checks))
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			logger.Get().Warn().Err(err).Str("dependency", name).Msg("health check failed")
			deps[name] = "down"
			status = "degraded"
			code = fiber.StatusServiceUnavailable
			continue
		}
		deps[name] = "up"
	}

	return c.Status(code).JSON(fiber.Map{
		"status":       status,
		"version":      version,
		"time":         time.Now().Format(time.RFC3339),
		"dependencies": deps,
	})
}

// CreateNews handles POST /api/v1/news
func (h *Handlers) CreateNews(c *fiber.Ctx) error {
	req := middleware.Validated[models.CreateArticleRequest](c)
	ctx, cancel := h.requestContext(c)
	defer cancel()

	article, err := h.articles.Create(ctx, news.MutationFromCreate(*req))
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(article)
}

// ListNews handles POST /api/v1/news/list and GET /api/v1/news
func (h *Handlers) ListNews(c *fiber.Ctx) error {
	q := middleware.Validated[models.ListQuery](c)

	result, err := h.articles.List(c.UserContext(), *q)
	if err != nil {
		return err
	}
	return c.JSON(result)
}

// ListPublishedNews handles POST /api/v1/news/published/list
func (h *Handlers) ListPublishedNews(c *fiber.Ctx) error {
	q := middleware.Validated[models.ListQuery](c)

	result, err := h.articles.ListPublished(c.UserContext(), *q)
	if err != nil {
		return err
	}
	return c.JSON(result)
}

// GetNewsByID handles GET /api/v1/news/:id
func (h *Handlers) GetNewsByID(c *fiber.Ctx) error {
	article, err := h.articles.GetByID(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(article)
}

// GetNewsBySlug handles GET /api/v1/news/slug/:slug
func (h *Handlers) GetNewsBySlug(c *fiber.Ctx) error {
	article, err := h.articles.GetBySlug(c.UserContext(), c.Params("slug"))
	if err != nil {
		return err
	}
	return c.JSON(article)
}

// UpdateNews handles PUT /api/v1/news/:id
func (h *Handlers) UpdateNews(c *fiber.Ctx) error {
	req := middleware.Validated[models.UpdateArticleRequest](c)
	ctx, cancel := h.requestContext(c)
	defer cancel()

	article, err := h.articles.Update(ctx, c.Params("id"), news.MutationFromUpdate(*req))
	if err != nil {
		return err
	}
	return c.JSON(article)
}

// DeleteNews handles DELETE /api/v1/news/:id
func (h *Handlers) DeleteNews(c *fiber.Ctx) error {
	if err := h.articles.Delete(c.UserContext(), c.Params("id")); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"deleted": true})
}

// PublishNews handles POST /api/v1/news/:id/publish
func (h *Handlers) PublishNews(c *fiber.Ctx) error {
	article, err := h.articles.Publish(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(article)
}

// UnpublishNews handles POST /api/v1/news/:id/unpublish
func (h *Handlers) UnpublishNews(c *fiber.Ctx) error {
	article, err := h.articles.Unpublish(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(article)
}

// SubmitContact handles POST /api/v1/contact
func (h *Handlers) SubmitContact(c *fiber.Ctx) error {
	req := middleware.Validated[models.ContactRequest](c)
	ctx, cancel := h.requestContext(c)
	defer cancel()

	if err := h.contact.Submit(ctx, *req); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"status": "success"})
}
