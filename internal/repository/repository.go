package repository

import (
	"context"
	"errors"

	"github.com/bilgisen/newsdesk/internal/models"
)

var (
	// ErrNotFound indicates no article matched
	ErrNotFound = errors.New("article not found")

	// ErrSlugTaken indicates a write collided with another article's slug
	ErrSlugTaken = errors.New("slug already taken")
)

// Filter restricts FindMany. Search is matched by the store's text search.
type Filter struct {
	Published *bool
	Search    string
}

// Page selects a window of the createdAt-descending result set.
type Page struct {
	Skip  int
	Limit int
}

// ArticleRepository defines methods for article data access.
type ArticleRepository interface {
	// Insert stores a new article, assigning ID and timestamps.
	Insert(ctx context.Context, article *models.Article) (*models.Article, error)
	FindByID(ctx context.Context, id string) (*models.Article, error)
	// FindBySlug matches case-insensitively. With publishedOnly set, drafts
	// are reported as ErrNotFound.
	FindBySlug(ctx context.Context, slug string, publishedOnly bool) (*models.Article, error)
	// SlugExists reports whether an article other than excludeID owns slug.
	SlugExists(ctx context.Context, slug, excludeID string) (bool, error)
	FindMany(ctx context.Context, filter Filter, page Page) ([]models.Article, int64, error)
	// UpdateByID applies patch and returns the updated article.
	UpdateByID(ctx context.Context, id string, patch models.ArticlePatch) (*models.Article, error)
	// DeleteByID returns the number of deleted articles.
	DeleteByID(ctx context.Context, id string) (int64, error)
}
