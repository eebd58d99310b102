package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bilgisen/newsdesk/internal/models"
)

// MemoryArticleRepository is an in-memory ArticleRepository. Like the
// Postgres schema it refuses two articles with the same lower-cased slug.
type MemoryArticleRepository struct {
	mu       sync.RWMutex
	articles map[string]models.Article
	now      func() time.Time
}

// NewMemoryArticleRepository creates an empty repository.
func NewMemoryArticleRepository() *MemoryArticleRepository {
	return &MemoryArticleRepository{
		articles: make(map[string]models.Article),
		now:      time.Now,
	}
}

func (r *MemoryArticleRepository) slugOwner(slug string) (string, bool) {
	for id, a := range r.articles {
		if strings.EqualFold(a.Slug, slug) {
			return id, true
		}
	}
	return "", false
}

func (r *MemoryArticleRepository) Insert(ctx context.Context, article *models.Article) (*models.Article, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, taken := r.slugOwner(article.Slug); taken {
		return nil, ErrSlugTaken
	}

	a := clone(*article)
	a.ID = uuid.NewString()
	now := r.now().UTC()
	// keep createdAt strictly increasing so list ordering is deterministic
	for _, existing := range r.articles {
		if !now.After(existing.CreatedAt) {
			now = existing.CreatedAt.Add(time.Microsecond)
		}
	}
	a.CreatedAt = now
	a.UpdatedAt = now
	r.articles[a.ID] = a

	out := clone(a)
	return &out, nil
}

func (r *MemoryArticleRepository) FindByID(ctx context.Context, id string) (*models.Article, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.articles[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := clone(a)
	return &out, nil
}

func (r *MemoryArticleRepository) FindBySlug(ctx context.Context, slug string, publishedOnly bool) (*models.Article, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.slugOwner(slug)
	if !ok {
		return nil, ErrNotFound
	}
	a := r.articles[id]
	if publishedOnly && !a.Published {
		return nil, ErrNotFound
	}
	out := clone(a)
	return &out, nil
}

func (r *MemoryArticleRepository) SlugExists(ctx context.Context, slug, excludeID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.slugOwner(slug)
	return ok && id != excludeID, nil
}

func (r *MemoryArticleRepository) FindMany(ctx context.Context, filter Filter, page Page) ([]models.Article, int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	terms := strings.Fields(strings.ToLower(filter.Search))
	var matched []models.Article
	for _, a := range r.articles {
		if filter.Published != nil && a.Published != *filter.Published {
			continue
		}
		if len(terms) > 0 && !matchesSearch(a, terms) {
			continue
		}
		matched = append(matched, a)
	}

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := int64(len(matched))
	start := page.Skip
	if start > len(matched) {
		start = len(matched)
	}
	end := len(matched)
	if page.Limit > 0 && start+page.Limit < end {
		end = start + page.Limit
	}

	out := make([]models.Article, 0, end-start)
	for _, a := range matched[start:end] {
		out = append(out, clone(a))
	}
	return out, total, nil
}

// matchesSearch requires every term to occur in the title or a locale body.
func matchesSearch(a models.Article, terms []string) bool {
	haystack := strings.ToLower(a.Title)
	for _, body := range a.Description {
		haystack += " " + strings.ToLower(body)
	}
	for _, term := range terms {
		if !strings.Contains(haystack, term) {
			return false
		}
	}
	return true
}

func (r *MemoryArticleRepository) UpdateByID(ctx context.Context, id string, patch models.ArticlePatch) (*models.Article, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.articles[id]
	if !ok {
		return nil, ErrNotFound
	}
	if patch.Slug != nil {
		if owner, taken := r.slugOwner(*patch.Slug); taken && owner != id {
			return nil, ErrSlugTaken
		}
	}

	a = clone(patch.Apply(a))
	if !patch.IsEmpty() {
		a.UpdatedAt = r.now().UTC()
	}
	r.articles[id] = a

	out := clone(a)
	return &out, nil
}

func (r *MemoryArticleRepository) DeleteByID(ctx context.Context, id string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.articles[id]; !ok {
		return 0, nil
	}
	delete(r.articles, id)
	return 1, nil
}

// clone copies the reference fields so callers cannot mutate stored state.
func clone(a models.Article) models.Article {
	if a.Description != nil {
		d := make(map[string]string, len(a.Description))
		for k, v := range a.Description {
			d[k] = v
		}
		a.Description = d
	}
	if a.Tags != nil {
		a.Tags = append([]string(nil), a.Tags...)
	}
	if a.CoverImage != nil {
		c := *a.CoverImage
		a.CoverImage = &c
	}
	if a.PublishedAt != nil {
		p := *a.PublishedAt
		a.PublishedAt = &p
	}
	return a
}
