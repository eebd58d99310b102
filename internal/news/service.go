// Package news orchestrates article writes: content externalization, slug
// assignment and the publish lifecycle.
package news

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/bilgisen/newsdesk/internal/cache"
	"github.com/bilgisen/newsdesk/internal/models"
	"github.com/bilgisen/newsdesk/internal/repository"
	"github.com/bilgisen/newsdesk/internal/richtext"
	"github.com/bilgisen/newsdesk/internal/slug"
)

const (
	// slugWriteAttempts bounds re-resolution after a unique-index collision.
	slugWriteAttempts = 3
	cleanupTimeout    = 10 * time.Second

	slugCachePrefix = "article:slug:"
	// pendingPrefix marks slugs with a write in flight so concurrent reads
	// do not repopulate the cache with the pre-write row.
	pendingPrefix = "article:pending:"
)

// ContentRewriter externalizes inline images of per-locale documents.
type ContentRewriter interface {
	Externalize(ctx context.Context, descriptions map[string]string) (map[string]string, richtext.Result, error)
}

// SlugResolver picks a free slug for a title.
type SlugResolver interface {
	Generate(ctx context.Context, title, excludeID string) (slug.Resolution, error)
}

// BlobDeleter removes orphaned blobs after a failed write.
type BlobDeleter interface {
	Delete(ctx context.Context, key string) error
}

// Service implements the article operations.
type Service struct {
	repo     repository.ArticleRepository
	rewriter ContentRewriter
	slugs    SlugResolver
	blobs    BlobDeleter
	cache    cache.Cache
	cacheTTL time.Duration
	lockTTL  time.Duration
	now      func() time.Time
	log      zerolog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithCache enables the published-slug read cache and per-slug write locks.
func WithCache(c cache.Cache, ttl, lockTTL time.Duration) Option {
	return func(s *Service) {
		s.cache = c
		s.cacheTTL = ttl
		if lockTTL > 0 {
			s.lockTTL = lockTTL
		}
	}
}

// WithBlobCleanup deletes uploaded blobs when the write that referenced
// them fails.
func WithBlobCleanup(d BlobDeleter) Option {
	return func(s *Service) { s.blobs = d }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithLogger sets the service logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Service) { s.log = l }
}

// NewService creates a Service.
func NewService(repo repository.ArticleRepository, rewriter ContentRewriter, slugs SlugResolver, opts ...Option) *Service {
	s := &Service{
		repo:     repo,
		rewriter: rewriter,
		slugs:    slugs,
		lockTTL:  10 * time.Second,
		now:      time.Now,
		log:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create stores a new article.
func (s *Service) Create(ctx context.Context, m Mutation) (*models.Article, error) {
	return s.write(ctx, nil, m)
}

// Update applies a partial update to the article with the given id.
func (s *Service) Update(ctx context.Context, id string, m Mutation) (*models.Article, error) {
	current, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.write(ctx, current, m)
}

// Publish marks the article published, keeping an existing publish time.
func (s *Service) Publish(ctx context.Context, id string) (*models.Article, error) {
	published := true
	return s.Update(ctx, id, Mutation{Published: &published})
}

// Unpublish marks the article as a draft and clears its publish time.
func (s *Service) Unpublish(ctx context.Context, id string) (*models.Article, error) {
	published := false
	return s.Update(ctx, id, Mutation{Published: &published})
}

// Delete removes the article with the given id.
func (s *Service) Delete(ctx context.Context, id string) error {
	current, err := s.find(ctx, id)
	if err != nil {
		return err
	}

	s.markPending(ctx, current.Slug)
	n, err := s.repo.DeleteByID(ctx, id)
	if err != nil {
		return &UpstreamError{Op: "delete article", Err: err}
	}
	if n == 0 {
		return ErrNotFound
	}

	s.invalidate(ctx, current.Slug)
	s.log.Info().Str("article_id", id).Str("slug", current.Slug).Msg("article deleted")
	return nil
}

// GetByID returns any article, published or not.
func (s *Service) GetByID(ctx context.Context, id string) (*models.Article, error) {
	return s.find(ctx, id)
}

// GetBySlug returns a published article. Results are cached when a cache
// is configured.
func (s *Service) GetBySlug(ctx context.Context, slugValue string) (*models.Article, error) {
	key := slugCacheKey(slugValue)
	if s.cache != nil {
		if raw, ok, err := s.cache.Get(ctx, key); err != nil {
			s.log.Warn().Err(err).Str("slug", slugValue).Msg("cache read failed")
		} else if ok {
			var a models.Article
			if err := json.Unmarshal(raw, &a); err == nil {
				return &a, nil
			}
		}
	}

	a, err := s.repo.FindBySlug(ctx, slugValue, true)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, &UpstreamError{Op: "find article", Err: err}
	}

	if s.cache != nil && !s.writePending(ctx, slugValue) {
		if raw, err := json.Marshal(a); err == nil {
			if err := s.cache.Set(ctx, key, raw, s.cacheTTL); err != nil {
				s.log.Warn().Err(err).Str("slug", slugValue).Msg("cache write failed")
			}
		}
	}
	return a, nil
}

// PurgeCache drops every cached article. Locks and pending-write markers
// are left alone.
func (s *Service) PurgeCache(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	if err := s.cache.Clear(ctx, slugCachePrefix); err != nil {
		return &UpstreamError{Op: "purge cache", Err: err}
	}
	return nil
}

// List returns a page of articles matching q.
func (s *Service) List(ctx context.Context, q models.ListQuery) (*models.ListResult, error) {
	q = q.Normalize()
	items, total, err := s.repo.FindMany(ctx,
		repository.Filter{Published: q.Published, Search: q.Search},
		repository.Page{Skip: q.Skip(), Limit: q.Limit},
	)
	if err != nil {
		return nil, &UpstreamError{Op: "list articles", Err: err}
	}
	if items == nil {
		items = []models.Article{}
	}
	return &models.ListResult{Total: total, Page: q.Page, Limit: q.Limit, Data: items}, nil
}

// ListPublished is List restricted to published articles.
func (s *Service) ListPublished(ctx context.Context, q models.ListQuery) (*models.ListResult, error) {
	published := true
	q.Published = &published
	return s.List(ctx, q)
}

func (s *Service) find(ctx context.Context, id string) (*models.Article, error) {
	a, err := s.repo.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, &UpstreamError{Op: "find article", Err: err}
	}
	return a, nil
}

// write runs a create (current == nil) or an update through the same
// pipeline: externalize content, resolve the slug, apply the publish rule
// and persist.
func (s *Service) write(ctx context.Context, current *models.Article, m Mutation) (*models.Article, error) {
	if err := m.validate(current); err != nil {
		return nil, err
	}

	var (
		description map[string]string
		uploaded    []string
	)
	if m.Description != nil {
		rewritten, res, err := s.rewriter.Externalize(ctx, m.Description)
		uploaded = res.Keys
		if err != nil {
			s.cleanup(ctx, uploaded)
			if errors.Is(err, richtext.ErrInvalidDocument) {
				return nil, &ValidationError{Field: "description", Message: "invalid rich content", Err: err}
			}
			return nil, &UpstreamError{Op: "externalize images", Err: err}
		}
		description = rewritten
	}

	if current != nil {
		s.markPending(ctx, current.Slug)
	}
	saved, err := s.persist(ctx, current, m, description)
	if err != nil {
		s.cleanup(ctx, uploaded)
		return nil, err
	}

	if current != nil {
		s.invalidate(ctx, current.Slug, saved.Slug)
	} else {
		s.invalidate(ctx, saved.Slug)
	}

	event := s.log.Info().
		Str("article_id", saved.ID).
		Str("slug", saved.Slug).
		Bool("published", saved.Published).
		Int("images", len(uploaded))
	if current == nil {
		event.Msg("article created")
	} else {
		event.Msg("article updated")
	}
	return saved, nil
}

// persist resolves the slug when the title changed and writes the record.
// A unique-index collision from a concurrent writer triggers a fresh
// resolution. When those keep colliding the base gets a timestamp suffix,
// and only a collision on that fails the write.
func (s *Service) persist(ctx context.Context, current *models.Article, m Mutation, description map[string]string) (*models.Article, error) {
	if !m.titleChanged(current) {
		return s.store(ctx, current, transition(current, m, description, "", s.now()))
	}

	base := slug.Base(*m.Title, s.now())
	excludeID := ""
	if current != nil {
		excludeID = current.ID
	}

	release, err := s.lockSlug(ctx, base)
	if err != nil {
		return nil, err
	}
	defer release()

	for attempt := 1; attempt <= slugWriteAttempts; attempt++ {
		res, err := s.slugs.Generate(ctx, *m.Title, excludeID)
		if err != nil {
			return nil, &UpstreamError{Op: "resolve slug", Err: err}
		}

		saved, err := s.store(ctx, current, transition(current, m, description, res.Slug, s.now()))
		if !errors.Is(err, repository.ErrSlugTaken) {
			return saved, err
		}
		s.log.Warn().
			Str("slug", res.Slug).
			Int("attempt", attempt).
			Msg("slug taken by concurrent write, resolving again")
	}

	fallback := slug.Timestamped(base, s.now())
	s.log.Warn().
		Str("base", base).
		Str("slug", fallback).
		Msg("slug collisions persisted, using timestamp fallback")

	saved, err := s.store(ctx, current, transition(current, m, description, fallback, s.now()))
	if errors.Is(err, repository.ErrSlugTaken) {
		return nil, fmt.Errorf("%w: %s", ErrSlugConflict, fallback)
	}
	return saved, err
}

// store inserts or updates according to current. ErrSlugTaken is passed
// through for persist to retry.
func (s *Service) store(ctx context.Context, current *models.Article, patch models.ArticlePatch) (*models.Article, error) {
	var (
		saved *models.Article
		err   error
	)
	if current == nil {
		a := patch.Apply(models.Article{})
		saved, err = s.repo.Insert(ctx, &a)
	} else {
		saved, err = s.repo.UpdateByID(ctx, current.ID, patch)
	}

	switch {
	case err == nil:
		return saved, nil
	case errors.Is(err, repository.ErrSlugTaken):
		return nil, repository.ErrSlugTaken
	case errors.Is(err, repository.ErrNotFound):
		return nil, ErrNotFound
	default:
		return nil, &UpstreamError{Op: "save article", Err: err}
	}
}

// lockSlug serializes slug assignment for one base across instances. Without
// a cache the database unique index is the only guard.
func (s *Service) lockSlug(ctx context.Context, base string) (func(), error) {
	if s.cache == nil {
		return func() {}, nil
	}

	lock, err := s.cache.Lock(ctx, "slug:"+base, s.lockTTL)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &UpstreamError{Op: "acquire slug lock", Err: err}
	}
	return func() {
		if err := lock.Release(context.WithoutCancel(ctx)); err != nil {
			s.log.Warn().Err(err).Str("base", base).Msg("slug lock release failed")
		}
	}, nil
}

// cleanup deletes blobs uploaded for a write that did not persist.
func (s *Service) cleanup(ctx context.Context, keys []string) {
	if s.blobs == nil || len(keys) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
	defer cancel()

	for _, key := range keys {
		if err := s.blobs.Delete(ctx, key); err != nil {
			s.log.Warn().Err(err).Str("key", key).Msg("failed to delete orphaned blob")
		}
	}
}

func (s *Service) invalidate(ctx context.Context, slugs ...string) {
	if s.cache == nil {
		return
	}

	keys := make([]string, 0, len(slugs))
	for _, sl := range slugs {
		if sl != "" {
			keys = append(keys, slugCacheKey(sl))
		}
	}
	if err := s.cache.Delete(ctx, keys...); err != nil {
		s.log.Warn().Err(err).Strs("slugs", slugs).Msg("cache invalidation failed")
	}
}

func (s *Service) markPending(ctx context.Context, slugValue string) {
	if s.cache == nil || slugValue == "" {
		return
	}
	if err := s.cache.Set(ctx, pendingKey(slugValue), []byte("1"), s.lockTTL); err != nil {
		s.log.Warn().Err(err).Str("slug", slugValue).Msg("failed to mark pending write")
	}
}

func (s *Service) writePending(ctx context.Context, slugValue string) bool {
	_, ok, err := s.cache.Get(ctx, pendingKey(slugValue))
	// an unreadable marker is treated as a pending write
	return ok || err != nil
}

func slugCacheKey(s string) string {
	return slugCachePrefix + strings.ToLower(s)
}

func pendingKey(s string) string {
	return pendingPrefix + strings.ToLower(s)
}
