package repository

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bilgisen/newsdesk/internal/models"
)

//go:embed schema.sql
var schemaSQL string

const uniqueViolation = "23505"

const articleColumns = `id, title, slug, description, cover_image, published, published_at, author, tags, created_at, updated_at`

// DB is the subset of *pgxpool.Pool the repository needs.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PoolConfig sizes the connection pool.
type PoolConfig struct {
	URL      string
	MaxConns int32
	MinConns int32
}

// NewPool opens and pings a pgx connection pool.
func NewPool(ctx context.Context, cfg PoolConfig) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database url: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return pool, nil
}

// PostgresArticleRepository stores articles in PostgreSQL.
type PostgresArticleRepository struct {
	db DB
}

// NewPostgresArticleRepository wraps db.
func NewPostgresArticleRepository(db DB) *PostgresArticleRepository {
	return &PostgresArticleRepository{db: db}
}

// EnsureSchema creates the articles table and its indexes if missing.
func (r *PostgresArticleRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

func scanArticle(row pgx.Row) (*models.Article, error) {
	var (
		a           models.Article
		description map[string]string
		coverImage  *string
		publishedAt *time.Time
		tags        []string
	)
	err := row.Scan(
		&a.ID, &a.Title, &a.Slug, &description, &coverImage,
		&a.Published, &publishedAt, &a.Author, &tags, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	a.Description = description
	a.CoverImage = coverImage
	a.PublishedAt = publishedAt
	if len(tags) > 0 {
		a.Tags = tags
	}
	return &a, nil
}

// translate maps driver errors onto the package sentinels.
func translate(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return ErrSlugTaken
	}
	return err
}

func (r *PostgresArticleRepository) Insert(ctx context.Context, article *models.Article) (*models.Article, error) {
	tags := article.Tags
	if tags == nil {
		tags = []string{}
	}
	description := article.Description
	if description == nil {
		description = map[string]string{}
	}

	query := `INSERT INTO articles (id, title, slug, description, cover_image, published, published_at, author, tags)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING ` + articleColumns

	a, err := scanArticle(r.db.QueryRow(ctx, query,
		uuid.NewString(), article.Title, article.Slug, description, article.CoverImage,
		article.Published, article.PublishedAt, article.Author, tags,
	))
	if err != nil {
		return nil, fmt.Errorf("insert article: %w", translate(err))
	}
	return a, nil
}

func (r *PostgresArticleRepository) FindByID(ctx context.Context, id string) (*models.Article, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}

	query := `SELECT ` + articleColumns + ` FROM articles WHERE id = $1`
	a, err := scanArticle(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, translate(err)
	}
	return a, nil
}

func (r *PostgresArticleRepository) FindBySlug(ctx context.Context, slug string, publishedOnly bool) (*models.Article, error) {
	query := `SELECT ` + articleColumns + ` FROM articles WHERE lower(slug) = lower($1)`
	if publishedOnly {
		query += ` AND published = TRUE`
	}

	a, err := scanArticle(r.db.QueryRow(ctx, query, slug))
	if err != nil {
		return nil, translate(err)
	}
	return a, nil
}

func (r *PostgresArticleRepository) SlugExists(ctx context.Context, slug, excludeID string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM articles WHERE lower(slug) = lower($1)`
	args := []any{slug}
	if _, err := uuid.Parse(excludeID); err == nil {
		query += ` AND id <> $2`
		args = append(args, excludeID)
	}
	query += `)`

	var exists bool
	if err := r.db.QueryRow(ctx, query, args...).Scan(&exists); err != nil {
		return false, fmt.Errorf("check slug: %w", err)
	}
	return exists, nil
}

// whereClause renders filter as a WHERE clause with positional arguments.
func whereClause(filter Filter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if filter.Published != nil {
		args = append(args, *filter.Published)
		conds = append(conds, fmt.Sprintf("published = $%d", len(args)))
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		args = append(args, search)
		conds = append(conds, fmt.Sprintf(
			"to_tsvector('simple', title || ' ' || description::text) @@ plainto_tsquery('simple', $%d)", len(args)))
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (r *PostgresArticleRepository) FindMany(ctx context.Context, filter Filter, page Page) ([]models.Article, int64, error) {
	where, args := whereClause(filter)

	var total int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM articles`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count articles: %w", err)
	}

	query := `SELECT ` + articleColumns + ` FROM articles` + where +
		fmt.Sprintf(` ORDER BY created_at DESC OFFSET $%d LIMIT $%d`, len(args)+1, len(args)+2)
	rows, err := r.db.Query(ctx, query, append(args, page.Skip, page.Limit)...)
	if err != nil {
		return nil, 0, fmt.Errorf("list articles: %w", err)
	}
	defer rows.Close()

	articles := make([]models.Article, 0, page.Limit)
	for rows.Next() {
		a, err := scanArticle(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan article: %w", err)
		}
		articles = append(articles, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("list articles: %w", err)
	}
	return articles, total, nil
}

// setClause renders the non-nil patch fields as SET assignments.
func setClause(patch models.ArticlePatch) ([]string, []any) {
	var (
		sets []string
		args []any
	)
	add := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if patch.Title != nil {
		add("title", *patch.Title)
	}
	if patch.Slug != nil {
		add("slug", *patch.Slug)
	}
	if patch.Description != nil {
		add("description", patch.Description)
	}
	if patch.CoverImage != nil {
		add("cover_image", *patch.CoverImage)
	}
	if patch.Author != nil {
		add("author", *patch.Author)
	}
	if patch.Tags != nil {
		add("tags", patch.Tags)
	}
	if patch.Published != nil {
		add("published", *patch.Published)
	}
	if patch.PublishedAt != nil {
		add("published_at", patch.PublishedAt.At)
	}
	return sets, args
}

func (r *PostgresArticleRepository) UpdateByID(ctx context.Context, id string, patch models.ArticlePatch) (*models.Article, error) {
	if patch.IsEmpty() {
		return r.FindByID(ctx, id)
	}
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}

	sets, args := setClause(patch)
	args = append(args, id)
	query := `UPDATE articles SET ` + strings.Join(sets, ", ") + `, updated_at = now()` +
		fmt.Sprintf(` WHERE id = $%d RETURNING `, len(args)) + articleColumns

	a, err := scanArticle(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		return nil, translate(err)
	}
	return a, nil
}

func (r *PostgresArticleRepository) DeleteByID(ctx context.Context, id string) (int64, error) {
	if _, err := uuid.Parse(id); err != nil {
		return 0, nil
	}

	tag, err := r.db.Exec(ctx, `DELETE FROM articles WHERE id = $1`, id)
	if err != nil {
		return 0, fmt.Errorf("delete article: %w", err)
	}
	return tag.RowsAffected(), nil
}
