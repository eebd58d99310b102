package models

import "time"

// Article is a news article with a per-locale rich-content body.
type Article struct {
	ID          string            `json:"id"`
	Title       string            `json:"title"`
	Slug        string            `json:"slug"`
	Description map[string]string `json:"description"`
	CoverImage  *string           `json:"cover_image,omitempty"`
	Published   bool              `json:"published"`
	PublishedAt *time.Time        `json:"published_at,omitempty"`
	Author      string            `json:"author,omitempty"`
	Tags        []string          `json:"tags,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// TimestampChange carries a write to a nullable timestamp column.
// A nil At clears the column.
type TimestampChange struct {
	At *time.Time
}

// ArticlePatch is a partial update. Nil fields are left untouched; a non-nil
// empty Tags slice clears the tags.
type ArticlePatch struct {
	Title       *string
	Slug        *string
	Description map[string]string
	CoverImage  *string
	Author      *string
	Tags        []string
	Published   *bool
	PublishedAt *TimestampChange
}

// IsEmpty reports whether the patch writes nothing.
func (p ArticlePatch) IsEmpty() bool {
	return p.Title == nil &&
		p.Slug == nil &&
		p.Description == nil &&
		p.CoverImage == nil &&
		p.Author == nil &&
		p.Tags == nil &&
		p.Published == nil &&
		p.PublishedAt == nil
}

// Apply copies the patch onto a, returning the result.
func (p ArticlePatch) Apply(a Article) Article {
	if p.Title != nil {
		a.Title = *p.Title
	}
	if p.Slug != nil {
		a.Slug = *p.Slug
	}
	if p.Description != nil {
		a.Description = p.Description
	}
	if p.CoverImage != nil {
		a.CoverImage = p.CoverImage
	}
	if p.Author != nil {
		a.Author = *p.Author
	}
	if p.Tags != nil {
		a.Tags = p.Tags
	}
	if p.Published != nil {
		a.Published = *p.Published
	}
	if p.PublishedAt != nil {
		a.PublishedAt = p.PublishedAt.At
	}
	return a
}

// CreateArticleRequest is the body of POST /news.
type CreateArticleRequest struct {
	Title       string            `json:"title" validate:"required,max=300"`
	Description map[string]string `json:"description" validate:"required,min=1"`
	CoverImage  *string           `json:"cover_image,omitempty" validate:"omitempty,url"`
	Published   *bool             `json:"published,omitempty"`
	Author      *string           `json:"author,omitempty" validate:"omitempty,max=200"`
	Tags        []string          `json:"tags,omitempty" validate:"omitempty,dive,required,max=64"`
}

// UpdateArticleRequest is the body of PUT /news/:id. Absent fields are not
// touched.
type UpdateArticleRequest struct {
	Title       *string           `json:"title,omitempty" validate:"omitempty,min=1,max=300"`
	Description map[string]string `json:"description,omitempty" validate:"omitempty,min=1"`
	CoverImage  *string           `json:"cover_image,omitempty" validate:"omitempty,url"`
	Published   *bool             `json:"published,omitempty"`
	Author      *string           `json:"author,omitempty" validate:"omitempty,max=200"`
	Tags        []string          `json:"tags,omitempty" validate:"omitempty,dive,required,max=64"`
}

// ListQuery is the body of the list endpoints, or the query string of
// GET /news.
type ListQuery struct {
	Page      int    `json:"page" query:"page" validate:"omitempty,min=1"`
	Limit     int    `json:"limit" query:"limit" validate:"omitempty,min=1,max=100"`
	Search    string `json:"search,omitempty" query:"search" validate:"omitempty,max=200"`
	Published *bool  `json:"published,omitempty" query:"published"`
}

// Normalize fills in default paging values.
func (q ListQuery) Normalize() ListQuery {
	if q.Page < 1 {
		q.Page = 1
	}
	switch {
	case q.Limit > 100:
		q.Limit = 100
	case q.Limit <= 0:
		q.Limit = 20
	}
	return q
}

// Skip returns the number of records before the requested page.
func (q ListQuery) Skip() int {
	return (q.Page - 1) * q.Limit
}

// ListResult is a page of articles.
type ListResult struct {
	Total int64     `json:"total"`
	Page  int       `json:"page"`
	Limit int       `json:"limit"`
	Data  []Article `json:"data"`
}
