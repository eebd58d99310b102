package news

import (
	"time"

	"github.com/bilgisen/newsdesk/internal/models"
	"github.com/bilgisen/newsdesk/internal/publish"
)

// Mutation is a requested write. Nil fields are not part of the request.
type Mutation struct {
	Title       *string
	Description map[string]string
	CoverImage  *string
	Author      *string
	Tags        []string
	Published   *bool
}

// MutationFromCreate converts a create request body.
func MutationFromCreate(req models.CreateArticleRequest) Mutation {
	title := req.Title
	return Mutation{
		Title:       &title,
		Description: req.Description,
		CoverImage:  req.CoverImage,
		Author:      req.Author,
		Tags:        req.Tags,
		Published:   req.Published,
	}
}

// MutationFromUpdate converts a partial update request body.
func MutationFromUpdate(req models.UpdateArticleRequest) Mutation {
	return Mutation{
		Title:       req.Title,
		Description: req.Description,
		CoverImage:  req.CoverImage,
		Author:      req.Author,
		Tags:        req.Tags,
		Published:   req.Published,
	}
}

// validate checks the fields the service owns. current is nil on create.
func (m Mutation) validate(current *models.Article) error {
	if current == nil {
		if m.Title == nil {
			return &ValidationError{Field: "title", Message: "is required"}
		}
		if len(m.Description) == 0 {
			return &ValidationError{Field: "description", Message: "is required"}
		}
	}
	if m.Title != nil && cleanText(*m.Title) == "" {
		return &ValidationError{Field: "title", Message: "must not be empty"}
	}
	if m.Description != nil && len(m.Description) == 0 {
		return &ValidationError{Field: "description", Message: "must contain at least one locale"}
	}
	return nil
}

// titleChanged reports whether m gives the article a new title and
// therefore a new slug. Creation always counts as a change.
func (m Mutation) titleChanged(current *models.Article) bool {
	if current == nil {
		return true
	}
	return m.Title != nil && cleanText(*m.Title) != current.Title
}

// transition computes the fields a write must persist. current is nil on
// create. description is the externalized content (nil when m carries
// none) and newSlug is the resolved slug ("" when the title is unchanged).
//
// Create and update both go through here, so the publish rule is always
// evaluated against persisted state.
func transition(current *models.Article, m Mutation, description map[string]string, newSlug string, now time.Time) models.ArticlePatch {
	var patch models.ArticlePatch

	if m.titleChanged(current) {
		title := cleanText(*m.Title)
		patch.Title = &title
		patch.Slug = &newSlug
	}
	if description != nil {
		patch.Description = description
	}
	patch.CoverImage = m.CoverImage
	patch.Author = m.Author
	patch.Tags = normalizeTags(m.Tags)

	var state publish.State
	if current != nil {
		state = publish.State{Published: current.Published, PublishedAt: current.PublishedAt}
	}
	next, changed := publish.Apply(state, m.Published, now)
	if m.Published != nil {
		published := next.Published
		patch.Published = &published
	}
	if changed {
		patch.PublishedAt = &models.TimestampChange{At: next.PublishedAt}
	}

	return patch
}
