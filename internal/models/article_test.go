package models

import (
	"encoding/json"
	"testing"
	"time"
)

func TestArticlePublishedAtField(t *testing.T) {
	// Unpublished articles must not carry published_at on the wire
	now := time.Now()
	article := Article{
		ID:          "test-id",
		Title:       "Test Title",
		Slug:        "test-title",
		Description: map[string]string{"en": `[{"insert":"hi"}]`},
		Tags:        []string{"test", "news"},
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	data, err := json.Marshal(article)
	if err != nil {
		t.Fatalf("Failed to marshal Article: %v", err)
	}

	var result map[string]interface{}
	if err := json.Unmarshal(data, &result); err != nil {
		t.Fatalf("Failed to unmarshal JSON: %v", err)
	}

	if _, ok := result["published_at"]; ok {
		t.Errorf("Expected published_at to be absent, got %v", result["published_at"])
	}
	if result["slug"] != "test-title" {
		t.Errorf("Expected slug field to be 'test-title', got %v", result["slug"])
	}

	article.Published = true
	article.PublishedAt = &now
	data, err = json.Marshal(article)
	if err != nil {
		t.Fatalf("Failed to marshal Article: %v", err)
	}
	result = nil
	if err := json.Unmarshal(data, &result); err != nil {
		t.Fatalf("Failed to unmarshal JSON: %v", err)
	}
	if _, ok := result["published_at"]; !ok {
		t.Error("Expected published_at to be present for a published article")
	}
}

func TestArticlePatchApply(t *testing.T) {
	published := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	cover := "https://cdn.example.com/cover.jpg"
	base := Article{
		Title:       "Old",
		Slug:        "old",
		Published:   true,
		PublishedAt: &published,
		Tags:        []string{"a"},
	}

	got := ArticlePatch{CoverImage: &cover}.Apply(base)
	if got.Slug != "old" || got.PublishedAt == nil || !got.PublishedAt.Equal(published) {
		t.Errorf("cover-only patch changed slug or published_at: %+v", got)
	}
	if got.CoverImage == nil || *got.CoverImage != cover {
		t.Errorf("Expected cover image %q, got %v", cover, got.CoverImage)
	}

	unpublished := false
	got = ArticlePatch{Published: &unpublished, PublishedAt: &TimestampChange{}}.Apply(base)
	if got.Published || got.PublishedAt != nil {
		t.Errorf("Expected unpublished article without published_at, got %+v", got)
	}

	got = ArticlePatch{Tags: []string{}}.Apply(base)
	if len(got.Tags) != 0 {
		t.Errorf("Expected tags to be cleared, got %v", got.Tags)
	}
}

func TestArticlePatchIsEmpty(t *testing.T) {
	if !(ArticlePatch{}).IsEmpty() {
		t.Error("Expected zero patch to be empty")
	}
	title := "x"
	if (ArticlePatch{Title: &title}).IsEmpty() {
		t.Error("Expected patch with title to be non-empty")
	}
}

func TestListQueryNormalize(t *testing.T) {
	q := ListQuery{}.Normalize()
	if q.Page != 1 || q.Limit != 20 {
		t.Errorf("Expected defaults page=1 limit=20, got page=%d limit=%d", q.Page, q.Limit)
	}

	q = ListQuery{Page: 3, Limit: 500}.Normalize()
	if q.Limit != 100 {
		t.Errorf("Expected limit capped at 100, got %d", q.Limit)
	}
	if q.Skip() != 200 {
		t.Errorf("Expected skip 200, got %d", q.Skip())
	}
}
