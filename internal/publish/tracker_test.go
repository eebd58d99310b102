package publish

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func boolPtr(b bool) *bool { return &b }

func TestApply(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	first := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)

	tests := []struct {
		name        string
		current     State
		requested   *bool
		wantPub     bool
		wantAt      *time.Time
		wantChanged bool
	}{
		{
			name:      "no request leaves state",
			current:   State{Published: true, PublishedAt: &first},
			requested: nil,
			wantPub:   true,
			wantAt:    &first,
		},
		{
			name:        "create as published",
			current:     State{},
			requested:   boolPtr(true),
			wantPub:     true,
			wantAt:      &now,
			wantChanged: true,
		},
		{
			name:      "create as draft",
			current:   State{},
			requested: boolPtr(false),
			wantPub:   false,
		},
		{
			name:        "publish draft",
			current:     State{Published: false},
			requested:   boolPtr(true),
			wantPub:     true,
			wantAt:      &now,
			wantChanged: true,
		},
		{
			name:      "republish keeps first timestamp",
			current:   State{Published: true, PublishedAt: &first},
			requested: boolPtr(true),
			wantPub:   true,
			wantAt:    &first,
		},
		{
			name:        "unpublish clears timestamp",
			current:     State{Published: true, PublishedAt: &first},
			requested:   boolPtr(false),
			wantPub:     false,
			wantChanged: true,
		},
		{
			name:      "unpublish draft is a no-op",
			current:   State{Published: false},
			requested: boolPtr(false),
			wantPub:   false,
		},
		{
			name:        "published without timestamp is repaired",
			current:     State{Published: true},
			requested:   boolPtr(true),
			wantPub:     true,
			wantAt:      &now,
			wantChanged: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next, changed := Apply(tt.current, tt.requested, now)

			assert.Equal(t, tt.wantPub, next.Published)
			assert.Equal(t, tt.wantChanged, changed)
			if tt.wantAt == nil {
				assert.Nil(t, next.PublishedAt)
				return
			}
			require.NotNil(t, next.PublishedAt)
			assert.True(t, tt.wantAt.Equal(*next.PublishedAt), "got %v want %v", next.PublishedAt, tt.wantAt)
		})
	}
}

func TestApplyInvariant(t *testing.T) {
	now := time.Now()
	states := []State{{}, {Published: true, PublishedAt: &now}, {Published: false}}

	for _, s := range states {
		for _, req := range []*bool{nil, boolPtr(true), boolPtr(false)} {
			next, _ := Apply(s, req, now)
			if req != nil {
				assert.Equal(t, next.Published, next.PublishedAt != nil, "published_at must be present iff published")
			}
		}
	}
}
