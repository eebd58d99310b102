// Package publish keeps an article's published_at timestamp consistent with
// its published flag.
package publish

import "time"

// State is the publish-related part of an article. The zero value is the
// state of a document that has not been written yet.
type State struct {
	Published   bool
	PublishedAt *time.Time
}

// Apply computes the state after a write that requests published=*requested.
// A nil request leaves the state untouched. changed reports whether
// PublishedAt differs from current and therefore has to be written together
// with the flag.
//
// An existing first-publish timestamp is never replaced. Unpublishing clears
// it, so "never published" and "unpublished" are indistinguishable afterwards.
func Apply(current State, requested *bool, now time.Time) (next State, changed bool) {
	if requested == nil {
		return current, false
	}

	next = current
	next.Published = *requested

	switch {
	case *requested && current.PublishedAt == nil:
		t := now.UTC()
		next.PublishedAt = &t
	case !*requested:
		next.PublishedAt = nil
	}

	return next, !sameTime(current.PublishedAt, next.PublishedAt)
}

func sameTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}
