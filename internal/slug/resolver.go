package slug

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// DefaultMaxAttempts bounds the numbered-suffix search.
const DefaultMaxAttempts = 1000

// Checker reports whether a slug is already used by an article other than
// excludeID. An empty excludeID excludes nothing.
type Checker interface {
	SlugExists(ctx context.Context, slug, excludeID string) (bool, error)
}

// Resolution is the outcome of a uniqueness search.
type Resolution struct {
	Slug     string
	Attempts int
	// Fallback is set when the suffix search gave up and a timestamp was
	// appended instead. The result is very likely unique but was not checked.
	Fallback bool
}

// Resolver finds a free slug by appending -1, -2, ... to a base slug.
//
// The check and the later write are separate operations, so two concurrent
// writers can still pick the same slug. Callers that need a hard guarantee
// must pair this with a storage level unique constraint and retry.
type Resolver struct {
	checker     Checker
	maxAttempts int
	now         func() time.Time
	log         zerolog.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithMaxAttempts overrides DefaultMaxAttempts.
func WithMaxAttempts(n int) Option {
	return func(r *Resolver) {
		if n > 0 {
			r.maxAttempts = n
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(r *Resolver) { r.now = now }
}

// WithLogger sets the logger used to report fallbacks.
func WithLogger(l zerolog.Logger) Option {
	return func(r *Resolver) { r.log = l }
}

// NewResolver creates a Resolver backed by checker.
func NewResolver(checker Checker, opts ...Option) *Resolver {
	r := &Resolver{
		checker:     checker,
		maxAttempts: DefaultMaxAttempts,
		now:         time.Now,
		log:         zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Generate canonicalizes title and resolves it to a free slug.
func (r *Resolver) Generate(ctx context.Context, title, excludeID string) (Resolution, error) {
	return r.EnsureUnique(ctx, Base(title, r.now()), excludeID)
}

// EnsureUnique returns base if it is free, otherwise the first free
// base-N for N in 1..maxAttempts, otherwise base-<epoch millis>.
func (r *Resolver) EnsureUnique(ctx context.Context, base, excludeID string) (Resolution, error) {
	if base == "" {
		base = Fallback(r.now())
	}

	for n := 0; n <= r.maxAttempts; n++ {
		candidate := base
		if n > 0 {
			candidate = fmt.Sprintf("%s-%d", base, n)
		}

		taken, err := r.checker.SlugExists(ctx, candidate, excludeID)
		if err != nil {
			return Resolution{}, fmt.Errorf("check slug %q: %w", candidate, err)
		}
		if !taken {
			return Resolution{Slug: candidate, Attempts: n + 1}, nil
		}
	}

	fallback := Timestamped(base, r.now())
	r.log.Warn().
		Str("base", base).
		Int("attempts", r.maxAttempts+1).
		Str("slug", fallback).
		Msg("slug suffix search exhausted, using timestamp fallback")

	return Resolution{Slug: fallback, Attempts: r.maxAttempts + 1, Fallback: true}, nil
}
