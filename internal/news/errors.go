package news

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotFound is returned for any operation on a missing article.
var ErrNotFound = errors.New("article not found")

// ErrSlugConflict is returned when a slug could not be committed after
// repeated collisions with concurrent writers.
var ErrSlugConflict = errors.New("slug conflict")

// ValidationError reports caller input the service refuses.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	msg := e.Message
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	if e.Field == "" {
		return "validation failed: " + msg
	}
	return fmt.Sprintf("validation failed on %s: %s", e.Field, msg)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// UpstreamError reports a failed dependency (blob store or repository).
type UpstreamError struct {
	Op  string
	Err error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// Kind is the caller-facing category of an error.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindNotFound
	KindConflict
	KindUpstream
	KindCanceled
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindUpstream:
		return "upstream"
	case KindCanceled:
		return "canceled"
	default:
		return "internal"
	}
}

// Classify maps err onto a Kind.
func Classify(err error) Kind {
	var (
		validationErr *ValidationError
		upstreamErr   *UpstreamError
	)
	switch {
	case err == nil:
		return KindInternal
	case errors.As(err, &validationErr):
		return KindValidation
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrSlugConflict):
		return KindConflict
	case errors.Is(err, context.Canceled):
		return KindCanceled
	case errors.As(err, &upstreamErr), errors.Is(err, context.DeadlineExceeded):
		return KindUpstream
	default:
		return KindInternal
	}
}
