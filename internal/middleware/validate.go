package middleware

import (
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/bilgisen/newsdesk/internal/contact"
	"github.com/bilgisen/newsdesk/internal/logger"
	"github.com/bilgisen/newsdesk/internal/news"
)

const validatedKey = "validated"

// Validator is a struct that holds the validator instance
type Validator struct {
	validate *validator.Validate
}

// NewValidator creates a new validator instance
func NewValidator() *Validator {
	return &Validator{validate: validator.New(validator.WithRequiredStructEnabled())}
}

// Validate validates the request body against the provided struct
func (v *Validator) Validate(s interface{}) error {
	return v.validate.Struct(s)
}

// fieldErrors flattens validator errors into field -> failed tag.
func fieldErrors(err error) map[string]string {
	out := make(map[string]string)
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			out[fe.Field()] = fe.Tag()
		}
	}
	return out
}

// ValidateBody parses the JSON body into a fresh T per request, validates it
// and stores it for Validated. An empty body is treated as {}.
func ValidateBody[T any]() fiber.Handler {
	v := NewValidator()

	return func(c *fiber.Ctx) error {
		dst := new(T)

		if len(c.Body()) > 0 {
			if err := c.BodyParser(dst); err != nil {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": "Invalid request body",
					"msg":   err.Error(),
				})
			}
		}

		if err := v.Validate(dst); err != nil {
			return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
				"error":  "Validation failed",
				"fields": fieldErrors(err),
			})
		}

		c.Locals(validatedKey, dst)

		return c.Next()
	}
}

// ValidateQueryParams is ValidateBody for query parameters.
func ValidateQueryParams[T any]() fiber.Handler {
	v := NewValidator()

	return func(c *fiber.Ctx) error {
		dst := new(T)

		if err := c.QueryParser(dst); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid query parameters",
				"msg":   err.Error(),
			})
		}

		if err := v.Validate(dst); err != nil {
			return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
				"error":  "Invalid query parameters",
				"fields": fieldErrors(err),
			})
		}

		c.Locals(validatedKey, dst)

		return c.Next()
	}
}

// Validated returns the value stored by ValidateBody or ValidateQueryParams.
func Validated[T any](c *fiber.Ctx) *T {
	v, ok := c.Locals(validatedKey).(*T)
	if !ok {
		return new(T)
	}
	return v
}

// StatusFor maps an error returned by a handler to an HTTP status code.
func StatusFor(err error) int {
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return fiberErr.Code
	}

	var webhookErr *contact.WebhookError
	switch {
	case errors.Is(err, contact.ErrNotConfigured):
		return fiber.StatusServiceUnavailable
	case errors.As(err, &webhookErr):
		return fiber.StatusBadGateway
	}

	switch news.Classify(err) {
	case news.KindValidation:
		return fiber.StatusUnprocessableEntity
	case news.KindNotFound:
		return fiber.StatusNotFound
	case news.KindConflict:
		return fiber.StatusConflict
	case news.KindUpstream:
		return fiber.StatusBadGateway
	case news.KindCanceled:
		return fiber.StatusRequestTimeout
	default:
		return fiber.StatusInternalServerError
	}
}

// ErrorHandler is a middleware that handles errors in a consistent way
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := StatusFor(err)

	event := logger.Get().Warn()
	if code >= fiber.StatusInternalServerError {
		event = logger.Get().Error()
	}
	event.
		Err(err).
		Str("method", c.Method()).
		Str("path", c.Path()).
		Int("status", code).
		Msg("HTTP error")

	body := fiber.Map{
		"error": http.StatusText(code),
	}

	// Client errors carry their reason; server errors stay opaque.
	if code < fiber.StatusInternalServerError {
		body["message"] = err.Error()
		var verr *news.ValidationError
		if errors.As(err, &verr) && verr.Field != "" {
			body["fields"] = map[string]string{verr.Field: verr.Message}
		}
	}

	return c.Status(code).JSON(body)
}
