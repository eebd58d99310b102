package middleware

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bilgisen/newsdesk/internal/contact"
	"github.com/bilgisen/newsdesk/internal/news"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fiber.ErrMethodNotAllowed, http.StatusMethodNotAllowed},
		{&news.ValidationError{Field: "title", Message: "is required"}, http.StatusUnprocessableEntity},
		{fmt.Errorf("get: %w", news.ErrNotFound), http.StatusNotFound},
		{fmt.Errorf("%w: x", news.ErrSlugConflict), http.StatusConflict},
		{&news.UpstreamError{Op: "save article", Err: errors.New("down")}, http.StatusBadGateway},
		{context.Canceled, http.StatusRequestTimeout},
		{&contact.WebhookError{StatusCode: 200, Message: "no"}, http.StatusBadGateway},
		{contact.ErrNotConfigured, http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, StatusFor(tt.err), "%v", tt.err)
	}
}

type payload struct {
	Name string `json:"name" validate:"required"`
}

func TestValidateBody(t *testing.T) {
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	app.Post("/", ValidateBody[payload](), func(c *fiber.Ctx) error {
		return c.SendString(Validated[payload](c).Name)
	})

	send := func(body string) *http.Response {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		resp, err := app.Test(req, -1)
		require.NoError(t, err)
		return resp
	}

	assert.Equal(t, http.StatusOK, send(`{"name":"ada"}`).StatusCode)
	assert.Equal(t, http.StatusUnprocessableEntity, send(`{}`).StatusCode)
	assert.Equal(t, http.StatusBadRequest, send(`{"name":`).StatusCode)
}

func TestErrorHandlerHidesServerErrors(t *testing.T) {
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	app.Get("/", func(c *fiber.Ctx) error {
		return errors.New("secret dsn leaked")
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.NotContains(t, string(body), "secret")
}
