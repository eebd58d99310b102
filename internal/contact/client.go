// Package contact forwards contact form submissions to a webhook (typically
// a spreadsheet script endpoint).
package contact

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/bilgisen/newsdesk/internal/models"
)

const statusSuccess = "success"

// ErrNotConfigured is returned when no webhook URL is set.
var ErrNotConfigured = errors.New("contact webhook not configured")

// WebhookError is a rejected or unreadable webhook response.
type WebhookError struct {
	StatusCode int
	Message    string
}

func (e *WebhookError) Error() string {
	return fmt.Sprintf("contact webhook rejected submission (status %d): %s", e.StatusCode, e.Message)
}

// Config options for the webhook client
type Config struct {
	URL        string
	Timeout    time.Duration
	RetryCount int
	RetryWait  time.Duration
}

type webhookResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// Client posts submissions to the webhook.
type Client struct {
	client *resty.Client
	url    string
}

// NewClient creates a Client. Zero Timeout and RetryWait values get defaults.
func NewClient(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.RetryWait <= 0 {
		cfg.RetryWait = 2 * time.Second
	}

	return &Client{
		url: cfg.URL,
		client: resty.New().
			SetTimeout(cfg.Timeout).
			SetRetryCount(cfg.RetryCount).
			SetRetryWaitTime(cfg.RetryWait).
			SetRetryMaxWaitTime(5 * cfg.RetryWait).
			AddRetryCondition(func(r *resty.Response, err error) bool {
				return err != nil || r.StatusCode() >= http.StatusInternalServerError
			}),
	}
}

// Submit forwards req and succeeds only when the webhook answers
// {"status":"success"}.
func (c *Client) Submit(ctx context.Context, req models.ContactRequest) error {
	if c.url == "" {
		return ErrNotConfigured
	}

	resp, err := c.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetBody(req).
		Post(c.url)
	if err != nil {
		return fmt.Errorf("failed to post contact submission: %w", err)
	}

	var body webhookResponse
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		return &WebhookError{StatusCode: resp.StatusCode(), Message: "unreadable response"}
	}
	if body.Status != statusSuccess {
		msg := body.Message
		if msg == "" {
			msg = "failed to submit contact form"
		}
		return &WebhookError{StatusCode: resp.StatusCode(), Message: msg}
	}
	return nil
}
