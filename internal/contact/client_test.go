package contact

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bilgisen/newsdesk/internal/models"
)

var submission = models.ContactRequest{
	Name:    "Ada",
	Email:   "ada@example.com",
	Message: "Hello there",
}

func TestSubmitSuccess(t *testing.T) {
	var got models.ContactRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &got))
		_, _ = io.WriteString(w, `{"status":"success"}`)
	}))
	defer srv.Close()

	c := NewClient(Config{URL: srv.URL})
	require.NoError(t, c.Submit(context.Background(), submission))
	assert.Equal(t, submission, got)
}

func TestSubmitRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"status":"error","message":"sheet is full"}`)
	}))
	defer srv.Close()

	err := NewClient(Config{URL: srv.URL}).Submit(context.Background(), submission)
	var webhookErr *WebhookError
	require.ErrorAs(t, err, &webhookErr)
	assert.Equal(t, "sheet is full", webhookErr.Message)
	assert.Equal(t, http.StatusOK, webhookErr.StatusCode)
}

func TestSubmitUnreadableResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = io.WriteString(w, `<html>bad gateway</html>`)
	}))
	defer srv.Close()

	err := NewClient(Config{URL: srv.URL}).Submit(context.Background(), submission)
	var webhookErr *WebhookError
	require.ErrorAs(t, err, &webhookErr)
	assert.Equal(t, http.StatusBadGateway, webhookErr.StatusCode)
}

func TestSubmitRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = io.WriteString(w, `{"status":"success"}`)
	}))
	defer srv.Close()

	c := NewClient(Config{URL: srv.URL, RetryCount: 2, RetryWait: time.Millisecond})
	require.NoError(t, c.Submit(context.Background(), submission))
	assert.Equal(t, int32(2), calls.Load())
}

func TestSubmitNotConfigured(t *testing.T) {
	err := NewClient(Config{}).Submit(context.Background(), submission)
	assert.ErrorIs(t, err, ErrNotConfigured)
}
