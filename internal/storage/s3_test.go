package storage

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedRequest struct {
	method      string
	path        string
	contentType string
	body        []byte
}

func newFakeS3(t *testing.T, status int) (*httptest.Server, *[]recordedRequest) {
	t.Helper()
	var mu sync.Mutex
	var requests []recordedRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		requests = append(requests, recordedRequest{
			method:      r.Method,
			path:        r.URL.Path,
			contentType: r.Header.Get("Content-Type"),
			body:        body,
		})
		mu.Unlock()

		if status >= 300 {
			w.Header().Set("Content-Type", "application/xml")
			w.WriteHeader(status)
			_, _ = io.WriteString(w, `<?xml version="1.0" encoding="UTF-8"?><Error><Code>AccessDenied</Code><Message>Access Denied</Message></Error>`)
			return
		}
		if r.Method == http.MethodPut {
			w.Header().Set("ETag", `"d41d8cd98f00b204e9800998ecf8427e"`)
		}
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)
	return srv, &requests
}

func isolateAWSEnv(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("AWS_CONFIG_FILE", filepath.Join(dir, "config"))
	t.Setenv("AWS_SHARED_CREDENTIALS_FILE", filepath.Join(dir, "credentials"))
	t.Setenv("AWS_PROFILE", "")
	t.Setenv("AWS_EC2_METADATA_DISABLED", "true")
}

func TestS3StorePut(t *testing.T) {
	isolateAWSEnv(t)
	srv, requests := newFakeS3(t, http.StatusOK)

	store, err := NewS3Store(context.Background(), S3Config{
		Region:          "us-east-1",
		Bucket:          "news-media",
		AccessKeyID:     "test",
		SecretAccessKey: "test",
		Endpoint:        srv.URL,
		UsePathStyle:    true,
	})
	require.NoError(t, err)

	url, err := store.Put(context.Background(), "news/abc-123.png", []byte{0, 0, 0}, "image/png")
	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/news-media/news/abc-123.png", url)

	require.Len(t, *requests, 1)
	req := (*requests)[0]
	assert.Equal(t, http.MethodPut, req.method)
	assert.Equal(t, "/news-media/news/abc-123.png", req.path)
	assert.Equal(t, "image/png", req.contentType)
	assert.Equal(t, []byte{0, 0, 0}, req.body)
}

func TestS3StorePutFailure(t *testing.T) {
	isolateAWSEnv(t)
	srv, _ := newFakeS3(t, http.StatusForbidden)

	store, err := NewS3Store(context.Background(), S3Config{
		Bucket:          "news-media",
		AccessKeyID:     "test",
		SecretAccessKey: "test",
		Endpoint:        srv.URL,
		UsePathStyle:    true,
	})
	require.NoError(t, err)

	_, err = store.Put(context.Background(), "news/abc-123.png", []byte{1}, "image/png")
	var storageErr *StorageError
	require.ErrorAs(t, err, &storageErr)
	assert.Equal(t, "s3", storageErr.Backend)
	assert.Equal(t, "put", storageErr.Op)
}

func TestS3StoreDelete(t *testing.T) {
	isolateAWSEnv(t)
	srv, requests := newFakeS3(t, http.StatusNoContent)

	store, err := NewS3Store(context.Background(), S3Config{
		Bucket:          "news-media",
		AccessKeyID:     "test",
		SecretAccessKey: "test",
		Endpoint:        srv.URL,
		UsePathStyle:    true,
	})
	require.NoError(t, err)

	require.NoError(t, store.Delete(context.Background(), "news/abc-123.png"))
	require.Len(t, *requests, 1)
	assert.Equal(t, http.MethodDelete, (*requests)[0].method)
}

func TestNewS3StoreRequiresBucket(t *testing.T) {
	_, err := NewS3Store(context.Background(), S3Config{})
	assert.Error(t, err)
}

func TestPublicBaseURL(t *testing.T) {
	tests := []struct {
		name string
		cfg  S3Config
		want string
	}{
		{"aws default", S3Config{Bucket: "b", Region: "eu-west-1"}, "https://b.s3.eu-west-1.amazonaws.com"},
		{"explicit public url", S3Config{Bucket: "b", PublicBaseURL: "https://cdn.example.com"}, "https://cdn.example.com"},
		{"path style endpoint", S3Config{Bucket: "b", Endpoint: "http://minio:9000/", UsePathStyle: true}, "http://minio:9000/b"},
		{"virtual host endpoint", S3Config{Bucket: "b", Endpoint: "https://acc.r2.cloudflarestorage.com"}, "https://b.acc.r2.cloudflarestorage.com"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, publicBaseURL(tt.cfg))
		})
	}
}
