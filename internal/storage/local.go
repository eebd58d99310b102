package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

const localBackend = "local"

// LocalStore keeps blobs on the local filesystem and serves them from a base
// URL, for development and single-node deployments.
type LocalStore struct {
	basePath string
	baseURL  string
	mu       sync.RWMutex
}

// NewLocalStore creates the base directory if needed.
func NewLocalStore(basePath, baseURL string) (*LocalStore, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	return &LocalStore{
		basePath: basePath,
		baseURL:  baseURL,
	}, nil
}

// BasePath returns the directory blobs are written to.
func (s *LocalStore) BasePath() string {
	return s.basePath
}

// Put writes data to <basePath>/<key> and returns <baseURL>/<key>.
func (s *LocalStore) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	default:
	}

	if err := validKey(key); err != nil {
		return "", &StorageError{Backend: localBackend, Key: key, Op: "put", Err: err}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	path := filepath.Join(s.basePath, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", &StorageError{Backend: localBackend, Key: key, Op: "put", Err: err}
	}

	// Write to a temp file first so readers never see a partial blob
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return "", &StorageError{Backend: localBackend, Key: key, Op: "put", Err: err}
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return "", &StorageError{Backend: localBackend, Key: key, Op: "put", Err: err}
	}

	return joinURL(s.baseURL, key), nil
}

// Delete removes a stored blob. Deleting a missing blob is not an error.
func (s *LocalStore) Delete(ctx context.Context, key string) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if err := validKey(key); err != nil {
		return &StorageError{Backend: localBackend, Key: key, Op: "delete", Err: err}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(filepath.Join(s.basePath, filepath.FromSlash(key)))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return &StorageError{Backend: localBackend, Key: key, Op: "delete", Err: err}
	}
	return nil
}
