package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// BlobStore is a durable blob store that hands out public URLs.
type BlobStore interface {
	// Put stores data under key and returns a stable public URL for it.
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
	// Delete removes the blob stored under key.
	Delete(ctx context.Context, key string) error
}

// StorageError represents an error related to storage operations
type StorageError struct {
	Backend string
	Key     string
	Op      string
	Err     error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage operation %s failed for key %s on backend %s: %v", e.Op, e.Key, e.Backend, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// validKey rejects keys that would escape the store's namespace.
func validKey(key string) error {
	if key == "" {
		return errors.New("empty object key")
	}
	if strings.HasPrefix(key, "/") {
		return fmt.Errorf("object key %q must be relative", key)
	}
	for _, part := range strings.Split(key, "/") {
		if part == ".." || part == "." || part == "" {
			return fmt.Errorf("object key %q has an invalid segment", key)
		}
	}
	return nil
}

// joinURL appends key to base with exactly one slash between them.
func joinURL(base, key string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(key, "/")
}
