package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStore(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStore(filepath.Join(dir, "media"), "http://localhost:8080/media/")
	require.NoError(t, err)
	ctx := context.Background()
	key := "news/1234-abcd.png"
	data := []byte{0x89, 'P', 'N', 'G'}

	t.Run("Put", func(t *testing.T) {
		url, err := store.Put(ctx, key, data, "image/png")
		require.NoError(t, err)
		assert.Equal(t, "http://localhost:8080/media/news/1234-abcd.png", url)

		onDisk, err := os.ReadFile(filepath.Join(dir, "media", "news", "1234-abcd.png"))
		require.NoError(t, err)
		assert.Equal(t, data, onDisk)
	})


	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Delete(ctx, key))
		_, err := os.Stat(filepath.Join(dir, "media", "news", "1234-abcd.png"))
		assert.ErrorIs(t, err, os.ErrNotExist)

		// deleting twice is fine
		assert.NoError(t, store.Delete(ctx, key))
	})
}

func TestLocalStoreRejectsEscapingKeys(t *testing.T) {
	store, err := NewLocalStore(t.TempDir(), "http://localhost/media")
	require.NoError(t, err)

	for _, key := range []string{"", "/etc/passwd", "news/../../secret", "news//x.png", "./x.png"} {
		_, err := store.Put(context.Background(), key, []byte("x"), "text/plain")
		var storageErr *StorageError
		assert.ErrorAs(t, err, &storageErr, "key %q", key)
	}
}

func TestLocalStoreCancelledContext(t *testing.T) {
	store, err := NewLocalStore(t.TempDir(), "http://localhost/media")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = store.Put(ctx, "news/x.png", []byte("x"), "image/png")
	assert.ErrorIs(t, err, context.Canceled)
}
