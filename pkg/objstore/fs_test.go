package objstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFSStore_PutExistsDelete(t *testing.T) {
	ctx := context.Background()
	fs := NewFS(t.TempDir(), "https://cdn.example.com/")

	url, err := fs.Put(ctx, "screenshots/paribu/kyc/a-12345678.png", []byte("bytes"), "image/png")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/screenshots/paribu/kyc/a-12345678.png", url)

	ok, err := fs.Exists(ctx, "screenshots/paribu/kyc/a-12345678.png")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = fs.Exists(ctx, "screenshots/paribu/kyc/missing.png")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, fs.Delete(ctx, "screenshots/paribu/kyc/a-12345678.png"))
	ok, err = fs.Exists(ctx, "screenshots/paribu/kyc/a-12345678.png")
	require.NoError(t, err)
	assert.False(t, ok)

	// deleting a missing object is fine
	require.NoError(t, fs.Delete(ctx, "screenshots/paribu/kyc/a-12345678.png"))
}

func TestFSStore_PutOverwrites(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	fs := NewFS(root, "https://cdn.example.com")

	_, err := fs.Put(ctx, "a/b.png", []byte("v1"), "image/png")
	require.NoError(t, err)
	_, err = fs.Put(ctx, "a/b.png", []byte("v2"), "image/png")
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(root, "a", "b.png"))
	require.NoError(t, err)
	assert.Equal(t, "v2", string(data))
}

func TestFSStore_SignedURL(t *testing.T) {
	fs := NewFS(t.TempDir(), "https://cdn.example.com")
	url, err := fs.SignedURL(context.Background(), "a/b.png", time.Hour)
	require.NoError(t, err)
	assert.Contains(t, url, "https://cdn.example.com/a/b.png?expires=")
}
