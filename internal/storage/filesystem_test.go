package storage

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStageOpenRemove(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	staged, err := store.Stage(context.Background(), "avatar.PNG", strings.NewReader("pixels"), 1024)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(staged.Key, ".png"))
	assert.EqualValues(t, 6, staged.Size)

	f, err := store.Open(staged.Key)
	require.NoError(t, err)
	buf := make([]byte, 6)
	_, err = f.Read(buf)
	require.NoError(t, err)
	require.NoError(t, f.Close())
	assert.Equal(t, "pixels", string(buf))

	require.NoError(t, store.Remove(staged.Key))
	_, err = os.Stat(staged.Path)
	assert.True(t, os.IsNotExist(err))
	assert.NoError(t, store.Remove(staged.Key), "second remove is a no-op")
}

func TestStageTooLarge(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir)
	require.NoError(t, err)

	_, err = store.Stage(context.Background(), "big.jpg", strings.NewReader("0123456789"), 4)
	assert.ErrorIs(t, err, ErrTooLarge)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "oversized upload must not be left behind")
}

func TestStageCanceled(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = store.Stage(ctx, "a.png", strings.NewReader("x"), 0)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSanitizeKey(t *testing.T) {
	cases := map[string]bool{
		"abc.png":       true,
		"./abc.png":     true,
		"/abc.png":      true,
		"../etc/passwd": false,
		"..":            false,
		"":              false,
		"a/../../b":     false,
	}
	for in, ok := range cases {
		_, err := sanitizeKey(in)
		if ok {
			assert.NoError(t, err, in)
		} else {
			assert.ErrorIs(t, err, ErrInvalidKey, in)
		}
	}
}

func TestNewFileStoreRequiresPath(t *testing.T) {
	_, err := NewFileStore("  ")
	assert.Error(t, err)
}
