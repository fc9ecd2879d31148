package store_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/worknest/worknest-go/session/store"
)

func newFileStore(t *testing.T) (*store.FileStore, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "credentials.json")
	fs, err := store.NewFileStore(path)
	require.NoError(t, err)
	return fs, path
}

func TestFileStore_GetAbsentKey(t *testing.T) {
	fs, _ := newFileStore(t)
	assert.Equal(t, "", fs.Get(store.KeyAccessToken))
}

func TestFileStore_SetGetDelete(t *testing.T) {
	fs, _ := newFileStore(t)

	require.NoError(t, fs.Set(store.KeyAccessToken, "t1"))
	assert.Equal(t, "t1", fs.Get(store.KeyAccessToken))

	require.NoError(t, fs.Delete(store.KeyAccessToken))
	assert.Equal(t, "", fs.Get(store.KeyAccessToken))
}

func TestFileStore_SurvivesReopen(t *testing.T) {
	fs, path := newFileStore(t)
	require.NoError(t, fs.Set(store.KeyAccessToken, "t1"))
	require.NoError(t, fs.Set(store.KeyUser, `{"id":"1"}`))

	reopened, err := store.NewFileStore(path)
	require.NoError(t, err)
	assert.Equal(t, "t1", reopened.Get(store.KeyAccessToken))
	assert.Equal(t, `{"id":"1"}`, reopened.Get(store.KeyUser))
}

func TestFileStore_Clear(t *testing.T) {
	fs, path := newFileStore(t)
	require.NoError(t, fs.Set(store.KeyAccessToken, "t1"))
	require.NoError(t, fs.Set(store.KeyRefreshToken, "r1"))

	require.NoError(t, fs.Clear())
	assert.Equal(t, "", fs.Get(store.KeyAccessToken))
	assert.Equal(t, "", fs.Get(store.KeyRefreshToken))

	reopened, err := store.NewFileStore(path)
	require.NoError(t, err)
	assert.Equal(t, "", reopened.Get(store.KeyAccessToken))
}

func TestFileStore_CorruptFileStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.json")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0o600))

	fs, err := store.NewFileStore(path)
	require.NoError(t, err)
	assert.Equal(t, "", fs.Get(store.KeyAccessToken))
}

func TestFileStore_CreatesParentDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "credentials.json")
	fs, err := store.NewFileStore(path)
	require.NoError(t, err)
	require.NoError(t, fs.Set(store.KeyAccessToken, "t1"))

	_, err = os.Stat(path)
	require.NoError(t, err)
}
