package folder

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte("test"), 0644))
}

func TestOpen_Defaults(t *testing.T) {
	root := t.TempDir()
	f, err := Open(filepath.Join(root, "test"), false)
	require.NoError(t, err)

	assert.Equal(t, "test", f.Name())
	assert.Equal(t, filepath.Join(root, "test"), f.Path())
	assert.Equal(t, "test.db", filepath.Base(f.DBFile()))
	assert.Equal(t, "test.faiss", filepath.Base(f.IndexFile()))
	assert.DirExists(t, f.Path())
}

func TestOpen_CreatesParents(t *testing.T) {
	f, err := Open(filepath.Join(t.TempDir(), "a", "b", "docs"), false)
	require.NoError(t, err)
	assert.DirExists(t, f.Path())
}

func TestOpen_PathIsFile(t *testing.T) {
	p := filepath.Join(t.TempDir(), "test")
	touch(t, p)

	_, err := Open(p, false)
	assert.ErrorIs(t, err, ErrNotADirectory)

	_, err = Open(p, true)
	assert.ErrorIs(t, err, ErrNotADirectory, "force must not replace a regular file")
}

func TestOpen_EmptyExistingFolder(t *testing.T) {
	p := filepath.Join(t.TempDir(), "test")
	require.NoError(t, os.Mkdir(p, 0755))

	f, err := Open(p, false)
	require.NoError(t, err)
	assert.Equal(t, "test.db", filepath.Base(f.DBFile()))
}

func TestOpen_NotEmpty(t *testing.T) {
	p := filepath.Join(t.TempDir(), "test")
	require.NoError(t, os.Mkdir(p, 0755))
	touch(t, filepath.Join(p, "foo"))

	_, err := Open(p, false)
	assert.ErrorIs(t, err, ErrDirectoryNotEmpty)
	assert.FileExists(t, filepath.Join(p, "foo"))
	// A failed open releases the lock, so force can proceed.

	f, err := Open(p, true)
	require.NoError(t, err)
	entries, err := os.ReadDir(f.Path())
	require.NoError(t, err)
	assert.Empty(t, entries, "forced open should leave an empty folder")
}

func TestOpen_ReadyFolderKeptWithForce(t *testing.T) {
	p := filepath.Join(t.TempDir(), "test")
	require.NoError(t, os.Mkdir(p, 0755))
	touch(t, filepath.Join(p, "test.db"))
	touch(t, filepath.Join(p, "test.faiss"))

	f, err := Open(p, true)
	require.NoError(t, err)
	ready, err := f.Ready()
	require.NoError(t, err)
	assert.True(t, ready)
}

func TestReady(t *testing.T) {
	f, err := Open(filepath.Join(t.TempDir(), "test"), false)
	require.NoError(t, err)

	ready, err := f.Ready()
	require.NoError(t, err)
	assert.False(t, ready)

	touch(t, f.IndexFile())
	ready, _ = f.Ready()
	assert.False(t, ready)

	touch(t, f.DBFile())
	ready, _ = f.Ready()
	assert.True(t, ready)

	touch(t, f.DBFile()+"-journal")
	ready, _ = f.Ready()
	assert.True(t, ready, "SQLite sidecars are tolerated")

	touch(t, filepath.Join(f.Path(), "notes.txt"))
	ready, _ = f.Ready()
	assert.False(t, ready)
}

func TestOpen_RemovesSnapshotResidue(t *testing.T) {
	p := filepath.Join(t.TempDir(), "test")
	require.NoError(t, os.Mkdir(p, 0755))
	touch(t, filepath.Join(p, "test.db"))
	touch(t, filepath.Join(p, "test.faiss"))
	touch(t, filepath.Join(p, "test.faiss.tmp"))

	f, err := Open(p, false)
	require.NoError(t, err)
	assert.NoFileExists(t, f.IndexFile()+".tmp")
	ready, _ := f.Ready()
	assert.True(t, ready)
}

func TestRemove(t *testing.T) {
	f, err := Open(filepath.Join(t.TempDir(), "test"), false)
	require.NoError(t, err)
	touch(t, f.DBFile())

	require.NoError(t, f.Remove())
	assert.NoDirExists(t, f.Path())

	again, err := Open(f.Path(), false)
	require.NoError(t, err, "a removed folder is unlocked")
	require.NoError(t, again.Unlock())
}
