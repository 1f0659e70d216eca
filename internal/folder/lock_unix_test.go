//go:build unix

package folder

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLock(t *testing.T) {
	p := filepath.Join(t.TempDir(), "test")
	first, err := Open(p, false)
	require.NoError(t, err)
	require.NoError(t, first.Lock(), "relocking the same handle is a no-op")

	_, err = Open(p, false)
	assert.ErrorIs(t, err, ErrLocked)

	require.NoError(t, first.Unlock())
	require.NoError(t, first.Unlock())
	second, err := Open(p, false)
	require.NoError(t, err)
	require.NoError(t, second.Unlock())
}

func TestOpen_LockedFolderUntouched(t *testing.T) {
	p := filepath.Join(t.TempDir(), "test")
	holder, err := Open(p, false)
	require.NoError(t, err)
	defer holder.Unlock()

	// A snapshot write in progress by the holder.
	tmp := holder.IndexFile() + ".tmp"
	touch(t, tmp)
	_, err = Open(p, false)
	require.ErrorIs(t, err, ErrLocked)
	assert.FileExists(t, tmp)

	// A folder mid-create holds only some of its files.
	touch(t, holder.DBFile())
	_, err = Open(p, true)
	require.ErrorIs(t, err, ErrLocked)
	assert.FileExists(t, holder.DBFile())
	assert.FileExists(t, tmp)
}

func TestOpen_ForceKeepsLock(t *testing.T) {
	p := filepath.Join(t.TempDir(), "test")
	require.NoError(t, os.Mkdir(p, 0755))
	touch(t, filepath.Join(p, "foo"))

	f, err := Open(p, true)
	require.NoError(t, err)
	defer f.Unlock()
	assert.NoFileExists(t, filepath.Join(p, "foo"))

	_, err = Open(p, false)
	assert.ErrorIs(t, err, ErrLocked, "emptying the folder must not drop the lock")
}
