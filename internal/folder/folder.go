// Package folder manages the directory that holds a database: one SQLite file and one index
// snapshot, both named after the directory.
package folder

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hyperjump/naan/pkg/vector"
)

const (
	dbExt    = ".db"
	indexExt = ".faiss"
)

var (
	// ErrNotADirectory is returned when the path exists but is not a directory.
	ErrNotADirectory = errors.New("path exists and is not a directory")
	// ErrDirectoryNotEmpty is returned when the directory holds files that are not a database.
	ErrDirectoryNotEmpty = errors.New("directory not empty and not a naan database")
	// ErrLocked is returned by Lock when another handle holds the folder.
	ErrLocked = errors.New("storage folder is locked by another process")
)

// sqliteSidecars are the files SQLite may keep next to the database for crash recovery.
var sqliteSidecars = []string{"-journal", "-wal", "-shm"}

// Folder is a storage directory. Its content is either empty or exactly the database file
// and the index file (plus SQLite sidecars of the database file).
type Folder struct {
	path      string
	name      string
	dbFile    string
	indexFile string

	lock *os.File
}

// Open prepares the directory at path, creating it when missing, and returns it locked. The
// lock is taken before anything in the directory is removed, so a folder held by another
// handle fails with ErrLocked untouched. A directory that holds anything other than a
// database fails with ErrDirectoryNotEmpty, unless force is set, in which case it is emptied.
func Open(path string, force bool) (*Folder, error) {
	if path == "" {
		return nil, fmt.Errorf("storage path is empty")
	}
	path = filepath.Clean(path)

	info, err := os.Stat(path)
	switch {
	case err == nil && !info.IsDir():
		return nil, fmt.Errorf("%s: %w", path, ErrNotADirectory)
	case err != nil && !errors.Is(err, os.ErrNotExist):
		return nil, fmt.Errorf("stat storage folder: %w", err)
	}
	if err := os.MkdirAll(path, 0755); err != nil {
		return nil, fmt.Errorf("create storage folder: %w", err)
	}

	name := filepath.Base(path)
	f := &Folder{
		path:      path,
		name:      name,
		dbFile:    filepath.Join(path, name+dbExt),
		indexFile: filepath.Join(path, name+indexExt),
	}

	if err := f.Lock(); err != nil {
		return nil, err
	}
	if err := f.prepare(force); err != nil {
		_ = f.Unlock()
		return nil, err
	}
	return f, nil
}

// prepare clears snapshot residue and, with force, anything that is not a database. The
// folder must be locked.
func (f *Folder) prepare(force bool) error {
	// A snapshot rewrite interrupted before its rename leaves this behind.
	if err := os.Remove(f.indexFile + vector.SnapshotTempSuffix); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove stale snapshot: %w", err)
	}

	entries, err := os.ReadDir(f.path)
	if err != nil {
		return fmt.Errorf("read storage folder: %w", err)
	}
	if len(entries) == 0 {
		return nil
	}
	ready, err := f.Ready()
	if err != nil || ready {
		return err
	}
	if !force {
		return fmt.Errorf("%s: %w", f.path, ErrDirectoryNotEmpty)
	}
	// The directory itself stays: the lock is held on it.
	for _, e := range entries {
		if err := os.RemoveAll(filepath.Join(f.path, e.Name())); err != nil {
			return fmt.Errorf("empty storage folder: %w", err)
		}
	}
	return nil
}

// Ready reports whether the folder holds exactly the database file and the index file,
// ignoring SQLite sidecars of the database file.
func (f *Folder) Ready() (bool, error) {
	entries, err := os.ReadDir(f.path)
	if err != nil {
		return false, fmt.Errorf("read storage folder: %w", err)
	}
	dbName := filepath.Base(f.dbFile)
	indexName := filepath.Base(f.indexFile)
	var haveDB, haveIndex bool
	for _, e := range entries {
		switch n := e.Name(); {
		case n == dbName:
			haveDB = true
		case n == indexName:
			haveIndex = true
		case isSidecar(n, dbName):
		default:
			return false, nil
		}
	}
	return haveDB && haveIndex, nil
}

func isSidecar(name, dbName string) bool {
	if !strings.HasPrefix(name, dbName) {
		return false
	}
	suffix := name[len(dbName):]
	for _, s := range sqliteSidecars {
		if suffix == s {
			return true
		}
	}
	return false
}

// Path returns the folder path.
func (f *Folder) Path() string { return f.path }

// Name returns the folder's base name, which also names its files.
func (f *Folder) Name() string { return f.name }

// DBFile returns the path of the SQLite metadata file.
func (f *Folder) DBFile() string { return f.dbFile }

// IndexFile returns the path of the index snapshot.
func (f *Folder) IndexFile() string { return f.indexFile }

// Remove deletes the whole folder and releases the lock.
func (f *Folder) Remove() error {
	if err := os.RemoveAll(f.path); err != nil {
		return errors.Join(fmt.Errorf("remove storage folder: %w", err), f.Unlock())
	}
	return f.Unlock()
}
