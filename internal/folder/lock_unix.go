//go:build unix

package folder

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// Lock takes an exclusive advisory lock on the folder directory without blocking.
func (f *Folder) Lock() error {
	if f.lock != nil {
		return nil
	}
	dir, err := os.Open(f.path)
	if err != nil {
		return fmt.Errorf("open storage folder for locking: %w", err)
	}
	if err := unix.Flock(int(dir.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		_ = dir.Close()
		if errors.Is(err, unix.EWOULDBLOCK) {
			return fmt.Errorf("%s: %w", f.path, ErrLocked)
		}
		return fmt.Errorf("lock storage folder: %w", err)
	}
	f.lock = dir
	return nil
}

// Unlock releases the lock taken by Lock. It is a no-op when the folder is not locked.
func (f *Folder) Unlock() error {
	if f.lock == nil {
		return nil
	}
	dir := f.lock
	f.lock = nil
	if err := unix.Flock(int(dir.Fd()), unix.LOCK_UN); err != nil {
		_ = dir.Close()
		return fmt.Errorf("unlock storage folder: %w", err)
	}
	return dir.Close()
}
