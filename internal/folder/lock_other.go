//go:build !unix

package folder

// Lock is a no-op on platforms without flock.
func (f *Folder) Lock() error { return nil }

// Unlock is a no-op on platforms without flock.
func (f *Folder) Unlock() error { return nil }
