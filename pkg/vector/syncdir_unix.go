//go:build unix

package vector

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// syncDir flushes the directory entry so a rename survives a crash.
func syncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return fmt.Errorf("open snapshot dir: %w", err)
	}
	defer d.Close()
	if err := unix.Fsync(int(d.Fd())); err != nil {
		return fmt.Errorf("sync snapshot dir: %w", err)
	}
	return nil
}
