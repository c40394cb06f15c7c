package diskspace

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// FreeBytes returns the bytes available to unprivileged users on the
// filesystem containing path.
func FreeBytes(path string) (uint64, error) {
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return 0, fmt.Errorf("failed to check disk space of %s: %w", path, err)
	}
	if stat.F_bavail < 0 {
		return 0, nil
	}
	return uint64(stat.F_bavail) * uint64(stat.F_bsize), nil
}
