package diskspace

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// FreeBytes returns the bytes available to unprivileged users on the
// filesystem containing path. NetBSD only exposes statvfs, counted in
// fragment-size units.
func FreeBytes(path string) (uint64, error) {
	var stat unix.Statvfs_t
	if err := unix.Statvfs(path, &stat); err != nil {
		return 0, fmt.Errorf("failed to check disk space of %s: %w", path, err)
	}
	return uint64(stat.Bavail) * uint64(stat.Frsize), nil
}
