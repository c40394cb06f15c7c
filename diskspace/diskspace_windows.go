//go:build windows

package diskspace

import (
	"fmt"

	"golang.org/x/sys/windows"
)

// FreeBytes returns the bytes available to the calling user on the volume
// containing path.
func FreeBytes(path string) (uint64, error) {
	ptr, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return 0, fmt.Errorf("invalid path %s: %w", path, err)
	}

	var freeToCaller, total, totalFree uint64
	if err := windows.GetDiskFreeSpaceEx(ptr, &freeToCaller, &total, &totalFree); err != nil {
		return 0, fmt.Errorf("failed to check disk space of %s: %w", path, err)
	}
	return freeToCaller, nil
}
