// Package diskspace reports free capacity of the filesystem holding a path.
package diskspace

import "errors"

// BytesPerGB is the binary gigabyte used for every capacity figure.
const BytesPerGB = 1024 * 1024 * 1024

// ErrUnsupported is returned on platforms without a free-space query.
var ErrUnsupported = errors.New("free space query not supported on this platform")

// FreeSpaceGB returns the space available to the caller on the filesystem
// containing path, in binary gigabytes.
func FreeSpaceGB(path string) (float64, error) {
	free, err := FreeBytes(path)
	if err != nil {
		return 0, err
	}
	return float64(free) / BytesPerGB, nil
}

// Checker adapts FreeSpaceGB to the function shape consumers accept.
type Checker func(path string) (float64, error)

// Default is the platform checker.
var Default Checker = FreeSpaceGB
