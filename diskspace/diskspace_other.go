//go:build !linux && !darwin && !freebsd && !netbsd && !openbsd && !dragonfly && !windows

package diskspace

// FreeBytes is not available on this platform.
func FreeBytes(path string) (uint64, error) {
	return 0, ErrUnsupported
}
