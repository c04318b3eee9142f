//go:build !unix

package fsutil

// SyncDir is a no-op where directories cannot be opened for fsync.
func SyncDir(path string) error { return nil }

// Lock is a no-op where flock is unavailable.
func Lock(path string) (func() error, error) {
	return func() error { return nil }, nil
}

// TryLock is a no-op where flock is unavailable.
func TryLock(path string) (func() error, error) {
	return Lock(path)
}
