// Package fsutil holds the small set of file system primitives the
// installer builds on. Rename is the commit primitive; everything else is
// housekeeping around it.
package fsutil

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// Exists reports whether path exists. Errors other than "not exist" are
// returned so callers do not mistake an unreadable slot for an empty one.
func Exists(path string) (bool, error) {
	_, err := os.Lstat(path)
	switch {
	case err == nil:
		return true, nil
	case os.IsNotExist(err):
		return false, nil
	default:
		return false, errors.Wrapf(err, "stat %s", path)
	}
}

// Rename renames oldpath to newpath with rename(2). Both paths must be on
// the same file system for the rename to be atomic.
func Rename(oldpath, newpath string) error {
	if err := os.Rename(oldpath, newpath); err != nil {
		return errors.Wrapf(err, "rename %s to %s", oldpath, newpath)
	}
	return nil
}

// RemoveAll removes path and everything below it. A missing path is not
// an error.
func RemoveAll(path string) error {
	if err := os.RemoveAll(path); err != nil {
		return errors.Wrapf(err, "remove %s", path)
	}
	return nil
}

// WriteFile writes data to path and flushes it to stable storage before
// returning.
func WriteFile(path string, data []byte, perm os.FileMode) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return errors.Wrapf(err, "create %s", path)
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return errors.Wrapf(err, "write %s", path)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return errors.Wrapf(err, "sync %s", path)
	}
	if err := f.Close(); err != nil {
		return errors.Wrapf(err, "close %s", path)
	}
	return nil
}

// SyncParent flushes the directory entry of path, making a preceding
// create or rename of path durable.
func SyncParent(path string) error {
	return SyncDir(filepath.Dir(path))
}
