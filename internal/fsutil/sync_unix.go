//go:build unix

package fsutil

import (
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// SyncDir fsyncs the directory at path.
func SyncDir(path string) error {
	fd, err := unix.Open(path, unix.O_RDONLY|unix.O_DIRECTORY|unix.O_CLOEXEC, 0)
	if err != nil {
		return errors.Wrapf(err, "open directory %s", path)
	}
	defer unix.Close(fd)
	if err := unix.Fsync(fd); err != nil {
		return errors.Wrapf(err, "fsync directory %s", path)
	}
	return nil
}

// Lock takes an exclusive advisory lock on the file at path, creating it
// if needed. It blocks until the lock is available. The returned function
// releases the lock.
func Lock(path string) (func() error, error) {
	fd, err := unix.Open(path, unix.O_RDWR|unix.O_CREAT|unix.O_CLOEXEC, 0o644)
	if err != nil {
		return nil, errors.Wrapf(err, "open lock file %s", path)
	}
	if err := unix.Flock(fd, unix.LOCK_EX); err != nil {
		_ = unix.Close(fd)
		return nil, errors.Wrapf(err, "lock %s", path)
	}
	return func() error {
		if err := unix.Flock(fd, unix.LOCK_UN); err != nil {
			_ = unix.Close(fd)
			return errors.Wrapf(err, "unlock %s", path)
		}
		return unix.Close(fd)
	}, nil
}

// TryLock is Lock without blocking. ErrLocked is returned when another
// holder has the lock.
func TryLock(path string) (func() error, error) {
	fd, err := unix.Open(path, unix.O_RDWR|unix.O_CREAT|unix.O_CLOEXEC, 0o644)
	if err != nil {
		return nil, errors.Wrapf(err, "open lock file %s", path)
	}
	if err := unix.Flock(fd, unix.LOCK_EX|unix.LOCK_NB); err != nil {
		_ = unix.Close(fd)
		if err == unix.EWOULDBLOCK {
			return nil, ErrLocked
		}
		return nil, errors.Wrapf(err, "lock %s", path)
	}
	return func() error {
		if err := unix.Flock(fd, unix.LOCK_UN); err != nil {
			_ = unix.Close(fd)
			return errors.Wrapf(err, "unlock %s", path)
		}
		return unix.Close(fd)
	}, nil
}
