package fsutil

import "github.com/pkg/errors"

// ErrLocked is returned by TryLock when the lock is held elsewhere.
var ErrLocked = errors.New("lock held by another process")
