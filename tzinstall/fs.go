package tzinstall

import (
	"github.com/ngrash/go-tzupdate/internal/fsutil"
)

// FS is the set of file system mutations the installer performs on its
// slot directories. Tests substitute it to inject failures.
type FS interface {
	Rename(oldpath, newpath string) error
	RemoveAll(path string) error
	SyncDir(path string) error
}

type osFS struct{}

func (osFS) Rename(oldpath, newpath string) error { return fsutil.Rename(oldpath, newpath) }
func (osFS) RemoveAll(path string) error          { return fsutil.RemoveAll(path) }
func (osFS) SyncDir(path string) error            { return fsutil.SyncDir(path) }
