// Package filesys abstracts the few file system calls cepr makes so the
// config loader and writer can be tested without touching disk.
package filesys

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"go.uber.org/multierr"
)

// ReadFS is what the config loader needs.
type ReadFS interface {
	Stat(string) (fs.FileInfo, error)
	ReadFile(string) ([]byte, error)
}

// FileOps is what AtomicWrite needs.
type FileOps interface {
	Open(string) (*os.File, error)
	MkdirAll(string, os.FileMode) error
	CreateTemp(string, string) (*os.File, error)
	Rename(string, string) error
	Remove(string) error
	Chmod(string, os.FileMode) error
}

// FS is the union used by config.FSProvider.
type FS interface {
	ReadFS
	FileOps
}

// OS returns an FS that delegates to the standard library.
func OS() OsFS {
	return OsFS{}
}

// OsFS implements FS against the local disk.
type OsFS struct{}

func (OsFS) Stat(p string) (fs.FileInfo, error)           { return os.Stat(p) }
func (OsFS) ReadFile(p string) ([]byte, error)            { return os.ReadFile(p) }
func (OsFS) Open(p string) (*os.File, error)              { return os.Open(p) }
func (OsFS) MkdirAll(p string, m os.FileMode) error       { return os.MkdirAll(p, m) }
func (OsFS) CreateTemp(dir, pat string) (*os.File, error) { return os.CreateTemp(dir, pat) }
func (OsFS) Rename(oldPath, newPath string) error         { return os.Rename(oldPath, newPath) }
func (OsFS) Remove(p string) error                        { return os.Remove(p) }
func (OsFS) Chmod(p string, m os.FileMode) error          { return os.Chmod(p, m) }

var _ FS = OsFS{}

// AtomicWrite persists data to dst with perm, creating the parent
// directory if needed. Readers see either the old file or the new one:
//
//  1. temp file in the same dir
//  2. fsync(temp) + close
//  3. chmod(temp, perm)
//  4. rename(temp, dst)
//  5. fsync(dir), best effort
func AtomicWrite(ops FileOps, dst string, data []byte, perm fs.FileMode) error {
	dir := filepath.Dir(dst)
	if err := ops.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}

	tmp, err := ops.CreateTemp(dir, ".cepr-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	name := tmp.Name()

	if _, err = tmp.Write(data); err == nil {
		err = tmp.Sync()
	}
	err = multierr.Append(err, tmp.Close())
	if err == nil {
		err = ops.Chmod(name, perm)
	}
	if err == nil {
		err = ops.Rename(name, dst)
	}
	if err != nil {
		return multierr.Append(fmt.Errorf("writing %s: %w", dst, err), ops.Remove(name))
	}

	if d, err := ops.Open(dir); err == nil {
		_ = d.Sync()
		_ = d.Close()
	}
	return nil
}
