// Package layout implements the ProjectLayout entity (§3) and the generated
// build-root directory tree (§6.4), plus the coarse invocation lock (§5).
package layout

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/oarkflow/yambs/internal/yambserr"
)

// Layout is the fixed directory tree under one build root.
type Layout struct {
	Root string
}

func New(root string) (*Layout, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, yambserr.Wrap(yambserr.Io, err, "resolving build root %s", root)
	}
	return &Layout{Root: abs}, nil
}

func (l *Layout) ConfigDir(config string) string   { return filepath.Join(l.Root, config) }
func (l *Layout) CacheDir() string                 { return filepath.Join(l.Root, "cache") }
func (l *Layout) MakeIncludeDir() string           { return filepath.Join(l.Root, "make_include") }
func (l *Layout) LockPath() string                 { return filepath.Join(l.Root, ".lock") }
func (l *Layout) LogPath() string                  { return filepath.Join(l.Root, "yambs_log.txt") }
func (l *Layout) ProgressPath(config string) string { return filepath.Join(l.ConfigDir(config), "progress.json") }
func (l *Layout) MakefilePath(config string) string { return filepath.Join(l.ConfigDir(config), "Makefile") }

// EnsureDirs creates every fixed directory the layout needs for the given
// configuration, per §6.4's tree.
func (l *Layout) EnsureDirs(config string) error {
	for _, dir := range []string{l.Root, l.ConfigDir(config), l.MakeIncludeDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return yambserr.Wrap(yambserr.Io, err, "creating %s", dir)
		}
	}
	return nil
}

// Lock is the coarse per-build-root invocation lock described in §5: "a
// coarse lock file <build_root>/.lock acquired for the duration of a single
// invocation; concurrent YAMBS invocations over the same build root fail
// fast with BuildRootLocked." An exclusive-create lock file is sufficient
// here — no third-party or platform-specific flock is warranted for a
// single advisory marker scoped to one process's lifetime (see DESIGN.md).
type Lock struct {
	path string
}

// Acquire creates <build_root>/.lock, failing with BuildRootLocked if it
// already exists.
func Acquire(l *Layout) (*Lock, error) {
	if err := os.MkdirAll(l.Root, 0o755); err != nil {
		return nil, yambserr.Wrap(yambserr.Io, err, "creating build root %s", l.Root)
	}
	path := l.LockPath()
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return nil, yambserr.New(yambserr.BuildRootLocked, "build root %s is locked by another invocation (remove %s if that invocation is no longer running)", l.Root, path)
		}
		return nil, yambserr.Wrap(yambserr.Io, err, "creating lock file %s", path)
	}
	defer f.Close()
	fmt.Fprintln(f, strconv.Itoa(os.Getpid()))
	return &Lock{path: path}, nil
}

// Release removes the lock file. It is safe to call on a nil Lock, after a
// failed build, and when the file is already gone. No signal handler calls
// it, so a process killed by SIGINT leaves the lock file in place.
func (lk *Lock) Release() error {
	if lk == nil {
		return nil
	}
	if err := os.Remove(lk.path); err != nil && !os.IsNotExist(err) {
		return yambserr.Wrap(yambserr.Io, err, "releasing lock %s", lk.path)
	}
	return nil
}
