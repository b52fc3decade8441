// Package lockfile guards a base directory against concurrent installer runs.
package lockfile

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// ErrAlreadyLocked means another comfy-setup run is working in the same base
// directory.
var ErrAlreadyLocked = errors.New("base directory is in use by another comfy-setup run")

var errNilFile = errors.New("lockfile: nil file")

// Lock is an exclusive, non-blocking advisory lock on a file.
type Lock struct {
	path string
	f    *os.File
}

// Acquire takes the lock at path, creating the file if needed.
func Acquire(path string) (*Lock, error) {
	if path == "" {
		return nil, fmt.Errorf("lock path is empty")
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return nil, err
	}
	if err := lockFile(f); err != nil {
		_ = f.Close()
		if errors.Is(err, ErrAlreadyLocked) {
			if pid := holder(path); pid != "" {
				return nil, fmt.Errorf("%w (pid %s)", err, pid)
			}
		}
		return nil, err
	}

	// The holder's pid is informational; a failed write does not matter.
	_ = f.Truncate(0)
	_, _ = f.Seek(0, 0)
	_, _ = fmt.Fprintf(f, "%d\n", os.Getpid())
	_ = f.Sync()

	return &Lock{path: path, f: f}, nil
}

// holder returns the pid recorded by the current lock owner, or "" when the
// file cannot be read (Windows denies reads of a locked region).
func holder(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

// Path is the lock file location; empty for a nil Lock.
func (l *Lock) Path() string {
	if l == nil {
		return ""
	}
	return l.path
}

// Release unlocks and closes the file. The file itself is left in place.
func (l *Lock) Release() error {
	if l == nil || l.f == nil {
		return nil
	}
	unlockErr := unlockFile(l.f)
	closeErr := l.f.Close()
	l.f = nil
	if unlockErr != nil {
		return unlockErr
	}
	return closeErr
}
