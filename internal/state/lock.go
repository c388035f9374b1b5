package state

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// ErrLocked means another run currently owns the state.
var ErrLocked = errors.New("another run holds the state lock")

// RunLock serializes runs against one state location.
type RunLock struct {
	fl *flock.Flock
}

// LockPathFor is the default lock file next to the state file.
func LockPathFor(statePath string) string {
	return statePath + ".lock"
}

// AcquireRunLock takes the lock without waiting. It returns ErrLocked when a
// concurrent run is in progress.
func AcquireRunLock(path string) (*RunLock, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure lock dir: %w", err)
	}

	fl := flock.New(path)
	ok, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("lock %s: %w", path, err)
	}
	if !ok {
		return nil, ErrLocked
	}
	return &RunLock{fl: fl}, nil
}

func (l *RunLock) Release() error {
	if l == nil || l.fl == nil {
		return nil
	}
	return l.fl.Unlock()
}
