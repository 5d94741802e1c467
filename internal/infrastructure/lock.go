package infrastructure

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"github.com/yourusername/dataset-fetch-go/internal/domain"
)

// LockFileName is created directly under each fetch root
const LockFileName = ".dsfetch.lock"

// RootLock implements domain.Locker with an advisory file lock per root
type RootLock struct{}

// NewRootLock creates a new root lock
func NewRootLock() *RootLock {
	return &RootLock{}
}

// Lock acquires the lock for rootDir without blocking. It fails with
// domain.ErrRootBusy when another process or run holds it.
func (l *RootLock) Lock(rootDir string) (func() error, error) {
	if err := os.MkdirAll(rootDir, 0755); err != nil {
		return nil, domain.FSError("mkdir", rootDir, err)
	}

	path := filepath.Join(rootDir, LockFileName)
	fl := flock.New(path)
	locked, err := fl.TryLock()
	if err != nil {
		return nil, domain.FSError("lock", path, err)
	}
	if !locked {
		return nil, fmt.Errorf("%w: %s", domain.ErrRootBusy, rootDir)
	}

	return fl.Unlock, nil
}
