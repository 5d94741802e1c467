package infrastructure

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/dataset-fetch-go/internal/domain"
)

func TestRootLock_Exclusive(t *testing.T) {
	root := filepath.Join(t.TempDir(), "data")
	lock := NewRootLock()

	unlock, err := lock.Lock(root)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(root, LockFileName))

	_, err = lock.Lock(root)
	assert.ErrorIs(t, err, domain.ErrRootBusy)

	require.NoError(t, unlock())

	unlock, err = lock.Lock(root)
	require.NoError(t, err)
	require.NoError(t, unlock())
}

func TestRootLock_IndependentRoots(t *testing.T) {
	dir := t.TempDir()
	lock := NewRootLock()

	unlockA, err := lock.Lock(filepath.Join(dir, "a"))
	require.NoError(t, err)
	defer unlockA()

	unlockB, err := lock.Lock(filepath.Join(dir, "b"))
	require.NoError(t, err)
	defer unlockB()
}
