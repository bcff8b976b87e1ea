package lock

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// FileLock wraps gofrs/flock to guard a single destination directory
// against two concurrent syncs writing into it at once.
type FileLock struct {
	fl   *flock.Flock
	path string
}

// New returns a lock keyed on dest's absolute path, at
// /tmp/pdbsync_<hash>.lock.
func New(dest string) *FileLock {
	abs := filepath.Clean(dest)
	sum := sha256.Sum256([]byte(abs))
	name := fmt.Sprintf("/tmp/pdbsync_%s.lock", hex.EncodeToString(sum[:8]))
	return &FileLock{fl: flock.New(name), path: name}
}

// TryLock attempts a non-blocking lock.
func (l *FileLock) TryLock() (bool, error) {
	return l.fl.TryLock()
}

// Unlock releases the lock.
func (l *FileLock) Unlock() error {
	if err := l.fl.Unlock(); err != nil {
		return err
	}
	// Best-effort cleanup: remove the lock file so it does not linger in /tmp.
	_ = os.Remove(l.path)
	return nil
}
