// Package guard provides the per-kind mutual exclusion that keeps
// overlapping pipeline runs from piling up. The lock is an OS-level
// file lock, so any process probing the same kind observes Busy
// while it is held.
package guard

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/gofrs/flock"

	"github.com/viewertech/RMAM-automation/internal/domain"
)

type Guard struct {
	lockDir string
}

func New(lockDir string) (*Guard, error) {
	if err := os.MkdirAll(lockDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create lock directory: %w", err)
	}
	return &Guard{lockDir: lockDir}, nil
}

// Acquire takes the lock for kind without blocking. If any process
// (this one included) already holds it, domain.ErrBusy is returned
// immediately: overlapping runs abort, they do not queue.
func (g *Guard) Acquire(kind domain.Kind) (*Token, error) {
	fl := flock.New(filepath.Join(g.lockDir, string(kind)+".lock"))

	locked, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire %s lock: %w", kind, err)
	}
	if !locked {
		return nil, domain.ErrBusy
	}

	return &Token{fl: fl}, nil
}

// Token represents exclusive ownership of one pipeline kind's
// execution right.
type Token struct {
	fl   *flock.Flock
	once sync.Once
}

// Release frees the lock. Safe to call more than once; only the
// first call has effect, so every exit path can release
// unconditionally.
func (t *Token) Release() error {
	var err error
	t.once.Do(func() {
		err = t.fl.Unlock()
	})
	return err
}
