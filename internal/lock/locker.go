package lock

import (
	"context"
	"errors"
	"sync"
)

// ErrHeld is returned when the account already has a generation in flight.
var ErrHeld = errors.New("lock: already held")

// AccountLocker serializes generation requests per account so two overlapping
// generate calls can never interleave their debits.
type AccountLocker interface {
	// Acquire takes the account's lock and returns a release function. ErrHeld
	// means another generation holds it; callers fail fast rather than queue.
	Acquire(ctx context.Context, userID int64) (func(), error)
}

// MemoryLocker is the single-process implementation.
type MemoryLocker struct {
	mu   sync.Mutex
	held map[int64]struct{}
}

// NewMemoryLocker constructs an in-process locker.
func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{held: make(map[int64]struct{})}
}

// Acquire implements AccountLocker.
func (l *MemoryLocker) Acquire(_ context.Context, userID int64) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.held[userID]; ok {
		return nil, ErrHeld
	}
	l.held[userID] = struct{}{}

	var once sync.Once
	release := func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.held, userID)
			l.mu.Unlock()
		})
	}
	return release, nil
}
