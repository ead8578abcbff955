package credentials

import (
	"context"
	"sync"
)

// Lock serialises use of a single credential across concurrent cycles. A
// credential is held for at most one fetch at a time; everything else about
// scheduling stays with the caller.
type Lock interface {
	// AcquireLock blocks until the credential is free or ctx is done.
	// The returned release function must be called exactly once.
	AcquireLock(ctx context.Context, credID string) (release func(), err error)
}

// MemoryLock is a process-local Lock keyed by credential ID.
type MemoryLock struct {
	mu    sync.Mutex
	slots map[string]chan struct{}
}

// NewMemoryLock builds an empty in-process lock table.
func NewMemoryLock() *MemoryLock {
	return &MemoryLock{slots: make(map[string]chan struct{})}
}

func (l *MemoryLock) AcquireLock(ctx context.Context, credID string) (func(), error) {
	l.mu.Lock()
	slot, ok := l.slots[credID]
	if !ok {
		slot = make(chan struct{}, 1)
		l.slots[credID] = slot
	}
	l.mu.Unlock()

	select {
	case slot <- struct{}{}:
		return func() { <-slot }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
