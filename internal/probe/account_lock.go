package probe

import (
	"context"
	"fmt"
	"sync"
)

// Locker serializes probes that drive the same external account.
type Locker interface {
	Acquire(ctx context.Context) (*LockHandle, error)
}

// LockHandle is returned by a successful Acquire. Release may be called more
// than once; only the first call has an effect.
type LockHandle struct {
	once    sync.Once
	release func()
}

func (h *LockHandle) Release() {
	if h == nil {
		return
	}
	h.once.Do(h.release)
}

// AccountLock is a fair mutex: waiters are granted the lock in arrival order.
type AccountLock struct {
	name string

	mu      sync.Mutex
	held    bool
	waiters []chan struct{}
}

func NewAccountLock(name string) *AccountLock {
	return &AccountLock{name: name}
}

func (l *AccountLock) Name() string { return l.name }

// Acquire blocks until the lock is handed over or ctx is done.
func (l *AccountLock) Acquire(ctx context.Context) (*LockHandle, error) {
	l.mu.Lock()
	if !l.held && len(l.waiters) == 0 {
		l.held = true
		l.mu.Unlock()
		return l.handle(), nil
	}
	ready := make(chan struct{})
	l.waiters = append(l.waiters, ready)
	l.mu.Unlock()

	select {
	case <-ready:
		return l.handle(), nil
	case <-ctx.Done():
	}

	l.mu.Lock()
	for i, w := range l.waiters {
		if w == ready {
			l.waiters = append(l.waiters[:i], l.waiters[i+1:]...)
			l.mu.Unlock()
			return nil, fmt.Errorf("%w: %s: %w", ErrLockAcquisition, l.name, ctx.Err())
		}
	}
	l.mu.Unlock()

	// Ownership was handed over while we were giving up; pass it on.
	l.release()
	return nil, fmt.Errorf("%w: %s: %w", ErrLockAcquisition, l.name, ctx.Err())
}

// Waiting reports how many callers are queued behind the current holder.
func (l *AccountLock) Waiting() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.waiters)
}

func (l *AccountLock) handle() *LockHandle {
	return &LockHandle{release: l.release}
}

func (l *AccountLock) release() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.waiters) > 0 {
		next := l.waiters[0]
		l.waiters = l.waiters[1:]
		close(next)
		return
	}
	l.held = false
}

// UncontendedLock never blocks. It suits sites whose account is not shared.
type UncontendedLock struct{}

func (UncontendedLock) Acquire(ctx context.Context) (*LockHandle, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLockAcquisition, err)
	}
	return &LockHandle{release: func() {}}, nil
}

// LockRegistry hands out one AccountLock per account name.
type LockRegistry struct {
	mu    sync.Mutex
	locks map[string]*AccountLock
}

func NewLockRegistry() *LockRegistry {
	return &LockRegistry{locks: make(map[string]*AccountLock)}
}

func (r *LockRegistry) Get(account string) *AccountLock {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.locks[account]
	if !ok {
		l = NewAccountLock(account)
		r.locks[account] = l
	}
	return l
}
