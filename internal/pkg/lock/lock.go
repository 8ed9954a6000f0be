// Package lock provides per-session locking. Every mutating operation on a
// session (join, pay-to-spawn, record-kill, settle, refund) runs its
// precondition checks and its mutation inside one critical section, so two
// concurrent calls can never both observe the same empty slot or the same
// vault balance. Locks for different sessions are fully independent.
package lock

import (
	"context"
	"sync"
	"time"
)

// sessionMutex wraps a mutex with a reference count so idle entries can be
// recycled through the pool.
type sessionMutex struct {
	mu       sync.Mutex
	refCount int
}

// SessionLock serializes operations per session key.
type SessionLock struct {
	locks sync.Map // map[string]*sessionMutex
	pool  sync.Pool
}

// NewSessionLock creates a new SessionLock instance.
func NewSessionLock() *SessionLock {
	return &SessionLock{
		pool: sync.Pool{
			New: func() any {
				return &sessionMutex{}
			},
		},
	}
}

func (sl *SessionLock) getLock(sessionID string) *sessionMutex {
	if v, ok := sl.locks.Load(sessionID); ok {
		return v.(*sessionMutex)
	}

	newLock := sl.pool.Get().(*sessionMutex)
	newLock.refCount = 0

	actual, loaded := sl.locks.LoadOrStore(sessionID, newLock)
	if loaded {
		// Another goroutine registered the session first.
		sl.pool.Put(newLock)
	}
	return actual.(*sessionMutex)
}

// Lock acquires the lock for a session.
func (sl *SessionLock) Lock(sessionID string) {
	l := sl.getLock(sessionID)
	l.mu.Lock()
	l.refCount++
}

// Unlock releases the lock for a session.
func (sl *SessionLock) Unlock(sessionID string) {
	if v, ok := sl.locks.Load(sessionID); ok {
		l := v.(*sessionMutex)
		l.refCount--
		l.mu.Unlock()
	}
}

// TryLock attempts to acquire the lock without blocking.
func (sl *SessionLock) TryLock(sessionID string) bool {
	l := sl.getLock(sessionID)
	if l.mu.TryLock() {
		l.refCount++
		return true
	}
	return false
}

// LockWithTimeout attempts to acquire the lock within the given timeout.
func (sl *SessionLock) LockWithTimeout(ctx context.Context, sessionID string, timeout time.Duration) bool {
	l := sl.getLock(sessionID)

	done := make(chan struct{})
	go func() {
		l.mu.Lock()
		close(done)
	}()

	timeoutCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	select {
	case <-done:
		l.refCount++
		return true
	case <-timeoutCtx.Done():
		// The waiting goroutine will still acquire the mutex eventually;
		// release it again once it does.
		go func() {
			<-done
			l.mu.Unlock()
		}()
		return false
	}
}

// WithLock runs fn while holding the session's lock.
func (sl *SessionLock) WithLock(sessionID string, fn func() error) error {
	sl.Lock(sessionID)
	defer sl.Unlock(sessionID)
	return fn()
}

// WithLockContext runs fn while holding the session's lock, honoring
// context cancellation while waiting to acquire it.
func (sl *SessionLock) WithLockContext(ctx context.Context, sessionID string, timeout time.Duration, fn func() error) error {
	if !sl.LockWithTimeout(ctx, sessionID, timeout) {
		return ErrLockTimeout
	}
	defer sl.Unlock(sessionID)

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return fn()
	}
}
