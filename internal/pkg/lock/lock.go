// Package lock provides per-chat locking so a chat is never advanced by two
// goroutines at once. The scheduler and the command handlers share one instance.
package lock

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrLockTimeout is returned by WithLock when the chat stays locked past the timeout.
var ErrLockTimeout = errors.New("chat lock acquisition timeout")

// chatMutex is a context-aware mutex with a reference count for cleanup.
type chatMutex struct {
	ch   chan struct{}
	refs int
}

// ChatLock provides per-chat mutual exclusion keyed by chat id.
type ChatLock struct {
	mu    sync.Mutex
	locks map[int64]*chatMutex
}

// NewChatLock creates a new ChatLock instance.
func NewChatLock() *ChatLock {
	return &ChatLock{locks: make(map[int64]*chatMutex)}
}

// acquireRef returns the chat's mutex and registers one more interested caller.
func (cl *ChatLock) acquireRef(chatID int64) *chatMutex {
	cl.mu.Lock()
	defer cl.mu.Unlock()

	m, ok := cl.locks[chatID]
	if !ok {
		m = &chatMutex{ch: make(chan struct{}, 1)}
		cl.locks[chatID] = m
	}
	m.refs++
	return m
}

// releaseRef drops one reference and forgets the mutex once nobody holds or waits on it.
func (cl *ChatLock) releaseRef(chatID int64, m *chatMutex) {
	cl.mu.Lock()
	defer cl.mu.Unlock()

	m.refs--
	if m.refs == 0 {
		delete(cl.locks, chatID)
	}
}

// Lock blocks until the chat's lock is held or ctx is done.
func (cl *ChatLock) Lock(ctx context.Context, chatID int64) error {
	m := cl.acquireRef(chatID)
	select {
	case m.ch <- struct{}{}:
		return nil
	case <-ctx.Done():
		cl.releaseRef(chatID, m)
		return ctx.Err()
	}
}

// Unlock releases the chat's lock. It must follow a successful Lock or TryLock.
func (cl *ChatLock) Unlock(chatID int64) {
	cl.mu.Lock()
	m, ok := cl.locks[chatID]
	cl.mu.Unlock()
	if !ok {
		return
	}
	<-m.ch
	cl.releaseRef(chatID, m)
}

// TryLock attempts to acquire the lock without blocking.
func (cl *ChatLock) TryLock(chatID int64) bool {
	m := cl.acquireRef(chatID)
	select {
	case m.ch <- struct{}{}:
		return true
	default:
		cl.releaseRef(chatID, m)
		return false
	}
}

// WithLock executes fn while holding the chat's lock.
// It gives up with ErrLockTimeout if the lock is not acquired within timeout.
func (cl *ChatLock) WithLock(ctx context.Context, chatID int64, timeout time.Duration, fn func(ctx context.Context) error) error {
	lockCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := cl.Lock(lockCtx, chatID); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return ErrLockTimeout
	}
	defer cl.Unlock(chatID)

	return fn(ctx)
}

// IsLocked reports whether the chat's lock is currently held.
// This is a point-in-time check.
func (cl *ChatLock) IsLocked(chatID int64) bool {
	cl.mu.Lock()
	defer cl.mu.Unlock()

	m, ok := cl.locks[chatID]
	return ok && len(m.ch) == 1
}

// size returns the number of tracked chats.
func (cl *ChatLock) size() int {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	return len(cl.locks)
}
