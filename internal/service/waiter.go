package service

import (
	"context"
	"errors"
	"sync"
	"time"
)

const (
	// DefaultWaitTimeout bounds a single long poll
	DefaultWaitTimeout = 25 * time.Second
)

// WaitRegistry wakes long-polling clients when a match changes. Each
// waiter is woken once, by a change, a timeout, its context ending or
// shutdown, and is then forgotten.
type WaitRegistry struct {
	mu       sync.Mutex
	waiters  map[string]map[*waiter]struct{} // gameID → waiting clients
	timeout  time.Duration
	shutdown chan struct{}
	closed   bool
	wg       sync.WaitGroup
}

type waiter struct {
	notify chan struct{}
	once   sync.Once
}

func (w *waiter) wake() {
	w.once.Do(func() { close(w.notify) })
}

func NewWaitRegistry() *WaitRegistry {
	return &WaitRegistry{
		waiters:  make(map[string]map[*waiter]struct{}),
		timeout:  DefaultWaitTimeout,
		shutdown: make(chan struct{}),
	}
}

// RegisterWait returns a channel that is closed on the next change to
// gameID or when the wait ends for any other reason.
func (r *WaitRegistry) RegisterWait(ctx context.Context, gameID string) <-chan struct{} {
	w := &waiter{notify: make(chan struct{})}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		w.wake()
		return w.notify
	}
	if r.waiters[gameID] == nil {
		r.waiters[gameID] = make(map[*waiter]struct{})
	}
	r.waiters[gameID][w] = struct{}{}
	r.wg.Add(1)
	r.mu.Unlock()

	go func() {
		defer r.wg.Done()
		timer := time.NewTimer(r.timeout)
		defer timer.Stop()

		select {
		case <-w.notify:
		case <-timer.C:
		case <-ctx.Done():
		case <-r.shutdown:
		}
		r.remove(gameID, w)
		w.wake()
	}()

	return w.notify
}

// NotifyGame wakes every client waiting on gameID.
func (r *WaitRegistry) NotifyGame(gameID string) {
	r.mu.Lock()
	set := r.waiters[gameID]
	delete(r.waiters, gameID)
	r.mu.Unlock()

	for w := range set {
		w.wake()
	}
}

// RemoveGame wakes and forgets all waiters of a deleted match.
func (r *WaitRegistry) RemoveGame(gameID string) {
	r.NotifyGame(gameID)
}

// Waiting counts registered waiters for gameID.
func (r *WaitRegistry) Waiting(gameID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.waiters[gameID])
}

// Shutdown wakes every waiter and waits for their goroutines to exit.
func (r *WaitRegistry) Shutdown(timeout time.Duration) error {
	r.mu.Lock()
	if !r.closed {
		r.closed = true
		close(r.shutdown)
	}
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		return errors.New("wait registry shutdown timed out")
	}
}

func (r *WaitRegistry) remove(gameID string, w *waiter) {
	r.mu.Lock()
	defer r.mu.Unlock()

	set := r.waiters[gameID]
	delete(set, w)
	if len(set) == 0 {
		delete(r.waiters, gameID)
	}
}
