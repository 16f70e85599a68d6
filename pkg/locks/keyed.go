package locks

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrTimeout is returned when a lock cannot be acquired within the wait bound.
var ErrTimeout = errors.New("lock acquisition timed out")

type entry struct {
	ch   chan struct{}
	refs int
}

// Registry hands out named in-process locks with bounded-wait acquisition.
// Entries are created on demand and dropped once the last holder or waiter
// is gone, so the map does not grow with the key space.
type Registry struct {
	mu      sync.Mutex
	entries map[string]*entry
}

// NewRegistry constructs an empty lock registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]*entry)}
}

// Acquire blocks until the lock for key is held, the wait bound elapses, or
// ctx is cancelled. On success it returns a release function that is safe to
// call more than once.
func (r *Registry) Acquire(ctx context.Context, key string, wait time.Duration) (func(), error) {
	e := r.retain(key)

	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case e.ch <- struct{}{}:
		var once sync.Once
		release := func() {
			once.Do(func() {
				<-e.ch
				r.drop(key)
			})
		}
		return release, nil
	case <-timer.C:
		r.drop(key)
		return nil, ErrTimeout
	case <-ctx.Done():
		r.drop(key)
		return nil, ctx.Err()
	}
}

func (r *Registry) retain(key string) *entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[key]
	if !ok {
		e = &entry{ch: make(chan struct{}, 1)}
		r.entries[key] = e
	}
	e.refs++
	return e
}

func (r *Registry) drop(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[key]
	if !ok {
		return
	}
	e.refs--
	if e.refs <= 0 {
		delete(r.entries, key)
	}
}
