package services

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"fintrack/internal/notify"
)

// idleCloser is anything the registry can expire.
type idleCloser interface {
	LastActive() time.Time
	Close()
}

type registryEntry[T idleCloser] struct {
	value T
	notes *notify.Buffer
}

// registry holds live drafts keyed by ID, each with its own notification
// buffer.
type registry[T idleCloser] struct {
	mu      sync.RWMutex
	entries map[string]registryEntry[T]
}

func newRegistry[T idleCloser]() *registry[T] {
	return &registry[T]{entries: make(map[string]registryEntry[T])}
}

func (r *registry[T]) put(id string, value T, notes *notify.Buffer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[id] = registryEntry[T]{value: value, notes: notes}
}

func (r *registry[T]) get(id string) (registryEntry[T], bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[id]
	return e, ok
}

// remove closes and forgets the entry.
func (r *registry[T]) remove(id string) bool {
	r.mu.Lock()
	e, ok := r.entries[id]
	delete(r.entries, id)
	r.mu.Unlock()
	if ok {
		e.value.Close()
	}
	return ok
}

func (r *registry[T]) len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// sweep closes every entry idle since before cutoff and returns how many
// were removed.
func (r *registry[T]) sweep(cutoff time.Time) int {
	r.mu.Lock()
	var expired []T
	for id, e := range r.entries {
		if e.value.LastActive().Before(cutoff) {
			expired = append(expired, e.value)
			delete(r.entries, id)
		}
	}
	r.mu.Unlock()

	for _, v := range expired {
		v.Close()
	}
	return len(expired)
}

// Sweeper expires idle drafts.
type Sweeper interface {
	Sweep(now time.Time) int
}

// RunSweeper calls Sweep on every sweeper each interval until ctx is done.
func RunSweeper(ctx context.Context, interval time.Duration, log *zap.SugaredLogger, sweepers ...Sweeper) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			for _, s := range sweepers {
				if n := s.Sweep(now); n > 0 {
					log.Infow("Expired idle drafts", "count", n)
				}
			}
		}
	}
}
