// Package cache is an in-memory key/value store whose entries live longer the
// more, and the more recently, they are read.
package cache

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/amishk599/jobscout/internal/clock"
)

const (
	// PopularAccesses is the access count above which an entry's TTL doubles.
	PopularAccesses = 10
	// RecentWindow is how recently an entry must have been read for its TTL
	// to be extended by half.
	RecentWindow = 60 * time.Second

	popularFactor = 2.0
	recentFactor  = 1.5
)

// Options configures a Store.
type Options struct {
	Name          string        // used in log lines
	BaseTTL       time.Duration // default 5m
	MaxAge        time.Duration // absolute ceiling enforced by Sweep
	SweepInterval time.Duration // default 5m
	Clock         clock.Clock
	Logger        *slog.Logger
}

// Stats is a snapshot of store activity.
type Stats struct {
	Entries int
	Hits    int64
	Misses  int64
	Expired int64 // removed at read time
	Swept   int64 // removed by Sweep
}

type entry[V any] struct {
	value       V
	createdAt   time.Time
	lastAccess  time.Time
	accessCount int
}

// Store is safe for concurrent use. Values pass through clone on the way in
// and out so callers never share memory with cached state.
type Store[V any] struct {
	mu      sync.Mutex
	entries map[string]*entry[V]
	opts    Options
	clone   func(V) V
	stats   Stats

	stop chan struct{}
	done chan struct{}
}

// New creates a Store. clone may be nil for values without reference fields.
func New[V any](opts Options, clone func(V) V) *Store[V] {
	if opts.BaseTTL <= 0 {
		opts.BaseTTL = 5 * time.Minute
	}
	if opts.SweepInterval <= 0 {
		opts.SweepInterval = 5 * time.Minute
	}
	if opts.MaxAge <= 0 {
		opts.MaxAge = time.Hour
	}
	if opts.Clock == nil {
		opts.Clock = clock.Real{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if clone == nil {
		clone = func(v V) V { return v }
	}
	return &Store[V]{
		entries: make(map[string]*entry[V]),
		opts:    opts,
		clone:   clone,
	}
}

// effectiveTTL applies the popularity and recency bonuses in that order,
// using the entry state before the current access.
func (s *Store[V]) effectiveTTL(e *entry[V], now time.Time) time.Duration {
	ttl := float64(s.opts.BaseTTL)
	if e.accessCount > PopularAccesses {
		ttl *= popularFactor
	}
	if now.Sub(e.lastAccess) < RecentWindow {
		ttl *= recentFactor
	}
	return time.Duration(ttl)
}

// Get returns the value for key if it is present and fresh. A hit bumps the
// entry's access count and last access time; an expired entry is removed.
func (s *Store[V]) Get(key string) (V, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var zero V
	e, ok := s.entries[key]
	if !ok {
		s.stats.Misses++
		return zero, false
	}

	now := s.opts.Clock.Now()
	if now.Sub(e.createdAt) >= s.effectiveTTL(e, now) {
		delete(s.entries, key)
		s.stats.Expired++
		s.stats.Misses++
		return zero, false
	}

	e.accessCount++
	e.lastAccess = now
	s.stats.Hits++
	return s.clone(e.value), true
}

// Set stores value under key, replacing any previous entry.
func (s *Store[V]) Set(key string, value V) {
	now := s.opts.Clock.Now()
	s.mu.Lock()
	s.entries[key] = &entry[V]{
		value:      s.clone(value),
		createdAt:  now,
		lastAccess: now,
	}
	s.mu.Unlock()
}

// Sweep removes every entry older than MaxAge regardless of how often it was
// read, and returns how many were removed.
func (s *Store[V]) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.opts.Clock.Now()
	removed := 0
	for key, e := range s.entries {
		if now.Sub(e.createdAt) > s.opts.MaxAge {
			delete(s.entries, key)
			removed++
		}
	}
	s.stats.Swept += int64(removed)
	return removed
}

// Start runs Sweep every SweepInterval until Stop is called or ctx is done.
// Calling Start on a running store is a no-op; once ctx is done the store
// can be started again.
func (s *Store[V]) Start(ctx context.Context) {
	s.mu.Lock()
	if s.stop != nil {
		s.mu.Unlock()
		return
	}
	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	stop, done := s.stop, s.done
	s.mu.Unlock()

	go func() {
		defer close(done)
		ticker := time.NewTicker(s.opts.SweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				s.mu.Lock()
				if s.stop == stop {
					s.stop, s.done = nil, nil
				}
				s.mu.Unlock()
				return
			case <-stop:
				return
			case <-ticker.C:
				if n := s.Sweep(); n > 0 {
					s.opts.Logger.Debug("cache sweep", "cache", s.opts.Name, "removed", n, "remaining", s.Len())
				}
			}
		}
	}()
}

// Stop halts the background sweeper and waits for it to exit.
func (s *Store[V]) Stop() {
	s.mu.Lock()
	stop, done := s.stop, s.done
	s.stop, s.done = nil, nil
	s.mu.Unlock()

	if stop == nil {
		return
	}
	close(stop)
	<-done
}

// Len returns the number of entries, fresh or not.
func (s *Store[V]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Stats returns a snapshot of counters.
func (s *Store[V]) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.stats
	st.Entries = len(s.entries)
	return st
}
