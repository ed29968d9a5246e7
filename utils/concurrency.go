package utils

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

// Pacer spaces out requests with a random pause in [Min, Max].
// A zero Max disables pacing.
type Pacer struct {
	Min   time.Duration
	Max   time.Duration
	Sleep func(ctx context.Context, d time.Duration) error
}

// NewPacer creates a Pacer for the given bounds.
func NewPacer(min, max time.Duration) *Pacer {
	return &Pacer{Min: min, Max: max}
}

// Wait blocks for one randomized interval, or until ctx is done.
func (p *Pacer) Wait(ctx context.Context) error {
	if p == nil || p.Max <= 0 {
		return nil
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = SleepContext
	}
	return sleep(ctx, RandomBetween(p.Min, p.Max))
}

// RandomBetween returns a uniformly random duration in [min, max].
func RandomBetween(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	return min + time.Duration(rand.Int63n(int64(max-min)+1))
}

// SleepContext sleeps for d, returning early with ctx.Err() on cancellation.
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// URLSet is a thread-safe set for tracking visited URLs.
type URLSet struct {
	mu   sync.RWMutex
	seen map[string]struct{}
}

// NewURLSet creates a URLSet holding the given URLs.
func NewURLSet(urls ...string) *URLSet {
	s := &URLSet{seen: make(map[string]struct{}, len(urls))}
	for _, u := range urls {
		s.seen[u] = struct{}{}
	}
	return s
}

// Add returns true if the URL was newly added, false if already present.
func (s *URLSet) Add(url string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.seen[url]; exists {
		return false
	}
	s.seen[url] = struct{}{}
	return true
}

// Contains returns true if the URL has already been visited.
func (s *URLSet) Contains(url string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, exists := s.seen[url]
	return exists
}

// Size returns the number of unique URLs tracked.
func (s *URLSet) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.seen)
}
