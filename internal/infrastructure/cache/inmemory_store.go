package cache

import (
	"context"
	"sync"
	"time"
)

// entry is a stored value with an optional expiration
type entry struct {
	value     string
	expiresAt time.Time
}

func (e entry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// InMemoryStore implements KeyValueStore using an in-memory map.
// It is suitable for a single process and for tests.
type InMemoryStore struct {
	mu        sync.RWMutex
	entries   map[string]entry
	ttl       time.Duration
	interval  time.Duration
	closed    bool
	stopChan  chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// InMemoryOption configures an InMemoryStore
type InMemoryOption func(*InMemoryStore)

// WithTTL expires entries ttl after they were last written
func WithTTL(ttl time.Duration) InMemoryOption {
	return func(s *InMemoryStore) {
		s.ttl = ttl
	}
}

// WithCleanupInterval sets how often expired entries are purged
func WithCleanupInterval(d time.Duration) InMemoryOption {
	return func(s *InMemoryStore) {
		s.interval = d
	}
}

// NewInMemoryStore creates a new in-memory store. When a TTL is set a
// background goroutine purges expired entries until Close.
func NewInMemoryStore(opts ...InMemoryOption) *InMemoryStore {
	s := &InMemoryStore{
		entries:  make(map[string]entry),
		interval: 5 * time.Minute,
		stopChan: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.ttl > 0 {
		s.wg.Add(1)
		go s.cleanupLoop()
	}
	return s
}

func (s *InMemoryStore) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return "", false, ErrStoreClosed
	}

	e, ok := s.entries[key]
	if !ok || e.expired(time.Now()) {
		return "", false, nil
	}
	return e.value, true, nil
}

func (s *InMemoryStore) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStoreClosed
	}

	e := entry{value: value}
	if s.ttl > 0 {
		e.expiresAt = time.Now().Add(s.ttl)
	}
	s.entries[key] = e
	return nil
}

func (s *InMemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStoreClosed
	}
	delete(s.entries, key)
	return nil
}

// Close stops the cleanup goroutine and releases resources
// Safe to call multiple times
func (s *InMemoryStore) Close() error {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()
		close(s.stopChan)
		s.wg.Wait()
	})
	return nil
}

// cleanupLoop periodically removes expired entries
func (s *InMemoryStore) cleanupLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.cleanup()
		}
	}
}

func (s *InMemoryStore) cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for key, e := range s.entries {
		if e.expired(now) {
			delete(s.entries, key)
		}
	}
}

// Size returns the number of entries in the store (for testing/monitoring)
func (s *InMemoryStore) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

var _ KeyValueStore = (*InMemoryStore)(nil)
