package cartsync

import (
	"strings"
	"sync"

	"github.com/dronestore/storefront/internal/domain/cart"
)

const adminPrefix = "/admin"

// ClassifyPath maps a storefront path to its route mode. Paths under
// /admin are administrative.
func ClassifyPath(path string) cart.RouteMode {
	p := strings.ToLower(strings.TrimSpace(path))
	if idx := strings.IndexAny(p, "?#"); idx >= 0 {
		p = p[:idx]
	}
	if p == adminPrefix || strings.HasPrefix(p, adminPrefix+"/") {
		return cart.RouteAdmin
	}
	return cart.RouteCustomer
}

// Subscribers is a set of change callbacks. The zero value is ready to use.
type Subscribers[T any] struct {
	mu   sync.Mutex
	next int
	fns  map[int]func(T)
}

// Subscribe registers fn and returns a function that removes it. The
// returned function may be called more than once.
func (s *Subscribers[T]) Subscribe(fn func(T)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fns == nil {
		s.fns = make(map[int]func(T))
	}
	id := s.next
	s.next++
	s.fns[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.fns, id)
			s.mu.Unlock()
		})
	}
}

// Notify calls every registered callback with v. Callbacks run without the
// registry lock held, so they may subscribe or unsubscribe.
func (s *Subscribers[T]) Notify(v T) {
	s.mu.Lock()
	fns := make([]func(T), 0, len(s.fns))
	for _, fn := range s.fns {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(v)
	}
}

// Len returns the number of registered callbacks
func (s *Subscribers[T]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.fns)
}

// RouteTracker is a RouteObserver driven by navigation events
type RouteTracker struct {
	mu   sync.Mutex
	mode cart.RouteMode
	subs Subscribers[cart.RouteMode]
}

var _ RouteObserver = (*RouteTracker)(nil)

// NewRouteTracker creates a tracker positioned at path
func NewRouteTracker(path string) *RouteTracker {
	return &RouteTracker{mode: ClassifyPath(path)}
}

// RouteMode returns the current mode
func (t *RouteTracker) RouteMode() cart.RouteMode {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.mode
}

// Navigate records a navigation to path
func (t *RouteTracker) Navigate(path string) {
	t.Set(ClassifyPath(path))
}

// Set changes the mode and notifies subscribers when it differs
func (t *RouteTracker) Set(mode cart.RouteMode) {
	t.mu.Lock()
	if t.mode == mode {
		t.mu.Unlock()
		return
	}
	t.mode = mode
	t.mu.Unlock()

	t.subs.Notify(mode)
}

// Subscribe registers fn for mode changes
func (t *RouteTracker) Subscribe(fn func(cart.RouteMode)) func() {
	return t.subs.Subscribe(fn)
}
