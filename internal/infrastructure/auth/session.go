package auth

import (
	"sync"

	"github.com/dronestore/storefront/internal/application/cartsync"
	"github.com/dronestore/storefront/internal/domain/cart"
)

// Session holds the shopper's bearer token on the client side. It derives
// the cart identity from the token's user_id claim and notifies subscribers
// when the identity changes.
type Session struct {
	mu       sync.RWMutex
	token    string
	identity cart.Identity
	subs     cartsync.Subscribers[cart.Identity]
}

var _ cartsync.IdentityProvider = (*Session)(nil)

// NewSession creates a guest session
func NewSession() *Session {
	return &Session{identity: cart.Guest()}
}

// NewSessionWithToken creates a session logged in with token. A token
// without a user_id claim leaves the session as a guest.
func NewSessionWithToken(token string) (*Session, error) {
	s := NewSession()
	if token == "" {
		return s, nil
	}
	if err := s.Login(token); err != nil {
		return s, err
	}
	return s, nil
}

// Login switches the session to the user named in token
func (s *Session) Login(token string) error {
	claims, err := ParseUnverified(token)
	if err != nil {
		return err
	}
	s.set(token, cart.Authenticated(claims.UserID))
	return nil
}

// Logout drops the token and returns to guest
func (s *Session) Logout() {
	s.set("", cart.Guest())
}

func (s *Session) set(token string, identity cart.Identity) {
	s.mu.Lock()
	changed := s.identity != identity
	s.token = token
	s.identity = identity
	s.mu.Unlock()

	if changed {
		s.subs.Notify(identity)
	}
}

// Identity implements cartsync.IdentityProvider
func (s *Session) Identity() cart.Identity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.identity
}

// Credential returns the bearer token, if logged in
func (s *Session) Credential() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token, s.token != ""
}

// Subscribe implements cartsync.IdentityProvider
func (s *Session) Subscribe(fn func(cart.Identity)) func() {
	return s.subs.Subscribe(fn)
}
