package cart

import "fmt"

const keyNamespace = "storefront:cart"

// Identity is either a guest or an authenticated user.
type Identity struct {
	userID string
}

// Guest returns the anonymous identity
func Guest() Identity {
	return Identity{}
}

// Authenticated returns the identity of a signed-in user.
// An empty user id yields Guest.
func Authenticated(userID string) Identity {
	return Identity{userID: userID}
}

// IsAuthenticated reports whether the identity belongs to a user
func (i Identity) IsAuthenticated() bool {
	return i.userID != ""
}

// UserID returns the user id, empty for guests
func (i Identity) UserID() string {
	return i.userID
}

// Key returns the persistence key scoped to this identity
func (i Identity) Key() Key {
	if !i.IsAuthenticated() {
		return Key(keyNamespace + ":guest")
	}
	return Key(fmt.Sprintf("%s:user:%s", keyNamespace, i.userID))
}

func (i Identity) String() string {
	if !i.IsAuthenticated() {
		return "guest"
	}
	return "user:" + i.userID
}

// Key is a storage key for a serialized cart
type Key string

func (k Key) String() string {
	return string(k)
}

// RouteMode tells whether the user is on a customer-facing or an
// administrative route.
type RouteMode string

const (
	RouteCustomer RouteMode = "customer"
	RouteAdmin    RouteMode = "admin"
)

// IsAdmin reports whether the route is administrative
func (m RouteMode) IsAdmin() bool {
	return m == RouteAdmin
}

// RemoteBacked reports whether a cart for this identity on this route is
// backed by the server.
func RemoteBacked(identity Identity, mode RouteMode) bool {
	return identity.IsAuthenticated() && !mode.IsAdmin()
}
