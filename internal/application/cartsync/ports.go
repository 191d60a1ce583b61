package cartsync

import (
	"context"

	"github.com/dronestore/storefront/internal/domain/cart"
)

// Gateway is the remote cart API. A nil error means Ok; failures are
// classified with cart.OutcomeOf.
type Gateway interface {
	FetchCart(ctx context.Context) ([]cart.Item, error)
	AddItem(ctx context.Context, id cart.ProductID, delta int) error
	// SetQuantity with quantity 0 removes the line.
	SetQuantity(ctx context.Context, id cart.ProductID, quantity int) error
	ClearCart(ctx context.Context) error
}

// Persistence stores a serialized cart per key. Implementations never fail
// loudly: Load returns an empty slice when nothing usable is stored and
// Save/Clear swallow storage errors.
type Persistence interface {
	Load(ctx context.Context, key cart.Key) []cart.Item
	Save(ctx context.Context, key cart.Key, items []cart.Item)
	Clear(ctx context.Context, key cart.Key)
}

// ReportContext describes where an unresolved failure happened
type ReportContext struct {
	Operation Operation
	Identity  cart.Identity
	ProductID cart.ProductID
	Version   uint64
}

// ErrorReporter receives failures the engine cannot resolve itself
type ErrorReporter interface {
	Report(ctx context.Context, err error, rc ReportContext)
}

// NoticeLevel is the severity of a user-facing notice
type NoticeLevel string

const (
	NoticeInfo    NoticeLevel = "info"
	NoticeWarning NoticeLevel = "warning"
)

// Notice is a short user-facing message
type Notice struct {
	Level   NoticeLevel
	Message string
}

// Notifier shows notices to the user
type Notifier interface {
	Notify(ctx context.Context, n Notice)
}

// IdentityProvider exposes the current identity and fires on change.
// Subscribe returns a function that removes the subscription.
type IdentityProvider interface {
	Identity() cart.Identity
	Subscribe(fn func(cart.Identity)) (cancel func())
}

// RouteObserver exposes the current route mode and fires on change
type RouteObserver interface {
	RouteMode() cart.RouteMode
	Subscribe(fn func(cart.RouteMode)) (cancel func())
}

// AuthHandler is told when the server rejected the caller's credential
type AuthHandler interface {
	AuthRequired(ctx context.Context, op Operation)
}

// Recorder receives engine counters
type Recorder interface {
	RecordMutation(ctx context.Context, op Operation)
	RecordStockConflict(ctx context.Context, op Operation)
	RecordRemoteFailure(ctx context.Context, op Operation)
	RecordFallback(ctx context.Context)
	RecordStaleDiscard(ctx context.Context, op Operation)
}

type nopReporter struct{}

func (nopReporter) Report(context.Context, error, ReportContext) {}

type nopNotifier struct{}

func (nopNotifier) Notify(context.Context, Notice) {}

type nopAuthHandler struct{}

func (nopAuthHandler) AuthRequired(context.Context, Operation) {}

type nopRecorder struct{}

func (nopRecorder) RecordMutation(context.Context, Operation)      {}
func (nopRecorder) RecordStockConflict(context.Context, Operation) {}
func (nopRecorder) RecordRemoteFailure(context.Context, Operation) {}
func (nopRecorder) RecordFallback(context.Context)                 {}
func (nopRecorder) RecordStaleDiscard(context.Context, Operation)  {}

// staticIdentity is used when no identity provider is configured
type staticIdentity struct{ identity cart.Identity }

func (s staticIdentity) Identity() cart.Identity {
	return s.identity
}

func (staticIdentity) Subscribe(func(cart.Identity)) func() {
	return func() {}
}
