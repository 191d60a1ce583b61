// Package cartsync owns the storefront cart: it keeps the in-memory cart,
// loads it from local storage or the server depending on who is signed in
// and where they are, applies changes optimistically and reconciles them
// with the server in the background.
package cartsync

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/dronestore/storefront/internal/domain/cart"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// State is the lifecycle state of a Store
type State int

const (
	StateUninitialized State = iota
	StateLoading
	StateSettled
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateLoading:
		return "loading"
	case StateSettled:
		return "settled"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// DefaultRemoteTimeout bounds a single gateway call
const DefaultRemoteTimeout = 10 * time.Second

var (
	ErrPersistenceRequired = errors.New("cartsync: persistence is required")
	ErrGatewayRequired     = errors.New("cartsync: gateway is required")
	ErrAlreadyStarted      = errors.New("cartsync: store already started")
	ErrClosed              = errors.New("cartsync: store is closed")
)

// Options configures a Store. Persistence and Gateway are required; the
// other collaborators default to no-ops, a guest identity and a customer
// route.
type Options struct {
	Persistence   Persistence
	Gateway       Gateway
	Identity      IdentityProvider
	Routes        RouteObserver
	Reporter      ErrorReporter
	Notifier      Notifier
	Auth          AuthHandler
	Recorder      Recorder
	Logger        *zap.Logger
	RemoteTimeout time.Duration
}

// Snapshot is a consistent copy of the store's state
type Snapshot struct {
	Items    []cart.Item
	IsOpen   bool
	State    State
	Version  uint64
	Identity cart.Identity
	Route    cart.RouteMode
}

// Total returns the sum of unit price x quantity
func (s Snapshot) Total() decimal.Decimal {
	return cart.Total(s.Items)
}

// ItemCount returns the sum of quantities
func (s Snapshot) ItemCount() int {
	return cart.Count(s.Items)
}

// Store is the cart synchronization engine. All state transitions happen
// under one mutex; gateway calls run on a per-store serial queue.
type Store struct {
	persistence Persistence
	gateway     Gateway
	identities  IdentityProvider
	routes      RouteObserver
	reporter    ErrorReporter
	notifier    Notifier
	auth        AuthHandler
	recorder    Recorder
	logger      *zap.Logger
	timeout     time.Duration
	queue       *remoteQueue

	// saveMu serializes persistence writes; it is taken before mu
	saveMu sync.Mutex

	mu          sync.Mutex
	state       State
	identity    cart.Identity
	route       cart.RouteMode
	items       []cart.Item
	visibility  *Visibility
	version     uint64
	justLoaded  bool
	started     bool
	closed      bool
	requeued    bool
	writes      map[cart.Key]cartWrite
	parent      context.Context
	session     context.Context
	cancel      context.CancelFunc
	unsubscribe []func()
}

// NewStore creates a store in the Uninitialized state. Call Start to load
// the cart.
func NewStore(opts Options) (*Store, error) {
	if opts.Persistence == nil {
		return nil, ErrPersistenceRequired
	}
	if opts.Gateway == nil {
		return nil, ErrGatewayRequired
	}

	s := &Store{
		persistence: opts.Persistence,
		gateway:     opts.Gateway,
		identities:  opts.Identity,
		routes:      opts.Routes,
		reporter:    opts.Reporter,
		notifier:    opts.Notifier,
		auth:        opts.Auth,
		recorder:    opts.Recorder,
		logger:      opts.Logger,
		timeout:     opts.RemoteTimeout,
		queue:       newRemoteQueue(),
		items:       []cart.Item{},
		visibility:  NewVisibility(),
		route:       cart.RouteCustomer,
	}
	if s.identities == nil {
		s.identities = staticIdentity{identity: cart.Guest()}
	}
	if s.routes == nil {
		s.routes = NewRouteTracker("/")
	}
	if s.reporter == nil {
		s.reporter = nopReporter{}
	}
	if s.notifier == nil {
		s.notifier = nopNotifier{}
	}
	if s.auth == nil {
		s.auth = nopAuthHandler{}
	}
	if s.recorder == nil {
		s.recorder = nopRecorder{}
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.timeout <= 0 {
		s.timeout = DefaultRemoteTimeout
	}
	return s, nil
}

// cartWrite is a persistence write staged under the store lock
type cartWrite struct {
	key   cart.Key
	items []cart.Item
	clear bool
}

// loadPlan is what a Loading transition has to do once the lock is released
type loadPlan struct {
	version  uint64
	identity cart.Identity
	key      cart.Key
	remote   bool
	ctx      context.Context
}

// Start reads the current identity and route, subscribes to their changes
// and begins the first load. A guest or admin-route cart is settled when
// Start returns; a server-backed cart settles once the fetch completes
// (see Wait).
func (s *Store) Start(ctx context.Context) error {
	s.mu.Lock()
	switch {
	case s.closed:
		s.mu.Unlock()
		return ErrClosed
	case s.started:
		s.mu.Unlock()
		return ErrAlreadyStarted
	}
	s.started = true
	s.parent = ctx
	s.identity = s.identities.Identity()
	s.route = s.routes.RouteMode()
	plan := s.beginLoadLocked()
	s.mu.Unlock()

	s.queue.start(s.execute)
	s.runLoad(plan)

	unsubs := []func(){
		s.identities.Subscribe(s.SetIdentity),
		s.routes.Subscribe(s.SetRouteMode),
	}
	s.mu.Lock()
	closed := s.closed
	if !closed {
		s.unsubscribe = append(s.unsubscribe, unsubs...)
	}
	s.mu.Unlock()
	if closed {
		for _, fn := range unsubs {
			fn()
		}
		return nil
	}

	// Pick up changes that happened before the subscriptions existed.
	s.SetIdentity(s.identities.Identity())
	s.SetRouteMode(s.routes.RouteMode())
	return nil
}

// SetIdentity switches the cart to identity and reloads it. It is a no-op
// when the identity is unchanged.
func (s *Store) SetIdentity(identity cart.Identity) {
	s.mu.Lock()
	if !s.started || s.closed || s.identity == identity {
		s.mu.Unlock()
		return
	}
	prev := s.identity
	s.identity = identity
	plan := s.beginLoadLocked()
	s.mu.Unlock()

	s.logger.Info("cart identity changed",
		zap.Stringer("from", prev),
		zap.Stringer("to", identity),
	)
	s.runLoad(plan)
}

// SetRouteMode switches between customer and admin routes and reloads the
// cart. It is a no-op when the mode is unchanged.
func (s *Store) SetRouteMode(mode cart.RouteMode) {
	s.mu.Lock()
	if !s.started || s.closed || s.route == mode {
		s.mu.Unlock()
		return
	}
	s.route = mode
	plan := s.beginLoadLocked()
	s.mu.Unlock()

	s.logger.Debug("cart route mode changed", zap.String("mode", string(mode)))
	s.runLoad(plan)
}

// beginLoadLocked cancels the previous session, bumps the version and
// empties the cart so that nothing leaks from the previous key.
func (s *Store) beginLoadLocked() loadPlan {
	if s.cancel != nil {
		s.cancel()
	}
	s.session, s.cancel = context.WithCancel(s.parent)
	s.version++
	s.state = StateLoading
	s.items = []cart.Item{}
	s.justLoaded = false
	s.requeued = false
	s.visibility.Close()

	return loadPlan{
		version:  s.version,
		identity: s.identity,
		key:      s.identity.Key(),
		remote:   cart.RemoteBacked(s.identity, s.route),
		ctx:      s.session,
	}
}

func (s *Store) runLoad(plan loadPlan) {
	if plan.remote {
		s.queue.push(remoteTask{
			op:       OpFetch,
			version:  plan.version,
			identity: plan.identity,
			key:      plan.key,
			ctx:      plan.ctx,
		})
		return
	}

	items := s.persistence.Load(plan.ctx, plan.key)
	if !s.adoptLoad(plan.version, items) {
		s.discarded(plan.ctx, OpFetch, plan.version)
	}
}

// adoptLoad settles a freshly loaded cart. It never saves.
func (s *Store) adoptLoad(version uint64, items []cart.Item) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.version != version {
		return false
	}
	s.items = cart.Normalize(items)
	s.state = StateSettled
	s.justLoaded = true
	s.visibility.Observe(len(s.items))
	return true
}

// adoptRefetch overwrites the cart with server state after a stock
// conflict. It is a mutation, so it saves.
func (s *Store) adoptRefetch(ctx context.Context, version uint64, items []cart.Item) bool {
	defer s.flush(ctx)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.state != StateSettled || s.version != version {
		return false
	}
	s.items = cart.Normalize(items)
	s.version++
	s.justLoaded = false
	s.settleLocked()
	return true
}

func (s *Store) readyLocked() bool {
	return s.started && !s.closed && s.state == StateSettled
}

// settleLocked enforces the visibility rule and stages a save unless the
// cart was just loaded for a new key. The caller flushes after unlocking.
func (s *Store) settleLocked() {
	s.visibility.Observe(len(s.items))
	if s.justLoaded {
		return
	}
	s.stageLocked(cartWrite{key: s.identity.Key(), items: cart.CloneItems(s.items)})
}

func (s *Store) stageLocked(w cartWrite) {
	if s.writes == nil {
		s.writes = make(map[cart.Key]cartWrite)
	}
	s.writes[w.key] = w
}

// flush writes the staged carts without holding mu, so slow backends do
// not block readers. Writers run one at a time and each takes the latest
// staged state per key, so an older cart never lands after a newer one.
func (s *Store) flush(ctx context.Context) {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	s.mu.Lock()
	writes := s.writes
	s.writes = nil
	s.mu.Unlock()

	for _, w := range writes {
		if w.clear {
			s.persistence.Clear(ctx, w.key)
			continue
		}
		s.persistence.Save(ctx, w.key, w.items)
	}
}

// commitLocked finishes a local mutation and returns the new version
func (s *Store) commitLocked(ctx context.Context, op Operation) uint64 {
	s.version++
	s.justLoaded = false
	s.settleLocked()
	s.recorder.RecordMutation(ctx, op)
	return s.version
}

func (s *Store) enqueueLocked(op Operation, id cart.ProductID, name string, version uint64, call func(ctx context.Context) error) {
	if !cart.RemoteBacked(s.identity, s.route) {
		return
	}
	s.queue.push(remoteTask{
		op:        op,
		productID: id,
		name:      name,
		version:   version,
		identity:  s.identity,
		key:       s.identity.Key(),
		ctx:       s.session,
		call:      call,
	})
}

// AddToCart adds quantity units of product, clamped to its stock ceiling,
// and opens the cart panel. A quantity below 1 adds one unit.
func (s *Store) AddToCart(ctx context.Context, product cart.Product, quantity int) Result {
	s.mu.Lock()
	res, notices := s.addLocked(ctx, product, quantity)
	s.mu.Unlock()
	s.flush(ctx)

	s.dispatch(ctx, notices)
	return res
}

func (s *Store) addLocked(ctx context.Context, product cart.Product, quantity int) (Result, []Notice) {
	if !s.readyLocked() {
		return Result{Status: StatusNotReady}, nil
	}
	if product.ID == "" {
		return Result{Status: StatusInvalid}, nil
	}
	if quantity < 1 {
		quantity = 1
	}

	idx := cart.IndexOf(s.items, product.ID)
	stock := cart.NormalizeStock(product.Stock)
	prevQty := 0
	if idx >= 0 {
		existing := s.items[idx]
		prevQty = existing.Quantity
		if stock == nil {
			stock = cart.NormalizeStock(existing.Stock)
		}
		if product.Name == "" {
			product.Name = existing.Name
		}
		if product.Image == nil {
			product.Image = existing.Image
		}
	}

	name := displayName(product.Name, product.ID)
	if cart.ShouldDrop(stock) {
		return Result{Status: StatusOutOfStock, Quantity: prevQty},
			[]Notice{{Level: NoticeWarning, Message: fmt.Sprintf("%s is out of stock", name)}}
	}

	requested := prevQty + quantity
	newQty := cart.ClampAddition(requested, stock)
	item := product.ToItem(newQty)
	item.Stock = stock
	if idx >= 0 {
		s.items[idx] = item
	} else {
		s.items = append(s.items, item)
	}
	s.visibility.Open()
	version := s.commitLocked(ctx, OpAdd)

	res := Result{Status: StatusApplied, Quantity: newQty}
	var notices []Notice
	if newQty < requested {
		res.Status = StatusLimited
		notices = append(notices, stockLimitNotice(name))
	}

	id := product.ID
	if delta := newQty - prevQty; delta != 0 {
		s.enqueueLocked(OpAdd, id, name, version, func(ctx context.Context) error {
			if delta > 0 {
				return s.gateway.AddItem(ctx, id, delta)
			}
			return s.gateway.SetQuantity(ctx, id, newQty)
		})
	}
	return res, notices
}

// UpdateQuantity sets the quantity of an item, clamped to its known stock.
// A result of zero or less removes the item.
func (s *Store) UpdateQuantity(ctx context.Context, id cart.ProductID, quantity int) Result {
	s.mu.Lock()
	res, notices := s.updateLocked(ctx, id, quantity)
	s.mu.Unlock()
	s.flush(ctx)

	s.dispatch(ctx, notices)
	return res
}

func (s *Store) updateLocked(ctx context.Context, id cart.ProductID, quantity int) (Result, []Notice) {
	if !s.readyLocked() {
		return Result{Status: StatusNotReady}, nil
	}
	idx := cart.IndexOf(s.items, id)
	if idx < 0 {
		return Result{Status: StatusNotFound}, nil
	}

	item := &s.items[idx]
	newQty := cart.Clamp(quantity, item.Stock)
	if newQty <= 0 {
		return s.removeLocked(ctx, idx, OpUpdate), nil
	}

	res := Result{Status: StatusApplied, Quantity: newQty}
	var notices []Notice
	if newQty < quantity {
		res.Status = StatusLimited
		notices = append(notices, stockLimitNotice(displayName(item.Name, id)))
	}

	prevQty := item.Quantity
	item.Quantity = newQty
	name := displayName(item.Name, id)
	version := s.commitLocked(ctx, OpUpdate)
	if newQty != prevQty {
		s.enqueueLocked(OpUpdate, id, name, version, func(ctx context.Context) error {
			return s.gateway.SetQuantity(ctx, id, newQty)
		})
	}
	return res, notices
}

// RemoveFromCart removes an item
func (s *Store) RemoveFromCart(ctx context.Context, id cart.ProductID) Result {
	defer s.flush(ctx)
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.readyLocked() {
		return Result{Status: StatusNotReady}
	}
	idx := cart.IndexOf(s.items, id)
	if idx < 0 {
		return Result{Status: StatusNotFound}
	}
	return s.removeLocked(ctx, idx, OpRemove)
}

func (s *Store) removeLocked(ctx context.Context, idx int, op Operation) Result {
	id := s.items[idx].ID
	name := displayName(s.items[idx].Name, id)
	s.items = slices.Delete(s.items, idx, idx+1)
	version := s.commitLocked(ctx, op)
	s.enqueueLocked(op, id, name, version, func(ctx context.Context) error {
		return s.gateway.SetQuantity(ctx, id, 0)
	})
	return Result{Status: StatusRemoved}
}

// SyncStock records a new stock ceiling for an item. A ceiling of zero
// removes it; otherwise the quantity is clamped in place. No remote call is
// made.
func (s *Store) SyncStock(ctx context.Context, id cart.ProductID, stock int) Result {
	defer s.flush(ctx)
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.readyLocked() {
		return Result{Status: StatusNotReady}
	}
	idx := cart.IndexOf(s.items, id)
	if idx < 0 {
		return Result{Status: StatusNotFound}
	}

	ceiling := cart.NormalizeStock(&stock)
	if cart.ShouldDrop(ceiling) {
		s.items = slices.Delete(s.items, idx, idx+1)
		s.commitLocked(ctx, OpSyncStock)
		return Result{Status: StatusRemoved}
	}

	item := &s.items[idx]
	item.Stock = ceiling
	res := Result{Status: StatusApplied}
	if newQty := cart.Clamp(item.Quantity, ceiling); newQty < item.Quantity {
		item.Quantity = newQty
		res.Status = StatusLimited
	}
	res.Quantity = item.Quantity
	s.commitLocked(ctx, OpSyncStock)
	return res
}

// ClearCart empties the cart, closes the panel, removes the stored entry
// and confirms with exactly one notice.
func (s *Store) ClearCart(ctx context.Context) Result {
	s.mu.Lock()
	if !s.readyLocked() {
		s.mu.Unlock()
		return Result{Status: StatusNotReady}
	}
	s.items = []cart.Item{}
	s.visibility.Close()
	s.version++
	s.justLoaded = false
	s.stageLocked(cartWrite{key: s.identity.Key(), clear: true})
	s.recorder.RecordMutation(ctx, OpClear)
	s.enqueueLocked(OpClear, "", "", s.version, func(ctx context.Context) error {
		return s.gateway.ClearCart(ctx)
	})
	s.mu.Unlock()
	s.flush(ctx)

	s.dispatch(ctx, []Notice{{Level: NoticeInfo, Message: "Cart cleared"}})
	return Result{Status: StatusCleared}
}

// OpenCart opens the cart panel. An empty cart stays closed.
func (s *Store) OpenCart() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.items) > 0 {
		s.visibility.Open()
	}
	return s.visibility.IsOpen()
}

// CloseCart closes the cart panel
func (s *Store) CloseCart() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.visibility.Close()
}

// IsOpen reports whether the cart panel is open
func (s *Store) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.visibility.IsOpen()
}

// Snapshot returns a copy of the current state
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		Items:    cart.CloneItems(s.items),
		IsOpen:   s.visibility.IsOpen(),
		State:    s.state,
		Version:  s.version,
		Identity: s.identity,
		Route:    s.route,
	}
}

// Items returns a copy of the cart items in order
func (s *Store) Items() []cart.Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cart.CloneItems(s.items)
}

// Lookup returns the item with id
func (s *Store) Lookup(id cart.ProductID) (cart.Item, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := cart.IndexOf(s.items, id)
	if idx < 0 {
		return cart.Item{}, false
	}
	return s.items[idx].Clone(), true
}

// Total returns the sum of unit price x quantity over the current items
func (s *Store) Total() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cart.Total(s.items)
}

// ItemCount returns the sum of quantities
func (s *Store) ItemCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cart.Count(s.items)
}

// State returns the lifecycle state
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Pending returns the number of queued or running gateway calls
func (s *Store) Pending() int {
	return s.queue.pending()
}

// Wait blocks until every queued gateway call has been reconciled
func (s *Store) Wait() {
	s.queue.wait()
}

// Close releases the subscriptions, cancels in-flight work and waits for
// the remote queue to drain. It is safe to call more than once.
func (s *Store) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	unsubs := s.unsubscribe
	s.unsubscribe = nil
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Unlock()

	for _, fn := range unsubs {
		fn()
	}
	s.queue.close()
	return nil
}

func (s *Store) dispatch(ctx context.Context, notices []Notice) {
	for _, n := range notices {
		s.notifier.Notify(ctx, n)
	}
}

func stockLimitNotice(name string) Notice {
	return Notice{Level: NoticeWarning, Message: fmt.Sprintf("Reached stock limit for %s", name)}
}

func displayName(name string, id cart.ProductID) string {
	if name != "" {
		return name
	}
	return fmt.Sprintf("item %s", id)
}
