package cartsync

import (
	"context"
	"sync"
	"testing"

	"github.com/dronestore/storefront/internal/domain/cart"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// MockGateway is a mock implementation of Gateway
type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) FetchCart(ctx context.Context) ([]cart.Item, error) {
	args := m.Called(ctx)
	items, _ := args.Get(0).([]cart.Item)
	return items, args.Error(1)
}

func (m *MockGateway) AddItem(ctx context.Context, id cart.ProductID, delta int) error {
	args := m.Called(ctx, id, delta)
	return args.Error(0)
}

func (m *MockGateway) SetQuantity(ctx context.Context, id cart.ProductID, quantity int) error {
	args := m.Called(ctx, id, quantity)
	return args.Error(0)
}

func (m *MockGateway) ClearCart(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockGateway) methods() []string {
	out := []string{}
	for _, c := range m.Calls {
		out = append(out, c.Method)
	}
	return out
}

// memoryPersistence records every call it receives
type memoryPersistence struct {
	mu     sync.Mutex
	data   map[cart.Key][]cart.Item
	loads  []cart.Key
	saves  []cart.Key
	clears []cart.Key
}

func newMemoryPersistence() *memoryPersistence {
	return &memoryPersistence{data: make(map[cart.Key][]cart.Item)}
}

func (p *memoryPersistence) Load(_ context.Context, key cart.Key) []cart.Item {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.loads = append(p.loads, key)
	return cart.CloneItems(p.data[key])
}

func (p *memoryPersistence) Save(_ context.Context, key cart.Key, items []cart.Item) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.saves = append(p.saves, key)
	p.data[key] = cart.CloneItems(items)
}

func (p *memoryPersistence) Clear(_ context.Context, key cart.Key) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.clears = append(p.clears, key)
	delete(p.data, key)
}

// blockingPersistence holds the first Save until release is closed
type blockingPersistence struct {
	*memoryPersistence
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func (p *blockingPersistence) Save(ctx context.Context, key cart.Key, items []cart.Item) {
	p.once.Do(func() {
		close(p.entered)
		<-p.release
	})
	p.memoryPersistence.Save(ctx, key, items)
}

func (p *memoryPersistence) put(key cart.Key, items ...cart.Item) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.data[key] = items
}

func (p *memoryPersistence) stored(key cart.Key) ([]cart.Item, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	items, ok := p.data[key]
	return cart.CloneItems(items), ok
}

func (p *memoryPersistence) saveCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.saves)
}

func (p *memoryPersistence) loadedKeys() []cart.Key {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]cart.Key(nil), p.loads...)
}

type recordingNotifier struct {
	mu      sync.Mutex
	notices []Notice
}

func (n *recordingNotifier) Notify(_ context.Context, notice Notice) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notices = append(n.notices, notice)
}

func (n *recordingNotifier) all() []Notice {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]Notice(nil), n.notices...)
}

type reported struct {
	err error
	rc  ReportContext
}

type recordingReporter struct {
	mu      sync.Mutex
	reports []reported
}

func (r *recordingReporter) Report(_ context.Context, err error, rc ReportContext) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reports = append(r.reports, reported{err: err, rc: rc})
}

func (r *recordingReporter) all() []reported {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]reported(nil), r.reports...)
}

type recordingAuth struct {
	mu  sync.Mutex
	ops []Operation
}

func (a *recordingAuth) AuthRequired(_ context.Context, op Operation) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.ops = append(a.ops, op)
}

type countingRecorder struct {
	mu        sync.Mutex
	mutations int
	conflicts int
	failures  int
	fallbacks int
	stale     int
}

func (c *countingRecorder) RecordMutation(context.Context, Operation) {
	c.mu.Lock()
	c.mutations++
	c.mu.Unlock()
}

func (c *countingRecorder) RecordStockConflict(context.Context, Operation) {
	c.mu.Lock()
	c.conflicts++
	c.mu.Unlock()
}

func (c *countingRecorder) RecordRemoteFailure(context.Context, Operation) {
	c.mu.Lock()
	c.failures++
	c.mu.Unlock()
}

func (c *countingRecorder) RecordFallback(context.Context) {
	c.mu.Lock()
	c.fallbacks++
	c.mu.Unlock()
}

func (c *countingRecorder) RecordStaleDiscard(context.Context, Operation) {
	c.mu.Lock()
	c.stale++
	c.mu.Unlock()
}

// settableIdentity is an IdentityProvider tests can drive
type settableIdentity struct {
	mu      sync.Mutex
	current cart.Identity
	subs    Subscribers[cart.Identity]
}

func newSettableIdentity(identity cart.Identity) *settableIdentity {
	return &settableIdentity{current: identity}
}

func (s *settableIdentity) Identity() cart.Identity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

func (s *settableIdentity) Subscribe(fn func(cart.Identity)) func() {
	return s.subs.Subscribe(fn)
}

func (s *settableIdentity) Set(identity cart.Identity) {
	s.mu.Lock()
	s.current = identity
	s.mu.Unlock()
	s.subs.Notify(identity)
}

type harness struct {
	store       *Store
	gateway     *MockGateway
	persistence *memoryPersistence
	notifier    *recordingNotifier
	reporter    *recordingReporter
	auth        *recordingAuth
	recorder    *countingRecorder
	identity    *settableIdentity
	routes      *RouteTracker
}

func newHarness(t *testing.T, identity cart.Identity, path string) *harness {
	t.Helper()
	h := &harness{
		gateway:     new(MockGateway),
		persistence: newMemoryPersistence(),
		notifier:    &recordingNotifier{},
		reporter:    &recordingReporter{},
		auth:        &recordingAuth{},
		recorder:    &countingRecorder{},
		identity:    newSettableIdentity(identity),
		routes:      NewRouteTracker(path),
	}
	store, err := NewStore(Options{
		Persistence: h.persistence,
		Gateway:     h.gateway,
		Identity:    h.identity,
		Routes:      h.routes,
		Reporter:    h.reporter,
		Notifier:    h.notifier,
		Auth:        h.auth,
		Recorder:    h.recorder,
	})
	require.NoError(t, err)
	h.store = store
	t.Cleanup(func() { _ = store.Close() })
	return h
}

func (h *harness) start(t *testing.T) {
	t.Helper()
	require.NoError(t, h.store.Start(context.Background()))
	h.store.Wait()
	require.Equal(t, StateSettled, h.store.State())
}

func drone(id string, price int64, stock *int) cart.Product {
	return cart.Product{
		ID:        cart.ProductID(id),
		Name:      "Drone " + id,
		UnitPrice: decimal.NewFromInt(price),
		Stock:     stock,
	}
}

func item(id string, price int64, qty int, stock *int) cart.Item {
	return cart.Item{
		ID:        cart.ProductID(id),
		Name:      "Drone " + id,
		UnitPrice: decimal.NewFromInt(price),
		Quantity:  qty,
		Stock:     stock,
	}
}
