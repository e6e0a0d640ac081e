package cart

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// Store persists cart state per session.
type Store interface {
	// Load returns the saved state; ok is false when the session has no cart yet.
	Load(ctx context.Context, sessionID string) (s State, ok bool, err error)
	Save(ctx context.Context, sessionID string, s State) error
}

// Manager owns one session's cart. All mutation goes through Apply.
type Manager struct {
	mu        sync.Mutex
	sessionID string
	store     Store
	state     State
	loaded    bool
}

func NewManager(sessionID string, store Store) *Manager {
	return &Manager{sessionID: sessionID, store: store, state: Empty()}
}

func (m *Manager) SessionID() string { return m.sessionID }

func (m *Manager) hydrate(ctx context.Context) error {
	if m.loaded {
		return nil
	}
	if m.store != nil {
		s, ok, err := m.store.Load(ctx, m.sessionID)
		if err != nil {
			return errors.Wrap(err, "cart: load")
		}
		if ok {
			m.state = normalize(s)
		}
	}
	m.loaded = true
	return nil
}

// Apply reduces the action against the current state and persists the result.
// On any error the previous state is kept.
func (m *Manager) Apply(ctx context.Context, a Action) (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.hydrate(ctx); err != nil {
		return State{}, err
	}
	next, err := Reduce(m.state, a)
	if err != nil {
		return m.state.clone(), err
	}
	if m.store != nil {
		if err := m.store.Save(ctx, m.sessionID, next); err != nil {
			return m.state.clone(), errors.Wrap(err, "cart: save")
		}
	}
	m.state = next
	return next.clone(), nil
}

// Snapshot returns a copy of the current state.
func (m *Manager) Snapshot(ctx context.Context) (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.hydrate(ctx); err != nil {
		return State{}, err
	}
	return m.state.clone(), nil
}

func (m *Manager) AddItem(ctx context.Context, item CartItem, maxQty int) (State, error) {
	return m.Apply(ctx, AddItem{Item: item, MaxQuantity: maxQty})
}

func (m *Manager) UpdateQuantity(ctx context.Context, productID string, qty, maxQty int) (State, error) {
	return m.Apply(ctx, UpdateQuantity{ProductID: productID, Quantity: qty, MaxQuantity: maxQty})
}

func (m *Manager) RemoveItem(ctx context.Context, productID string) (State, error) {
	return m.Apply(ctx, RemoveItem{ProductID: productID})
}

func (m *Manager) Clear(ctx context.Context) (State, error) {
	return m.Apply(ctx, Clear{})
}

func (m *Manager) SetCustomerInfo(ctx context.Context, patch CustomerInfo) (State, error) {
	return m.Apply(ctx, SetCustomerInfo{Patch: patch})
}

func (m *Manager) SetShippingCost(ctx context.Context, v decimal.Decimal) (State, error) {
	return m.Apply(ctx, SetShippingCost{Value: v})
}

// normalize repairs a persisted state so the line invariants hold again:
// duplicate product lines are merged, non-positive quantities dropped and
// totals recomputed from unit price.
func normalize(s State) State {
	out := Empty()
	out.Customer = s.Customer
	if !s.ShippingCost.IsNegative() {
		out.ShippingCost = s.ShippingCost
	}
	for _, it := range s.Items {
		if it.ProductID == "" || it.Quantity <= 0 {
			continue
		}
		out, _ = Reduce(out, AddItem{Item: it})
	}
	return out
}

// MemoryStore keeps carts in process memory.
type MemoryStore struct {
	mu    sync.Mutex
	carts map[string]State
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{carts: map[string]State{}}
}

func (s *MemoryStore) Load(_ context.Context, sessionID string) (State, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.carts[sessionID]
	if !ok {
		return State{}, false, nil
	}
	return st.clone(), true, nil
}

func (s *MemoryStore) Save(_ context.Context, sessionID string, st State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.carts[sessionID] = st.clone()
	return nil
}
