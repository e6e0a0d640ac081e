package cart

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func idr(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func item(id string, price int64, qty int) CartItem {
	return CartItem{ProductID: id, Name: "Product " + id, UnitPrice: idr(price), Quantity: qty}
}

func mustReduce(t *testing.T, s State, a Action) State {
	t.Helper()
	next, err := Reduce(s, a)
	require.NoError(t, err)
	return next
}

func assertInvariants(t *testing.T, s State) {
	t.Helper()
	seen := map[string]bool{}
	for _, it := range s.Items {
		assert.False(t, seen[it.ProductID], "duplicate line %s", it.ProductID)
		seen[it.ProductID] = true
		assert.Greater(t, it.Quantity, 0)
		assert.True(t, it.TotalPrice.Equal(lineTotal(it.UnitPrice, it.Quantity)), "line total for %s", it.ProductID)
	}
	assert.True(t, s.GrandTotal().Equal(s.TotalPrice().Add(s.ShippingCost)))
}

func TestReduce_AddMergesByProduct(t *testing.T) {
	s := mustReduce(t, Empty(), AddItem{Item: item("P1", 10000, 2)})
	s = mustReduce(t, s, AddItem{Item: item("P1", 10000, 1)})
	s = mustReduce(t, s, AddItem{Item: item("P2", 2500, 4)})

	require.Len(t, s.Items, 2)
	assert.Equal(t, 3, s.Items[0].Quantity)
	assert.Equal(t, "P1", s.Items[0].ID)
	assert.True(t, s.Items[0].TotalPrice.Equal(idr(30000)))
	assert.Equal(t, 7, s.TotalItems())
	assert.True(t, s.TotalPrice().Equal(idr(40000)))
	assertInvariants(t, s)
}

func TestReduce_AddRejectsBadInput(t *testing.T) {
	base := mustReduce(t, Empty(), AddItem{Item: item("P1", 100, 1)})

	cases := []struct {
		name string
		it   CartItem
		want error
	}{
		{"missing product", item("", 100, 1), ErrInvalidProduct},
		{"zero qty", item("P2", 100, 0), ErrInvalidQuantity},
		{"negative qty", item("P2", 100, -3), ErrInvalidQuantity},
		{"negative price", item("P2", -1, 1), ErrNegativePrice},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Reduce(base, AddItem{Item: tc.it})
			assert.ErrorIs(t, err, tc.want)
			assert.Equal(t, base, got)
		})
	}
}

func TestReduce_AddClampsToStock(t *testing.T) {
	s := mustReduce(t, Empty(), AddItem{Item: item("P1", 100, 4), MaxQuantity: 5})
	s = mustReduce(t, s, AddItem{Item: item("P1", 100, 4), MaxQuantity: 5})
	assert.Equal(t, 5, s.Items[0].Quantity)
	assert.True(t, s.Items[0].TotalPrice.Equal(idr(500)))
}

func TestReduce_UpdateQuantity(t *testing.T) {
	s := mustReduce(t, Empty(), AddItem{Item: item("P1", 1500, 1)})
	s = mustReduce(t, s, AddItem{Item: item("P2", 700, 1)})

	up := mustReduce(t, s, UpdateQuantity{ProductID: "P1", Quantity: 4})
	assert.Equal(t, 4, up.Items[0].Quantity)
	assert.True(t, up.Items[0].TotalPrice.Equal(idr(6000)))

	clamped := mustReduce(t, s, UpdateQuantity{ProductID: "P1", Quantity: 10, MaxQuantity: 3})
	assert.Equal(t, 3, clamped.Items[0].Quantity)

	for _, q := range []int{0, -1} {
		gone := mustReduce(t, s, UpdateQuantity{ProductID: "P1", Quantity: q})
		_, ok := gone.Find("P1")
		assert.False(t, ok)
		assert.Len(t, gone.Items, 1)
	}

	same := mustReduce(t, s, UpdateQuantity{ProductID: "nope", Quantity: 2})
	assert.Equal(t, s, same)
}

func TestReduce_RemoveAndClear(t *testing.T) {
	s := mustReduce(t, Empty(), AddItem{Item: item("P1", 100, 1)})
	s = mustReduce(t, s, SetShippingCost{Value: idr(5000)})
	s = mustReduce(t, s, SetCustomerInfo{Patch: CustomerInfo{Name: "Budi"}})

	removed := mustReduce(t, s, RemoveItem{ProductID: "P1"})
	assert.True(t, removed.IsEmpty())
	assert.Equal(t, s, mustReduce(t, s, RemoveItem{ProductID: "P9"}))

	cleared := mustReduce(t, s, Clear{})
	assert.Empty(t, cleared.Items)
	assert.Equal(t, CustomerInfo{}, cleared.Customer)
	assert.True(t, cleared.ShippingCost.IsZero())
	assert.Equal(t, 0, cleared.TotalItems())
	assert.True(t, cleared.TotalPrice().IsZero())
}

func TestReduce_CustomerInfoShallowMerge(t *testing.T) {
	s := mustReduce(t, Empty(), SetCustomerInfo{Patch: CustomerInfo{Name: "Siti", Phone: "0812"}})
	s = mustReduce(t, s, SetCustomerInfo{Patch: CustomerInfo{Address: "Jl. Merdeka 1"}})
	assert.Equal(t, CustomerInfo{Name: "Siti", Phone: "0812", Address: "Jl. Merdeka 1"}, s.Customer)
}

func TestReduce_ShippingCost(t *testing.T) {
	s := mustReduce(t, Empty(), SetShippingCost{Value: idr(9000)})
	assert.True(t, s.GrandTotal().Equal(idr(9000)))

	_, err := Reduce(s, SetShippingCost{Value: idr(-1)})
	assert.ErrorIs(t, err, ErrNegativePrice)
}

func TestReduce_DoesNotMutateInput(t *testing.T) {
	s := mustReduce(t, Empty(), AddItem{Item: item("P1", 100, 1)})
	before := s.clone()
	_ = mustReduce(t, s, UpdateQuantity{ProductID: "P1", Quantity: 9})
	_ = mustReduce(t, s, RemoveItem{ProductID: "P1"})
	assert.Equal(t, before, s)
}

func TestReduce_InvariantsAcrossSequence(t *testing.T) {
	actions := []Action{
		AddItem{Item: item("A", 1200, 2)},
		AddItem{Item: item("B", 300, 1)},
		AddItem{Item: item("A", 1200, 5), MaxQuantity: 6},
		UpdateQuantity{ProductID: "B", Quantity: 3},
		SetShippingCost{Value: idr(15000)},
		RemoveItem{ProductID: "A"},
		AddItem{Item: item("C", 50, 10)},
		UpdateQuantity{ProductID: "C", Quantity: 0},
	}
	s := Empty()
	for _, a := range actions {
		s = mustReduce(t, s, a)
		assertInvariants(t, s)
	}
	assert.Equal(t, 3, s.TotalItems())
	assert.True(t, s.GrandTotal().Equal(idr(15900)))
}

type nilAction struct{}

func (nilAction) isAction() {}

func TestReduce_UnknownAction(t *testing.T) {
	_, err := Reduce(Empty(), nilAction{})
	assert.ErrorIs(t, err, ErrUnknownAction)
}

func TestManager_EndToEnd(t *testing.T) {
	ctx := context.Background()
	m := NewManager("sid-1", NewMemoryStore())

	s, err := m.AddItem(ctx, item("P1", 10000, 2), 0)
	require.NoError(t, err)
	assert.True(t, s.TotalPrice().Equal(idr(20000)))

	s, err = m.AddItem(ctx, item("P1", 10000, 1), 0)
	require.NoError(t, err)
	require.Len(t, s.Items, 1)
	assert.Equal(t, 3, s.Items[0].Quantity)
	assert.True(t, s.TotalPrice().Equal(idr(30000)))

	s, err = m.SetShippingCost(ctx, idr(5000))
	require.NoError(t, err)
	assert.True(t, s.GrandTotal().Equal(idr(35000)))

	s, err = m.Clear(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, s.TotalItems())
	assert.True(t, s.TotalPrice().IsZero())
}

func TestManager_PersistsAndRehydrates(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	m := NewManager("sid-2", store)
	_, err := m.AddItem(ctx, item("P1", 500, 2), 0)
	require.NoError(t, err)
	_, err = m.SetCustomerInfo(ctx, CustomerInfo{Name: "Andi"})
	require.NoError(t, err)

	again := NewManager("sid-2", store)
	s, err := again.Snapshot(ctx)
	require.NoError(t, err)
	require.Len(t, s.Items, 1)
	assert.Equal(t, 2, s.Items[0].Quantity)
	assert.Equal(t, "Andi", s.Customer.Name)

	other, err := NewManager("sid-3", store).Snapshot(ctx)
	require.NoError(t, err)
	assert.True(t, other.IsEmpty())
}

func TestManager_SnapshotIsACopy(t *testing.T) {
	ctx := context.Background()
	m := NewManager("sid", nil)
	_, err := m.AddItem(ctx, item("P1", 100, 1), 0)
	require.NoError(t, err)

	snap, err := m.Snapshot(ctx)
	require.NoError(t, err)
	snap.Items[0].Quantity = 99

	fresh, err := m.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, fresh.Items[0].Quantity)
}

type failingStore struct {
	*MemoryStore
	failSave bool
}

func (f *failingStore) Save(ctx context.Context, sid string, s State) error {
	if f.failSave {
		return errors.New("disk full")
	}
	return f.MemoryStore.Save(ctx, sid, s)
}

func TestManager_SaveFailureKeepsPreviousState(t *testing.T) {
	ctx := context.Background()
	store := &failingStore{MemoryStore: NewMemoryStore()}
	m := NewManager("sid", store)
	_, err := m.AddItem(ctx, item("P1", 100, 1), 0)
	require.NoError(t, err)

	store.failSave = true
	s, err := m.AddItem(ctx, item("P2", 100, 1), 0)
	require.Error(t, err)
	assert.Len(t, s.Items, 1)

	snap, _ := m.Snapshot(ctx)
	assert.Len(t, snap.Items, 1)
}

func TestManager_ConcurrentAdds(t *testing.T) {
	ctx := context.Background()
	m := NewManager("sid", NewMemoryStore())

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = m.AddItem(ctx, item("P1", 100, 1), 0)
		}()
	}
	wg.Wait()

	s, err := m.Snapshot(ctx)
	require.NoError(t, err)
	require.Len(t, s.Items, 1)
	assert.Equal(t, 50, s.Items[0].Quantity)
	assert.True(t, s.TotalPrice().Equal(idr(5000)))
}

func TestNormalize_RepairsPersistedState(t *testing.T) {
	raw := State{
		Items: []CartItem{
			{ProductID: "P1", UnitPrice: idr(100), Quantity: 1, TotalPrice: idr(1)},
			{ProductID: "P1", UnitPrice: idr(100), Quantity: 2},
			{ProductID: "P2", UnitPrice: idr(100), Quantity: 0},
		},
		ShippingCost: idr(-5),
	}
	s := normalize(raw)
	require.Len(t, s.Items, 1)
	assert.Equal(t, 3, s.Items[0].Quantity)
	assert.True(t, s.ShippingCost.IsZero())
	assertInvariants(t, s)
}
