// Package cart holds the session shopping cart: an owned State value that is
// only ever changed through Reduce, plus a Manager that serializes updates
// and persists every accepted state.
package cart

import "github.com/shopspring/decimal"

// CartItem is one product line. ID equals ProductID and is the merge key.
type CartItem struct {
	ID         string          `json:"id"`
	ProductID  string          `json:"product_id"`
	Name       string          `json:"name"`
	ImageURL   string          `json:"image_url,omitempty"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	Quantity   int             `json:"quantity"`
	TotalPrice decimal.Decimal `json:"total_price"`
}

type CustomerInfo struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
	Email   string `json:"email"`
}

// merge copies the non-empty fields of patch over c.
func (c CustomerInfo) merge(patch CustomerInfo) CustomerInfo {
	if patch.Name != "" {
		c.Name = patch.Name
	}
	if patch.Phone != "" {
		c.Phone = patch.Phone
	}
	if patch.Address != "" {
		c.Address = patch.Address
	}
	if patch.Email != "" {
		c.Email = patch.Email
	}
	return c
}

type State struct {
	Items        []CartItem      `json:"items"`
	Customer     CustomerInfo    `json:"customer_info"`
	ShippingCost decimal.Decimal `json:"shipping_cost"`
}

// Empty is the state of a fresh or cleared cart.
func Empty() State {
	return State{Items: []CartItem{}, ShippingCost: decimal.Zero}
}

func (s State) TotalItems() int {
	n := 0
	for _, it := range s.Items {
		n += it.Quantity
	}
	return n
}

func (s State) TotalPrice() decimal.Decimal {
	total := decimal.Zero
	for _, it := range s.Items {
		total = total.Add(it.TotalPrice)
	}
	return total
}

func (s State) GrandTotal() decimal.Decimal {
	return s.TotalPrice().Add(s.ShippingCost)
}

func (s State) IsEmpty() bool { return len(s.Items) == 0 }

func (s State) Find(productID string) (CartItem, bool) {
	if i := s.index(productID); i >= 0 {
		return s.Items[i], true
	}
	return CartItem{}, false
}

func (s State) index(productID string) int {
	for i, it := range s.Items {
		if it.ProductID == productID {
			return i
		}
	}
	return -1
}

func (s State) clone() State {
	out := s
	out.Items = make([]CartItem, len(s.Items))
	copy(out.Items, s.Items)
	return out
}

func lineTotal(unit decimal.Decimal, qty int) decimal.Decimal {
	return unit.Mul(decimal.NewFromInt(int64(qty)))
}
