package cart

import (
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

var (
	ErrInvalidProduct  = errors.New("product id is required")
	ErrInvalidQuantity = errors.New("quantity must be positive")
	ErrNegativePrice   = errors.New("price cannot be negative")
	ErrUnknownAction   = errors.New("unknown cart action")
)

// Action is a single cart mutation. Reduce is the only place actions are applied.
type Action interface {
	isAction()
}

// AddItem merges Item into the cart by product id. MaxQuantity > 0 is a stock
// ceiling the resulting line quantity is clamped to; zero means unbounded.
type AddItem struct {
	Item        CartItem
	MaxQuantity int
}

// UpdateQuantity sets a line's quantity; Quantity <= 0 removes the line.
// MaxQuantity has the same meaning as in AddItem.
type UpdateQuantity struct {
	ProductID   string
	Quantity    int
	MaxQuantity int
}

type RemoveItem struct {
	ProductID string
}

type Clear struct{}

// SetCustomerInfo shallow-merges the non-empty fields of Patch.
type SetCustomerInfo struct {
	Patch CustomerInfo
}

type SetShippingCost struct {
	Value decimal.Decimal
}

func (AddItem) isAction()         {}
func (UpdateQuantity) isAction()  {}
func (RemoveItem) isAction()      {}
func (Clear) isAction()           {}
func (SetCustomerInfo) isAction() {}
func (SetShippingCost) isAction() {}

func clamp(qty, max int) int {
	if max > 0 && qty > max {
		return max
	}
	return qty
}

// Reduce returns the state that results from applying a to s. s is not modified.
func Reduce(s State, a Action) (State, error) {
	next := s.clone()
	switch a := a.(type) {
	case AddItem:
		it := a.Item
		if it.ProductID == "" {
			return s, ErrInvalidProduct
		}
		if it.Quantity <= 0 {
			return s, ErrInvalidQuantity
		}
		if it.UnitPrice.IsNegative() {
			return s, ErrNegativePrice
		}
		if i := next.index(it.ProductID); i >= 0 {
			line := next.Items[i]
			line.Quantity = clamp(line.Quantity+it.Quantity, a.MaxQuantity)
			line.TotalPrice = lineTotal(line.UnitPrice, line.Quantity)
			next.Items[i] = line
			return next, nil
		}
		it.ID = it.ProductID
		it.Quantity = clamp(it.Quantity, a.MaxQuantity)
		it.TotalPrice = lineTotal(it.UnitPrice, it.Quantity)
		next.Items = append(next.Items, it)
		return next, nil

	case UpdateQuantity:
		i := next.index(a.ProductID)
		if i < 0 {
			return s, nil
		}
		if a.Quantity <= 0 {
			next.Items = append(next.Items[:i], next.Items[i+1:]...)
			return next, nil
		}
		line := next.Items[i]
		line.Quantity = clamp(a.Quantity, a.MaxQuantity)
		line.TotalPrice = lineTotal(line.UnitPrice, line.Quantity)
		next.Items[i] = line
		return next, nil

	case RemoveItem:
		i := next.index(a.ProductID)
		if i < 0 {
			return s, nil
		}
		next.Items = append(next.Items[:i], next.Items[i+1:]...)
		return next, nil

	case Clear:
		return Empty(), nil

	case SetCustomerInfo:
		next.Customer = next.Customer.merge(a.Patch)
		return next, nil

	case SetShippingCost:
		if a.Value.IsNegative() {
			return s, ErrNegativePrice
		}
		next.ShippingCost = a.Value
		return next, nil
	}
	return s, ErrUnknownAction
}
