package services

import (
	"context"

	lru "github.com/hashicorp/golang-lru"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"

	"tokoku/internal/cart"
	"tokoku/internal/domain"
	"tokoku/internal/repos"
	"tokoku/internal/settings"
	"tokoku/internal/validate"
)

// managerCacheSize bounds the number of live session carts kept in memory.
const managerCacheSize = 1024

// CartView is a cart snapshot plus its derived totals.
type CartView struct {
	cart.State
	TotalItems int    `json:"total_items"`
	Subtotal   string `json:"subtotal"`
	GrandTotal string `json:"grand_total"`
}

func viewOf(s cart.State) CartView {
	return CartView{
		State:      s,
		TotalItems: s.TotalItems(),
		Subtotal:   s.TotalPrice().StringFixed(0),
		GrandTotal: s.GrandTotal().StringFixed(0),
	}
}

type CartService struct {
	Carts    *repos.CartRepo
	Prods    *repos.ProductRepo
	Sales    *repos.FlashSaleRepo
	Settings *SettingsService
	Users    *repos.UserRepo

	managers *lru.Cache
}

func NewCartService(carts *repos.CartRepo, prods *repos.ProductRepo, sales *repos.FlashSaleRepo, st *SettingsService, users *repos.UserRepo) *CartService {
	m, err := lru.New(managerCacheSize)
	if err != nil {
		// only fails for a non-positive size
		panic(err)
	}
	return &CartService{Carts: carts, Prods: prods, Sales: sales, Settings: st, Users: users, managers: m}
}

// manager returns the session's cart manager, creating it on first use.
func (s *CartService) manager(sessionID string) *cart.Manager {
	if v, ok := s.managers.Get(sessionID); ok {
		return v.(*cart.Manager)
	}
	fresh := cart.NewManager(sessionID, s.Carts)
	if prev, ok, _ := s.managers.PeekOrAdd(sessionID, fresh); ok {
		return prev.(*cart.Manager)
	}
	return fresh
}

func cartErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, cart.ErrInvalidProduct), errors.Is(err, cart.ErrInvalidQuantity), errors.Is(err, cart.ErrNegativePrice):
		return invalid(err)
	}
	return err
}

func (s *CartService) View(ctx context.Context, sessionID string) (CartView, error) {
	st, err := s.manager(sessionID).Snapshot(ctx)
	if err != nil {
		return CartView{}, err
	}
	return viewOf(st), nil
}

// sellable resolves the price and the stock ceiling for a product right now.
// An active flash sale overrides the price and caps quantity at its remaining quota.
func (s *CartService) sellable(ctx context.Context, productID string) (domain.Product, cart.CartItem, int, error) {
	p, err := s.Prods.Get(ctx, productID)
	if err != nil {
		return domain.Product{}, cart.CartItem{}, 0, lookup(err, "product "+productID)
	}
	if !p.Active {
		return domain.Product{}, cart.CartItem{}, 0, errors.Wrap(ErrNotFound, "product "+productID)
	}
	item := cart.CartItem{ProductID: p.ID, Name: p.Name, ImageURL: p.ImageURL, UnitPrice: p.Price}
	max := p.Stock
	fi, ok, err := s.Sales.ActiveItemFor(ctx, p.ID, Now())
	if err != nil {
		return domain.Product{}, cart.CartItem{}, 0, err
	}
	if ok && fi.Remaining() > 0 {
		item.UnitPrice = fi.SalePrice
		if fi.Remaining() < max {
			max = fi.Remaining()
		}
	}
	return p, item, max, nil
}

// Add puts qty of a product in the cart, clamped to available stock.
func (s *CartService) Add(ctx context.Context, sessionID, productID string, qty int) (CartView, error) {
	if qty < 1 {
		return CartView{}, invalid(cart.ErrInvalidQuantity)
	}
	_, item, max, err := s.sellable(ctx, productID)
	if err != nil {
		return CartView{}, err
	}
	if max <= 0 {
		return CartView{}, errors.Wrapf(ErrInsufficientStock, "%s is out of stock", item.Name)
	}
	item.Quantity = qty
	m := s.manager(sessionID)
	if _, err := m.AddItem(ctx, item, max); err != nil {
		return CartView{}, cartErr(err)
	}
	return s.refreshShipping(ctx, m)
}

// UpdateQuantity sets a line's quantity; zero or less removes it.
func (s *CartService) UpdateQuantity(ctx context.Context, sessionID, productID string, qty int) (CartView, error) {
	max := 0
	if qty > 0 {
		_, _, m, err := s.sellable(ctx, productID)
		if err != nil {
			return CartView{}, err
		}
		if m <= 0 {
			return CartView{}, errors.Wrap(ErrInsufficientStock, "product "+productID)
		}
		max = m
	}
	m := s.manager(sessionID)
	if _, err := m.UpdateQuantity(ctx, productID, qty, max); err != nil {
		return CartView{}, cartErr(err)
	}
	return s.refreshShipping(ctx, m)
}

func (s *CartService) Remove(ctx context.Context, sessionID, productID string) (CartView, error) {
	m := s.manager(sessionID)
	if _, err := m.RemoveItem(ctx, productID); err != nil {
		return CartView{}, err
	}
	return s.refreshShipping(ctx, m)
}

func (s *CartService) Clear(ctx context.Context, sessionID string) (CartView, error) {
	st, err := s.manager(sessionID).Clear(ctx)
	if err != nil {
		return CartView{}, err
	}
	return viewOf(st), nil
}

// SetCustomer merges checkout contact details into the cart after validating
// the fields that were supplied.
func (s *CartService) SetCustomer(ctx context.Context, sessionID string, patch cart.CustomerInfo) (CartView, error) {
	var verr error
	if patch.Name != "" {
		n, ok := validate.Name(patch.Name)
		if !ok {
			verr = multierr.Append(verr, errors.New("name is too long"))
		}
		patch.Name = n
	}
	if patch.Phone != "" {
		p, ok := validate.Phone(patch.Phone)
		if !ok {
			verr = multierr.Append(verr, errors.New("invalid phone number"))
		}
		patch.Phone = p
	}
	if patch.Email != "" {
		e, ok := validate.Email(patch.Email)
		if !ok {
			verr = multierr.Append(verr, errors.New("invalid email"))
		}
		patch.Email = e
	}
	if patch.Address != "" {
		a, ok := validate.Text(patch.Address, 300)
		if !ok {
			verr = multierr.Append(verr, errors.New("address is too long"))
		}
		patch.Address = a
	}
	if verr != nil {
		return CartView{}, invalid(verr)
	}
	st, err := s.manager(sessionID).SetCustomerInfo(ctx, patch)
	if err != nil {
		return CartView{}, err
	}
	return viewOf(st), nil
}

// refreshShipping recomputes the COD fee for the current subtotal.
func (s *CartService) refreshShipping(ctx context.Context, m *cart.Manager) (CartView, error) {
	st, err := m.Snapshot(ctx)
	if err != nil {
		return CartView{}, err
	}
	cod, err := s.Settings.COD(ctx)
	if err != nil {
		return CartView{}, err
	}
	fee := decimal.Zero
	if !st.IsEmpty() {
		fee = settings.ShippingCost(cod, st.TotalPrice())
	}
	if fee.Equal(st.ShippingCost) {
		return viewOf(st), nil
	}
	st, err = m.SetShippingCost(ctx, fee)
	if err != nil {
		return CartView{}, err
	}
	return viewOf(st), nil
}

// AttachUser links the session cart to a user who just signed in. Items left
// in the user's previous session cart are merged in, and empty contact
// fields are filled from the profile.
func (s *CartService) AttachUser(ctx context.Context, sessionID string, u *domain.User) (CartView, error) {
	m := s.manager(sessionID)
	prev, found, err := s.Carts.LatestForUser(ctx, u.ID, sessionID)
	if err != nil {
		return CartView{}, err
	}
	if found {
		old := s.manager(prev)
		st, err := old.Snapshot(ctx)
		if err != nil {
			return CartView{}, err
		}
		for _, it := range st.Items {
			_, fresh, max, err := s.sellable(ctx, it.ProductID)
			if err != nil || max <= 0 {
				continue
			}
			fresh.Quantity = it.Quantity
			if _, err := m.AddItem(ctx, fresh, max); err != nil {
				return CartView{}, cartErr(err)
			}
		}
		if err := s.Carts.Delete(ctx, prev); err != nil {
			return CartView{}, err
		}
		s.managers.Remove(prev)
	}
	st, err := m.Snapshot(ctx)
	if err != nil {
		return CartView{}, err
	}
	if _, err := m.SetCustomerInfo(ctx, profileFill(st.Customer, u)); err != nil {
		return CartView{}, err
	}
	if err := s.Carts.LinkUser(ctx, sessionID, u.ID); err != nil {
		return CartView{}, err
	}
	return s.refreshShipping(ctx, m)
}

// profileFill returns a patch holding the profile fields the cart lacks.
func profileFill(have cart.CustomerInfo, u *domain.User) cart.CustomerInfo {
	var p cart.CustomerInfo
	if have.Name == "" {
		p.Name = u.Name
	}
	if have.Phone == "" {
		p.Phone = u.Phone
	}
	if have.Address == "" {
		p.Address = u.Address
	}
	if have.Email == "" {
		p.Email = u.Email
	}
	return p
}
