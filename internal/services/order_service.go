package services

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"

	"tokoku/internal/cart"
	"tokoku/internal/domain"
	applog "tokoku/internal/log"
	"tokoku/internal/query"
	"tokoku/internal/repos"
	"tokoku/internal/settings"
	"tokoku/internal/validate"
)

// OrderNotifier is told about every committed order.
type OrderNotifier interface {
	OrderPlaced(ctx context.Context, orderID string, total decimal.Decimal) error
}

type OrderService struct {
	DB       *sqlx.DB
	Orders   *repos.OrderRepo
	Prods    *repos.ProductRepo
	Inv      *repos.InventoryRepo
	Sales    *repos.FlashSaleRepo
	Cart     *CartService
	Settings *SettingsService
	Q        *query.Client
	Notify   OrderNotifier
}

func NewOrderService(db *sqlx.DB, orders *repos.OrderRepo, prods *repos.ProductRepo, inv *repos.InventoryRepo,
	sales *repos.FlashSaleRepo, carts *CartService, st *SettingsService, q *query.Client, n OrderNotifier) *OrderService {
	return &OrderService{DB: db, Orders: orders, Prods: prods, Inv: inv, Sales: sales, Cart: carts, Settings: st, Q: q, Notify: n}
}

// OrderView is an order with its lines.
type OrderView struct {
	domain.Order
	Items []domain.OrderItem `json:"items"`
}

// checkContact validates the checkout contact details.
func checkContact(c cart.CustomerInfo) (cart.CustomerInfo, error) {
	var err error
	var ok bool
	if c.Name, ok = validate.Name(c.Name); !ok || c.Name == "" {
		err = multierr.Append(err, errors.New("name is required"))
	}
	if c.Phone == "" {
		err = multierr.Append(err, errors.New("phone is required"))
	} else if c.Phone, ok = validate.Phone(c.Phone); !ok {
		err = multierr.Append(err, errors.New("invalid phone number"))
	}
	if c.Address, ok = validate.Text(c.Address, 300); !ok || c.Address == "" {
		err = multierr.Append(err, errors.New("address is required"))
	}
	if c.Email != "" {
		if c.Email, ok = validate.Email(c.Email); !ok {
			err = multierr.Append(err, errors.New("invalid email"))
		}
	}
	return c, err
}

// Place converts the session cart into a COD order. Contact fields given
// here override the ones saved in the cart. Lines are repriced at current
// prices and stock is decremented in the same transaction.
func (s *OrderService) Place(ctx context.Context, sessionID, userID string, contact cart.CustomerInfo) (OrderView, error) {
	view, err := s.Cart.View(ctx, sessionID)
	if err != nil {
		return OrderView{}, err
	}
	st := view.State
	cod, err := s.Settings.COD(ctx)
	if err != nil {
		return OrderView{}, err
	}

	var verr error
	if st.IsEmpty() {
		verr = multierr.Append(verr, errors.New("cart is empty"))
	}
	info, cerr := checkContact(mergeContact(st.Customer, contact))
	verr = multierr.Append(verr, cerr)
	if !cod.Enabled {
		verr = multierr.Append(verr, errors.New("cash on delivery is not available"))
	}
	if !st.IsEmpty() && !settings.MeetsMinimum(cod, st.TotalPrice()) {
		verr = multierr.Append(verr, errors.Errorf("minimum order is %s", cod.MinOrder.StringFixed(0)))
	}
	if verr != nil {
		return OrderView{}, invalid(verr)
	}

	now := Now()
	o := domain.Order{
		ID:              newOrderID(now),
		SessionID:       sessionID,
		UserID:          userID,
		CustomerName:    info.Name,
		CustomerPhone:   info.Phone,
		CustomerAddress: info.Address,
		CustomerEmail:   info.Email,
		PaymentMethod:   domain.PaymentCOD,
		Status:          domain.OrderPending,
		CreatedAt:       now.Format(domain.TimeLayout),
	}
	var items []domain.OrderItem

	err = repos.WithTx(ctx, s.DB, func(tx *sqlx.Tx) error {
		subtotal := decimal.Zero
		for _, line := range st.Items {
			p, err := s.Prods.GetTx(ctx, tx, line.ProductID)
			if err != nil {
				return lookup(err, "product "+line.ProductID)
			}
			if !p.Active {
				return errors.Wrapf(ErrNotFound, "%s is no longer sold", p.Name)
			}
			price := p.Price
			fi, ok, err := s.Sales.ActiveItem(ctx, tx, p.ID, now)
			if err != nil {
				return err
			}
			if ok && fi.Remaining() >= line.Quantity {
				if err := s.Sales.AddSold(ctx, tx, fi.SaleID, p.ID, line.Quantity); err != nil {
					return lookup(err, "flash sale "+fi.SaleID)
				}
				price = fi.SalePrice
			}
			if err := s.Inv.Adjust(ctx, tx, p.ID, -line.Quantity, domain.MoveSale, o.ID, now); err != nil {
				if errors.Is(err, repos.ErrInsufficientStock) {
					return errors.Wrapf(ErrInsufficientStock, "only %d %s left", p.Stock, p.Name)
				}
				return err
			}
			it := domain.OrderItem{
				OrderID:    o.ID,
				ProductID:  p.ID,
				Name:       p.Name,
				Qty:        line.Quantity,
				UnitPrice:  price,
				TotalPrice: price.Mul(decimal.NewFromInt(int64(line.Quantity))),
			}
			items = append(items, it)
			subtotal = subtotal.Add(it.TotalPrice)
		}
		// the minimum applies to the repriced subtotal, not the cart prices
		if !settings.MeetsMinimum(cod, subtotal) {
			return invalidf("minimum order is %s", cod.MinOrder.StringFixed(0))
		}
		o.Subtotal = subtotal
		o.ShippingCost = settings.ShippingCost(cod, subtotal)
		o.Total = subtotal.Add(o.ShippingCost)
		if err := s.Orders.Create(ctx, tx, o); err != nil {
			return err
		}
		for _, it := range items {
			if err := s.Orders.InsertItem(ctx, tx, it); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return OrderView{}, err
	}

	if _, err := s.Cart.Clear(ctx, sessionID); err != nil {
		applog.L().Error().Err(err).Str("order_id", o.ID).Msg("clear cart after checkout")
	}
	s.Q.Invalidate(ctx, keyProducts, keySearch, keyOrders, keyReports, keyFlashSales)
	if s.Notify != nil {
		if err := s.Notify.OrderPlaced(ctx, o.ID, o.Total); err != nil {
			applog.L().Warn().Err(err).Str("order_id", o.ID).Msg("publish order.placed")
		}
	}
	return OrderView{Order: o, Items: items}, nil
}

func mergeContact(saved, given cart.CustomerInfo) cart.CustomerInfo {
	if given.Name != "" {
		saved.Name = given.Name
	}
	if given.Phone != "" {
		saved.Phone = given.Phone
	}
	if given.Address != "" {
		saved.Address = given.Address
	}
	if given.Email != "" {
		saved.Email = given.Email
	}
	return saved
}

func (s *OrderService) Get(ctx context.Context, id string) (OrderView, error) {
	v, err := query.Get(ctx, s.Q, keyOrder(id), func(ctx context.Context) (OrderView, error) {
		o, items, err := s.Orders.Get(ctx, id)
		return OrderView{Order: o, Items: items}, err
	})
	return v, lookup(err, "order "+id)
}

// GetFor returns the order only if it belongs to the user or the session.
func (s *OrderService) GetFor(ctx context.Context, id, userID, sessionID string) (OrderView, error) {
	v, err := s.Get(ctx, id)
	if err != nil {
		return OrderView{}, err
	}
	if !ownsOrder(v.Order, userID, sessionID) {
		return OrderView{}, errors.Wrap(ErrNotFound, "order "+id)
	}
	return v, nil
}

func ownsOrder(o domain.Order, userID, sessionID string) bool {
	return (userID != "" && o.UserID == userID) || (sessionID != "" && o.SessionID == sessionID)
}

func (s *OrderService) ListForCustomer(ctx context.Context, userID, sessionID string) ([]domain.Order, error) {
	return s.Orders.ListForCustomer(ctx, userID, sessionID)
}

func (s *OrderService) ListLatest(ctx context.Context, status string, limit int) ([]domain.Order, error) {
	return query.Get(ctx, s.Q, query.NewKey("orders", "latest", status, limit), func(ctx context.Context) ([]domain.Order, error) {
		return s.Orders.ListLatest(ctx, status, limit)
	})
}

var transitions = map[string][]string{
	domain.OrderPending:   {domain.OrderConfirmed, domain.OrderCancelled},
	domain.OrderConfirmed: {domain.OrderShipped, domain.OrderCancelled},
	domain.OrderShipped:   {domain.OrderDelivered},
}

// CanTransition reports whether an order may move from one status to another.
func CanTransition(from, to string) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// UpdateStatus moves an order along its lifecycle. Cancelling puts the
// ordered quantities back in stock.
func (s *OrderService) UpdateStatus(ctx context.Context, id, status string) (OrderView, error) {
	o, items, err := s.Orders.Get(ctx, id)
	if err != nil {
		return OrderView{}, lookup(err, "order "+id)
	}
	if !CanTransition(o.Status, status) {
		return OrderView{}, errors.Wrapf(ErrConflict, "cannot move order from %s to %s", o.Status, status)
	}
	err = s.Q.Mutate(ctx, func(ctx context.Context) error {
		return repos.WithTx(ctx, s.DB, func(tx *sqlx.Tx) error {
			if err := s.Orders.UpdateStatus(ctx, tx, id, status); err != nil {
				return err
			}
			if status != domain.OrderCancelled {
				return nil
			}
			for _, it := range items {
				if err := s.Inv.Adjust(ctx, tx, it.ProductID, it.Qty, domain.MoveReturn, id, Now()); err != nil {
					return err
				}
			}
			return nil
		})
	}, keyOrders, keyProducts, keySearch, keyReports)
	if err != nil {
		return OrderView{}, err
	}
	o.Status = status
	return OrderView{Order: o, Items: items}, nil
}
