package repos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"tokoku/internal/domain"
	"tokoku/internal/reports"
)

type OrderRepo struct{ db *sqlx.DB }

func NewOrderRepo(db *sqlx.DB) *OrderRepo { return &OrderRepo{db: db} }

const orderCols = `id, session_id, user_id, customer_name, customer_phone, customer_address,
    customer_email, subtotal, shipping_cost, total, payment_method, status, created_at`

// Create inserts a new order header.
func (r *OrderRepo) Create(ctx context.Context, ex sqlx.ExecerContext, o domain.Order) error {
	_, err := ex.ExecContext(ctx, `
	  INSERT INTO orders(`+orderCols+`)
	  VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, o.ID, o.SessionID, o.UserID, o.CustomerName, o.CustomerPhone, o.CustomerAddress,
		o.CustomerEmail, o.Subtotal, o.ShippingCost, o.Total, o.PaymentMethod, o.Status, o.CreatedAt)
	return err
}

// InsertItem inserts a single line item.
func (r *OrderRepo) InsertItem(ctx context.Context, ex sqlx.ExecerContext, it domain.OrderItem) error {
	_, err := ex.ExecContext(ctx, `
	  INSERT INTO order_items(order_id, product_id, name, qty, unit_price, total_price)
	  VALUES(?, ?, ?, ?, ?, ?)
	`, it.OrderID, it.ProductID, it.Name, it.Qty, it.UnitPrice, it.TotalPrice)
	return err
}

func (r *OrderRepo) Get(ctx context.Context, orderID string) (domain.Order, []domain.OrderItem, error) {
	var o domain.Order
	if err := r.db.GetContext(ctx, &o, `SELECT `+orderCols+` FROM orders WHERE id = ?`, orderID); err != nil {
		return domain.Order{}, nil, err
	}
	items := []domain.OrderItem{}
	if err := r.db.SelectContext(ctx, &items, `
		SELECT order_id, product_id, name, qty, unit_price, total_price
		FROM order_items
		WHERE order_id = ?
		ORDER BY name
	`, orderID); err != nil {
		return domain.Order{}, nil, err
	}
	return o, items, nil
}

// ListLatest returns newest orders first, optionally filtered by status.
func (r *OrderRepo) ListLatest(ctx context.Context, status string, limit int) ([]domain.Order, error) {
	if limit <= 0 {
		limit = 100
	}
	out := []domain.Order{}
	err := r.db.SelectContext(ctx, &out, `
		SELECT `+orderCols+` FROM orders
		WHERE (? = '' OR status = ?)
		ORDER BY created_at DESC
		LIMIT ?
	`, status, status, limit)
	return out, err
}

// ListForCustomer returns orders placed by the user or from the session.
func (r *OrderRepo) ListForCustomer(ctx context.Context, userID, sessionID string) ([]domain.Order, error) {
	out := []domain.Order{}
	err := r.db.SelectContext(ctx, &out, `
		SELECT `+orderCols+` FROM orders
		WHERE (user_id <> '' AND user_id = ?) OR session_id = ?
		ORDER BY created_at DESC
	`, userID, sessionID)
	return out, err
}

func (r *OrderRepo) UpdateStatus(ctx context.Context, ex sqlx.ExecerContext, id, status string) error {
	res, err := ex.ExecContext(ctx, `UPDATE orders SET status = ? WHERE id = ?`, status, id)
	return affectedOne(res, err)
}

func (r *OrderRepo) Items(ctx context.Context, q sqlx.QueryerContext, orderID string) ([]domain.OrderItem, error) {
	out := []domain.OrderItem{}
	err := sqlx.SelectContext(ctx, q, &out, `
		SELECT order_id, product_id, name, qty, unit_price, total_price
		FROM order_items WHERE order_id = ?`, orderID)
	return out, err
}

// HasPurchased reports whether the user has a non-cancelled order containing the product.
func (r *OrderRepo) HasPurchased(ctx context.Context, userID, productID string) (bool, error) {
	var n int
	err := r.db.GetContext(ctx, &n, `
		SELECT COUNT(*) FROM orders o
		JOIN order_items oi ON oi.order_id = o.id
		WHERE o.user_id = ? AND oi.product_id = ? AND o.status <> 'CANCELLED'`, userID, productID)
	return n > 0, err
}

// SalesRows returns non-cancelled orders created in [from, until).
func (r *OrderRepo) SalesRows(ctx context.Context, from, until time.Time) ([]reports.SaleRow, error) {
	var rows []struct {
		CreatedAt string          `db:"created_at"`
		Total     decimal.Decimal `db:"total"`
		Qty       int             `db:"qty"`
	}
	err := r.db.SelectContext(ctx, &rows, `
		SELECT o.created_at, o.total,
		       COALESCE((SELECT SUM(qty) FROM order_items WHERE order_id = o.id), 0) AS qty
		FROM orders o
		WHERE o.status <> 'CANCELLED' AND o.created_at >= ? AND o.created_at < ?
		ORDER BY o.created_at`,
		from.UTC().Format(domain.TimeLayout), until.UTC().Format(domain.TimeLayout))
	if err != nil {
		return nil, err
	}
	out := make([]reports.SaleRow, 0, len(rows))
	for _, row := range rows {
		at, err := time.Parse(domain.TimeLayout, row.CreatedAt)
		if err != nil {
			return nil, errors.Wrapf(err, "order time %q", row.CreatedAt)
		}
		out = append(out, reports.SaleRow{At: at, Amount: row.Total, Qty: row.Qty})
	}
	return out, nil
}

// TopProducts sums quantity and revenue per product over [from, until).
func (r *OrderRepo) TopProducts(ctx context.Context, from, until time.Time) ([]reports.TopProduct, error) {
	out := []reports.TopProduct{}
	err := r.db.SelectContext(ctx, &out, `
		SELECT oi.product_id, MAX(oi.name) AS name, SUM(oi.qty) AS qty,
		       SUM(oi.total_price) AS revenue
		FROM order_items oi
		JOIN orders o ON o.id = oi.order_id
		WHERE o.status <> 'CANCELLED' AND o.created_at >= ? AND o.created_at < ?
		GROUP BY oi.product_id`,
		from.UTC().Format(domain.TimeLayout), until.UTC().Format(domain.TimeLayout))
	return out, err
}
