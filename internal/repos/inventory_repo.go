package repos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"tokoku/internal/domain"
	"tokoku/internal/reports"
)

var ErrInsufficientStock = errors.New("insufficient stock")

type InventoryRepo struct{ db *sqlx.DB }

func NewInventoryRepo(db *sqlx.DB) *InventoryRepo { return &InventoryRepo{db: db} }

func (r *InventoryRepo) DB() *sqlx.DB { return r.db }

// Stock returns current stock for a product.
func (r *InventoryRepo) Stock(ctx context.Context, productID string) (int, error) {
	var qty int
	err := r.db.GetContext(ctx, &qty, `SELECT stock FROM products WHERE id = ?`, productID)
	return qty, err
}

// Adjust applies delta to a product's stock and records the movement. A
// decrement that would take stock below zero changes nothing and returns
// ErrInsufficientStock.
func (r *InventoryRepo) Adjust(ctx context.Context, ex sqlx.ExecerContext, productID string, delta int, reason, refID string, at time.Time) error {
	res, err := ex.ExecContext(ctx, `
		UPDATE products
		SET stock = stock + ?, updated_at = ?
		WHERE id = ? AND stock + ? >= 0
	`, delta, at.UTC().Format(domain.TimeLayout), productID, delta)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.Wrapf(ErrInsufficientStock, "product %s", productID)
	}
	_, err = ex.ExecContext(ctx, `
		INSERT INTO stock_movements(product_id, delta, reason, ref_id, created_at)
		VALUES(?, ?, ?, ?, ?)
	`, productID, delta, reason, refID, at.UTC().Format(domain.TimeLayout))
	return err
}

func (r *InventoryRepo) Movements(ctx context.Context, productID string, limit int) ([]domain.StockMovement, error) {
	if limit <= 0 {
		limit = 50
	}
	out := []domain.StockMovement{}
	err := r.db.SelectContext(ctx, &out, `
		SELECT id, product_id, delta, reason, ref_id, created_at
		FROM stock_movements
		WHERE product_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?`, productID, limit)
	return out, err
}

// DailySold returns units sold per product per day since the given time.
func (r *InventoryRepo) DailySold(ctx context.Context, since time.Time) (map[string][]reports.DailySales, error) {
	var rows []struct {
		ProductID string `db:"product_id"`
		Day       string `db:"day"`
		Qty       int    `db:"qty"`
	}
	err := r.db.SelectContext(ctx, &rows, `
		SELECT product_id, substr(created_at, 1, 10) AS day, -SUM(delta) AS qty
		FROM stock_movements
		WHERE reason = 'sale' AND created_at >= ?
		GROUP BY product_id, day`, since.UTC().Format(domain.TimeLayout))
	if err != nil {
		return nil, err
	}
	out := map[string][]reports.DailySales{}
	for _, row := range rows {
		d, err := time.Parse("2006-01-02", row.Day)
		if err != nil {
			return nil, errors.Wrapf(err, "movement day %q", row.Day)
		}
		out[row.ProductID] = append(out[row.ProductID], reports.DailySales{Day: d, Qty: row.Qty})
	}
	return out, nil
}
