package repos

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"tokoku/internal/domain"
)

var ErrQuotaExceeded = errors.New("flash sale quota exceeded")

type FlashSaleRepo struct{ db *sqlx.DB }

func NewFlashSaleRepo(db *sqlx.DB) *FlashSaleRepo { return &FlashSaleRepo{db: db} }

func (r *FlashSaleRepo) Create(ctx context.Context, ex sqlx.ExecerContext, s domain.FlashSale) error {
	_, err := ex.ExecContext(ctx, `INSERT INTO flash_sales(id, name, starts_at, ends_at) VALUES(?, ?, ?, ?)`,
		s.ID, s.Name, s.StartsAt, s.EndsAt)
	return err
}

func (r *FlashSaleRepo) AddItem(ctx context.Context, ex sqlx.ExecerContext, it domain.FlashSaleItem) error {
	_, err := ex.ExecContext(ctx, `
		INSERT INTO flash_sale_items(sale_id, product_id, sale_price, quota, sold) VALUES(?, ?, ?, ?, 0)`,
		it.SaleID, it.ProductID, it.SalePrice, it.Quota)
	return err
}

const itemSelect = `
	SELECT fi.sale_id, fi.product_id, p.name AS product_name, p.price AS regular_price,
	       fi.sale_price, fi.quota, fi.sold
	FROM flash_sale_items fi JOIN products p ON p.id = fi.product_id`

// Active returns sales running at now, soonest ending first, with their items.
func (r *FlashSaleRepo) Active(ctx context.Context, now time.Time) ([]domain.FlashSale, error) {
	ts := now.UTC().Format(domain.TimeLayout)
	sales := []domain.FlashSale{}
	if err := r.db.SelectContext(ctx, &sales, `
		SELECT id, name, starts_at, ends_at, created_at FROM flash_sales
		WHERE starts_at <= ? AND ends_at > ?
		ORDER BY ends_at`, ts, ts); err != nil {
		return nil, err
	}
	for i := range sales {
		items := []domain.FlashSaleItem{}
		if err := r.db.SelectContext(ctx, &items, itemSelect+` WHERE fi.sale_id = ? ORDER BY p.name`, sales[i].ID); err != nil {
			return nil, err
		}
		sales[i].Items = items
	}
	return sales, nil
}

// ActiveItem finds the running sale entry for a product, if any.
func (r *FlashSaleRepo) ActiveItem(ctx context.Context, q sqlx.QueryerContext, productID string, now time.Time) (domain.FlashSaleItem, bool, error) {
	ts := now.UTC().Format(domain.TimeLayout)
	var it domain.FlashSaleItem
	err := sqlx.GetContext(ctx, q, &it, itemSelect+`
		JOIN flash_sales s ON s.id = fi.sale_id
		WHERE fi.product_id = ? AND s.starts_at <= ? AND s.ends_at > ?
		ORDER BY s.ends_at
		LIMIT 1`, productID, ts, ts)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.FlashSaleItem{}, false, nil
	}
	if err != nil {
		return domain.FlashSaleItem{}, false, err
	}
	return it, true, nil
}

// ActiveItemFor is ActiveItem outside a transaction.
func (r *FlashSaleRepo) ActiveItemFor(ctx context.Context, productID string, now time.Time) (domain.FlashSaleItem, bool, error) {
	return r.ActiveItem(ctx, r.db, productID, now)
}

// AddSold counts qty against the item's quota, failing if it would exceed it.
func (r *FlashSaleRepo) AddSold(ctx context.Context, ex sqlx.ExecerContext, saleID, productID string, qty int) error {
	res, err := ex.ExecContext(ctx, `
		UPDATE flash_sale_items SET sold = sold + ?
		WHERE sale_id = ? AND product_id = ? AND sold + ? <= quota`, qty, saleID, productID, qty)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.Wrapf(ErrQuotaExceeded, "product %s", productID)
	}
	return nil
}
