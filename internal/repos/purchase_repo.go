package repos

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"tokoku/internal/domain"
)

type PurchaseRepo struct{ db *sqlx.DB }

func NewPurchaseRepo(db *sqlx.DB) *PurchaseRepo { return &PurchaseRepo{db: db} }

func (r *PurchaseRepo) Suppliers(ctx context.Context) ([]domain.Supplier, error) {
	out := []domain.Supplier{}
	err := r.db.SelectContext(ctx, &out, `SELECT id, name, phone, created_at FROM suppliers ORDER BY name`)
	return out, err
}

func (r *PurchaseRepo) Supplier(ctx context.Context, id string) (domain.Supplier, error) {
	var s domain.Supplier
	err := r.db.GetContext(ctx, &s, `SELECT id, name, phone, created_at FROM suppliers WHERE id = ?`, id)
	return s, err
}

func (r *PurchaseRepo) CreateSupplier(ctx context.Context, s domain.Supplier) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO suppliers(id, name, phone) VALUES(?, ?, ?)`, s.ID, s.Name, s.Phone)
	return err
}

func (r *PurchaseRepo) Create(ctx context.Context, ex sqlx.ExecerContext, p domain.Purchase) error {
	_, err := ex.ExecContext(ctx, `
		INSERT INTO purchases(id, supplier_id, payment_method, total_amount, due_date, note, created_at)
		VALUES(?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.SupplierID, p.PaymentMethod, p.TotalAmount, p.DueDate, p.Note, p.CreatedAt)
	return err
}

func (r *PurchaseRepo) InsertItem(ctx context.Context, ex sqlx.ExecerContext, it domain.PurchaseItem) error {
	_, err := ex.ExecContext(ctx, `
		INSERT INTO purchase_items(purchase_id, product_id, qty, unit_cost) VALUES(?, ?, ?, ?)`,
		it.PurchaseID, it.ProductID, it.Qty, it.UnitCost)
	return err
}

const purchaseSelect = `
	SELECT p.id, p.supplier_id, s.name AS supplier_name, p.payment_method, p.total_amount,
	       COALESCE((SELECT SUM(amount) FROM purchase_payments WHERE purchase_id = p.id), 0) AS paid_amount,
	       p.due_date, p.note, p.created_at
	FROM purchases p
	JOIN suppliers s ON s.id = p.supplier_id`

// List returns purchases newest first; method filters by payment method when set.
func (r *PurchaseRepo) List(ctx context.Context, method string) ([]domain.Purchase, error) {
	out := []domain.Purchase{}
	err := r.db.SelectContext(ctx, &out, purchaseSelect+`
		WHERE (? = '' OR p.payment_method = ?)
		ORDER BY p.created_at DESC`, method, method)
	return out, err
}

func (r *PurchaseRepo) Get(ctx context.Context, q sqlx.QueryerContext, id string) (domain.Purchase, error) {
	var p domain.Purchase
	err := sqlx.GetContext(ctx, q, &p, purchaseSelect+` WHERE p.id = ?`, id)
	return p, err
}

func (r *PurchaseRepo) Items(ctx context.Context, purchaseID string) ([]domain.PurchaseItem, error) {
	out := []domain.PurchaseItem{}
	err := r.db.SelectContext(ctx, &out, `
		SELECT purchase_id, product_id, qty, unit_cost FROM purchase_items WHERE purchase_id = ?`, purchaseID)
	return out, err
}

func (r *PurchaseRepo) Payments(ctx context.Context, purchaseID string) ([]domain.PurchasePayment, error) {
	out := []domain.PurchasePayment{}
	err := r.db.SelectContext(ctx, &out, `
		SELECT id, purchase_id, amount, paid_at, note FROM purchase_payments
		WHERE purchase_id = ? ORDER BY paid_at`, purchaseID)
	return out, err
}

func (r *PurchaseRepo) AddPayment(ctx context.Context, ex sqlx.ExecerContext, p domain.PurchasePayment) error {
	_, err := ex.ExecContext(ctx, `
		INSERT INTO purchase_payments(id, purchase_id, amount, note, paid_at) VALUES(?, ?, ?, ?, ?)`,
		p.ID, p.PurchaseID, p.Amount, p.Note, p.PaidAt)
	return err
}

// PaidTotal sums the payments recorded against a purchase.
func (r *PurchaseRepo) PaidTotal(ctx context.Context, q sqlx.QueryerContext, purchaseID string) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := sqlx.GetContext(ctx, q, &total, `
		SELECT COALESCE(SUM(amount), 0) FROM purchase_payments WHERE purchase_id = ?`, purchaseID)
	return total, err
}
