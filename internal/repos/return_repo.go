package repos

import (
	"context"

	"github.com/jmoiron/sqlx"

	"tokoku/internal/domain"
)

type ReturnRepo struct{ db *sqlx.DB }

func NewReturnRepo(db *sqlx.DB) *ReturnRepo { return &ReturnRepo{db: db} }

const returnCols = `id, order_id, product_id, qty, reason, status, created_at, COALESCE(updated_at,'') AS updated_at`

func (r *ReturnRepo) Create(ctx context.Context, ex sqlx.ExecerContext, rt domain.Return) error {
	_, err := ex.ExecContext(ctx, `
		INSERT INTO returns(id, order_id, product_id, qty, reason, status) VALUES(?, ?, ?, ?, ?, ?)`,
		rt.ID, rt.OrderID, rt.ProductID, rt.Qty, rt.Reason, rt.Status)
	return err
}

func (r *ReturnRepo) Get(ctx context.Context, q sqlx.QueryerContext, id string) (domain.Return, error) {
	var rt domain.Return
	err := sqlx.GetContext(ctx, q, &rt, `SELECT `+returnCols+` FROM returns WHERE id = ?`, id)
	return rt, err
}

func (r *ReturnRepo) List(ctx context.Context, status string) ([]domain.Return, error) {
	out := []domain.Return{}
	err := r.db.SelectContext(ctx, &out, `
		SELECT `+returnCols+` FROM returns
		WHERE (? = '' OR status = ?)
		ORDER BY created_at DESC`, status, status)
	return out, err
}

func (r *ReturnRepo) ByOrder(ctx context.Context, orderID string) ([]domain.Return, error) {
	out := []domain.Return{}
	err := r.db.SelectContext(ctx, &out, `SELECT `+returnCols+` FROM returns WHERE order_id = ? ORDER BY created_at`, orderID)
	return out, err
}

// ReturnedQty counts units of a product already returned or awaiting review
// for an order. Rejected returns do not count.
func (r *ReturnRepo) ReturnedQty(ctx context.Context, q sqlx.QueryerContext, orderID, productID string) (int, error) {
	var n int
	err := sqlx.GetContext(ctx, q, &n, `
		SELECT COALESCE(SUM(qty), 0) FROM returns
		WHERE order_id = ? AND product_id = ? AND status <> 'REJECTED'`, orderID, productID)
	return n, err
}

// SetStatus moves a REQUESTED return to status; other states are final.
func (r *ReturnRepo) SetStatus(ctx context.Context, ex sqlx.ExecerContext, id, status string) error {
	res, err := ex.ExecContext(ctx, `
		UPDATE returns SET status = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND status = 'REQUESTED'`, status, id)
	return affectedOne(res, err)
}
