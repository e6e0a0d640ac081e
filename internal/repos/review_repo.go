package repos

import (
	"context"

	"github.com/jmoiron/sqlx"

	"tokoku/internal/domain"
)

type ReviewRepo struct{ db *sqlx.DB }

func NewReviewRepo(db *sqlx.DB) *ReviewRepo { return &ReviewRepo{db: db} }

// Upsert stores the user's review of a product, replacing an earlier one.
func (r *ReviewRepo) Upsert(ctx context.Context, rv domain.Review) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO reviews(id, product_id, user_id, rating, comment, created_at)
		VALUES(?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(product_id, user_id) DO UPDATE SET
		  rating = excluded.rating, comment = excluded.comment, created_at = CURRENT_TIMESTAMP`,
		rv.ID, rv.ProductID, rv.UserID, rv.Rating, rv.Comment)
	return err
}

func (r *ReviewRepo) ByProduct(ctx context.Context, productID string, limit int) ([]domain.Review, error) {
	if limit <= 0 {
		limit = 20
	}
	out := []domain.Review{}
	err := r.db.SelectContext(ctx, &out, `
		SELECT rv.id, rv.product_id, rv.user_id, u.name AS user_name, rv.rating, rv.comment, rv.created_at
		FROM reviews rv JOIN users u ON u.id = rv.user_id
		WHERE rv.product_id = ?
		ORDER BY rv.created_at DESC
		LIMIT ?`, productID, limit)
	return out, err
}

func (r *ReviewRepo) Summary(ctx context.Context, productID string) (domain.RatingSummary, error) {
	s := domain.RatingSummary{ProductID: productID}
	err := r.db.GetContext(ctx, &s, `
		SELECT ? AS product_id, COALESCE(AVG(rating), 0) AS average, COUNT(*) AS count
		FROM reviews WHERE product_id = ?`, productID, productID)
	return s, err
}
