package repos

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

type WishlistRepo struct{ db *sqlx.DB }

func NewWishlistRepo(db *sqlx.DB) *WishlistRepo { return &WishlistRepo{db: db} }

// Ensure returns the session's wishlist id, creating the wishlist on first use.
func (r *WishlistRepo) Ensure(ctx context.Context, sessionID string) (string, error) {
	var id string
	err := r.db.GetContext(ctx, &id, `SELECT id FROM wishlists WHERE session_id=?`, sessionID)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return "", err
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO wishlists(id,session_id,updated_at) VALUES(?,?,CURRENT_TIMESTAMP)
		ON CONFLICT(session_id) DO NOTHING`, sessionID, sessionID)
	if err != nil {
		return "", err
	}
	return sessionID, nil
}

func (r *WishlistRepo) Add(ctx context.Context, wishlistID, productID string) error {
	_, err := r.db.ExecContext(ctx, `
	  INSERT INTO wishlist_items(wishlist_id, product_id, created_at)
	  VALUES(?, ?, CURRENT_TIMESTAMP)
	  ON CONFLICT(wishlist_id, product_id) DO NOTHING
	`, wishlistID, productID)
	return err
}

func (r *WishlistRepo) Remove(ctx context.Context, wishlistID, productID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM wishlist_items WHERE wishlist_id=? AND product_id=?`, wishlistID, productID)
	return err
}

type WishlistRow struct {
	ProductID string          `db:"product_id" json:"product_id"`
	Name      string          `db:"name" json:"name"`
	ImageURL  string          `db:"image_url" json:"image_url,omitempty"`
	Price     decimal.Decimal `db:"price" json:"price"`
	Stock     int             `db:"stock" json:"stock"`
	Active    bool            `db:"active" json:"active"`
}

func (r *WishlistRepo) List(ctx context.Context, wishlistID string) ([]WishlistRow, error) {
	out := []WishlistRow{}
	err := r.db.SelectContext(ctx, &out, `
	  SELECT p.id AS product_id, p.name, p.image_url, p.price, p.stock, p.active
	  FROM wishlist_items wi
	  JOIN products p ON p.id = wi.product_id
	  WHERE wi.wishlist_id = ?
	  ORDER BY p.name
	`, wishlistID)
	return out, err
}
