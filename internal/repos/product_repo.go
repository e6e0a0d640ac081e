package repos

import (
	"context"
	"database/sql"
	"strings"

	"github.com/jmoiron/sqlx"

	"tokoku/internal/domain"
)

type ProductRepo struct{ db *sqlx.DB }

func NewProductRepo(db *sqlx.DB) *ProductRepo { return &ProductRepo{db: db} }

const productCols = `id, category_id, name, description, price, image_url, stock, active,
    created_at, COALESCE(updated_at,'') AS updated_at`

func (r *ProductRepo) ListByCategory(ctx context.Context, catID string, limit, offset int) ([]domain.Product, error) {
	out := []domain.Product{}
	err := r.db.SelectContext(ctx, &out, `
	  SELECT `+productCols+`
	  FROM products
	  WHERE category_id = ? AND active = 1
	  ORDER BY name
	  LIMIT ? OFFSET ?
	`, catID, limit, offset)
	return out, err
}

// ListAll includes inactive products, for the admin catalog.
func (r *ProductRepo) ListAll(ctx context.Context) ([]domain.Product, error) {
	out := []domain.Product{}
	err := r.db.SelectContext(ctx, &out, `SELECT `+productCols+` FROM products ORDER BY name`)
	return out, err
}

func (r *ProductRepo) Get(ctx context.Context, id string) (domain.Product, error) {
	return r.get(ctx, r.db, id)
}

// GetTx reads a product inside a transaction.
func (r *ProductRepo) GetTx(ctx context.Context, q sqlx.QueryerContext, id string) (domain.Product, error) {
	return r.get(ctx, q, id)
}

func (r *ProductRepo) get(ctx context.Context, q sqlx.QueryerContext, id string) (domain.Product, error) {
	var p domain.Product
	err := sqlx.GetContext(ctx, q, &p, `SELECT `+productCols+` FROM products WHERE id = ?`, id)
	return p, err
}

// Search matches active products by name or description substring.
func (r *ProductRepo) Search(ctx context.Context, q, catID string, limit, offset int) ([]domain.Product, error) {
	where := `active = 1`
	args := []any{}
	if q != "" {
		q = "%" + strings.ToLower(q) + "%"
		where += ` AND (LOWER(name) LIKE ? OR LOWER(description) LIKE ?)`
		args = append(args, q, q)
	}
	if catID != "" {
		where += ` AND category_id = ?`
		args = append(args, catID)
	}
	args = append(args, limit, offset)

	out := []domain.Product{}
	err := r.db.SelectContext(ctx, &out, `
	  SELECT `+productCols+`
	  FROM products
	  WHERE `+where+`
	  ORDER BY name
	  LIMIT ? OFFSET ?`, args...)
	return out, err
}

func (r *ProductRepo) Create(ctx context.Context, p domain.Product) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO products(id,category_id,name,description,price,image_url,stock,active)
		VALUES(?,?,?,?,?,?,?,?)`,
		p.ID, p.CategoryID, p.Name, p.Description, p.Price, p.ImageURL, p.Stock, p.Active)
	return err
}

// Update changes descriptive fields and price. Stock only moves through
// InventoryRepo.Adjust.
func (r *ProductRepo) Update(ctx context.Context, p domain.Product) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE products
		SET category_id = ?, name = ?, description = ?, price = ?, image_url = ?, active = ?,
		    updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`,
		p.CategoryID, p.Name, p.Description, p.Price, p.ImageURL, p.Active, p.ID)
	return affectedOne(res, err)
}

func (r *ProductRepo) SetActive(ctx context.Context, id string, active bool) error {
	res, err := r.db.ExecContext(ctx, `UPDATE products SET active = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`, active, id)
	return affectedOne(res, err)
}

// LowStock lists active products at or below threshold.
func (r *ProductRepo) LowStock(ctx context.Context, threshold int) ([]domain.Product, error) {
	out := []domain.Product{}
	err := r.db.SelectContext(ctx, &out, `
		SELECT `+productCols+` FROM products
		WHERE active = 1 AND stock <= ?
		ORDER BY stock, name`, threshold)
	return out, err
}

func affectedOne(res sql.Result, err error) error {
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
