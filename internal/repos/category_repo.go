package repos

import (
	"context"
	"strings"

	"github.com/jmoiron/sqlx"

	"tokoku/internal/domain"
)

type CategoryRepo struct{ db *sqlx.DB }

func NewCategoryRepo(db *sqlx.DB) *CategoryRepo { return &CategoryRepo{db: db} }

const categoryCols = `id, name, icon_url, created_at, COALESCE(updated_at,'') AS updated_at`

func (r *CategoryRepo) List(ctx context.Context) ([]domain.Category, error) {
	out := []domain.Category{}
	err := r.db.SelectContext(ctx, &out, `SELECT `+categoryCols+` FROM categories ORDER BY name`)
	return out, err
}

func (r *CategoryRepo) Get(ctx context.Context, id string) (domain.Category, error) {
	var c domain.Category
	err := r.db.GetContext(ctx, &c, `SELECT `+categoryCols+` FROM categories WHERE id = ?`, id)
	return c, err
}

// Search is a case-insensitive substring match on the name.
func (r *CategoryRepo) Search(ctx context.Context, q string, limit int) ([]domain.Category, error) {
	out := []domain.Category{}
	err := r.db.SelectContext(ctx, &out, `
		SELECT `+categoryCols+` FROM categories
		WHERE LOWER(name) LIKE ?
		ORDER BY name
		LIMIT ?`, "%"+strings.ToLower(q)+"%", limit)
	return out, err
}

func (r *CategoryRepo) Create(ctx context.Context, c domain.Category) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO categories(id,name,icon_url) VALUES(?,?,?)`, c.ID, c.Name, c.IconURL)
	return err
}

func (r *CategoryRepo) Update(ctx context.Context, c domain.Category) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE categories SET name = ?, icon_url = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`, c.Name, c.IconURL, c.ID)
	return affectedOne(res, err)
}
