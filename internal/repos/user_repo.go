package repos

import (
	"context"

	"github.com/jmoiron/sqlx"

	"tokoku/internal/domain"
)

type UserRepo struct{ DB *sqlx.DB }

func NewUserRepo(db *sqlx.DB) *UserRepo { return &UserRepo{DB: db} }

const userCols = `u.id, u.email, u.name, u.password_hash, u.role, u.phone, u.address,
    COALESCE(u.referral_code,'') AS referral_code`

func (r *UserRepo) ByEmail(ctx context.Context, email string) (*domain.User, error) {
	var u domain.User
	err := r.DB.GetContext(ctx, &u, `SELECT `+userCols+` FROM users u WHERE LOWER(u.email)=LOWER(?)`, email)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepo) ByID(ctx context.Context, id string) (*domain.User, error) {
	var u domain.User
	err := r.DB.GetContext(ctx, &u, `SELECT `+userCols+` FROM users u WHERE u.id=?`, id)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepo) ByReferralCode(ctx context.Context, code string) (*domain.User, error) {
	var u domain.User
	err := r.DB.GetContext(ctx, &u, `SELECT `+userCols+` FROM users u WHERE u.referral_code=?`, code)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepo) Create(ctx context.Context, ex sqlx.ExecerContext, u domain.User) error {
	_, err := ex.ExecContext(ctx, `
		INSERT INTO users(id,email,name,password_hash,role,phone,address,referral_code)
		VALUES(?,?,?,?,?,?,?,NULLIF(?,''))`,
		u.ID, u.Email, u.Name, u.Hash, u.Role, u.Phone, u.Address, u.ReferralCode)
	return err
}

func (r *UserRepo) UpdateProfile(ctx context.Context, id, name, phone, address string) error {
	res, err := r.DB.ExecContext(ctx, `
		UPDATE users SET name=?, phone=?, address=?, updated_at=CURRENT_TIMESTAMP WHERE id=?`,
		name, phone, address, id)
	return affectedOne(res, err)
}

func (r *UserRepo) BindSession(ctx context.Context, sid, userID string) error {
	_, err := r.DB.ExecContext(ctx, `INSERT INTO sessions(id,user_id,last_seen)
                          VALUES(?,?,CURRENT_TIMESTAMP)
                          ON CONFLICT(id) DO UPDATE SET user_id=excluded.user_id,last_seen=CURRENT_TIMESTAMP`, sid, userID)
	return err
}

func (r *UserRepo) SessionUser(ctx context.Context, sid string) (*domain.User, error) {
	var u domain.User
	err := r.DB.GetContext(ctx, &u, `
      SELECT `+userCols+`
      FROM sessions s
      JOIN users u ON u.id=s.user_id
      WHERE s.id=?`, sid)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepo) UnbindSession(ctx context.Context, sid string) error {
	_, err := r.DB.ExecContext(ctx, `UPDATE sessions SET user_id=NULL,last_seen=CURRENT_TIMESTAMP WHERE id=?`, sid)
	return err
}

// Customers lists USER accounts for the admin customer view.
func (r *UserRepo) Customers(ctx context.Context) ([]domain.User, error) {
	out := []domain.User{}
	err := r.DB.SelectContext(ctx, &out, `SELECT `+userCols+` FROM users u WHERE u.role='USER' ORDER BY u.name`)
	return out, err
}
