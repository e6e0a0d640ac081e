package repos

import (
	"context"

	"github.com/jmoiron/sqlx"

	"tokoku/internal/domain"
)

type ReferralRepo struct{ db *sqlx.DB }

func NewReferralRepo(db *sqlx.DB) *ReferralRepo { return &ReferralRepo{db: db} }

func (r *ReferralRepo) Record(ctx context.Context, ex sqlx.ExecerContext, referrerID, referredID string) error {
	_, err := ex.ExecContext(ctx, `
		INSERT INTO referrals(referrer_id, referred_id) VALUES(?, ?)
		ON CONFLICT(referred_id) DO NOTHING`, referrerID, referredID)
	return err
}

func (r *ReferralRepo) ByReferrer(ctx context.Context, referrerID string) ([]domain.Referral, error) {
	out := []domain.Referral{}
	err := r.db.SelectContext(ctx, &out, `
		SELECT rf.referrer_id, rf.referred_id, u.name AS referred_name, rf.created_at
		FROM referrals rf JOIN users u ON u.id = rf.referred_id
		WHERE rf.referrer_id = ?
		ORDER BY rf.created_at DESC`, referrerID)
	return out, err
}
