package repos

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"tokoku/internal/cart"
	"tokoku/internal/domain"
)

// CartRepo persists each session's cart state as JSON. It satisfies cart.Store.
type CartRepo struct{ db *sqlx.DB }

func NewCartRepo(db *sqlx.DB) *CartRepo { return &CartRepo{db: db} }

var _ cart.Store = (*CartRepo)(nil)

func (r *CartRepo) Load(ctx context.Context, sessionID string) (cart.State, bool, error) {
	var raw string
	err := r.db.GetContext(ctx, &raw, `SELECT state_json FROM carts WHERE session_id = ?`, sessionID)
	if errors.Is(err, sql.ErrNoRows) {
		return cart.State{}, false, nil
	}
	if err != nil {
		return cart.State{}, false, err
	}
	var s cart.State
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return cart.State{}, false, errors.Wrapf(err, "decode cart %s", sessionID)
	}
	return s, true, nil
}

func (r *CartRepo) Save(ctx context.Context, sessionID string, s cart.State) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO carts(session_id, state_json, updated_at) VALUES(?, ?, ?)
		ON CONFLICT(session_id) DO UPDATE SET state_json = excluded.state_json, updated_at = excluded.updated_at
	`, sessionID, string(raw), time.Now().UTC().Format(domain.TimeLayout))
	return err
}

// LinkUser marks the session's cart as belonging to userID.
func (r *CartRepo) LinkUser(ctx context.Context, sessionID, userID string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE carts SET user_id = ? WHERE session_id = ?`, userID, sessionID)
	return err
}

// LatestForUser finds the user's most recently updated cart in another session.
func (r *CartRepo) LatestForUser(ctx context.Context, userID, exceptSession string) (string, bool, error) {
	var sid string
	err := r.db.GetContext(ctx, &sid, `
		SELECT session_id FROM carts
		WHERE user_id = ? AND session_id <> ?
		ORDER BY updated_at DESC
		LIMIT 1`, userID, exceptSession)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	return sid, err == nil, err
}

func (r *CartRepo) Delete(ctx context.Context, sessionID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM carts WHERE session_id = ?`, sessionID)
	return err
}
