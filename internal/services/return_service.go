package services

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"tokoku/internal/domain"
	"tokoku/internal/query"
	"tokoku/internal/repos"
	"tokoku/internal/validate"
)

type ReturnService struct {
	DB      *sqlx.DB
	Returns *repos.ReturnRepo
	Orders  *repos.OrderRepo
	Inv     *repos.InventoryRepo
	Q       *query.Client
}

func NewReturnService(db *sqlx.DB, returns *repos.ReturnRepo, orders *repos.OrderRepo, inv *repos.InventoryRepo, q *query.Client) *ReturnService {
	return &ReturnService{DB: db, Returns: returns, Orders: orders, Inv: inv, Q: q}
}

type ReturnRequest struct {
	OrderID   string `json:"order_id"`
	ProductID string `json:"product_id"`
	Qty       int    `json:"qty"`
	Reason    string `json:"reason"`
}

// Request opens a return for a line of a delivered order the caller owns.
// The quantity may not exceed what was ordered minus what is already being
// or has been returned.
func (s *ReturnService) Request(ctx context.Context, userID, sessionID string, r ReturnRequest) (domain.Return, error) {
	if r.Qty < 1 {
		return domain.Return{}, invalidf("qty must be at least 1")
	}
	reason, ok := validate.Text(r.Reason, 300)
	if !ok {
		return domain.Return{}, invalidf("reason is too long")
	}
	o, items, err := s.Orders.Get(ctx, r.OrderID)
	if err != nil {
		return domain.Return{}, lookup(err, "order "+r.OrderID)
	}
	if !ownsOrder(o, userID, sessionID) {
		return domain.Return{}, errors.Wrap(ErrNotFound, "order "+r.OrderID)
	}
	if o.Status != domain.OrderDelivered {
		return domain.Return{}, errors.Wrap(ErrConflict, "only delivered orders can be returned")
	}
	ordered := 0
	for _, it := range items {
		if it.ProductID == r.ProductID {
			ordered = it.Qty
		}
	}
	if ordered == 0 {
		return domain.Return{}, invalidf("product %s is not in order %s", r.ProductID, r.OrderID)
	}

	rt := domain.Return{
		ID:        uuid.NewString(),
		OrderID:   r.OrderID,
		ProductID: r.ProductID,
		Qty:       r.Qty,
		Reason:    reason,
		Status:    domain.ReturnRequested,
	}
	err = repos.WithTx(ctx, s.DB, func(tx *sqlx.Tx) error {
		done, err := s.Returns.ReturnedQty(ctx, tx, r.OrderID, r.ProductID)
		if err != nil {
			return err
		}
		if left := ordered - done; r.Qty > left {
			return invalidf("at most %d can still be returned", left)
		}
		return s.Returns.Create(ctx, tx, rt)
	})
	if err != nil {
		return domain.Return{}, err
	}
	return s.Returns.Get(ctx, s.DB, rt.ID)
}

func (s *ReturnService) List(ctx context.Context, status string) ([]domain.Return, error) {
	return s.Returns.List(ctx, status)
}

func (s *ReturnService) ForOrder(ctx context.Context, orderID string) ([]domain.Return, error) {
	return s.Returns.ByOrder(ctx, orderID)
}

// Approve accepts a requested return and puts the goods back in stock.
func (s *ReturnService) Approve(ctx context.Context, id string) (domain.Return, error) {
	return s.decide(ctx, id, domain.ReturnApproved)
}

func (s *ReturnService) Reject(ctx context.Context, id string) (domain.Return, error) {
	return s.decide(ctx, id, domain.ReturnRejected)
}

func (s *ReturnService) decide(ctx context.Context, id, status string) (domain.Return, error) {
	err := s.Q.Mutate(ctx, func(ctx context.Context) error {
		return repos.WithTx(ctx, s.DB, func(tx *sqlx.Tx) error {
			rt, err := s.Returns.Get(ctx, tx, id)
			if err != nil {
				return lookup(err, "return "+id)
			}
			if rt.Status != domain.ReturnRequested {
				return errors.Wrapf(ErrConflict, "return is already %s", rt.Status)
			}
			if err := s.Returns.SetStatus(ctx, tx, id, status); err != nil {
				return err
			}
			if status != domain.ReturnApproved {
				return nil
			}
			return s.Inv.Adjust(ctx, tx, rt.ProductID, rt.Qty, domain.MoveReturn, rt.ID, Now())
		})
	}, keyProducts, keySearch, keyReports)
	if err != nil {
		return domain.Return{}, err
	}
	return s.Returns.Get(ctx, s.DB, id)
}
