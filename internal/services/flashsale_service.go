package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"

	"tokoku/internal/domain"
	"tokoku/internal/query"
	"tokoku/internal/reports"
	"tokoku/internal/repos"
	"tokoku/internal/validate"
)

type FlashSaleService struct {
	DB    *sqlx.DB
	Sales *repos.FlashSaleRepo
	Prods *repos.ProductRepo
	Q     *query.Client
}

func NewFlashSaleService(db *sqlx.DB, sales *repos.FlashSaleRepo, prods *repos.ProductRepo, q *query.Client) *FlashSaleService {
	return &FlashSaleService{DB: db, Sales: sales, Prods: prods, Q: q}
}

type FlashSaleLine struct {
	ProductID string          `json:"product_id"`
	SalePrice decimal.Decimal `json:"sale_price"`
	Quota     int             `json:"quota"`
}

type NewFlashSale struct {
	Name     string          `json:"name"`
	StartsAt time.Time       `json:"starts_at"`
	EndsAt   time.Time       `json:"ends_at"`
	Items    []FlashSaleLine `json:"items"`
}

// Countdown is the time left in a running sale.
type Countdown struct {
	Days    int `json:"days"`
	Hours   int `json:"hours"`
	Minutes int `json:"minutes"`
	Seconds int `json:"seconds"`
}

type ActiveSale struct {
	domain.FlashSale
	Countdown Countdown `json:"countdown"`
}

func (n NewFlashSale) check() error {
	var err error
	if _, ok := validate.Name(n.Name); !ok || n.Name == "" {
		err = multierr.Append(err, errors.New("name is required"))
	}
	if n.StartsAt.IsZero() || n.EndsAt.IsZero() || !n.EndsAt.After(n.StartsAt) {
		err = multierr.Append(err, errors.New("ends_at must be after starts_at"))
	}
	if len(n.Items) == 0 {
		err = multierr.Append(err, errors.New("at least one item is required"))
	}
	for _, it := range n.Items {
		if it.Quota < 1 {
			err = multierr.Append(err, errors.Errorf("quota for %s must be at least 1", it.ProductID))
		}
		if it.SalePrice.IsNegative() {
			err = multierr.Append(err, errors.Errorf("sale price for %s cannot be negative", it.ProductID))
		}
	}
	return err
}

// Create schedules a sale. Sale prices must undercut the regular price.
func (s *FlashSaleService) Create(ctx context.Context, n NewFlashSale) (domain.FlashSale, error) {
	if err := n.check(); err != nil {
		return domain.FlashSale{}, invalid(err)
	}
	fs := domain.FlashSale{
		ID:       uuid.NewString(),
		Name:     n.Name,
		StartsAt: n.StartsAt.UTC().Format(domain.TimeLayout),
		EndsAt:   n.EndsAt.UTC().Format(domain.TimeLayout),
	}
	err := s.Q.Mutate(ctx, func(ctx context.Context) error {
		return repos.WithTx(ctx, s.DB, func(tx *sqlx.Tx) error {
			if err := s.Sales.Create(ctx, tx, fs); err != nil {
				return err
			}
			for _, it := range n.Items {
				p, err := s.Prods.GetTx(ctx, tx, it.ProductID)
				if err != nil {
					return lookup(err, "product "+it.ProductID)
				}
				if !it.SalePrice.LessThan(p.Price) {
					return invalidf("sale price for %s must be below %s", p.Name, p.Price.StringFixed(0))
				}
				if err := s.Sales.AddItem(ctx, tx, domain.FlashSaleItem{
					SaleID: fs.ID, ProductID: p.ID, SalePrice: it.SalePrice, Quota: it.Quota,
				}); err != nil {
					return conflictOr(err, "flash sale item "+p.ID)
				}
			}
			return nil
		})
	}, keyFlashSales)
	if err != nil {
		return domain.FlashSale{}, err
	}
	return fs, nil
}

// Active lists running sales with the time left until each ends.
func (s *FlashSaleService) Active(ctx context.Context) ([]ActiveSale, error) {
	now := Now()
	sales, err := query.Get(ctx, s.Q, keyFlashSales, func(ctx context.Context) ([]domain.FlashSale, error) {
		return s.Sales.Active(ctx, now)
	})
	if err != nil {
		return nil, err
	}
	out := make([]ActiveSale, 0, len(sales))
	for _, fs := range sales {
		ends, err := time.Parse(domain.TimeLayout, fs.EndsAt)
		if err != nil {
			return nil, errors.Wrapf(err, "flash sale %s end", fs.ID)
		}
		left := reports.Countdown(ends, now)
		if left == 0 {
			continue
		}
		var c Countdown
		c.Days, c.Hours, c.Minutes, c.Seconds = reports.SplitCountdown(left)
		out = append(out, ActiveSale{FlashSale: fs, Countdown: c})
	}
	return out, nil
}
