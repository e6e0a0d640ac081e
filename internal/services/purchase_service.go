package services

import (
	"context"
	"strings"
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

// DateLayout is the format of due dates and report date parameters.
const DateLayout = "2006-01-02"

type PurchaseService struct {
	DB        *sqlx.DB
	Purchases *repos.PurchaseRepo
	Prods     *repos.ProductRepo
	Inv       *repos.InventoryRepo
	Q         *query.Client
}

func NewPurchaseService(db *sqlx.DB, purchases *repos.PurchaseRepo, prods *repos.ProductRepo, inv *repos.InventoryRepo, q *query.Client) *PurchaseService {
	return &PurchaseService{DB: db, Purchases: purchases, Prods: prods, Inv: inv, Q: q}
}

func (s *PurchaseService) Suppliers(ctx context.Context) ([]domain.Supplier, error) {
	return s.Purchases.Suppliers(ctx)
}

func (s *PurchaseService) CreateSupplier(ctx context.Context, sup domain.Supplier) (domain.Supplier, error) {
	var verr error
	name, ok := validate.Name(sup.Name)
	if !ok || name == "" {
		verr = multierr.Append(verr, errors.New("name is required"))
	}
	phone := ""
	if sup.Phone != "" {
		if phone, ok = validate.Phone(sup.Phone); !ok {
			verr = multierr.Append(verr, errors.New("invalid phone number"))
		}
	}
	if verr != nil {
		return domain.Supplier{}, invalid(verr)
	}
	sup = domain.Supplier{ID: uuid.NewString(), Name: name, Phone: phone}
	if err := s.Purchases.CreateSupplier(ctx, sup); err != nil {
		return domain.Supplier{}, err
	}
	return s.Purchases.Supplier(ctx, sup.ID)
}

type PurchaseLine struct {
	ProductID string          `json:"product_id"`
	Qty       int             `json:"qty"`
	UnitCost  decimal.Decimal `json:"unit_cost"`
}

type NewPurchase struct {
	SupplierID    string         `json:"supplier_id"`
	PaymentMethod string         `json:"payment_method"`
	DueDate       string         `json:"due_date"`
	Note          string         `json:"note"`
	Items         []PurchaseLine `json:"items"`
}

// PurchaseView is a purchase with its lines and payments.
type PurchaseView struct {
	domain.Purchase
	Outstanding decimal.Decimal          `json:"outstanding"`
	Items       []domain.PurchaseItem    `json:"items"`
	Payments    []domain.PurchasePayment `json:"payments"`
}

func (n NewPurchase) check() error {
	var err error
	if n.SupplierID == "" {
		err = multierr.Append(err, errors.New("supplier is required"))
	}
	switch n.PaymentMethod {
	case domain.PayCash:
	case domain.PayCredit:
		if _, perr := time.Parse(DateLayout, n.DueDate); perr != nil {
			err = multierr.Append(err, errors.New("credit purchases need a due date (YYYY-MM-DD)"))
		}
	default:
		err = multierr.Append(err, errors.New("payment method must be cash or credit"))
	}
	if _, ok := validate.Text(n.Note, 300); !ok {
		err = multierr.Append(err, errors.New("note is too long"))
	}
	if len(n.Items) == 0 {
		err = multierr.Append(err, errors.New("at least one item is required"))
	}
	seen := map[string]bool{}
	for _, it := range n.Items {
		if seen[it.ProductID] {
			err = multierr.Append(err, errors.Errorf("product %s is listed twice", it.ProductID))
		}
		seen[it.ProductID] = true
		if it.Qty < 1 {
			err = multierr.Append(err, errors.Errorf("qty for %s must be at least 1", it.ProductID))
		}
		if it.UnitCost.IsNegative() {
			err = multierr.Append(err, errors.Errorf("unit cost for %s cannot be negative", it.ProductID))
		}
	}
	return err
}

// Create records a supplier purchase and receives its goods into stock.
func (s *PurchaseService) Create(ctx context.Context, n NewPurchase) (PurchaseView, error) {
	n.PaymentMethod = strings.ToLower(strings.TrimSpace(n.PaymentMethod))
	if err := n.check(); err != nil {
		return PurchaseView{}, invalid(err)
	}
	if _, err := s.Purchases.Supplier(ctx, n.SupplierID); err != nil {
		return PurchaseView{}, lookup(err, "supplier "+n.SupplierID)
	}
	if n.PaymentMethod == domain.PayCash {
		n.DueDate = ""
	}
	now := Now()
	p := domain.Purchase{
		ID:            uuid.NewString(),
		SupplierID:    n.SupplierID,
		PaymentMethod: n.PaymentMethod,
		TotalAmount:   decimal.Zero,
		DueDate:       n.DueDate,
		Note:          strings.TrimSpace(n.Note),
		CreatedAt:     now.Format(domain.TimeLayout),
	}
	for _, it := range n.Items {
		p.TotalAmount = p.TotalAmount.Add(it.UnitCost.Mul(decimal.NewFromInt(int64(it.Qty))))
	}
	err := s.Q.Mutate(ctx, func(ctx context.Context) error {
		return repos.WithTx(ctx, s.DB, func(tx *sqlx.Tx) error {
			if err := s.Purchases.Create(ctx, tx, p); err != nil {
				return err
			}
			for _, it := range n.Items {
				if _, err := s.Prods.GetTx(ctx, tx, it.ProductID); err != nil {
					return lookup(err, "product "+it.ProductID)
				}
				if err := s.Purchases.InsertItem(ctx, tx, domain.PurchaseItem{
					PurchaseID: p.ID, ProductID: it.ProductID, Qty: it.Qty, UnitCost: it.UnitCost,
				}); err != nil {
					return err
				}
				if err := s.Inv.Adjust(ctx, tx, it.ProductID, it.Qty, domain.MovePurchase, p.ID, now); err != nil {
					return err
				}
			}
			return nil
		})
	}, keyPurchases, keyProducts, keySearch, keyReports)
	if err != nil {
		return PurchaseView{}, err
	}
	return s.Get(ctx, p.ID)
}

// decorate derives paid amount and status. Cash purchases are settled on the spot.
func decorate(p domain.Purchase) domain.Purchase {
	paid := []decimal.Decimal{p.PaidAmount}
	p.PaymentStatus = string(reports.PaymentStatusOf(p.PaymentMethod, p.TotalAmount, paid))
	if p.PaymentMethod == domain.PayCash {
		p.PaidAmount = p.TotalAmount
	}
	return p
}

func (s *PurchaseService) List(ctx context.Context, method string) ([]domain.Purchase, error) {
	list, err := query.Get(ctx, s.Q, query.NewKey("purchases", "list", method), func(ctx context.Context) ([]domain.Purchase, error) {
		return s.Purchases.List(ctx, method)
	})
	if err != nil {
		return nil, err
	}
	out := make([]domain.Purchase, len(list))
	for i, p := range list {
		out[i] = decorate(p)
	}
	return out, nil
}

func (s *PurchaseService) Get(ctx context.Context, id string) (PurchaseView, error) {
	p, err := s.Purchases.Get(ctx, s.DB, id)
	if err != nil {
		return PurchaseView{}, lookup(err, "purchase "+id)
	}
	items, err := s.Purchases.Items(ctx, id)
	if err != nil {
		return PurchaseView{}, err
	}
	pays, err := s.Purchases.Payments(ctx, id)
	if err != nil {
		return PurchaseView{}, err
	}
	p = decorate(p)
	return PurchaseView{
		Purchase:    p,
		Outstanding: p.TotalAmount.Sub(p.PaidAmount),
		Items:       items,
		Payments:    pays,
	}, nil
}

// RecordPayment pays down a credit purchase. Paying more than is owed is rejected.
func (s *PurchaseService) RecordPayment(ctx context.Context, purchaseID string, amount decimal.Decimal, note string) (PurchaseView, error) {
	if !amount.IsPositive() {
		return PurchaseView{}, invalidf("amount must be positive")
	}
	note, ok := validate.Text(note, 300)
	if !ok {
		return PurchaseView{}, invalidf("note is too long")
	}
	err := s.Q.Mutate(ctx, func(ctx context.Context) error {
		return repos.WithTx(ctx, s.DB, func(tx *sqlx.Tx) error {
			p, err := s.Purchases.Get(ctx, tx, purchaseID)
			if err != nil {
				return lookup(err, "purchase "+purchaseID)
			}
			if p.PaymentMethod != domain.PayCredit {
				return errors.Wrap(ErrConflict, "cash purchases are already paid")
			}
			paid, err := s.Purchases.PaidTotal(ctx, tx, purchaseID)
			if err != nil {
				return err
			}
			owed := reports.Outstanding(p.TotalAmount, []decimal.Decimal{paid})
			if amount.GreaterThan(owed) {
				return invalidf("payment %s exceeds outstanding %s", amount.StringFixed(0), owed.StringFixed(0))
			}
			return s.Purchases.AddPayment(ctx, tx, domain.PurchasePayment{
				ID:         uuid.NewString(),
				PurchaseID: purchaseID,
				Amount:     amount,
				PaidAt:     Now().Format(domain.TimeLayout),
				Note:       note,
			})
		})
	}, keyPurchases, keyReports)
	if err != nil {
		return PurchaseView{}, err
	}
	return s.Get(ctx, purchaseID)
}

// CreditReport lists credit purchases with money owed and ages them.
type CreditReport struct {
	Aging     reports.Aging     `json:"aging"`
	Purchases []domain.Purchase `json:"purchases"`
}

func (s *PurchaseService) CreditReport(ctx context.Context) (CreditReport, error) {
	list, err := s.List(ctx, domain.PayCredit)
	if err != nil {
		return CreditReport{}, err
	}
	out := CreditReport{Purchases: []domain.Purchase{}}
	var lines []reports.CreditLine
	for _, p := range list {
		if p.PaymentStatus == string(reports.Paid) {
			continue
		}
		line := reports.CreditLine{
			PurchaseID:  p.ID,
			Supplier:    p.SupplierName,
			Outstanding: reports.Outstanding(p.TotalAmount, []decimal.Decimal{p.PaidAmount}),
		}
		if due, err := time.Parse(DateLayout, p.DueDate); err == nil {
			line.DueDate = &due
		}
		lines = append(lines, line)
		out.Purchases = append(out.Purchases, p)
	}
	out.Aging = reports.CreditAging(lines, Now())
	return out, nil
}
