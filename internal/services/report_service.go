package services

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"tokoku/internal/domain"
	"tokoku/internal/query"
	"tokoku/internal/reports"
	"tokoku/internal/repos"
)

const topProductsLimit = 10

type ReportService struct {
	Orders    *repos.OrderRepo
	Prods     *repos.ProductRepo
	Inv       *repos.InventoryRepo
	Purchases *PurchaseService
	Q         *query.Client
}

func NewReportService(orders *repos.OrderRepo, prods *repos.ProductRepo, inv *repos.InventoryRepo, purchases *PurchaseService, q *query.Client) *ReportService {
	return &ReportService{Orders: orders, Prods: prods, Inv: inv, Purchases: purchases, Q: q}
}

type SalesReport struct {
	Period      reports.Period       `json:"period"`
	Start       string               `json:"start"`
	End         string               `json:"end"`
	Orders      int                  `json:"orders"`
	Items       int                  `json:"items"`
	Revenue     decimal.Decimal      `json:"revenue"`
	Chart       []reports.Point      `json:"chart"`
	TopProducts []reports.TopProduct `json:"top_products"`
}

// Sales summarizes non-cancelled orders in a period. Daily reports chart by
// hour, longer periods by day. start and end (YYYY-MM-DD) apply to custom.
func (s *ReportService) Sales(ctx context.Context, period, start, end string) (SalesReport, error) {
	p, err := reports.ParsePeriod(period)
	if err != nil {
		return SalesReport{}, invalid(err)
	}
	var from, to time.Time
	if p == reports.Custom {
		if from, err = time.Parse(DateLayout, start); err != nil {
			return SalesReport{}, invalidf("start must be YYYY-MM-DD")
		}
		if to, err = time.Parse(DateLayout, end); err != nil {
			return SalesReport{}, invalidf("end must be YYYY-MM-DD")
		}
	}
	r, err := reports.DateRange(p, Now(), from, to)
	if err != nil {
		return SalesReport{}, invalid(err)
	}
	key := query.NewKey("reports", "sales", p, r.Start.Format(DateLayout), r.End.Format(DateLayout))
	return query.Get(ctx, s.Q, key, func(ctx context.Context) (SalesReport, error) {
		rows, err := s.Orders.SalesRows(ctx, r.Start, r.Until())
		if err != nil {
			return SalesReport{}, err
		}
		top, err := s.Orders.TopProducts(ctx, r.Start, r.Until())
		if err != nil {
			return SalesReport{}, err
		}
		out := SalesReport{
			Period:      p,
			Start:       r.Start.Format(DateLayout),
			End:         r.End.Format(DateLayout),
			Revenue:     decimal.Zero,
			TopProducts: reports.RankTopProducts(top, topProductsLimit),
		}
		for _, row := range rows {
			out.Orders++
			out.Items += row.Qty
			out.Revenue = out.Revenue.Add(row.Amount)
		}
		if p == reports.Daily {
			out.Chart = reports.BucketByHour(rows, r.Start)
		} else {
			out.Chart = reports.BucketByDay(rows, r)
		}
		return out, nil
	})
}

type StockLine struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	Stock     int    `json:"stock"`
	reports.Depletion
}

// Stock estimates the runway of every active product over the window.
func (s *ReportService) Stock(ctx context.Context, window int) ([]StockLine, error) {
	if !reports.ValidWindow(window) {
		return nil, invalidf("window must be 7, 30 or 90 days")
	}
	now := Now()
	key := query.NewKey("reports", "stock", window, now.Format(DateLayout))
	return query.Get(ctx, s.Q, key, func(ctx context.Context) ([]StockLine, error) {
		prods, err := s.Prods.ListAll(ctx)
		if err != nil {
			return nil, err
		}
		since := now.AddDate(0, 0, -(window - 1))
		since = time.Date(since.Year(), since.Month(), since.Day(), 0, 0, 0, 0, since.Location())
		sold, err := s.Inv.DailySold(ctx, since)
		if err != nil {
			return nil, err
		}
		out := []StockLine{}
		for _, p := range prods {
			if !p.Active {
				continue
			}
			d, err := reports.StockDepletion(p.Stock, sold[p.ID], window, now)
			if err != nil {
				return nil, errors.Wrap(err, p.ID)
			}
			out = append(out, StockLine{ProductID: p.ID, Name: p.Name, Stock: p.Stock, Depletion: d})
		}
		return out, nil
	})
}

func (s *ReportService) Credit(ctx context.Context) (CreditReport, error) {
	return s.Purchases.CreditReport(ctx)
}

// Dashboard is the admin landing summary.
type Dashboard struct {
	Today    SalesReport      `json:"today"`
	LowStock []domain.Product `json:"low_stock"`
	Credit   reports.Aging    `json:"credit"`
}

func (s *ReportService) Dashboard(ctx context.Context) (Dashboard, error) {
	today, err := s.Sales(ctx, string(reports.Daily), "", "")
	if err != nil {
		return Dashboard{}, err
	}
	low, err := s.Prods.LowStock(ctx, LowStockThreshold-1)
	if err != nil {
		return Dashboard{}, err
	}
	credit, err := s.Credit(ctx)
	if err != nil {
		return Dashboard{}, err
	}
	return Dashboard{Today: today, LowStock: low, Credit: credit.Aging}, nil
}
