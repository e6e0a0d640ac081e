package reports

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// SaleRow is one fetched sale used for charting.
type SaleRow struct {
	At     time.Time
	Amount decimal.Decimal
	Qty    int
}

type Point struct {
	Label  string          `json:"label"`
	Start  time.Time       `json:"start"`
	Amount decimal.Decimal `json:"amount"`
	Qty    int             `json:"qty"`
	Orders int             `json:"orders"`
}

// BucketByDay sums rows per calendar day of r. Days without sales are
// present with zero values; rows outside r are ignored.
func BucketByDay(rows []SaleRow, r Range) []Point {
	loc := r.Start.Location()
	idx := map[time.Time]int{}
	var points []Point
	for d := r.Start; !d.After(r.End); d = d.AddDate(0, 0, 1) {
		idx[d] = len(points)
		points = append(points, Point{Label: d.Format("2006-01-02"), Start: d, Amount: decimal.Zero})
	}
	for _, row := range rows {
		i, ok := idx[day(row.At.In(loc))]
		if !ok {
			continue
		}
		add(&points[i], row)
	}
	return points
}

// BucketByHour sums rows into the 24 hours of the given day.
func BucketByHour(rows []SaleRow, d time.Time) []Point {
	start := day(d)
	points := make([]Point, 24)
	for h := range points {
		at := start.Add(time.Duration(h) * time.Hour)
		points[h] = Point{Label: at.Format("15:00"), Start: at, Amount: decimal.Zero}
	}
	for _, row := range rows {
		at := row.At.In(start.Location())
		if day(at) != start {
			continue
		}
		add(&points[at.Hour()], row)
	}
	return points
}

func add(p *Point, row SaleRow) {
	p.Amount = p.Amount.Add(row.Amount)
	p.Qty += row.Qty
	p.Orders++
}

// TopProduct is a best seller line.
type TopProduct struct {
	ProductID string          `db:"product_id" json:"product_id"`
	Name      string          `db:"name" json:"name"`
	Qty       int             `db:"qty" json:"qty"`
	Revenue   decimal.Decimal `db:"revenue" json:"revenue"`
}

// RankTopProducts sorts by quantity, then revenue, then name, and keeps limit.
func RankTopProducts(in []TopProduct, limit int) []TopProduct {
	out := append([]TopProduct(nil), in...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Qty != out[j].Qty {
			return out[i].Qty > out[j].Qty
		}
		if c := out[i].Revenue.Cmp(out[j].Revenue); c != 0 {
			return c > 0
		}
		return out[i].Name < out[j].Name
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
