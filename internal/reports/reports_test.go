package reports

import (
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tokoku/internal/domain"
)

func d(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func date(y int, m time.Month, dd int) time.Time {
	return time.Date(y, m, dd, 0, 0, 0, 0, time.UTC)
}

func TestPaymentStatusOf(t *testing.T) {
	total := d(100000)
	cases := []struct {
		name     string
		method   string
		payments []decimal.Decimal
		want     PaymentStatus
	}{
		{"credit fully paid", domain.PayCredit, []decimal.Decimal{d(60000), d(40000)}, Paid},
		{"credit partial", domain.PayCredit, []decimal.Decimal{d(40000)}, Partial},
		{"credit nothing", domain.PayCredit, nil, Unpaid},
		{"credit zero payment", domain.PayCredit, []decimal.Decimal{d(0)}, Unpaid},
		{"credit overpaid", domain.PayCredit, []decimal.Decimal{d(120000)}, Paid},
		{"cash always paid", domain.PayCash, nil, Paid},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, PaymentStatusOf(tc.method, total, tc.payments))
		})
	}
}

func TestOutstanding(t *testing.T) {
	assert.True(t, Outstanding(d(100), []decimal.Decimal{d(30)}).Equal(d(70)))
	assert.True(t, Outstanding(d(100), []decimal.Decimal{d(130)}).IsZero())
}

func TestDateRange_Monthly(t *testing.T) {
	for _, ref := range []time.Time{
		time.Date(2024, time.February, 14, 15, 30, 0, 0, time.UTC),
		time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, time.February, 29, 23, 59, 0, 0, time.UTC),
	} {
		r, err := DateRange(Monthly, ref, time.Time{}, time.Time{})
		require.NoError(t, err)
		assert.Equal(t, date(2024, time.February, 1), r.Start)
		assert.Equal(t, date(2024, time.February, 29), r.End)
	}

	r, err := DateRange(Monthly, date(2023, time.December, 31), time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, date(2023, time.December, 1), r.Start)
	assert.Equal(t, date(2023, time.December, 31), r.End)
	assert.Equal(t, date(2024, time.January, 1), r.Until())
}

func TestDateRange_OtherPeriods(t *testing.T) {
	ref := time.Date(2026, time.October, 16, 10, 0, 0, 0, time.UTC) // Friday

	r, err := DateRange(Daily, ref, time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, date(2026, time.October, 16), r.Start)
	assert.Equal(t, r.Start, r.End)

	r, err = DateRange(Weekly, ref, time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, date(2026, time.October, 12), r.Start)
	assert.Equal(t, date(2026, time.October, 18), r.End)
	assert.Equal(t, 7, r.Days())

	sunday := date(2026, time.October, 18)
	r, err = DateRange(Weekly, sunday, time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, date(2026, time.October, 12), r.Start)

	r, err = DateRange(Yearly, ref, time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, date(2026, time.January, 1), r.Start)
	assert.Equal(t, date(2026, time.December, 31), r.End)

	r, err = DateRange(Custom, ref, date(2026, time.March, 3), date(2026, time.March, 9))
	require.NoError(t, err)
	assert.Equal(t, 7, r.Days())
	assert.True(t, r.Contains(time.Date(2026, time.March, 9, 23, 0, 0, 0, time.UTC)))
	assert.False(t, r.Contains(date(2026, time.March, 10)))

	_, err = DateRange(Custom, ref, date(2026, time.March, 9), date(2026, time.March, 3))
	assert.ErrorIs(t, err, ErrInvalidRange)
	_, err = DateRange(Custom, ref, time.Time{}, date(2026, time.March, 3))
	assert.ErrorIs(t, err, ErrInvalidRange)
}

func TestParsePeriod(t *testing.T) {
	p, err := ParsePeriod("weekly")
	require.NoError(t, err)
	assert.Equal(t, Weekly, p)
	p, err = ParsePeriod("")
	require.NoError(t, err)
	assert.Equal(t, Daily, p)
	_, err = ParsePeriod("hourly")
	assert.ErrorIs(t, err, ErrInvalidRange)
}

func TestStockDepletion(t *testing.T) {
	now := time.Date(2026, time.October, 16, 12, 0, 0, 0, time.UTC)
	var sales []DailySales
	for i := 0; i < 7; i++ {
		sales = append(sales, DailySales{Day: now.AddDate(0, 0, -i), Qty: 2})
	}
	// outside the window
	sales = append(sales, DailySales{Day: now.AddDate(0, 0, -7), Qty: 100})

	dep, err := StockDepletion(28, sales, 7, now)
	require.NoError(t, err)
	assert.Equal(t, 14, dep.Sold)
	assert.InDelta(t, 2.0, dep.AvgDaily, 1e-9)
	require.NotNil(t, dep.DaysLeft)
	assert.InDelta(t, 14.0, *dep.DaysLeft, 1e-9)
	assert.Equal(t, TrendStable, dep.Trend)
}

func TestStockDepletion_Trends(t *testing.T) {
	now := date(2026, time.October, 30)
	rising := []DailySales{
		{Day: now, Qty: 10},
		{Day: now.AddDate(0, 0, -20), Qty: 2},
	}
	dep, err := StockDepletion(50, rising, 30, now)
	require.NoError(t, err)
	assert.Equal(t, TrendUp, dep.Trend)

	falling := []DailySales{
		{Day: now, Qty: 1},
		{Day: now.AddDate(0, 0, -25), Qty: 9},
	}
	dep, err = StockDepletion(50, falling, 30, now)
	require.NoError(t, err)
	assert.Equal(t, TrendDown, dep.Trend)

	dep, err = StockDepletion(50, nil, 90, now)
	require.NoError(t, err)
	assert.Nil(t, dep.DaysLeft)
	assert.Equal(t, TrendStable, dep.Trend)

	_, err = StockDepletion(50, nil, 14, now)
	assert.Error(t, err)
}

func TestStockDepletion_OutOfStock(t *testing.T) {
	now := date(2026, time.October, 30)
	dep, err := StockDepletion(0, []DailySales{{Day: now, Qty: 7}}, 7, now)
	require.NoError(t, err)
	require.NotNil(t, dep.DaysLeft)
	assert.Zero(t, *dep.DaysLeft)
}

func TestBucketByDay_FillsGaps(t *testing.T) {
	r := Range{Start: date(2026, time.May, 1), End: date(2026, time.May, 4)}
	rows := []SaleRow{
		{At: time.Date(2026, time.May, 1, 9, 0, 0, 0, time.UTC), Amount: d(1000), Qty: 1},
		{At: time.Date(2026, time.May, 1, 18, 0, 0, 0, time.UTC), Amount: d(500), Qty: 2},
		{At: time.Date(2026, time.May, 3, 8, 0, 0, 0, time.UTC), Amount: d(250), Qty: 1},
		{At: time.Date(2026, time.May, 9, 8, 0, 0, 0, time.UTC), Amount: d(999), Qty: 1},
	}
	pts := BucketByDay(rows, r)
	require.Len(t, pts, 4)
	assert.Equal(t, "2026-05-01", pts[0].Label)
	assert.True(t, pts[0].Amount.Equal(d(1500)))
	assert.Equal(t, 3, pts[0].Qty)
	assert.Equal(t, 2, pts[0].Orders)
	assert.True(t, pts[1].Amount.IsZero())
	assert.True(t, pts[2].Amount.Equal(d(250)))
	assert.Equal(t, 0, pts[3].Orders)
}

func TestBucketByHour(t *testing.T) {
	day := date(2026, time.May, 1)
	rows := []SaleRow{
		{At: time.Date(2026, time.May, 1, 9, 15, 0, 0, time.UTC), Amount: d(100), Qty: 1},
		{At: time.Date(2026, time.May, 1, 9, 45, 0, 0, time.UTC), Amount: d(200), Qty: 1},
		{At: time.Date(2026, time.May, 2, 9, 0, 0, 0, time.UTC), Amount: d(900), Qty: 1},
	}
	pts := BucketByHour(rows, day)
	require.Len(t, pts, 24)
	assert.Equal(t, "09:00", pts[9].Label)
	assert.True(t, pts[9].Amount.Equal(d(300)))
	assert.True(t, pts[10].Amount.IsZero())
}

func TestRankTopProducts(t *testing.T) {
	in := []TopProduct{
		{ProductID: "a", Name: "Apel", Qty: 3, Revenue: d(300)},
		{ProductID: "b", Name: "Beras", Qty: 9, Revenue: d(900)},
		{ProductID: "c", Name: "Cabai", Qty: 3, Revenue: d(600)},
	}
	out := RankTopProducts(in, 2)
	require.Len(t, out, 2)
	assert.Equal(t, "b", out[0].ProductID)
	assert.Equal(t, "c", out[1].ProductID)
	assert.Equal(t, "a", in[0].ProductID, "input untouched")
}

func TestCreditAging(t *testing.T) {
	now := date(2026, time.October, 16)
	due := func(daysAgo int) *time.Time {
		t := now.AddDate(0, 0, -daysAgo)
		return &t
	}
	lines := []CreditLine{
		{PurchaseID: "1", Outstanding: d(100), DueDate: due(-5)},
		{PurchaseID: "2", Outstanding: d(200), DueDate: due(10)},
		{PurchaseID: "3", Outstanding: d(300), DueDate: due(45)},
		{PurchaseID: "4", Outstanding: d(400), DueDate: due(75)},
		{PurchaseID: "5", Outstanding: d(500), DueDate: due(120)},
		{PurchaseID: "6", Outstanding: d(50)},
		{PurchaseID: "7", Outstanding: d(0), DueDate: due(120)},
	}
	a := CreditAging(lines, now)
	require.Len(t, a.Buckets, 5)
	assert.True(t, a.Buckets[0].Amount.Equal(d(150)))
	assert.Equal(t, 2, a.Buckets[0].Count)
	assert.True(t, a.Buckets[1].Amount.Equal(d(200)))
	assert.True(t, a.Buckets[2].Amount.Equal(d(300)))
	assert.True(t, a.Buckets[3].Amount.Equal(d(400)))
	assert.True(t, a.Buckets[4].Amount.Equal(d(500)))
	assert.True(t, a.Total.Equal(d(1550)))
	assert.True(t, a.Overdue.Equal(d(1400)))
}

func TestCreditAging_CountsCalendarDaysAcrossDST(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	// clocks go forward on 2026-03-08, so that day is 23 hours long
	now := time.Date(2026, time.March, 9, 0, 30, 0, 0, ny)
	due := time.Date(2026, time.March, 8, 0, 0, 0, 0, ny)

	a := CreditAging([]CreditLine{{PurchaseID: "1", Outstanding: d(100), DueDate: &due}}, now)
	assert.Equal(t, 0, a.Buckets[0].Count)
	assert.Equal(t, 1, a.Buckets[1].Count, "one calendar day overdue")
	assert.True(t, a.Overdue.Equal(d(100)))
}

func TestDaysBetween(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	assert.Equal(t, 1, daysBetween(time.Date(2026, 3, 8, 0, 0, 0, 0, ny), time.Date(2026, 3, 9, 0, 0, 0, 0, ny)))
	assert.Equal(t, 1, daysBetween(time.Date(2026, 11, 1, 0, 0, 0, 0, ny), time.Date(2026, 11, 2, 0, 0, 0, 0, ny)))
	assert.Equal(t, -5, daysBetween(date(2026, time.October, 21), date(2026, time.October, 16)))
}

func TestCountdown(t *testing.T) {
	now := date(2026, time.October, 16)
	left := Countdown(now.Add(26*time.Hour+3*time.Minute+4*time.Second), now)
	days, hours, minutes, seconds := SplitCountdown(left)
	assert.Equal(t, []int{1, 2, 3, 4}, []int{days, hours, minutes, seconds})
	assert.Zero(t, Countdown(now.Add(-time.Hour), now))
}
