package reports

import (
	"time"

	"github.com/shopspring/decimal"
)

// CreditLine is one credit purchase with money still owed.
type CreditLine struct {
	PurchaseID  string
	Supplier    string
	Outstanding decimal.Decimal
	DueDate     *time.Time
}

type AgingBucket struct {
	Label  string          `json:"label"`
	Amount decimal.Decimal `json:"amount"`
	Count  int             `json:"count"`
}

type Aging struct {
	Buckets []AgingBucket   `json:"buckets"`
	Total   decimal.Decimal `json:"total"`
	Overdue decimal.Decimal `json:"overdue"`
}

var agingLabels = []string{"current", "1-30", "31-60", "61-90", "90+"}

func agingIndex(daysOverdue int) int {
	switch {
	case daysOverdue <= 0:
		return 0
	case daysOverdue <= 30:
		return 1
	case daysOverdue <= 60:
		return 2
	case daysOverdue <= 90:
		return 3
	}
	return 4
}

// CreditAging groups outstanding credit by days past due. Lines without a
// due date count as current.
func CreditAging(lines []CreditLine, now time.Time) Aging {
	out := Aging{Total: decimal.Zero, Overdue: decimal.Zero}
	for _, l := range agingLabels {
		out.Buckets = append(out.Buckets, AgingBucket{Label: l, Amount: decimal.Zero})
	}
	today := day(now)
	for _, l := range lines {
		if l.Outstanding.Sign() <= 0 {
			continue
		}
		overdue := 0
		if l.DueDate != nil {
			overdue = daysBetween(day(l.DueDate.In(now.Location())), today)
		}
		i := agingIndex(overdue)
		out.Buckets[i].Amount = out.Buckets[i].Amount.Add(l.Outstanding)
		out.Buckets[i].Count++
		out.Total = out.Total.Add(l.Outstanding)
		if i > 0 {
			out.Overdue = out.Overdue.Add(l.Outstanding)
		}
	}
	return out
}

// daysBetween counts calendar days from a to b. Dates are compared as UTC
// midnights so a DST shift in between cannot shorten a day.
func daysBetween(a, b time.Time) int {
	ua := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	ub := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	return int(ub.Sub(ua).Hours()) / 24
}

// Countdown is the time left until endsAt, zero once it has passed.
func Countdown(endsAt, now time.Time) time.Duration {
	if left := endsAt.Sub(now); left > 0 {
		return left
	}
	return 0
}

// SplitCountdown breaks d into whole days, hours, minutes and seconds.
func SplitCountdown(d time.Duration) (days, hours, minutes, seconds int) {
	s := int(d / time.Second)
	return s / 86400, s % 86400 / 3600, s % 3600 / 60, s % 60
}
