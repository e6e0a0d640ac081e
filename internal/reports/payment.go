// Package reports holds the pure derivations behind the admin reports:
// payment status, stock runway, period ranges and chart bucketing.
package reports

import (
	"github.com/shopspring/decimal"

	"tokoku/internal/domain"
)

type PaymentStatus string

const (
	Paid    PaymentStatus = "paid"
	Partial PaymentStatus = "partial"
	Unpaid  PaymentStatus = "unpaid"
)

// PaymentStatusOf derives a purchase's status. Cash purchases are always paid;
// credit purchases compare the recorded payments against total.
func PaymentStatusOf(method string, total decimal.Decimal, payments []decimal.Decimal) PaymentStatus {
	if method == domain.PayCash {
		return Paid
	}
	paid := decimal.Zero
	for _, p := range payments {
		paid = paid.Add(p)
	}
	switch {
	case paid.GreaterThanOrEqual(total):
		return Paid
	case paid.Sign() <= 0:
		return Unpaid
	default:
		return Partial
	}
}

// Outstanding is what is still owed on a credit purchase, never negative.
func Outstanding(total decimal.Decimal, payments []decimal.Decimal) decimal.Decimal {
	left := total
	for _, p := range payments {
		left = left.Sub(p)
	}
	if left.IsNegative() {
		return decimal.Zero
	}
	return left
}
