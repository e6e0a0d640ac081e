package reports

import (
	"time"

	"github.com/pkg/errors"
)

type Trend string

const (
	TrendUp     Trend = "up"
	TrendDown   Trend = "down"
	TrendStable Trend = "stable"
)

// trendBand is the relative change between window halves still counted as stable.
const trendBand = 0.10

// DailySales is the quantity of one product sold on one calendar day.
type DailySales struct {
	Day time.Time
	Qty int
}

type Depletion struct {
	Window   int      `json:"window_days"`
	Sold     int      `json:"sold"`
	AvgDaily float64  `json:"avg_daily"`
	DaysLeft *float64 `json:"days_left"` // nil when nothing sells
	Trend    Trend    `json:"trend"`
}

func ValidWindow(days int) bool {
	return days == 7 || days == 30 || days == 90
}

// StockDepletion estimates how long stock lasts at the average daily rate of
// the last window days (today included) and compares the recent half of the
// window against the older half.
func StockDepletion(stock int, sales []DailySales, window int, now time.Time) (Depletion, error) {
	if !ValidWindow(window) {
		return Depletion{}, errors.Errorf("window must be 7, 30 or 90 days, got %d", window)
	}
	today := day(now)
	first := today.AddDate(0, 0, -(window - 1))
	recentDays := window / 2
	olderDays := window - recentDays
	split := first.AddDate(0, 0, olderDays)

	var recent, older int
	for _, s := range sales {
		d := day(s.Day.In(now.Location()))
		if d.Before(first) || d.After(today) {
			continue
		}
		if d.Before(split) {
			older += s.Qty
		} else {
			recent += s.Qty
		}
	}

	out := Depletion{Window: window, Sold: recent + older}
	out.AvgDaily = float64(out.Sold) / float64(window)
	if out.AvgDaily > 0 {
		left := 0.0
		if stock > 0 {
			left = float64(stock) / out.AvgDaily
		}
		out.DaysLeft = &left
	}
	out.Trend = trend(float64(recent)/float64(recentDays), float64(older)/float64(olderDays))
	return out, nil
}

func trend(recentRate, olderRate float64) Trend {
	if olderRate == 0 {
		if recentRate > 0 {
			return TrendUp
		}
		return TrendStable
	}
	change := (recentRate - olderRate) / olderRate
	switch {
	case change > trendBand:
		return TrendUp
	case change < -trendBand:
		return TrendDown
	}
	return TrendStable
}
