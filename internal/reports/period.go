package reports

import (
	"time"

	"github.com/pkg/errors"
)

type Period string

const (
	Daily   Period = "daily"
	Weekly  Period = "weekly"
	Monthly Period = "monthly"
	Yearly  Period = "yearly"
	Custom  Period = "custom"
)

var ErrInvalidRange = errors.New("invalid date range")

func ParsePeriod(s string) (Period, error) {
	switch p := Period(s); p {
	case Daily, Weekly, Monthly, Yearly, Custom:
		return p, nil
	case "":
		return Daily, nil
	}
	return "", errors.Wrapf(ErrInvalidRange, "unknown period %q", s)
}

// Range is an inclusive span of calendar days. Start and End are midnight in
// the location of the reference time.
type Range struct {
	Start time.Time
	End   time.Time
}

// Until is the exclusive upper bound, midnight after End.
func (r Range) Until() time.Time { return r.End.AddDate(0, 0, 1) }

func (r Range) Days() int {
	n := 0
	for d := r.Start; !d.After(r.End); d = d.AddDate(0, 0, 1) {
		n++
	}
	return n
}

func (r Range) Contains(t time.Time) bool {
	return !t.Before(r.Start) && t.Before(r.Until())
}

func day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// DateRange maps a period keyword to concrete calendar bounds around ref.
// Weeks run Monday to Sunday. Custom uses start and end as given.
func DateRange(p Period, ref, start, end time.Time) (Range, error) {
	today := day(ref)
	switch p {
	case Daily:
		return Range{Start: today, End: today}, nil
	case Weekly:
		offset := (int(today.Weekday()) + 6) % 7
		mon := today.AddDate(0, 0, -offset)
		return Range{Start: mon, End: mon.AddDate(0, 0, 6)}, nil
	case Monthly:
		first := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, today.Location())
		return Range{Start: first, End: first.AddDate(0, 1, -1)}, nil
	case Yearly:
		first := time.Date(today.Year(), time.January, 1, 0, 0, 0, 0, today.Location())
		return Range{Start: first, End: time.Date(today.Year(), time.December, 31, 0, 0, 0, 0, today.Location())}, nil
	case Custom:
		if start.IsZero() || end.IsZero() {
			return Range{}, errors.Wrap(ErrInvalidRange, "custom period needs start and end")
		}
		s, e := day(start), day(end)
		if e.Before(s) {
			return Range{}, errors.Wrap(ErrInvalidRange, "start is after end")
		}
		return Range{Start: s, End: e}, nil
	}
	return Range{}, errors.Wrapf(ErrInvalidRange, "unknown period %q", p)
}
