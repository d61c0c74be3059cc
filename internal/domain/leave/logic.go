package leave

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var halfDay = decimal.New(5, -1)

// RequestDays returns the inclusive day count for a date range with
// optional half-day start/end boundaries.
func RequestDays(start, end time.Time, startHalf, endHalf bool) (decimal.Decimal, error) {
	startDate := dateOnly(start)
	endDate := dateOnly(end)
	if endDate.Before(startDate) {
		return decimal.Zero, errors.New("end date before start date")
	}

	whole := int64(endDate.Sub(startDate).Hours()/24) + 1
	days := decimal.NewFromInt(whole)

	if startDate.Equal(endDate) && startHalf && endHalf {
		return decimal.Zero, errors.New("invalid half-day range")
	}
	if startHalf {
		days = days.Sub(halfDay)
	}
	if endHalf {
		days = days.Sub(halfDay)
	}
	if days.Sign() <= 0 {
		return decimal.Zero, errors.New("invalid half-day range")
	}
	return days, nil
}

// Overlaps reports whether the two inclusive date ranges intersect in
// any way: either endpoint inside the other range, or full containment
// in either direction.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	as, ae := dateOnly(aStart), dateOnly(aEnd)
	bs, be := dateOnly(bStart), dateOnly(bEnd)
	return !as.After(be) && !bs.After(ae)
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
