package shared

import (
	"errors"
	"fmt"
	"time"
)

// YearMonth is a calendar period key in "YYYY-MM" form. Offsets, cash-flow
// buckets and fixed-expense schedules are keyed by it.
type YearMonth struct {
	Year  int
	Month time.Month
}

// ErrInvalidYearMonth indicates a malformed period key.
var ErrInvalidYearMonth = errors.New("invalid year-month")

// ParseYearMonth parses a "YYYY-MM" string.
func ParseYearMonth(s string) (YearMonth, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return YearMonth{}, fmt.Errorf("%w: %q", ErrInvalidYearMonth, s)
	}
	return YearMonth{Year: t.Year(), Month: t.Month()}, nil
}

// YearMonthOf returns the period containing t.
func YearMonthOf(t time.Time) YearMonth {
	return YearMonth{Year: t.Year(), Month: t.Month()}
}

// String renders the canonical "YYYY-MM" form.
func (ym YearMonth) String() string {
	return fmt.Sprintf("%04d-%02d", ym.Year, int(ym.Month))
}

// IsZero reports whether the period is unset.
func (ym YearMonth) IsZero() bool {
	return ym.Year == 0 && ym.Month == 0
}

// Prev returns the previous calendar month.
func (ym YearMonth) Prev() YearMonth {
	return YearMonthOf(ym.FirstDay().AddDate(0, -1, 0))
}

// Next returns the following calendar month.
func (ym YearMonth) Next() YearMonth {
	return YearMonthOf(ym.FirstDay().AddDate(0, 1, 0))
}

// FirstDay returns midnight UTC on the first day of the period.
func (ym YearMonth) FirstDay() time.Time {
	return time.Date(ym.Year, ym.Month, 1, 0, 0, 0, 0, time.UTC)
}

// LastDay returns midnight UTC on the last day of the period.
func (ym YearMonth) LastDay() time.Time {
	return ym.FirstDay().AddDate(0, 1, -1)
}

// Before reports whether ym precedes other.
func (ym YearMonth) Before(other YearMonth) bool {
	if ym.Year != other.Year {
		return ym.Year < other.Year
	}
	return ym.Month < other.Month
}

// FiscalYear returns the April-start fiscal year bucket containing the
// period. January through March belong to the previous fiscal year.
func (ym YearMonth) FiscalYear() int {
	if ym.Month < time.April {
		return ym.Year - 1
	}
	return ym.Year
}

// FiscalYearOf returns the April-start fiscal year containing the date.
func FiscalYearOf(t time.Time) int {
	return YearMonthOf(t).FiscalYear()
}

// ClampDayToMonth resolves a closing/payment day spec against a concrete
// month: day 0 means month end, and days past the month length clamp to it.
func ClampDayToMonth(ym YearMonth, day int) time.Time {
	last := ym.LastDay()
	if day <= 0 || day >= last.Day() {
		return last
	}
	return time.Date(ym.Year, ym.Month, day, 0, 0, 0, 0, time.UTC)
}
