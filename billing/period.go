package billing

import (
	"fmt"
	"time"
)

// =============================================================================
// BILLING PERIOD - The charge generation boundary (calendar month)
// =============================================================================

// BillingPeriod is one calendar month. Every charge belongs to exactly one
// period; charges are keyed (apartment, bill type, period) so a period can
// never be billed twice for the same obligation.
type BillingPeriod struct {
	Year  int
	Month time.Month
}

// PeriodOf returns the period containing the given date.
func PeriodOf(d Date) BillingPeriod {
	return BillingPeriod{Year: d.Year(), Month: d.Month()}
}

// ParsePeriod parses "2006-01".
func ParsePeriod(s string) (BillingPeriod, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return BillingPeriod{}, fmt.Errorf("invalid period %q: %w", s, err)
	}
	return BillingPeriod{Year: t.Year(), Month: t.Month()}, nil
}

// Start returns the first day of the period.
func (p BillingPeriod) Start() Date {
	return NewDate(p.Year, p.Month, 1)
}

// End returns the last day of the period (inclusive).
func (p BillingPeriod) End() Date {
	return p.Start().AddMonths(1).AddDays(-1)
}

// Contains reports whether d falls within [Start, End].
func (p BillingPeriod) Contains(d Date) bool {
	return d.AfterOrEqual(p.Start()) && d.BeforeOrEqual(p.End())
}

func (p BillingPeriod) Next() BillingPeriod     { return PeriodOf(p.Start().AddMonths(1)) }
func (p BillingPeriod) Previous() BillingPeriod { return PeriodOf(p.Start().AddMonths(-1)) }

// Before orders periods chronologically.
func (p BillingPeriod) Before(o BillingPeriod) bool {
	if p.Year != o.Year {
		return p.Year < o.Year
	}
	return p.Month < o.Month
}

func (p BillingPeriod) Equal(o BillingPeriod) bool {
	return p.Year == o.Year && p.Month == o.Month
}

// MonthsSince returns the number of whole months from o's start to p's start.
// Negative when p precedes o.
func (p BillingPeriod) MonthsSince(o BillingPeriod) int {
	return (p.Year-o.Year)*12 + int(p.Month-o.Month)
}

func (p BillingPeriod) String() string {
	return fmt.Sprintf("%04d-%02d", p.Year, p.Month)
}
