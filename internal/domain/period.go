package domain

import (
	"fmt"
	"time"

	"cloud.google.com/go/civil"
)

// Period is a calendar month, the granularity budgets are tracked at.
type Period struct {
	Year  int
	Month time.Month
}

// PeriodOf returns the month containing d.
func PeriodOf(d civil.Date) Period {
	return Period{Year: d.Year, Month: d.Month}
}

// ParsePeriod parses the "YYYY-MM" form produced by Period.String.
func ParsePeriod(s string) (Period, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return Period{}, fmt.Errorf("ParsePeriod: invalid period %q: %w", s, err)
	}
	return Period{Year: t.Year(), Month: t.Month()}, nil
}

// String formats the period as "YYYY-MM".
func (p Period) String() string {
	return fmt.Sprintf("%04d-%02d", p.Year, int(p.Month))
}

// Start returns the first day of the period.
func (p Period) Start() civil.Date {
	return civil.Date{Year: p.Year, Month: p.Month, Day: 1}
}

// End returns the last day of the period.
func (p Period) End() civil.Date {
	return p.Start().AddMonths(1).AddDays(-1)
}

// BudgetKey identifies one budget aggregate.
type BudgetKey struct {
	CategoryID string
	Period     Period
}

func (k BudgetKey) String() string {
	return k.CategoryID + "/" + k.Period.String()
}
