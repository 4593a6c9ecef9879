// Package tax computes Japanese consumption tax, withholding tax and stamp duty.
//
// All functions are pure. Money is expressed in integer yen and rates are
// decimal fractions (0.10 = 10%).
package tax

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// StandardRate is the consumption tax rate in force since 2019-10-01.
	StandardRate = decimal.RequireFromString("0.10")

	// ReducedRate applies to food, beverages and newspapers since 2019-10-01.
	ReducedRate = decimal.RequireFromString("0.08")

	// ReducedRateStart is the first day the reduced rate existed.
	ReducedRateStart = date(2019, time.October, 1)
)

// Regime is a consumption tax rate valid over [EffectiveFrom, EffectiveTo).
// A nil EffectiveTo means the regime is still in force.
type Regime struct {
	Rate          decimal.Decimal
	EffectiveFrom time.Time
	EffectiveTo   *time.Time
}

// Contains reports whether the calendar day of t falls inside the regime.
func (r Regime) Contains(t time.Time) bool {
	day := calendarDay(t)
	if day.Before(r.EffectiveFrom) {
		return false
	}
	return r.EffectiveTo == nil || day.Before(*r.EffectiveTo)
}

// Regimes is an ordered table of consumption tax regimes.
type Regimes []Regime

// DefaultRegimes is the historical Japanese consumption tax table.
var DefaultRegimes = Regimes{
	{Rate: decimal.RequireFromString("0.03"), EffectiveFrom: date(1989, time.April, 1), EffectiveTo: datePtr(1997, time.April, 1)},
	{Rate: decimal.RequireFromString("0.05"), EffectiveFrom: date(1997, time.April, 1), EffectiveTo: datePtr(2014, time.April, 1)},
	{Rate: decimal.RequireFromString("0.08"), EffectiveFrom: date(2014, time.April, 1), EffectiveTo: datePtr(2019, time.October, 1)},
	{Rate: StandardRate, EffectiveFrom: ReducedRateStart},
}

func init() {
	if err := DefaultRegimes.Validate(); err != nil {
		panic(fmt.Sprintf("tax: invalid built-in regime table: %v", err))
	}
}

// Validate checks that the table is non-empty, ordered, contiguous and that
// only the last regime is open-ended.
func (rs Regimes) Validate() error {
	if len(rs) == 0 {
		return fmt.Errorf("regime table is empty")
	}

	for i, r := range rs {
		last := i == len(rs)-1

		if r.Rate.IsNegative() {
			return fmt.Errorf("regime %d: negative rate %s", i, r.Rate)
		}
		if r.EffectiveTo == nil {
			if !last {
				return fmt.Errorf("regime %d: open-ended regime must be last", i)
			}
			continue
		}
		if !r.EffectiveTo.After(r.EffectiveFrom) {
			return fmt.Errorf("regime %d: effective-to %s is not after effective-from %s",
				i, r.EffectiveTo.Format(time.DateOnly), r.EffectiveFrom.Format(time.DateOnly))
		}
		if last {
			return fmt.Errorf("regime %d: last regime must be open-ended", i)
		}
		if next := rs[i+1].EffectiveFrom; !next.Equal(*r.EffectiveTo) {
			return fmt.Errorf("regime %d: gap or overlap between %s and %s",
				i, r.EffectiveTo.Format(time.DateOnly), next.Format(time.DateOnly))
		}
	}

	return nil
}

// RateFor returns the rate of the regime containing t.
// Dates outside every regime get the standard rate.
func (rs Regimes) RateFor(t time.Time) decimal.Decimal {
	for _, r := range rs {
		if r.Contains(t) {
			return r.Rate
		}
	}
	return StandardRate
}

// RateForDate returns the consumption tax rate in force on t.
func RateForDate(t time.Time) decimal.Decimal {
	return DefaultRegimes.RateFor(t)
}

// RateForDateString is RateForDate for a YYYY-MM-DD string.
// An empty or unparseable date yields the standard rate.
func RateForDateString(s string) decimal.Decimal {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return StandardRate
	}
	return RateForDate(t)
}

// ReducedRateAvailable reports whether the reduced rate existed on t.
func ReducedRateAvailable(t time.Time) bool {
	return !calendarDay(t).Before(ReducedRateStart)
}

func calendarDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func datePtr(y int, m time.Month, d int) *time.Time {
	t := date(y, m, d)
	return &t
}
