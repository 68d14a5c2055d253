// Package deadline computes a contract's target completion date.
package deadline

import "time"

// Input carries the date sources a deadline depends on
type Input struct {
	ContractDate *time.Time
	SurveyDate   *time.Time
	TechTaskDate *time.Time
	PeriodMonths int
}

// Calculate returns contract date plus the contract period, pushed forward by
// the days a late survey and a late technical brief exceed the contract date.
// ok is false when the contract date or the period is absent.
func Calculate(in Input) (deadline time.Time, ok bool) {
	if in.ContractDate == nil || in.PeriodMonths <= 0 {
		return time.Time{}, false
	}

	start := dateOf(*in.ContractDate)
	base := AddMonths(start, in.PeriodMonths)

	shift := slipDays(start, in.SurveyDate) + slipDays(start, in.TechTaskDate)
	return base.AddDate(0, 0, shift), true
}

// AddMonths adds n calendar months, clamping to the last day of the target month
func AddMonths(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	firstOfTarget := time.Date(y, m+time.Month(n), 1, 0, 0, 0, 0, t.Location())
	if last := daysIn(firstOfTarget); d > last {
		d = last
	}
	return time.Date(firstOfTarget.Year(), firstOfTarget.Month(), d, 0, 0, 0, 0, t.Location())
}

func slipDays(start time.Time, late *time.Time) int {
	if late == nil {
		return 0
	}
	l := dateOf(*late)
	if !l.After(start) {
		return 0
	}
	return int(l.Sub(start).Hours() / 24)
}

func daysIn(firstOfMonth time.Time) int {
	return firstOfMonth.AddDate(0, 1, -1).Day()
}

// dateOf drops the clock and pins the date to UTC so day counts ignore DST
func dateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
