// Package projection turns the subscription and expense sets into the
// per-year calendar series consumed by the trend charts. The computation is
// pure and recomputed in full on every snapshot change.
package projection

import (
	"time"

	"submanager/internal/core"
)

// MonthSlot is one calendar month of the multi-year chart. Both maps are
// keyed by year; a missing key means "no data for that year/month", which is
// distinct from an explicit zero.
type MonthSlot struct {
	Month      time.Month
	Monthly    map[int]core.Money
	Cumulative map[int]core.Money
}

// Project builds the twelve Jan..Dec slots for every year that appears in
// the expense set (or the current year when there are no expenses).
// Subscription charges are synthesized per billing event from the start
// date, never before it and never past the current month of the current
// year. Cumulative values run within a year only.
func Project(subs []core.Subscription, expenses []core.VariableExpense, now core.Date) []MonthSlot {
	years := activeYears(expenses, now)

	// Raw totals T[year][month], only for active years.
	raw := make(map[int]*[12]core.Money, len(years))
	for y := range years {
		raw[y] = new([12]core.Money)
	}

	for _, e := range expenses {
		t := raw[e.Date.Year()]
		t[e.Date.Month()-1] = t[e.Date.Month()-1].Add(e.Amount)
	}

	maxYear := 0
	for y := range years {
		if y > maxYear {
			maxYear = y
		}
	}
	for _, s := range subs {
		addBillingEvents(raw, s, maxYear, now)
	}

	curYear, curMonth := now.Year(), now.Month()
	slots := make([]MonthSlot, 12)
	running := make(map[int]core.Money, len(years))
	for m := 0; m < 12; m++ {
		slot := MonthSlot{
			Month:      time.Month(m + 1),
			Monthly:    make(map[int]core.Money),
			Cumulative: make(map[int]core.Money),
		}
		for y, t := range raw {
			running[y] = running[y].Add(t[m])
			if y == curYear && slot.Month > curMonth {
				continue // no projection into the future
			}
			slot.Monthly[y] = t[m]
			slot.Cumulative[y] = running[y]
		}
		slots[m] = slot
	}
	return slots
}

// activeYears is the distinct set of expense years, defaulting to the
// current year when there are no expenses at all.
func activeYears(expenses []core.VariableExpense, now core.Date) map[int]struct{} {
	years := make(map[int]struct{})
	for _, e := range expenses {
		years[e.Date.Year()] = struct{}{}
	}
	if len(years) == 0 {
		years[now.Year()] = struct{}{}
	}
	return years
}

// addBillingEvents walks the subscription's billing dates from its start and
// adds its cost into every active-year bucket the events land in. Each event
// date is derived from the start date by the event index, so day-of-month
// clamping never accumulates across months.
func addBillingEvents(raw map[int]*[12]core.Money, s core.Subscription, maxYear int, now core.Date) {
	curYear, curMonth := now.Year(), now.Month()
	for i := 0; ; i++ {
		d := billingDate(s, i)
		if d.Year() > maxYear {
			return
		}
		t, active := raw[d.Year()]
		if !active {
			continue
		}
		if d.Year() == curYear && d.Month() > curMonth {
			continue
		}
		m := int(d.Month()) - 1
		t[m] = t[m].Add(s.Cost)
	}
}

func billingDate(s core.Subscription, i int) core.Date {
	switch s.Cycle {
	case core.Weekly:
		return core.DateOf(s.StartDate.AddDate(0, 0, 7*i))
	case core.Quarterly:
		return core.AddMonths(s.StartDate, 3*i)
	case core.Yearly:
		return core.AddMonths(s.StartDate, 12*i)
	default:
		return core.AddMonths(s.StartDate, i)
	}
}
