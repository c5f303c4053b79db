package aggregate

import (
	"fmt"
	"sort"
	"time"

	"submanager/internal/core"
)

// CategoryTotal is an amount aggregated under a category name.
type CategoryTotal struct {
	Name   string
	Amount core.Money
}

// MonthGroup bundles the expenses of one calendar month with their total.
type MonthGroup struct {
	Year     int
	Month    time.Month
	Label    string
	Total    core.Money
	Expenses []core.VariableExpense
}

// CurrentMonthTotal sums the expenses that fall in today's year and month.
func CurrentMonthTotal(expenses []core.VariableExpense, today core.Date) core.Money {
	var total core.Money
	for _, e := range expenses {
		if e.Date.SameMonth(today) {
			total = total.Add(e.Amount)
		}
	}
	return total
}

// ByCategory aggregates the given expenses by category. Records with a blank
// category count under the default one. The result is ordered by amount
// descending, ties broken by name.
func ByCategory(expenses []core.VariableExpense) []CategoryTotal {
	sums := make(map[string]core.Money)
	for _, e := range expenses {
		name := e.Category
		if name == "" {
			name = core.DefaultCategory
		}
		sums[name] = sums[name].Add(e.Amount)
	}

	totals := make([]CategoryTotal, 0, len(sums))
	for name, amount := range sums {
		totals = append(totals, CategoryTotal{Name: name, Amount: amount})
	}
	sort.Slice(totals, func(i, j int) bool {
		if totals[i].Amount.Cents != totals[j].Amount.Cents {
			return totals[i].Amount.Cents > totals[j].Amount.Cents
		}
		return totals[i].Name < totals[j].Name
	})
	return totals
}

// GroupByCalendarMonth splits expenses into per-month groups ordered most
// recent month first. Expenses within a group keep date-descending order.
func GroupByCalendarMonth(expenses []core.VariableExpense) []MonthGroup {
	type key struct {
		year  int
		month time.Month
	}

	groups := make(map[key]*MonthGroup)
	order := make([]key, 0)
	for _, e := range expenses {
		k := key{e.Date.Year(), e.Date.Month()}
		g, ok := groups[k]
		if !ok {
			g = &MonthGroup{
				Year:  k.year,
				Month: k.month,
				Label: fmt.Sprintf("%s %d", k.month, k.year),
			}
			groups[k] = g
			order = append(order, k)
		}
		g.Expenses = append(g.Expenses, e)
		g.Total = g.Total.Add(e.Amount)
	}

	sort.Slice(order, func(i, j int) bool {
		if order[i].year != order[j].year {
			return order[i].year > order[j].year
		}
		return order[i].month > order[j].month
	})

	out := make([]MonthGroup, 0, len(order))
	for _, k := range order {
		g := groups[k]
		sort.SliceStable(g.Expenses, func(i, j int) bool {
			return g.Expenses[i].Date.After(g.Expenses[j].Date)
		})
		out = append(out, *g)
	}
	return out
}

// ExpandMonthly materializes a recurring expense into n copies, one per
// month starting from the expense's own date. Day-of-month overflow clamps
// to the last day of the target month. n outside 1..36 is rejected.
func ExpandMonthly(expense core.VariableExpense, n int) ([]core.VariableExpense, error) {
	if n < 1 || n > core.MaxRepeatMonths {
		return nil, fmt.Errorf("%w: repeat count %d outside 1..%d", core.ErrInvalidRepeat, n, core.MaxRepeatMonths)
	}
	out := make([]core.VariableExpense, n)
	for i := 0; i < n; i++ {
		rec := expense
		rec.ID = ""
		rec.Date = core.AddMonths(expense.Date, i)
		out[i] = rec
	}
	return out, nil
}
