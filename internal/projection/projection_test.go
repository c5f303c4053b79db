package projection

import (
	"testing"
	"time"

	"submanager/internal/core"
)

func money(cents int64) core.Money { return core.Money{Cents: cents} }

func sub(cents int64, start core.Date, cycle core.BillingCycle) core.Subscription {
	return core.Subscription{Name: "s", Cost: money(cents), StartDate: start, Cycle: cycle}
}

func exp(cents int64, d core.Date) core.VariableExpense {
	return core.VariableExpense{Description: "e", Amount: money(cents), Date: d}
}

func TestProject_SingleSubscriptionRawTable(t *testing.T) {
	now := core.NewDate(2024, time.May, 10)
	subs := []core.Subscription{sub(1000, core.NewDate(2024, time.March, 15), core.Monthly)}
	// An expense pins 2024 into the active year set without changing totals
	// outside January.
	expenses := []core.VariableExpense{exp(0, core.NewDate(2024, time.January, 5))}

	slots := Project(subs, expenses, now)
	if len(slots) != 12 {
		t.Fatalf("got %d slots, want 12", len(slots))
	}

	wantMonthly := map[time.Month]int64{
		time.January:  0,
		time.February: 0,
		time.March:    1000,
		time.April:    1000,
		time.May:      1000,
	}
	for _, slot := range slots {
		want, present := wantMonthly[slot.Month]
		got, ok := slot.Monthly[2024]
		if !present {
			if ok {
				t.Errorf("%s: future month has value %d, want absent", slot.Month, got.Cents)
			}
			continue
		}
		if !ok {
			t.Errorf("%s: year 2024 absent, want %d", slot.Month, want)
			continue
		}
		if got.Cents != want {
			t.Errorf("%s: got %d, want %d", slot.Month, got.Cents, want)
		}
	}
}

func TestProject_CumulativeWithinYear(t *testing.T) {
	now := core.NewDate(2024, time.May, 10)
	subs := []core.Subscription{sub(1000, core.NewDate(2024, time.March, 15), core.Monthly)}
	expenses := []core.VariableExpense{exp(0, core.NewDate(2024, time.January, 5))}

	slots := Project(subs, expenses, now)
	may := slots[time.May-1]
	if got := may.Cumulative[2024]; got.Cents != 3000 {
		t.Errorf("May cumulative: got %d, want 3000", got.Cents)
	}
	if _, ok := slots[time.June-1].Cumulative[2024]; ok {
		t.Error("June cumulative present, want absent")
	}
}

func TestProject_YearsDoNotCarryOver(t *testing.T) {
	now := core.NewDate(2025, time.December, 31)
	expenses := []core.VariableExpense{
		exp(500, core.NewDate(2024, time.December, 1)),
		exp(700, core.NewDate(2025, time.January, 1)),
	}

	slots := Project(nil, expenses, now)
	dec := slots[time.December-1]
	if got := dec.Cumulative[2024]; got.Cents != 500 {
		t.Errorf("2024 December cumulative: got %d, want 500", got.Cents)
	}
	jan := slots[time.January-1]
	if got := jan.Cumulative[2025]; got.Cents != 700 {
		t.Errorf("2025 January cumulative: got %d, want 700 (2024 must not carry over)", got.Cents)
	}
}

func TestProject_EmptyExpensesDefaultsToCurrentYear(t *testing.T) {
	now := core.NewDate(2024, time.May, 10)
	subs := []core.Subscription{sub(1000, core.NewDate(2024, time.January, 1), core.Monthly)}

	slots := Project(subs, nil, now)
	if got := slots[time.January-1].Monthly[2024]; got.Cents != 1000 {
		t.Errorf("January: got %d, want 1000", got.Cents)
	}
	if got := slots[time.May-1].Cumulative[2024]; got.Cents != 5000 {
		t.Errorf("May cumulative: got %d, want 5000", got.Cents)
	}
}

func TestProject_SubscriptionNeverChargesBeforeStart(t *testing.T) {
	now := core.NewDate(2025, time.June, 1)
	subs := []core.Subscription{sub(2000, core.NewDate(2025, time.April, 1), core.Monthly)}
	// The 2024 expense makes 2024 an active year; the subscription starts in
	// 2025 and must contribute nothing to it.
	expenses := []core.VariableExpense{
		exp(100, core.NewDate(2024, time.July, 1)),
		exp(0, core.NewDate(2025, time.January, 2)),
	}

	slots := Project(subs, expenses, now)
	for _, slot := range slots {
		if got, ok := slot.Monthly[2024]; ok && slot.Month != time.July && got.Cents != 0 {
			t.Errorf("2024 %s: got %d, want 0", slot.Month, got.Cents)
		}
	}
	if got := slots[time.March-1].Monthly[2025]; got.Cents != 0 {
		t.Errorf("2025 March: got %d, want 0 (before start)", got.Cents)
	}
	if got := slots[time.April-1].Monthly[2025]; got.Cents != 2000 {
		t.Errorf("2025 April: got %d, want 2000", got.Cents)
	}
}

func TestProject_CycleAwareBilling(t *testing.T) {
	now := core.NewDate(2024, time.December, 31)
	expenses := []core.VariableExpense{exp(0, core.NewDate(2024, time.January, 1))}

	t.Run("quarterly", func(t *testing.T) {
		subs := []core.Subscription{sub(3000, core.NewDate(2024, time.January, 10), core.Quarterly)}
		slots := Project(subs, expenses, now)
		charged := map[time.Month]bool{time.January: true, time.April: true, time.July: true, time.October: true}
		for _, slot := range slots {
			want := int64(0)
			if charged[slot.Month] {
				want = 3000
			}
			if got := slot.Monthly[2024]; got.Cents != want {
				t.Errorf("%s: got %d, want %d", slot.Month, got.Cents, want)
			}
		}
	})

	t.Run("yearly", func(t *testing.T) {
		subs := []core.Subscription{sub(12000, core.NewDate(2024, time.March, 1), core.Yearly)}
		slots := Project(subs, expenses, now)
		if got := slots[time.March-1].Monthly[2024]; got.Cents != 12000 {
			t.Errorf("March: got %d, want 12000", got.Cents)
		}
		if got := slots[time.April-1].Monthly[2024]; got.Cents != 0 {
			t.Errorf("April: got %d, want 0", got.Cents)
		}
	})

	t.Run("weekly buckets by calendar month", func(t *testing.T) {
		subs := []core.Subscription{sub(500, core.NewDate(2024, time.January, 1), core.Weekly)}
		slots := Project(subs, expenses, now)
		// Jan 1, 8, 15, 22, 29 fall in January.
		if got := slots[time.January-1].Monthly[2024]; got.Cents != 2500 {
			t.Errorf("January: got %d, want 2500", got.Cents)
		}
	})
}

func TestProject_MixesExpensesAndSubscriptions(t *testing.T) {
	now := core.NewDate(2024, time.May, 10)
	subs := []core.Subscription{sub(1000, core.NewDate(2024, time.January, 1), core.Monthly)}
	expenses := []core.VariableExpense{
		exp(250, core.NewDate(2024, time.March, 3)),
		exp(750, core.NewDate(2024, time.March, 20)),
	}

	slots := Project(subs, expenses, now)
	if got := slots[time.March-1].Monthly[2024]; got.Cents != 2000 {
		t.Errorf("March: got %d, want 2000", got.Cents)
	}
	if got := slots[time.March-1].Cumulative[2024]; got.Cents != 4000 {
		t.Errorf("March cumulative: got %d, want 4000", got.Cents)
	}
}
