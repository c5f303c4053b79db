// Package aggregate holds the pure aggregation functions used by the
// dashboard surfaces. Everything here is deterministic over its inputs and
// never touches storage.
package aggregate

import "submanager/internal/core"

// TotalMonthlyCost sums the cost of every subscription. An empty slice
// yields zero.
func TotalMonthlyCost(subs []core.Subscription) core.Money {
	var total core.Money
	for _, s := range subs {
		total = total.Add(s.Cost)
	}
	return total
}
