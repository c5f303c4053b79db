package http

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"submanager/internal/core"
)

var moneyPrinter = message.NewPrinter(language.English)

// formatMoney renders an amount for display fields, with grouping and two
// fraction digits. Internal sums stay in cents; only presentation rounds.
func formatMoney(m core.Money) string {
	return moneyPrinter.Sprintf("€%v", number.Decimal(m.Euros(),
		number.MinFractionDigits(2), number.MaxFractionDigits(2)))
}
