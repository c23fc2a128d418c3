package shared

import (
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var moneyPrinter = message.NewPrinter(language.English)

// FormatMoney renders an amount as a fixed 2-decimal string with digit
// grouping, e.g. "1,234.50". Currency symbols stay with the caller.
func FormatMoney(amount decimal.Decimal) string {
	f, _ := amount.Round(2).Float64()
	return moneyPrinter.Sprintf("%.2f", f)
}
