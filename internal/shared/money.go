package shared

import (
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var amountPrinter = message.NewPrinter(language.English)

// FormatAmount renders a money value with thousands grouping, e.g. 12,500.00.
func FormatAmount(v decimal.Decimal) string {
	f, _ := v.Round(2).Float64()
	return amountPrinter.Sprintf("%.2f", f)
}

// RoundMoney rounds half away from zero to two decimal places.
func RoundMoney(v decimal.Decimal) decimal.Decimal {
	return v.Round(2)
}
