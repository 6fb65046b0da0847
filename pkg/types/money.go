package types

import "github.com/shopspring/decimal"

// MoneyScale is the number of fractional digits stored for amounts and prices
// (numeric(12,2) columns).
const MoneyScale = 2

// FitsMoneyScale reports whether d can be stored without rounding. Trailing zeros
// are fine: 12.50 and 12.500 both fit, 12.505 does not.
func FitsMoneyScale(d decimal.Decimal) bool {
	return d.Equal(d.Truncate(MoneyScale))
}
