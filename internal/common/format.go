package common

import (
	"fmt"
	"math"

	money "github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// FormatMoney formats an amount in the given ISO currency, e.g. "€1,234.50".
// Unknown currencies fall back to "1234.50 XYZ".
func FormatMoney(amount float64, currency string) string {
	cur := money.GetCurrency(currency)
	if cur == nil {
		return fmt.Sprintf("%.2f %s", amount, currency)
	}
	minor := decimal.NewFromFloat(amount).Shift(int32(cur.Fraction)).Round(0).IntPart()
	return cur.Formatter().Format(minor)
}

// FormatSignedMoney formats an amount with a leading "+" when positive.
func FormatSignedMoney(amount float64, currency string) string {
	if amount > 0 {
		return "+" + FormatMoney(amount, currency)
	}
	return FormatMoney(amount, currency)
}

// FormatPct formats a fraction as a percentage (0.0525 -> "5.25%").
func FormatPct(fraction float64) string {
	if math.IsNaN(fraction) || math.IsInf(fraction, 0) {
		return "n/a"
	}
	return fmt.Sprintf("%.2f%%", fraction*100)
}

// FormatSignedPct formats a fraction as a percentage with an explicit sign.
func FormatSignedPct(fraction float64) string {
	if math.IsNaN(fraction) || math.IsInf(fraction, 0) {
		return "n/a"
	}
	return fmt.Sprintf("%+.2f%%", fraction*100)
}
