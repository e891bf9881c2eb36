package model

import "github.com/shopspring/decimal"

// FormatPrice renders a price with two decimal places, rounding half away from zero.
func FormatPrice(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(2)
}

// FormatChange renders a signed change with two decimal places.
func FormatChange(v float64) string {
	d := decimal.NewFromFloat(v).Round(2)
	if d.IsPositive() {
		return "+" + d.StringFixed(2)
	}
	return d.StringFixed(2)
}
