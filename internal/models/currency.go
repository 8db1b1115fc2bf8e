package models

import (
	"strings"

	"github.com/shopspring/decimal"
)

var currencySymbols = map[string]string{
	"usd": "$",
	"eur": "€",
	"gbp": "£",
}

// CurrencySymbol returns the display symbol for a currency code.
// Unknown codes fall back to the upper-cased code followed by a space.
func CurrencySymbol(code string) string {
	if sym, ok := currencySymbols[strings.ToLower(code)]; ok {
		return sym
	}
	if code == "" {
		return ""
	}
	return strings.ToUpper(code) + " "
}

// FormatAmount renders an amount with two decimals and its currency symbol, e.g. "$15.98".
func FormatAmount(code string, amount decimal.Decimal) string {
	return CurrencySymbol(code) + amount.StringFixed(2)
}
