package enums

import (
	"fmt"
	"strings"
)

// Currency is an ISO 4217 code used for order totals.
type Currency string

const (
	CurrencyEUR Currency = "EUR"
	CurrencyUSD Currency = "USD"
	CurrencyGBP Currency = "GBP"
	CurrencyMXN Currency = "MXN"
	CurrencyJPY Currency = "JPY"
)

// minor unit exponents; anything not listed uses two decimals
var currencyExponents = map[Currency]int32{
	CurrencyEUR: 2,
	CurrencyUSD: 2,
	CurrencyGBP: 2,
	CurrencyMXN: 2,
	CurrencyJPY: 0,
}

func (c Currency) String() string {
	return string(c)
}

func (c Currency) IsValid() bool {
	_, ok := currencyExponents[c]
	return ok
}

// Exponent returns the number of minor-unit digits for the currency.
func (c Currency) Exponent() int32 {
	if exp, ok := currencyExponents[c]; ok {
		return exp
	}
	return 2
}

func ParseCurrency(value string) (Currency, error) {
	c := Currency(strings.ToUpper(strings.TrimSpace(value)))
	if !c.IsValid() {
		return "", fmt.Errorf("invalid currency %q", value)
	}
	return c, nil
}
