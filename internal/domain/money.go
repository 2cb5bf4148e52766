package domain

import "github.com/shopspring/decimal"

// Money is a monetary amount with two fractional digits at rest.
type Money = decimal.Decimal

// Round2 rounds to two decimal places, half up. decimal.Round rounds half away
// from zero, which is equivalent for the non-negative amounts handled here.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// TaxRateFromBps converts a basis-points tax rate to a decimal fraction,
// e.g. 825 -> 0.0825.
func TaxRateFromBps(bps int) decimal.Decimal {
	return decimal.New(int64(bps), -4)
}
