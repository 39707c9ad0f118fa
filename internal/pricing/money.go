package pricing

import "github.com/shopspring/decimal"

// All engine arithmetic is rounded to currency minor units after every step so
// repeated quoting of the same cart cannot drift.

func round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// roundDown2 truncates toward zero; used for the wallet discount so the wallet
// is never over-discounted by a rounding half-step.
func roundDown2(d decimal.Decimal) decimal.Decimal {
	return d.RoundDown(2)
}

func percentOf(base decimal.Decimal, percent decimal.Decimal) decimal.Decimal {
	return round2(base.Mul(percent).Div(decimal.NewFromInt(100)))
}
