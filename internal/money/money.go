// Package money holds the BRL arithmetic shared by cart summaries, checkout
// and coupons. Amounts are two-place decimals; never floats.
package money

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// Round2 rounds half away from zero to centavos.
func Round2(d decimal.Decimal) decimal.Decimal { return d.Round(2) }

// Percent returns round2(amount * pct / 100).
func Percent(amount, pct decimal.Decimal) decimal.Decimal {
	return Round2(amount.Mul(pct).Div(hundred))
}

// Line is the priced view of one cart or order line.
type Line struct {
	Subtotal decimal.Decimal
	Discount decimal.Decimal
	Total    decimal.Decimal
}

func PriceLine(unit, discountPct decimal.Decimal, qty int) Line {
	sub := unit.Mul(decimal.NewFromInt(int64(qty)))
	disc := Percent(sub, discountPct)
	return Line{Subtotal: sub, Discount: disc, Total: sub.Sub(disc)}
}

// Totals accumulates lines; Total is always Subtotal - Discount.
type Totals struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Discount decimal.Decimal `json:"discount"`
	Total    decimal.Decimal `json:"total"`
}

func (t *Totals) Add(l Line) {
	t.Subtotal = t.Subtotal.Add(l.Subtotal)
	t.Discount = t.Discount.Add(l.Discount)
	t.Total = t.Subtotal.Sub(t.Discount)
}

// Clamp returns d bounded to [0, max].
func Clamp(d, max decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	if d.GreaterThan(max) {
		return max
	}
	return d
}
