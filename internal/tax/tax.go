// Package tax computes bill totals from cart lines. The same computation
// backs the live cart display, the final bill, and settlement statistics,
// so it has no side effects and no dependencies beyond the domain types.
package tax

import (
	"errors"

	"github.com/shopspring/decimal"

	"dinepos/internal/domain"
)

// GST is split into equal central and state halves: 2.5% + 2.5%.
var (
	CGSTRate = decimal.New(25, -3)
	SGSTRate = decimal.New(25, -3)
)

var ErrInvalidDiscount = errors.New("discount percent must be between 0 and 100")

var hundred = decimal.NewFromInt(100)

// Totals is the full monetary breakdown of a line set.
type Totals struct {
	SubTotal       decimal.Decimal
	DiscountAmount decimal.Decimal
	TaxableAmount  decimal.Decimal
	CGST           decimal.Decimal
	SGST           decimal.Decimal
	Total          decimal.Decimal
	Quantity       int
}

// Compute calculates subtotal, discount, the GST halves and the grand
// total for the given lines. discountPercent outside [0,100] is rejected,
// not clamped.
func Compute(lines []domain.CartLine, discountPercent decimal.Decimal) (Totals, error) {
	if discountPercent.IsNegative() || discountPercent.GreaterThan(hundred) {
		return Totals{}, ErrInvalidDiscount
	}

	var t Totals
	t.SubTotal = decimal.Zero
	for _, line := range lines {
		t.SubTotal = t.SubTotal.Add(line.LineTotal())
		t.Quantity += line.Quantity
	}

	t.DiscountAmount = t.SubTotal.Mul(discountPercent).Div(hundred)
	t.TaxableAmount = t.SubTotal.Sub(t.DiscountAmount)
	t.CGST = t.TaxableAmount.Mul(CGSTRate)
	t.SGST = t.TaxableAmount.Mul(SGSTRate)
	t.Total = t.TaxableAmount.Add(t.CGST).Add(t.SGST)
	return t, nil
}
