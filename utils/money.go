package utils

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// Round2 rounds to cents, half away from zero.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// LineAmounts are the derived totals of one invoice line.
type LineAmounts struct {
	Total        decimal.Decimal
	VAT          decimal.Decimal
	TotalWithVAT decimal.Decimal
}

// ComputeLine derives the line totals from quantity, unit price and VAT rate
// (a percentage). Each value is rounded to cents, VAT is taken from the
// rounded net amount.
func ComputeLine(quantity, unitPrice, vatRate decimal.Decimal) LineAmounts {
	total := Round2(quantity.Mul(unitPrice))
	vat := Round2(total.Mul(vatRate).Div(hundred))
	return LineAmounts{
		Total:        total,
		VAT:          vat,
		TotalWithVAT: total.Add(vat),
	}
}

// Totals accumulates line amounts into invoice totals.
type Totals struct {
	Subtotal decimal.Decimal
	VAT      decimal.Decimal
	Total    decimal.Decimal
}

func (t *Totals) Add(line LineAmounts) {
	t.Subtotal = t.Subtotal.Add(line.Total)
	t.VAT = t.VAT.Add(line.VAT)
	t.Total = t.Total.Add(line.TotalWithVAT)
}
