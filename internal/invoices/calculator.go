package invoices

import (
	"github.com/shopspring/decimal"

	"github.com/solarflow/solarshop-backend/pkg/db/models"
)

// Line is one priced row on an invoice.
type Line struct {
	Price    decimal.Decimal
	Quantity int
}

type Totals struct {
	Subtotal decimal.Decimal
	Tax      decimal.Decimal
	Total    decimal.Decimal
}

// Calculate sums the lines and applies rate. Subtotal and tax are rounded to cents, half away
// from zero, and total is their exact sum.
func Calculate(lines []Line, rate decimal.Decimal) Totals {
	subtotal := decimal.Zero
	for _, l := range lines {
		subtotal = subtotal.Add(l.Price.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}
	subtotal = subtotal.Round(2)
	tax := subtotal.Mul(rate).Round(2)
	return Totals{
		Subtotal: subtotal,
		Tax:      tax,
		Total:    subtotal.Add(tax),
	}
}

func linesFromOrder(items []models.OrderItem) []Line {
	out := make([]Line, 0, len(items))
	for _, item := range items {
		out = append(out, Line{Price: item.Price, Quantity: item.Quantity})
	}
	return out
}
