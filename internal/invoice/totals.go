package invoice

import "github.com/shopspring/decimal"

// Totals is the derived pricing summary of a cart. It is recomputed
// from its inputs on every read and never stored.
type Totals struct {
	Subtotal decimal.Decimal
	Discount decimal.Decimal
	Delivery decimal.Decimal
	Net      decimal.Decimal
}

var oneHundred = decimal.NewFromInt(100)

// ComputeTotals is a pure function over the cart lines and fulfillment
// choice. The delivery surcharge applies whenever delivery is chosen,
// regardless of cart contents.
func ComputeTotals(lines []CartLine, f Fulfillment, tariff Tariff) Totals {
	subtotal := decimal.Zero
	discount := decimal.Zero
	for _, line := range lines {
		gross := decimal.NewFromFloat(line.Medicine.SellingPrice).Mul(decimal.NewFromInt(line.Quantity))
		subtotal = subtotal.Add(gross)
		discount = discount.Add(gross.Mul(decimal.NewFromInt(line.DiscountPercent)).Div(oneHundred))
	}
	delivery := tariff.Surcharge(f)
	return Totals{
		Subtotal: subtotal,
		Discount: discount,
		Delivery: delivery,
		Net:      subtotal.Sub(discount).Add(delivery),
	}
}
