// Package pricing derives order totals from cart lines. The totals are for
// display and for the order request; the server's figures are authoritative
// for anything actually charged.
package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/example/skycart/internal/domain/cart"
)

// Policy holds the shipping and tax parameters.
type Policy struct {
	FreeShippingThreshold decimal.Decimal
	FlatShippingFee       decimal.Decimal
	TaxRate               decimal.Decimal
}

// DefaultPolicy is the storefront's canonical policy: free shipping over 100,
// otherwise a flat 10, and 10% tax.
func DefaultPolicy() Policy {
	return Policy{
		FreeShippingThreshold: decimal.NewFromInt(100),
		FlatShippingFee:       decimal.NewFromInt(10),
		TaxRate:               decimal.RequireFromString("0.10"),
	}
}

type Totals struct {
	ItemsPrice    decimal.Decimal `json:"items_price"`
	ShippingPrice decimal.Decimal `json:"shipping_price"`
	TaxPrice      decimal.Decimal `json:"tax_price"`
	TotalPrice    decimal.Decimal `json:"total_price"`
}

// Calculate computes subtotal, shipping, tax and total in that order.
func (p Policy) Calculate(items []cart.CartItem) Totals {
	subtotal := decimal.Zero
	for _, item := range items {
		subtotal = subtotal.Add(item.LineTotal())
	}

	shipping := p.FlatShippingFee
	if subtotal.GreaterThan(p.FreeShippingThreshold) {
		shipping = decimal.Zero
	}
	tax := subtotal.Mul(p.TaxRate)

	return Totals{
		ItemsPrice:    subtotal,
		ShippingPrice: shipping,
		TaxPrice:      tax,
		TotalPrice:    subtotal.Add(shipping).Add(tax),
	}
}

// RemainingForFreeShipping is the "add $X more" hint shown with the cart
// summary. Zero once the subtotal reaches the threshold.
func (p Policy) RemainingForFreeShipping(subtotal decimal.Decimal) decimal.Decimal {
	if !subtotal.LessThan(p.FreeShippingThreshold) {
		return decimal.Zero
	}
	return p.FreeShippingThreshold.Sub(subtotal)
}

// Calculate uses DefaultPolicy.
func Calculate(items []cart.CartItem) Totals {
	return DefaultPolicy().Calculate(items)
}

// Rounded rounds each component to cents and recomputes the total from the
// rounded parts, so a displayed breakdown always adds up.
func (t Totals) Rounded() Totals {
	items := t.ItemsPrice.Round(2)
	shipping := t.ShippingPrice.Round(2)
	tax := t.TaxPrice.Round(2)
	return Totals{
		ItemsPrice:    items,
		ShippingPrice: shipping,
		TaxPrice:      tax,
		TotalPrice:    items.Add(shipping).Add(tax),
	}
}

// FreeShipping reports whether the shipping component is zero.
func (t Totals) FreeShipping() bool {
	return t.ShippingPrice.IsZero()
}

// MinorUnits converts an amount to integer cents, rounding half away from zero.
func MinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

// Format renders an amount the way the storefront shows prices: $1,234.50.
func Format(amount decimal.Decimal) string {
	s := amount.StringFixed(2)
	neg := false
	if s[0] == '-' {
		neg = true
		s = s[1:]
	}
	whole, frac := s[:len(s)-3], s[len(s)-2:]
	var out []byte
	for i := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			out = append(out, ',')
		}
		out = append(out, whole[i])
	}
	if neg {
		return "-$" + string(out) + "." + frac
	}
	return "$" + string(out) + "." + frac
}
