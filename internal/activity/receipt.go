package activity

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/example/skycart/internal/pricing"
	"github.com/example/skycart/internal/readmodel"
)

// Receipt renders a placed order as a plain-text order confirmation.
func Receipt(o readmodel.Order) string {
	shortID := o.ID
	if len(shortID) > 8 {
		shortID = shortID[:8]
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Order confirmation #%s\n", shortID)
	fmt.Fprintf(&b, "%-28s %5s %12s %12s\n", "Item", "Qty", "Price", "Subtotal")
	for _, item := range o.OrderItems {
		name := item.Name
		if name == "" {
			name = item.Product
		}
		line := item.Price.Mul(decimal.NewFromInt(int64(item.Quantity)))
		fmt.Fprintf(&b, "%-28s %5d %12s %12s\n", truncate(name, 28), item.Quantity, pricing.Format(item.Price), pricing.Format(line))
	}
	fmt.Fprintf(&b, "%47s %12s\n", "Items", pricing.Format(o.ItemsPrice))
	fmt.Fprintf(&b, "%47s %12s\n", "Shipping", pricing.Format(o.ShippingPrice))
	fmt.Fprintf(&b, "%47s %12s\n", "Tax", pricing.Format(o.TaxPrice))
	fmt.Fprintf(&b, "%47s %12s\n", "Total", pricing.Format(o.TotalPrice))

	s := o.ShippingInfo
	if s.Address != "" {
		fmt.Fprintf(&b, "Ship to: %s, %s %s, %s\n", s.Address, s.City, s.PostalCode, s.Country)
	}
	return b.String()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
