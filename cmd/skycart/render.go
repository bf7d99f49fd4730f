package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/example/skycart/internal/domain/cart"
	"github.com/example/skycart/internal/pricing"
	"github.com/example/skycart/internal/readmodel"
)

func table(out io.Writer, header ...string) *tabwriter.Writer {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, strings.Join(header, "\t"))
	return w
}

func row(w io.Writer, cols ...any) {
	parts := make([]string, len(cols))
	for i, c := range cols {
		parts[i] = fmt.Sprint(c)
	}
	fmt.Fprintln(w, strings.Join(parts, "\t"))
}

func date(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}

func renderProducts(out io.Writer, list *readmodel.ProductList) {
	w := table(out, "ID", "NAME", "PRICE", "RATING", "STOCK", "CATEGORY")
	for _, p := range list.Products {
		row(w, p.ID, p.Name, pricing.Format(p.Price), fmt.Sprintf("%.1f (%d)", p.Ratings, p.NumOfReviews), p.Stock, p.Category)
	}
	w.Flush()
	fmt.Fprintf(out, "page %d of %d, %d products\n", list.Page, list.Pages, list.Total)
}

func renderProduct(out io.Writer, p *readmodel.Product) {
	fmt.Fprintf(out, "%s  (%s)\n", p.Name, p.ID)
	fmt.Fprintf(out, "Price:    %s\n", pricing.Format(p.Price))
	fmt.Fprintf(out, "Category: %s   Seller: %s\n", p.Category, p.Seller)
	stock := "In stock"
	if p.Stock == 0 {
		stock = "Out of stock"
	}
	fmt.Fprintf(out, "Stock:    %d (%s)\n", p.Stock, stock)
	fmt.Fprintf(out, "Rating:   %.1f from %d reviews\n", p.Ratings, p.NumOfReviews)
	if p.Description != "" {
		fmt.Fprintf(out, "\n%s\n", p.Description)
	}
	if len(p.Reviews) > 0 {
		fmt.Fprintln(out, "\nReviews:")
		for _, r := range p.Reviews {
			fmt.Fprintf(out, "  %s  %s\n", strings.Repeat("*", r.Rating), r.Comment)
		}
	}
}

func renderCart(out io.Writer, c cart.State, policy pricing.Policy) {
	if c.IsEmpty() {
		fmt.Fprintln(out, "Your cart is empty.")
		return
	}
	w := table(out, "PRODUCT", "NAME", "PRICE", "QTY", "STOCK", "LINE")
	for _, item := range c.Items {
		row(w, item.ProductID, item.Name, pricing.Format(item.Price), item.Quantity, item.Stock, pricing.Format(item.LineTotal()))
	}
	w.Flush()
	totals := policy.Calculate(c.Items)
	renderTotals(out, totals.Rounded())
	if remaining := policy.RemainingForFreeShipping(totals.ItemsPrice); remaining.IsPositive() {
		fmt.Fprintf(out, "Add %s more for free shipping.\n", pricing.Format(remaining))
	}
}

func renderTotals(out io.Writer, t pricing.Totals) {
	shipping := pricing.Format(t.ShippingPrice)
	if t.FreeShipping() {
		shipping = "Free"
	}
	fmt.Fprintf(out, "Items:    %s\n", pricing.Format(t.ItemsPrice))
	fmt.Fprintf(out, "Shipping: %s\n", shipping)
	fmt.Fprintf(out, "Tax:      %s\n", pricing.Format(t.TaxPrice))
	fmt.Fprintf(out, "Total:    %s\n", pricing.Format(t.TotalPrice))
}

func renderShipping(out io.Writer, info cart.ShippingInfo) {
	fmt.Fprintf(out, "Ship to:  %s, %s %s, %s\n", info.Address, info.City, info.PostalCode, info.Country)
	fmt.Fprintf(out, "Phone:    %s\n", info.PhoneNo)
}

func renderOrders(out io.Writer, list *readmodel.OrderList) {
	if len(list.Orders) == 0 {
		fmt.Fprintln(out, "No orders yet.")
		return
	}
	w := table(out, "ID", "DATE", "ITEMS", "TOTAL", "STATUS")
	for _, o := range list.Orders {
		row(w, o.ID, date(o.CreatedAt), len(o.OrderItems), pricing.Format(o.TotalPrice), o.OrderStatus)
	}
	w.Flush()
	fmt.Fprintf(out, "page %d of %d, %d orders\n", list.Page, list.Pages, list.Total)
}

func renderOrder(out io.Writer, o *readmodel.Order) {
	fmt.Fprintf(out, "Order %s  [%s]\n", o.ID, o.OrderStatus)
	fmt.Fprintf(out, "Placed:   %s\n", date(o.CreatedAt))
	if o.PaymentInfo != nil {
		fmt.Fprintf(out, "Payment:  %s (%s)\n", o.PaymentInfo.Status, o.PaymentInfo.ID)
	}
	if o.DeliveredAt != nil {
		fmt.Fprintf(out, "Delivered: %s\n", date(o.DeliveredAt))
	}
	renderShipping(out, cart.ShippingInfo(o.ShippingInfo))
	w := table(out, "PRODUCT", "NAME", "PRICE", "QTY")
	for _, item := range o.OrderItems {
		row(w, item.Product, item.Name, pricing.Format(item.Price), item.Quantity)
	}
	w.Flush()
	renderTotals(out, pricing.Totals{
		ItemsPrice:    o.ItemsPrice,
		ShippingPrice: o.ShippingPrice,
		TaxPrice:      o.TaxPrice,
		TotalPrice:    o.TotalPrice,
	})
}

func renderUsers(out io.Writer, list *readmodel.UserList) {
	w := table(out, "ID", "NAME", "EMAIL", "ROLE", "JOINED")
	for _, u := range list.Users {
		row(w, u.ID, u.Name, u.Email, u.Role, date(u.CreatedAt))
	}
	w.Flush()
	fmt.Fprintf(out, "page %d of %d, %d users\n", list.Page, list.Pages, list.Total)
}

func renderUser(out io.Writer, u *readmodel.User) {
	fmt.Fprintf(out, "%s <%s>\n", u.Name, u.Email)
	fmt.Fprintf(out, "ID:     %s\n", u.ID)
	fmt.Fprintf(out, "Role:   %s\n", u.Role)
	fmt.Fprintf(out, "Joined: %s\n", date(u.CreatedAt))
}

func renderStats(out io.Writer, s *readmodel.SalesStats) {
	fmt.Fprintf(out, "Orders:        %d\n", s.TotalOrders)
	fmt.Fprintf(out, "Sales:         %s\n", pricing.Format(s.TotalSales))
	fmt.Fprintf(out, "Average order: %s\n", pricing.Format(s.AverageOrderValue))
	fmt.Fprintf(out, "Processing:    %d\n", s.ProcessingOrders)
	fmt.Fprintf(out, "Delivered:     %d\n", s.DeliveredOrders)
	fmt.Fprintf(out, "Cancelled:     %d\n", s.CancelledOrders)
}
