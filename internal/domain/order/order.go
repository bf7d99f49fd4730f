// Package order holds the client-side rules for server-owned orders: the
// status vocabulary, who may move an order where, and how a cart becomes an
// order request.
package order

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/example/skycart/internal/domain/cart"
	"github.com/example/skycart/internal/pricing"
)

type Status string

const (
	StatusProcessing     Status = "Processing"
	StatusConfirmed      Status = "Confirmed"
	StatusShipped        Status = "Shipped"
	StatusOutForDelivery Status = "Out for Delivery"
	StatusDelivered      Status = "Delivered"
	StatusCancelled      Status = "Cancelled"
	StatusRefunded       Status = "Refunded"
)

// Statuses lists every status in lifecycle order.
var Statuses = []Status{
	StatusProcessing,
	StatusConfirmed,
	StatusShipped,
	StatusOutForDelivery,
	StatusDelivered,
	StatusCancelled,
	StatusRefunded,
}

var (
	ErrEmptyOrder      = errors.New("order must have at least one item")
	ErrMissingShipping = errors.New("order requires shipping info")
	ErrInvalidStatus   = errors.New("invalid order status")
	ErrUnchangedStatus = errors.New("order already has this status")
	ErrNotCancellable  = errors.New("order can no longer be cancelled")
	ErrPaymentMissing  = errors.New("order requires a payment reference")
)

// ParseStatus accepts any casing of a known status.
func ParseStatus(s string) (Status, error) {
	for _, status := range Statuses {
		if strings.EqualFold(strings.TrimSpace(s), string(status)) {
			return status, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
}

// CanCancel reports whether a customer may still cancel: only before the
// order has shipped.
func CanCancel(status string) bool {
	s, err := ParseStatus(status)
	if err != nil {
		return false
	}
	return s == StatusProcessing || s == StatusConfirmed
}

// CheckCancel returns ErrNotCancellable when CanCancel is false.
func CheckCancel(status string) error {
	if !CanCancel(status) {
		return fmt.Errorf("%w: status is %s", ErrNotCancellable, status)
	}
	return nil
}

// CheckStatusUpdate validates an admin status change. The target must be a
// known status and differ from the current one; any other move is left to
// the server.
func CheckStatusUpdate(current, target string) (Status, error) {
	next, err := ParseStatus(target)
	if err != nil {
		return "", err
	}
	if cur, err := ParseStatus(current); err == nil && cur == next {
		return "", fmt.Errorf("%w: %s", ErrUnchangedStatus, next)
	}
	return next, nil
}

// Item is one line of an order request.
type Item struct {
	Product  string          `json:"product"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity"`
	Image    string          `json:"image"`
}

type PaymentInfo struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// Draft is the body of POST /orders/new.
type Draft struct {
	ShippingInfo  cart.ShippingInfo `json:"shipping_info"`
	OrderItems    []Item            `json:"order_items"`
	ItemsPrice    decimal.Decimal   `json:"items_price"`
	TaxPrice      decimal.Decimal   `json:"tax_price"`
	ShippingPrice decimal.Decimal   `json:"shipping_price"`
	PaymentInfo   PaymentInfo       `json:"payment_info"`
}

// NewDraft builds an order request from the cart, its rounded totals and the
// confirmed payment.
func NewDraft(state cart.State, totals pricing.Totals, payment PaymentInfo) (Draft, error) {
	if state.IsEmpty() {
		return Draft{}, ErrEmptyOrder
	}
	if state.ShippingInfo == nil {
		return Draft{}, ErrMissingShipping
	}
	if payment.ID == "" {
		return Draft{}, ErrPaymentMissing
	}

	items := make([]Item, 0, len(state.Items))
	for _, line := range state.Items {
		items = append(items, Item{
			Product:  line.ProductID,
			Name:     line.Name,
			Price:    line.Price,
			Quantity: line.Quantity,
			Image:    line.Image,
		})
	}

	rounded := totals.Rounded()
	return Draft{
		ShippingInfo:  *state.ShippingInfo,
		OrderItems:    items,
		ItemsPrice:    rounded.ItemsPrice,
		TaxPrice:      rounded.TaxPrice,
		ShippingPrice: rounded.ShippingPrice,
		PaymentInfo:   payment,
	}, nil
}
