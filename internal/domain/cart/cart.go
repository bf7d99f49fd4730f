package cart

import (
	"errors"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidQuantity    = errors.New("quantity must be positive")
	ErrInvalidProduct     = errors.New("product id is required")
	ErrInvalidPrice       = errors.New("price must not be negative")
	ErrStockLimitExceeded = errors.New("stock limit exceeded")
)

// CartItem is one product line. Stock is the snapshot taken when the product
// was last added.
type CartItem struct {
	ProductID string          `json:"product"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Image     string          `json:"image"`
	Stock     int             `json:"stock"`
	Quantity  int             `json:"quantity"`
}

// LineTotal returns price × quantity.
func (i CartItem) LineTotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

type ShippingInfo struct {
	Address    string `json:"address" validate:"required,min=5"`
	City       string `json:"city" validate:"required,min=2"`
	Country    string `json:"country" validate:"required,min=1"`
	PostalCode string `json:"postal_code" validate:"required,min=3"`
	PhoneNo    string `json:"phone_no" validate:"required,min=10"`
}

// State is the client-owned cart sub-tree. Items keep first-insertion order.
type State struct {
	Items        []CartItem    `json:"items"`
	ShippingInfo *ShippingInfo `json:"shippingInfo"`
}

// Find returns the line for productID.
func (s State) Find(productID string) (CartItem, bool) {
	if i := s.index(productID); i >= 0 {
		return s.Items[i], true
	}
	return CartItem{}, false
}

func (s State) IsEmpty() bool {
	return len(s.Items) == 0
}

// ItemCount returns the sum of quantities across all lines.
func (s State) ItemCount() int {
	n := 0
	for _, item := range s.Items {
		n += item.Quantity
	}
	return n
}

func (s State) index(productID string) int {
	for i, item := range s.Items {
		if item.ProductID == productID {
			return i
		}
	}
	return -1
}

// clone copies the item slice so reducers never write through to the caller's state.
func (s State) clone() State {
	items := make([]CartItem, len(s.Items))
	copy(items, s.Items)
	next := State{Items: items}
	if s.ShippingInfo != nil {
		info := *s.ShippingInfo
		next.ShippingInfo = &info
	}
	return next
}
