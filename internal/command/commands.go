package command

import (
	"github.com/example/skycart/internal/api"
	"github.com/example/skycart/internal/domain/order"
)

// Product Commands
type CreateProduct struct {
	Input api.ProductInput `json:"input"`
}

type UpdateProduct struct {
	ProductID string           `json:"product_id"`
	Input     api.ProductInput `json:"input"`
}

type DeleteProduct struct {
	ProductID string `json:"product_id"`
}

// Review Commands
type SubmitReview struct {
	ProductID string `json:"product_id"`
	Rating    int    `json:"rating"`
	Comment   string `json:"comment"`
}

// DeleteReview removes the caller's own review.
type DeleteReview struct {
	ProductID string `json:"product_id"`
}

// DeleteProductReviews is the admin removal of a product's reviews.
type DeleteProductReviews struct {
	ProductID string `json:"product_id"`
}

// Order Commands
type PlaceOrder struct {
	Draft order.Draft `json:"draft"`
}

// CancelOrder cancels the caller's order. CurrentStatus is optional; when
// empty the cached order detail is consulted.
type CancelOrder struct {
	OrderID       string `json:"order_id"`
	CurrentStatus string `json:"current_status,omitempty"`
}

type UpdateOrderStatus struct {
	OrderID       string `json:"order_id"`
	CurrentStatus string `json:"current_status,omitempty"`
	Status        string `json:"status"`
}

// User Commands
type UpdateUser struct {
	UserID string         `json:"user_id"`
	Update api.UserUpdate `json:"update"`
}

type DeleteUser struct {
	UserID string `json:"user_id"`
}
