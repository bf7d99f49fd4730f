package readmodel

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// ProductCategories is the fixed category list the catalog accepts.
var ProductCategories = []string{
	"Electronics",
	"Mobile Phones",
	"Laptops",
	"Accessories",
	"Headphones",
	"Food",
	"Books",
	"Clothes/Shoes",
	"Beauty/Health",
	"Sports",
	"Outdoor",
	"Home",
}

// ProductImage is one image reference of a product
type ProductImage struct {
	Image string `json:"image" validate:"required"`
}

// ProductReview is a single customer review
type ProductReview struct {
	User    string `json:"user"`
	Rating  int    `json:"rating" validate:"min=1,max=5"`
	Comment string `json:"comment"`
}

// Product is the catalog model returned by /products
type Product struct {
	ID           string          `json:"id" validate:"required"`
	Name         string          `json:"name" validate:"required"`
	Price        decimal.Decimal `json:"price" validate:"gte=0"`
	Description  string          `json:"description"`
	Ratings      float64         `json:"ratings" validate:"min=0,max=5"`
	Images       []ProductImage  `json:"images" validate:"dive"`
	Category     string          `json:"category"`
	Seller       string          `json:"seller"`
	Stock        int             `json:"stock" validate:"min=0"`
	NumOfReviews int             `json:"num_of_reviews" validate:"min=0"`
	Reviews      []ProductReview `json:"reviews" validate:"dive"`
	User         string          `json:"user,omitempty"`
	CreatedAt    *time.Time      `json:"created_at,omitempty"`
}

// FirstImage returns the first image reference, or an empty string.
func (p *Product) FirstImage() string {
	if len(p.Images) == 0 {
		return ""
	}
	return p.Images[0].Image
}

// ProductList is the paginated product envelope
type ProductList struct {
	Count          int       `json:"count" validate:"min=0"`
	Total          int       `json:"total" validate:"min=0"`
	Page           int       `json:"page" validate:"min=0"`
	Pages          int       `json:"pages" validate:"min=0"`
	ResultsPerPage int       `json:"results_per_page" validate:"min=0"`
	Products       []Product `json:"products" validate:"dive"`
}

// ShippingInfo is the order's delivery address as the API returns it
type ShippingInfo struct {
	Address    string `json:"address"`
	City       string `json:"city"`
	Country    string `json:"country"`
	PostalCode string `json:"postal_code"`
	PhoneNo    string `json:"phone_no"`
}

type PaymentInfo struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// OrderItem is a line of a placed order
type OrderItem struct {
	Product  string          `json:"product" validate:"required"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price" validate:"gte=0"`
	Quantity int             `json:"quantity" validate:"min=1"`
	Image    string          `json:"image"`
}

// Order is the server-owned order model
type Order struct {
	ID            string          `json:"id" validate:"required"`
	User          string          `json:"user"`
	ShippingInfo  ShippingInfo    `json:"shipping_info"`
	OrderItems    []OrderItem     `json:"order_items" validate:"dive"`
	ItemsPrice    decimal.Decimal `json:"items_price" validate:"gte=0"`
	TaxPrice      decimal.Decimal `json:"tax_price" validate:"gte=0"`
	ShippingPrice decimal.Decimal `json:"shipping_price" validate:"gte=0"`
	TotalPrice    decimal.Decimal `json:"total_price" validate:"gte=0"`
	PaymentInfo   *PaymentInfo    `json:"payment_info,omitempty"`
	PaidAt        *time.Time      `json:"paid_at,omitempty"`
	DeliveredAt   *time.Time      `json:"delivered_at,omitempty"`
	OrderStatus   string          `json:"order_status" validate:"required"`
	CreatedAt     *time.Time      `json:"created_at,omitempty"`
}

// OrderList is the paginated order envelope
type OrderList struct {
	Count  int     `json:"count" validate:"min=0"`
	Total  int     `json:"total" validate:"min=0"`
	Page   int     `json:"page" validate:"min=0"`
	Pages  int     `json:"pages" validate:"min=0"`
	Orders []Order `json:"orders" validate:"dive"`
}

// User is the account model; the password never leaves the server
type User struct {
	ID        string     `json:"id" validate:"required"`
	Name      string     `json:"name"`
	Email     string     `json:"email" validate:"required,email"`
	Avatar    string     `json:"avatar,omitempty"`
	Role      string     `json:"role" validate:"oneof=user admin"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
}

func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// UserList is the paginated user envelope
type UserList struct {
	Count int    `json:"count" validate:"min=0"`
	Total int    `json:"total" validate:"min=0"`
	Page  int    `json:"page" validate:"min=0"`
	Pages int    `json:"pages" validate:"min=0"`
	Users []User `json:"users" validate:"dive"`
}

// AuthResponse is returned by login and register
type AuthResponse struct {
	Success bool   `json:"success"`
	Token   string `json:"token" validate:"required"`
	User    User   `json:"user"`
}

type MessageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// SalesStats is the admin dashboard summary
type SalesStats struct {
	TotalOrders       int             `json:"total_orders" validate:"min=0"`
	TotalSales        decimal.Decimal `json:"total_sales" validate:"gte=0"`
	AverageOrderValue decimal.Decimal `json:"average_order_value" validate:"gte=0"`
	DeliveredOrders   int             `json:"delivered_orders" validate:"min=0"`
	ProcessingOrders  int             `json:"processing_orders" validate:"min=0"`
	CancelledOrders   int             `json:"cancelled_orders" validate:"min=0"`
}

// PaymentIntent is the response of /payments/process
type PaymentIntent struct {
	Success         bool   `json:"success"`
	ClientSecret    string `json:"client_secret" validate:"required"`
	PaymentIntentID string `json:"payment_intent_id"`
}

type StripeKey struct {
	StripeAPIKey string `json:"stripe_api_key" validate:"required"`
}
