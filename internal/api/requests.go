package api

import (
	"net/url"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/example/skycart/internal/readmodel"
)

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type RegisterRequest struct {
	Name     string `json:"name" validate:"required,min=2"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type ResetPasswordRequest struct {
	Password        string `json:"password" validate:"required,min=6"`
	ConfirmPassword string `json:"confirm_password" validate:"required,eqfield=Password"`
}

type UpdatePasswordRequest struct {
	OldPassword     string `json:"old_password" validate:"required,min=6"`
	NewPassword     string `json:"new_password" validate:"required,min=6"`
	ConfirmPassword string `json:"-" validate:"eqfield=NewPassword"`
}

type ProfileRequest struct {
	Name  string `json:"name" validate:"required,min=2"`
	Email string `json:"email" validate:"required,email"`
}

// UserUpdate is the admin edit of another account.
type UserUpdate struct {
	Name  string `json:"name" validate:"required,min=2"`
	Email string `json:"email" validate:"required,email"`
	Role  string `json:"role" validate:"required,oneof=user admin"`
}

type ReviewRequest struct {
	Rating  int    `json:"rating" validate:"min=1,max=5"`
	Comment string `json:"comment" validate:"required,min=5"`
}

// ProductInput is the admin create/update body.
type ProductInput struct {
	Name        string                   `json:"name" validate:"required,min=3"`
	Price       decimal.Decimal          `json:"price" validate:"gte=0"`
	Description string                   `json:"description" validate:"required,min=10"`
	Category    string                   `json:"category" validate:"required"`
	Seller      string                   `json:"seller" validate:"required"`
	Stock       int                      `json:"stock" validate:"gte=0"`
	Images      []readmodel.ProductImage `json:"images" validate:"required,min=1,dive"`
}

type StatusUpdate struct {
	Status string `json:"status"`
}

type PaymentRequest struct {
	Amount   int64  `json:"amount" validate:"gt=0"`
	Currency string `json:"currency" validate:"required"`
}

// ProductFilter narrows the catalog listing. Nil bounds are not sent.
type ProductFilter struct {
	Keyword   string
	Category  string
	MinPrice  *decimal.Decimal
	MaxPrice  *decimal.Decimal
	MinRating *float64
	Page      int
	Limit     int
}

// Values encodes the filter the way the catalog endpoint expects.
func (f ProductFilter) Values() url.Values {
	q := url.Values{}
	if f.Keyword != "" {
		q.Set("keyword", f.Keyword)
	}
	if f.Category != "" {
		q.Set("category", f.Category)
	}
	if f.MinPrice != nil {
		q.Set("price[gte]", f.MinPrice.String())
	}
	if f.MaxPrice != nil {
		q.Set("price[lte]", f.MaxPrice.String())
	}
	if f.MinRating != nil {
		q.Set("ratings[gte]", strconv.FormatFloat(*f.MinRating, 'f', -1, 64))
	}
	page, limit := f.Page, f.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	q.Set("page", strconv.Itoa(page))
	q.Set("resPerPage", strconv.Itoa(limit))
	return q
}

// Key is a stable encoding of the filter for cache keys.
func (f ProductFilter) Key() string {
	return f.Values().Encode()
}
