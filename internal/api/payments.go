package api

import (
	"context"

	"github.com/example/skycart/internal/readmodel"
	"github.com/example/skycart/internal/validation"
)

const DefaultCurrency = "usd"

// ProcessPayment creates a payment intent for amount minor units.
func (c *Client) ProcessPayment(ctx context.Context, req PaymentRequest) (*readmodel.PaymentIntent, error) {
	if req.Currency == "" {
		req.Currency = DefaultCurrency
	}
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	var intent readmodel.PaymentIntent
	if err := c.post(ctx, "payments.process", "/payments/process", req, &intent); err != nil {
		return nil, err
	}
	return &intent, nil
}

// StripeKey returns the publishable key used to confirm intents.
func (c *Client) StripeKey(ctx context.Context) (string, error) {
	var key readmodel.StripeKey
	if err := c.get(ctx, "payments.stripe_key", "/payments/stripeapi", nil, &key); err != nil {
		return "", err
	}
	return key.StripeAPIKey, nil
}
