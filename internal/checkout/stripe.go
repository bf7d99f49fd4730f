package checkout

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/paymentintent"

	"github.com/example/skycart/internal/domain/order"
	"github.com/example/skycart/internal/readmodel"
)

const DefaultStripeURL = "https://api.stripe.com"

// PaymentMethod identifies the card to charge, e.g. "pm_card_visa".
type PaymentMethod string

// PaymentConfirmer confirms a payment intent created by the API.
type PaymentConfirmer interface {
	Confirm(ctx context.Context, intent readmodel.PaymentIntent, method PaymentMethod) (order.PaymentInfo, error)
}

// KeySource returns the publishable key used to confirm intents.
type KeySource func(ctx context.Context) (string, error)

// StripeError is a declined or rejected confirmation.
type StripeError struct {
	Status  int
	Type    string
	Message string
}

func (e *StripeError) Error() string {
	return fmt.Sprintf("stripe: %s (%d %s)", e.Message, e.Status, e.Type)
}

// StripeConfirmer confirms intents with Stripe's payment-intent API using
// the publishable key and the intent's client secret, the way a browser
// checkout does.
type StripeConfirmer struct {
	baseURL    string
	key        KeySource
	httpClient *http.Client
	logger     logrus.FieldLogger
}

func NewStripeConfirmer(baseURL string, key KeySource, httpClient *http.Client, logger logrus.FieldLogger) *StripeConfirmer {
	if baseURL == "" {
		baseURL = DefaultStripeURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 80 * time.Second}
	}
	return &StripeConfirmer{
		baseURL:    strings.TrimRight(baseURL, "/"),
		key:        key,
		httpClient: httpClient,
		logger:     logger.WithField("component", "Stripe"),
	}
}

func (c *StripeConfirmer) intents(key string) paymentintent.Client {
	backend := stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
		URL:        stripe.String(c.baseURL),
		HTTPClient: c.httpClient,
		// Confirmations are never retried automatically.
		MaxNetworkRetries: stripe.Int64(0),
		LeveledLogger:     c.logger,
	})
	return paymentintent.Client{B: backend, Key: key}
}

func (c *StripeConfirmer) Confirm(ctx context.Context, intent readmodel.PaymentIntent, method PaymentMethod) (order.PaymentInfo, error) {
	key, err := c.key(ctx)
	if err != nil {
		return order.PaymentInfo{}, fmt.Errorf("load publishable key: %w", err)
	}

	id := intent.PaymentIntentID
	if id == "" {
		// Client secrets are "<intent id>_secret_<nonce>".
		id, _, _ = strings.Cut(intent.ClientSecret, "_secret_")
	}

	params := &stripe.PaymentIntentConfirmParams{}
	params.Context = ctx
	params.AddExtra("client_secret", intent.ClientSecret)
	if method != "" {
		params.PaymentMethod = stripe.String(string(method))
	}

	log := c.logger.WithField("payment_intent", id)
	pi, err := c.intents(key).Confirm(id, params)
	if err != nil {
		var apiErr *stripe.Error
		if errors.As(err, &apiErr) {
			stripeErr := &StripeError{Status: apiErr.HTTPStatusCode, Type: string(apiErr.Type), Message: apiErr.Msg}
			if stripeErr.Message == "" {
				stripeErr.Message = "Payment failed"
			}
			log.WithError(stripeErr).Info("payment declined")
			return order.PaymentInfo{}, stripeErr
		}
		return order.PaymentInfo{}, fmt.Errorf("confirm payment: %w", err)
	}
	if pi.Status != stripe.PaymentIntentStatusSucceeded {
		return order.PaymentInfo{}, &StripeError{Status: http.StatusOK, Type: string(pi.Status), Message: "Payment was not completed"}
	}

	info := order.PaymentInfo{ID: pi.ID, Status: string(pi.Status)}
	if info.ID == "" {
		info.ID = id
	}
	log.Debug("payment confirmed")
	return info, nil
}
