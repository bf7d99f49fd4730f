package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/example/skycart/internal/activity"
	"github.com/example/skycart/internal/api"
	"github.com/example/skycart/internal/command"
	"github.com/example/skycart/internal/domain/cart"
	"github.com/example/skycart/internal/domain/order"
	"github.com/example/skycart/internal/navigation"
	"github.com/example/skycart/internal/notice"
	"github.com/example/skycart/internal/pricing"
	"github.com/example/skycart/internal/readmodel"
	"github.com/example/skycart/internal/storage"
	"github.com/example/skycart/internal/store"
	"github.com/example/skycart/internal/validation"
)

// PendingKey holds an order whose payment went through but whose creation
// failed, so it can be retried from a later process.
const PendingKey = "checkout:pending"

var (
	ErrPaymentFailed       = errors.New("payment failed")
	ErrOrderCreationFailed = errors.New("order creation failed")
	ErrNoPendingOrder      = errors.New("no pending order to retry")
	// ErrOrderPending refuses a second charge while a paid order awaits retry.
	ErrOrderPending = errors.New("a paid order is waiting to be retried")
)

// BlockedError is a silent guard redirect: the caller should go to
// RedirectTo instead of Step.
type BlockedError struct {
	Step       Step
	RedirectTo Step
}

func (e *BlockedError) Error() string {
	return fmt.Sprintf("checkout: cannot enter %s, go to %s", e.Step, e.RedirectTo)
}

// Payments creates payment intents.
type Payments interface {
	ProcessPayment(ctx context.Context, req api.PaymentRequest) (*readmodel.PaymentIntent, error)
}

// Orders places orders for confirmed payments.
type Orders interface {
	PlaceOrder(ctx context.Context, cmd command.PlaceOrder) (*readmodel.Order, error)
}

// Summary is what the confirm step shows.
type Summary struct {
	Items             []cart.CartItem
	ShippingInfo      cart.ShippingInfo
	Totals            pricing.Totals
	RemainingFreeShip decimal.Decimal
}

type Flow struct {
	store     *store.Store
	payments  Payments
	confirmer PaymentConfirmer
	orders    Orders
	nav       *navigation.Navigator
	notifier  notice.Notifier
	publisher activity.Publisher
	pending   storage.Store
	policy    pricing.Policy
	logger    logrus.FieldLogger

	mu sync.Mutex
}

type Config struct {
	Store     *store.Store
	Payments  Payments
	Confirmer PaymentConfirmer
	Orders    Orders
	Navigator *navigation.Navigator
	Notifier  notice.Notifier
	Publisher activity.Publisher
	// Pending keeps a paid-but-unplaced order across restarts.
	Pending storage.Store
	Policy  *pricing.Policy
	Logger  logrus.FieldLogger
}

func NewFlow(cfg Config) *Flow {
	policy := pricing.DefaultPolicy()
	if cfg.Policy != nil {
		policy = *cfg.Policy
	}
	publisher := cfg.Publisher
	if publisher == nil {
		publisher = activity.Nop{}
	}
	return &Flow{
		store:     cfg.Store,
		payments:  cfg.Payments,
		confirmer: cfg.Confirmer,
		orders:    cfg.Orders,
		nav:       cfg.Navigator,
		notifier:  cfg.Notifier,
		publisher: publisher,
		pending:   cfg.Pending,
		policy:    policy,
		logger:    cfg.Logger.WithField("component", "Checkout"),
	}
}

// Enter evaluates step's guard against the live cart and navigates to the
// step or to its redirect.
func (f *Flow) Enter(step Step) Decision {
	d := Enter(step, f.store.Cart())
	if d.Allowed {
		f.nav.Navigate(step.Path())
	} else {
		f.logger.WithField("step", step.String()).WithField("redirect", d.RedirectTo.String()).Debug("guard redirect")
		f.nav.Navigate(d.RedirectTo.Path())
	}
	return d
}

func (f *Flow) guard(step Step) error {
	if d := f.Enter(step); !d.Allowed {
		return &BlockedError{Step: step, RedirectTo: d.RedirectTo}
	}
	return nil
}

// SubmitShipping validates and stores the shipping info, then moves on to
// the confirm step.
func (f *Flow) SubmitShipping(_ context.Context, info cart.ShippingInfo) (Step, error) {
	if d := f.Enter(StepShipping); !d.Allowed {
		return d.RedirectTo, &BlockedError{Step: StepShipping, RedirectTo: d.RedirectTo}
	}
	if err := validation.Struct(info); err != nil {
		return StepShipping, err
	}
	if _, err := f.store.Dispatch(cart.SetShippingInfo{Info: info}); err != nil {
		return StepShipping, err
	}
	f.nav.Navigate(StepConfirm.Path())
	return StepConfirm, nil
}

// Review returns the confirm step's summary.
func (f *Flow) Review() (Summary, error) {
	if err := f.guard(StepConfirm); err != nil {
		return Summary{}, err
	}
	c := f.store.Cart()
	totals := f.policy.Calculate(c.Items)
	return Summary{
		Items:             c.Items,
		ShippingInfo:      *c.ShippingInfo,
		Totals:            totals.Rounded(),
		RemainingFreeShip: f.policy.RemainingForFreeShipping(totals.ItemsPrice),
	}, nil
}

// Pay charges the cart total and places the order. A declined payment
// stays on the payment step. A failed order creation also stays there and
// keeps the paid order for RetryOrder.
func (f *Flow) Pay(ctx context.Context, method PaymentMethod) (*readmodel.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.guard(StepPayment); err != nil {
		return nil, err
	}
	if draft, err := f.loadPending(ctx); err != nil {
		return nil, err
	} else if draft != nil {
		f.notifier.Error("Your payment went through but the order was not placed. Retry the order instead.")
		return nil, ErrOrderPending
	}

	c := f.store.Cart()
	totals := f.policy.Calculate(c.Items).Rounded()
	amount := pricing.MinorUnits(totals.TotalPrice)

	intent, err := f.payments.ProcessPayment(ctx, api.PaymentRequest{Amount: amount, Currency: api.DefaultCurrency})
	if err != nil {
		return nil, f.paymentFailed(ctx, amount, api.Message(err), err)
	}
	info, err := f.confirmer.Confirm(ctx, *intent, method)
	if err != nil {
		msg := "Payment failed"
		var stripeErr *StripeError
		if errors.As(err, &stripeErr) {
			msg = stripeErr.Message
		}
		return nil, f.paymentFailed(ctx, amount, msg, err)
	}

	if info.ID == "" {
		info.ID = intent.PaymentIntentID
	}

	// The card is charged from here on; failures must stay retryable.
	draft, err := order.NewDraft(c, totals, info)
	if err != nil {
		f.logger.WithError(err).WithField("payment_intent", intent.PaymentIntentID).Error("charged but could not build the order")
		f.notifier.Error("Your payment went through but the order could not be created.")
		return nil, fmt.Errorf("%w: %w", ErrOrderCreationFailed, err)
	}
	return f.place(ctx, draft)
}

// RetryOrder submits the pending order again without charging.
func (f *Flow) RetryOrder(ctx context.Context) (*readmodel.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	draft, err := f.loadPending(ctx)
	if err != nil {
		return nil, err
	}
	if draft == nil {
		return nil, ErrNoPendingOrder
	}
	return f.place(ctx, *draft)
}

// Pending returns the paid order awaiting retry, if any.
func (f *Flow) Pending(ctx context.Context) (*order.Draft, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loadPending(ctx)
}

func (f *Flow) place(ctx context.Context, draft order.Draft) (*readmodel.Order, error) {
	o, err := f.orders.PlaceOrder(ctx, command.PlaceOrder{Draft: draft})
	if err != nil {
		if saveErr := f.savePending(ctx, draft); saveErr != nil {
			f.logger.WithError(saveErr).Error("failed to keep pending order")
		}
		f.logger.WithError(err).WithField("payment_intent", draft.PaymentInfo.ID).Warn("order creation failed after payment")
		return nil, fmt.Errorf("%w: %w", ErrOrderCreationFailed, err)
	}

	if err := f.pending.Delete(ctx, PendingKey); err != nil {
		f.logger.WithError(err).Warn("failed to drop pending order")
	}
	if err := f.settle(draft); err != nil {
		return o, err
	}
	f.nav.Navigate(StepSuccess.Path())
	return o, nil
}

// settle takes what the placed order contained out of the live cart. Lines
// added after the order was drafted, and shipping info changed since, stay.
func (f *Flow) settle(draft order.Draft) error {
	c := f.store.Cart()
	if sameLines(c.Items, draft.OrderItems) {
		if _, err := f.store.Dispatch(cart.Clear{}); err != nil {
			return err
		}
	} else {
		for _, ordered := range draft.OrderItems {
			line, ok := c.Find(ordered.Product)
			if !ok {
				continue
			}
			// SetQuantity below 1 removes the line.
			action := cart.SetQuantity{ProductID: ordered.Product, Quantity: line.Quantity - ordered.Quantity}
			if _, err := f.store.Dispatch(action); err != nil {
				return err
			}
		}
	}

	if info := f.store.Cart().ShippingInfo; info != nil && *info == draft.ShippingInfo {
		if _, err := f.store.Dispatch(cart.ClearShippingInfo{}); err != nil {
			return err
		}
	}
	return nil
}

func sameLines(items []cart.CartItem, ordered []order.Item) bool {
	if len(items) != len(ordered) {
		return false
	}
	for i, item := range items {
		if item.ProductID != ordered[i].Product || item.Quantity != ordered[i].Quantity {
			return false
		}
	}
	return true
}

func (f *Flow) paymentFailed(ctx context.Context, amount int64, message string, err error) error {
	f.logger.WithError(err).WithField("amount", amount).Info("payment failed")
	f.notifier.Error(message)
	event, buildErr := activity.New(activity.PaymentFailed, "payment", map[string]any{
		"amount": amount,
		"reason": message,
	})
	if buildErr == nil {
		buildErr = f.publisher.Publish(ctx, event)
	}
	if buildErr != nil {
		f.logger.WithError(buildErr).Warn("failed to publish activity")
	}
	return fmt.Errorf("%w: %w", ErrPaymentFailed, err)
}

func (f *Flow) loadPending(ctx context.Context) (*order.Draft, error) {
	raw, err := f.pending.Get(ctx, PendingKey)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load pending order: %w", err)
	}
	var draft order.Draft
	if err := json.Unmarshal(raw, &draft); err != nil {
		f.logger.WithError(err).Warn("discarding unreadable pending order")
		return nil, nil
	}
	return &draft, nil
}

func (f *Flow) savePending(ctx context.Context, draft order.Draft) error {
	raw, err := json.Marshal(draft)
	if err != nil {
		return err
	}
	return f.pending.Set(ctx, PendingKey, raw)
}
