package command

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/example/skycart/internal/activity"
	"github.com/example/skycart/internal/api"
	"github.com/example/skycart/internal/domain/order"
	"github.com/example/skycart/internal/notice"
	"github.com/example/skycart/internal/query"
	"github.com/example/skycart/internal/readmodel"
	"github.com/example/skycart/internal/validation"
)

// Writer is the mutating side of the API client.
type Writer interface {
	CreateProduct(ctx context.Context, input api.ProductInput) (*readmodel.Product, error)
	UpdateProduct(ctx context.Context, id string, input api.ProductInput) (*readmodel.Product, error)
	DeleteProduct(ctx context.Context, id string) (*readmodel.MessageResponse, error)
	SubmitReview(ctx context.Context, productID string, req api.ReviewRequest) (*readmodel.MessageResponse, error)
	DeleteReview(ctx context.Context, productID string) (*readmodel.MessageResponse, error)
	AdminDeleteReviews(ctx context.Context, productID string) (*readmodel.MessageResponse, error)
	CreateOrder(ctx context.Context, draft order.Draft) (*readmodel.Order, error)
	CancelOrder(ctx context.Context, id string) (*readmodel.Order, error)
	UpdateOrderStatus(ctx context.Context, id string, status order.Status) (*readmodel.Order, error)
	UpdateUser(ctx context.Context, id string, update api.UserUpdate) (*readmodel.User, error)
	DeleteUser(ctx context.Context, id string) (*readmodel.MessageResponse, error)
}

// Handler runs server mutations. After a mutation succeeds it drops exactly
// the cache keys the mutation made stale, raises a success notice and
// publishes an activity event. Failed mutations raise an error notice
// unless the failure was a 401 or a form validation error.
type Handler struct {
	writer    Writer
	cache     *query.Cache
	notifier  notice.Notifier
	publisher activity.Publisher
	logger    logrus.FieldLogger
}

func NewHandler(
	writer Writer,
	cache *query.Cache,
	notifier notice.Notifier,
	publisher activity.Publisher,
	logger logrus.FieldLogger,
) *Handler {
	return &Handler{
		writer:    writer,
		cache:     cache,
		notifier:  notifier,
		publisher: publisher,
		logger:    logger.WithField("component", "Command"),
	}
}

// CreateProduct creates a product and drops every product key.
func (h *Handler) CreateProduct(ctx context.Context, cmd CreateProduct) (*readmodel.Product, error) {
	p, err := h.writer.CreateProduct(ctx, cmd.Input)
	if err != nil {
		return nil, h.fail("CreateProduct", err)
	}

	h.cache.Invalidate(query.ProductsKey)
	h.notifier.Success("Product created successfully")
	h.publish(ctx, activity.ProductCreated, p.ID, p)
	return p, nil
}

// UpdateProduct drops the product's detail and the public lists.
func (h *Handler) UpdateProduct(ctx context.Context, cmd UpdateProduct) (*readmodel.Product, error) {
	p, err := h.writer.UpdateProduct(ctx, cmd.ProductID, cmd.Input)
	if err != nil {
		return nil, h.fail("UpdateProduct", err)
	}

	h.cache.Invalidate(query.ProductDetail(cmd.ProductID))
	h.cache.Invalidate(query.ProductListsKey)
	h.notifier.Success("Product updated successfully")
	h.publish(ctx, activity.ProductUpdated, cmd.ProductID, p)
	return p, nil
}

func (h *Handler) DeleteProduct(ctx context.Context, cmd DeleteProduct) error {
	if _, err := h.writer.DeleteProduct(ctx, cmd.ProductID); err != nil {
		return h.fail("DeleteProduct", err)
	}

	h.cache.Invalidate(query.ProductsKey)
	h.notifier.Success("Product deleted successfully")
	h.publish(ctx, activity.ProductDeleted, cmd.ProductID, nil)
	return nil
}

func (h *Handler) SubmitReview(ctx context.Context, cmd SubmitReview) error {
	req := api.ReviewRequest{Rating: cmd.Rating, Comment: cmd.Comment}
	if _, err := h.writer.SubmitReview(ctx, cmd.ProductID, req); err != nil {
		return h.fail("SubmitReview", err)
	}

	h.cache.Invalidate(query.ProductDetail(cmd.ProductID))
	h.notifier.Success("Review submitted successfully")
	h.publish(ctx, activity.ReviewSubmitted, cmd.ProductID, req)
	return nil
}

func (h *Handler) DeleteReview(ctx context.Context, cmd DeleteReview) error {
	if _, err := h.writer.DeleteReview(ctx, cmd.ProductID); err != nil {
		return h.fail("DeleteReview", err)
	}

	h.cache.Invalidate(query.ProductDetail(cmd.ProductID))
	h.notifier.Success("Review deleted successfully")
	h.publish(ctx, activity.ReviewDeleted, cmd.ProductID, nil)
	return nil
}

func (h *Handler) DeleteProductReviews(ctx context.Context, cmd DeleteProductReviews) error {
	if _, err := h.writer.AdminDeleteReviews(ctx, cmd.ProductID); err != nil {
		return h.fail("DeleteProductReviews", err)
	}

	h.cache.Invalidate(query.ProductDetail(cmd.ProductID))
	h.notifier.Success("Review deleted successfully")
	h.publish(ctx, activity.ReviewDeleted, cmd.ProductID, nil)
	return nil
}

// PlaceOrder submits an order for an already confirmed payment and drops
// every order key.
func (h *Handler) PlaceOrder(ctx context.Context, cmd PlaceOrder) (*readmodel.Order, error) {
	o, err := h.writer.CreateOrder(ctx, cmd.Draft)
	if err != nil {
		return nil, h.fail("PlaceOrder", err)
	}

	h.cache.Invalidate(query.OrdersKey)
	h.notifier.Success("Order placed successfully!")
	h.publish(ctx, activity.OrderPlaced, o.ID, o)
	return o, nil
}

// CancelOrder refuses locally when the order is known to be past the
// cancellable stage.
func (h *Handler) CancelOrder(ctx context.Context, cmd CancelOrder) (*readmodel.Order, error) {
	status := cmd.CurrentStatus
	if status == "" {
		if cached, ok := h.cache.Get(query.OrderDetail(cmd.OrderID)); ok {
			if o, ok := cached.(*readmodel.Order); ok {
				status = o.OrderStatus
			}
		}
	}
	if status != "" {
		if err := order.CheckCancel(status); err != nil {
			return nil, h.fail("CancelOrder", err)
		}
	}

	o, err := h.writer.CancelOrder(ctx, cmd.OrderID)
	if err != nil {
		return nil, h.fail("CancelOrder", err)
	}

	h.cache.Invalidate(query.OrderDetail(cmd.OrderID))
	h.cache.Invalidate(query.MyOrdersKey)
	h.notifier.Success("Order cancelled successfully")
	h.publish(ctx, activity.OrderCancelled, cmd.OrderID, o)
	return o, nil
}

func (h *Handler) UpdateOrderStatus(ctx context.Context, cmd UpdateOrderStatus) (*readmodel.Order, error) {
	current := cmd.CurrentStatus
	if current == "" {
		if cached, ok := h.cache.Get(query.AdminOrderDetail(cmd.OrderID)); ok {
			if o, ok := cached.(*readmodel.Order); ok {
				current = o.OrderStatus
			}
		}
	}
	status, err := order.CheckStatusUpdate(current, cmd.Status)
	if err != nil {
		return nil, h.fail("UpdateOrderStatus", err)
	}

	o, err := h.writer.UpdateOrderStatus(ctx, cmd.OrderID, status)
	if err != nil {
		return nil, h.fail("UpdateOrderStatus", err)
	}

	h.cache.Invalidate(query.AdminOrderDetail(cmd.OrderID))
	h.cache.Invalidate(query.AdminOrderKey)
	h.notifier.Success("Order status updated")
	h.publish(ctx, activity.OrderStatusUpdated, cmd.OrderID, o)
	return o, nil
}

func (h *Handler) UpdateUser(ctx context.Context, cmd UpdateUser) (*readmodel.User, error) {
	u, err := h.writer.UpdateUser(ctx, cmd.UserID, cmd.Update)
	if err != nil {
		return nil, h.fail("UpdateUser", err)
	}

	h.cache.Invalidate(query.AdminUserKey)
	h.notifier.Success("User updated successfully")
	h.publish(ctx, activity.UserUpdated, cmd.UserID, u)
	return u, nil
}

func (h *Handler) DeleteUser(ctx context.Context, cmd DeleteUser) error {
	if _, err := h.writer.DeleteUser(ctx, cmd.UserID); err != nil {
		return h.fail("DeleteUser", err)
	}

	h.cache.Invalidate(query.AdminUserKey)
	h.notifier.Success("User deleted successfully")
	h.publish(ctx, activity.UserDeleted, cmd.UserID, nil)
	return nil
}

func (h *Handler) fail(op string, err error) error {
	log := h.logger.WithError(err).WithField("command", op)
	switch {
	case validation.IsValidation(err):
		log.Debug("rejected invalid input")
	case api.IsUnauthorized(err):
		log.Info("unauthorized")
	default:
		log.Warn("command failed")
		h.notifier.Error(userMessage(err))
	}
	return err
}

// userMessage prefers the server's message and falls back to the domain
// rule that refused the command locally.
func userMessage(err error) string {
	if msg := api.Message(err); msg != api.DefaultMessage {
		return msg
	}
	var apiErr *api.Error
	if errors.As(err, &apiErr) {
		return api.DefaultMessage
	}
	return err.Error()
}

func (h *Handler) publish(ctx context.Context, eventType, subject string, data any) {
	event, err := activity.New(eventType, subject, data)
	if err == nil {
		err = h.publisher.Publish(ctx, event)
	}
	if err != nil {
		h.logger.WithError(err).WithField("event_type", eventType).Warn("failed to publish activity")
	}
}
