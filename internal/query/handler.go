package query

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/example/skycart/internal/api"
	"github.com/example/skycart/internal/readmodel"
)

// Reader is the read side of the API client.
type Reader interface {
	Me(ctx context.Context) (*readmodel.User, error)
	ListProducts(ctx context.Context, filter api.ProductFilter) (*readmodel.ProductList, error)
	GetProduct(ctx context.Context, id string) (*readmodel.Product, error)
	AdminListProducts(ctx context.Context, page, limit int) (*readmodel.ProductList, error)
	MyOrders(ctx context.Context, page, limit int) (*readmodel.OrderList, error)
	GetOrder(ctx context.Context, id string) (*readmodel.Order, error)
	AdminOrders(ctx context.Context, page, limit int) (*readmodel.OrderList, error)
	AdminGetOrder(ctx context.Context, id string) (*readmodel.Order, error)
	SalesStats(ctx context.Context) (*readmodel.SalesStats, error)
	AdminUsers(ctx context.Context, page, limit int) (*readmodel.UserList, error)
	AdminGetUser(ctx context.Context, id string) (*readmodel.User, error)
	StripeKey(ctx context.Context) (string, error)
}

// Handler serves every read through the cache.
type Handler struct {
	reader Reader
	cache  *Cache
	logger logrus.FieldLogger
}

func NewHandler(reader Reader, cache *Cache, logger logrus.FieldLogger) *Handler {
	return &Handler{
		reader: reader,
		cache:  cache,
		logger: logger.WithField("component", "Query"),
	}
}

func (h *Handler) Cache() *Cache { return h.cache }

// CurrentUser is the /auth/me lookup, fresh for five minutes.
func (h *Handler) CurrentUser(ctx context.Context) (*readmodel.User, error) {
	return Fetch(ctx, h.cache, AuthUserKey, Options{StaleTime: UserStaleTime}, h.reader.Me)
}

// Products
func (h *Handler) ListProducts(ctx context.Context, filter api.ProductFilter) (*readmodel.ProductList, error) {
	return Fetch(ctx, h.cache, ProductList(filter.Key()), Options{StaleTime: ListStaleTime}, func(ctx context.Context) (*readmodel.ProductList, error) {
		return h.reader.ListProducts(ctx, filter)
	})
}

func (h *Handler) GetProduct(ctx context.Context, id string) (*readmodel.Product, error) {
	product, err := Fetch(ctx, h.cache, ProductDetail(id), Options{}, func(ctx context.Context) (*readmodel.Product, error) {
		return h.reader.GetProduct(ctx, id)
	})
	if err != nil && !api.IsNotFound(err) {
		h.logger.WithError(err).WithField("product_id", id).Warn("product lookup failed")
	}
	return product, err
}

func (h *Handler) AdminListProducts(ctx context.Context, page, limit int) (*readmodel.ProductList, error) {
	return Fetch(ctx, h.cache, AdminProducts(page, limit), Options{StaleTime: ListStaleTime}, func(ctx context.Context) (*readmodel.ProductList, error) {
		return h.reader.AdminListProducts(ctx, page, limit)
	})
}

// Orders
func (h *Handler) MyOrders(ctx context.Context, page, limit int) (*readmodel.OrderList, error) {
	return Fetch(ctx, h.cache, MyOrders(page, limit), Options{StaleTime: ListStaleTime}, func(ctx context.Context) (*readmodel.OrderList, error) {
		return h.reader.MyOrders(ctx, page, limit)
	})
}

func (h *Handler) GetOrder(ctx context.Context, id string) (*readmodel.Order, error) {
	return Fetch(ctx, h.cache, OrderDetail(id), Options{}, func(ctx context.Context) (*readmodel.Order, error) {
		return h.reader.GetOrder(ctx, id)
	})
}

// ListAllOrders is the admin order list.
func (h *Handler) ListAllOrders(ctx context.Context, page, limit int) (*readmodel.OrderList, error) {
	return Fetch(ctx, h.cache, AdminOrders(page, limit), Options{StaleTime: ListStaleTime}, func(ctx context.Context) (*readmodel.OrderList, error) {
		return h.reader.AdminOrders(ctx, page, limit)
	})
}

func (h *Handler) AdminGetOrder(ctx context.Context, id string) (*readmodel.Order, error) {
	return Fetch(ctx, h.cache, AdminOrderDetail(id), Options{}, func(ctx context.Context) (*readmodel.Order, error) {
		return h.reader.AdminGetOrder(ctx, id)
	})
}

func (h *Handler) SalesStats(ctx context.Context) (*readmodel.SalesStats, error) {
	return Fetch(ctx, h.cache, StatsKey, Options{}, h.reader.SalesStats)
}

// Users
func (h *Handler) ListUsers(ctx context.Context, page, limit int) (*readmodel.UserList, error) {
	return Fetch(ctx, h.cache, AdminUsers(page, limit), Options{StaleTime: ListStaleTime}, func(ctx context.Context) (*readmodel.UserList, error) {
		return h.reader.AdminUsers(ctx, page, limit)
	})
}

func (h *Handler) GetUser(ctx context.Context, id string) (*readmodel.User, error) {
	return Fetch(ctx, h.cache, AdminUserDetail(id), Options{}, func(ctx context.Context) (*readmodel.User, error) {
		return h.reader.AdminGetUser(ctx, id)
	})
}

// StripeKey never goes stale.
func (h *Handler) StripeKey(ctx context.Context) (string, error) {
	return Fetch(ctx, h.cache, StripeKeyKey, Options{StaleTime: Forever}, h.reader.StripeKey)
}
