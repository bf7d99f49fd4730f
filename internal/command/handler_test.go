package command

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/skycart/internal/activity"
	"github.com/example/skycart/internal/api"
	"github.com/example/skycart/internal/apitest"
	"github.com/example/skycart/internal/domain/cart"
	"github.com/example/skycart/internal/domain/order"
	"github.com/example/skycart/internal/notice"
	"github.com/example/skycart/internal/pricing"
	"github.com/example/skycart/internal/query"
	"github.com/example/skycart/internal/readmodel"
	"github.com/example/skycart/internal/validation"
)

type fixture struct {
	handler *Handler
	srv     *apitest.Server
	client  *api.Client
	cache   *query.Cache
	notices *notice.Center
	events  *activity.Memory
	token   string
}

func (f *fixture) loginAs(email string) {
	f.token = f.srv.Token(email)
}

func quietLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func newTestHandler(t *testing.T) *fixture {
	t.Helper()
	srv := apitest.NewServer()
	t.Cleanup(srv.Close)
	srv.AddUser("Root", "root@example.com", "secret123", readmodel.RoleAdmin)
	srv.AddUser("Ada", "ada@example.com", "secret123", readmodel.RoleUser)

	f := &fixture{
		srv:     srv,
		cache:   query.NewCache(query.WithLogger(quietLogger())),
		notices: notice.NewCenter(quietLogger()),
		events:  &activity.Memory{},
	}
	f.client = api.NewClient(srv.BaseURL(), api.WithTokenSource(func() string { return f.token }), api.WithLogger(quietLogger()))
	f.handler = NewHandler(f.client, f.cache, f.notices, f.events, quietLogger())
	return f
}

func (f *fixture) seed(keys ...query.Key) {
	for _, k := range keys {
		f.cache.Set(k, "cached")
	}
}

func (f *fixture) cached(k query.Key) bool {
	_, ok := f.cache.Get(k)
	return ok
}

func productInput(name string) api.ProductInput {
	return api.ProductInput{
		Name:        name,
		Price:       decimal.RequireFromString("89.99"),
		Description: "Grippy shoes for muddy trails",
		Category:    "Sports",
		Seller:      "SkyCart",
		Stock:       12,
		Images:      []readmodel.ProductImage{{Image: "https://img.example.com/shoes.png"}},
	}
}

func addProduct(f *fixture, name string) readmodel.Product {
	return f.srv.AddProduct(readmodel.Product{
		Name:        name,
		Price:       decimal.NewFromInt(40),
		Description: "A product for testing",
		Stock:       5,
	})
}

// ============================================
// Product Tests
// ============================================

func TestHandler_CreateProduct_InvalidatesAllProducts(t *testing.T) {
	f := newTestHandler(t)
	f.loginAs("root@example.com")
	f.seed(query.ProductList("page=1"), query.ProductDetail("prod-x"), query.AdminProducts(1, 10), query.MyOrders(1, 10))

	p, err := f.handler.CreateProduct(context.Background(), CreateProduct{Input: productInput("Trail Shoes")})

	require.NoError(t, err)
	assert.NotEmpty(t, p.ID)
	assert.False(t, f.cached(query.ProductList("page=1")))
	assert.False(t, f.cached(query.ProductDetail("prod-x")))
	assert.False(t, f.cached(query.AdminProducts(1, 10)))
	assert.True(t, f.cached(query.MyOrders(1, 10)))

	notices := f.notices.Drain()
	require.Len(t, notices, 1)
	assert.Equal(t, "Product created successfully", notices[0].Message)
	assert.Equal(t, []string{activity.ProductCreated}, f.events.Types())
}

func TestHandler_CreateProduct_ValidationSkipsNetworkAndNotice(t *testing.T) {
	f := newTestHandler(t)
	f.loginAs("root@example.com")
	f.seed(query.ProductList("page=1"))

	_, err := f.handler.CreateProduct(context.Background(), CreateProduct{Input: productInput("X")})

	assert.True(t, validation.IsValidation(err))
	assert.Empty(t, f.srv.Calls())
	assert.Empty(t, f.notices.Drain())
	assert.True(t, f.cached(query.ProductList("page=1")))
	assert.Empty(t, f.events.Events())
}

func TestHandler_UpdateProduct_InvalidatesDetailAndLists(t *testing.T) {
	f := newTestHandler(t)
	f.loginAs("root@example.com")
	p := addProduct(f, "Desk Lamp")
	other := addProduct(f, "Floor Lamp")
	f.seed(query.ProductDetail(p.ID), query.ProductDetail(other.ID), query.ProductList("page=1"), query.ProductList("keyword=lamp"), query.AdminProducts(1, 10))

	updated, err := f.handler.UpdateProduct(context.Background(), UpdateProduct{ProductID: p.ID, Input: productInput("Desk Lamp XL")})

	require.NoError(t, err)
	assert.Equal(t, "Desk Lamp XL", updated.Name)
	assert.False(t, f.cached(query.ProductDetail(p.ID)))
	assert.False(t, f.cached(query.ProductList("page=1")))
	assert.False(t, f.cached(query.ProductList("keyword=lamp")))
	assert.True(t, f.cached(query.ProductDetail(other.ID)))
	assert.True(t, f.cached(query.AdminProducts(1, 10)))
}

func TestHandler_DeleteProduct_NotFoundRaisesErrorNotice(t *testing.T) {
	f := newTestHandler(t)
	f.loginAs("root@example.com")
	f.seed(query.ProductList("page=1"))

	err := f.handler.DeleteProduct(context.Background(), DeleteProduct{ProductID: "missing"})

	assert.True(t, api.IsNotFound(err))
	assert.True(t, f.cached(query.ProductList("page=1")))
	notices := f.notices.Drain()
	require.Len(t, notices, 1)
	assert.Equal(t, notice.LevelError, notices[0].Level)
	assert.Equal(t, "Product not found", notices[0].Message)
}

func TestHandler_Forbidden(t *testing.T) {
	f := newTestHandler(t)
	f.loginAs("ada@example.com")

	err := f.handler.DeleteProduct(context.Background(), DeleteProduct{ProductID: "prod-1"})

	assert.True(t, api.IsForbidden(err))
	notices := f.notices.Drain()
	require.Len(t, notices, 1)
	assert.Equal(t, notice.LevelError, notices[0].Level)
}

// ============================================
// Review Tests
// ============================================

func TestHandler_Reviews_InvalidateOnlyThatProduct(t *testing.T) {
	f := newTestHandler(t)
	f.loginAs("ada@example.com")
	p := addProduct(f, "Desk Lamp")
	f.seed(query.ProductDetail(p.ID), query.ProductDetail("other"), query.ProductList("page=1"))

	err := f.handler.SubmitReview(context.Background(), SubmitReview{ProductID: p.ID, Rating: 4, Comment: "Bright and sturdy"})
	require.NoError(t, err)

	assert.False(t, f.cached(query.ProductDetail(p.ID)))
	assert.True(t, f.cached(query.ProductDetail("other")))
	assert.True(t, f.cached(query.ProductList("page=1")))
	stored, _ := f.srv.Product(p.ID)
	assert.Equal(t, 1, stored.NumOfReviews)

	f.seed(query.ProductDetail(p.ID))
	require.NoError(t, f.handler.DeleteReview(context.Background(), DeleteReview{ProductID: p.ID}))
	assert.False(t, f.cached(query.ProductDetail(p.ID)))

	msgs := []string{}
	for _, n := range f.notices.Drain() {
		msgs = append(msgs, n.Message)
	}
	assert.Equal(t, []string{"Review submitted successfully", "Review deleted successfully"}, msgs)
}

func TestHandler_DeleteProductReviews(t *testing.T) {
	f := newTestHandler(t)
	f.loginAs("ada@example.com")
	p := addProduct(f, "Desk Lamp")
	require.NoError(t, f.handler.SubmitReview(context.Background(), SubmitReview{ProductID: p.ID, Rating: 5, Comment: "Lovely lamp"}))

	f.loginAs("root@example.com")
	f.seed(query.ProductDetail(p.ID))
	require.NoError(t, f.handler.DeleteProductReviews(context.Background(), DeleteProductReviews{ProductID: p.ID}))

	assert.False(t, f.cached(query.ProductDetail(p.ID)))
	stored, _ := f.srv.Product(p.ID)
	assert.Equal(t, 0, stored.NumOfReviews)
	assert.Equal(t, 1, f.srv.CallCount(http.MethodDelete, "/products/admin/reviews"))
}

// ============================================
// Order Tests
// ============================================

func confirmIntent(t *testing.T, srv *apitest.Server, intent *readmodel.PaymentIntent) {
	t.Helper()
	form := url.Values{"client_secret": {intent.ClientSecret}}
	req, err := http.NewRequest(http.MethodPost, srv.StripeURL()+"/v1/payment_intents/"+intent.PaymentIntentID+"/confirm", strings.NewReader(form.Encode()))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "Bearer "+apitest.DefaultStripeKey)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func draftFor(t *testing.T, f *fixture, p readmodel.Product, paymentID string) order.Draft {
	t.Helper()
	state, _, err := cart.Reduce(cart.State{}, cart.AddItem{Item: cart.CartItem{
		ProductID: p.ID, Name: p.Name, Price: p.Price, Stock: p.Stock,
	}, Quantity: 2})
	require.NoError(t, err)
	state, _, err = cart.Reduce(state, cart.SetShippingInfo{Info: cart.ShippingInfo{
		Address: "1 Main Street", City: "Springfield", Country: "US", PostalCode: "12345", PhoneNo: "5551234567",
	}})
	require.NoError(t, err)
	draft, err := order.NewDraft(state, pricing.Calculate(state.Items), order.PaymentInfo{ID: paymentID, Status: "succeeded"})
	require.NoError(t, err)
	return draft
}

func TestHandler_PlaceOrder_InvalidatesOrders(t *testing.T) {
	f := newTestHandler(t)
	f.loginAs("ada@example.com")
	p := addProduct(f, "Desk Lamp")
	intent, err := f.client.ProcessPayment(context.Background(), api.PaymentRequest{Amount: 9800, Currency: api.DefaultCurrency})
	require.NoError(t, err)
	confirmIntent(t, f.srv, intent)
	f.seed(query.MyOrders(1, 10), query.AdminOrders(1, 10), query.StatsKey, query.ProductDetail(p.ID))

	o, err := f.handler.PlaceOrder(context.Background(), PlaceOrder{Draft: draftFor(t, f, p, intent.PaymentIntentID)})

	require.NoError(t, err)
	assert.Equal(t, string(order.StatusProcessing), o.OrderStatus)
	assert.True(t, decimal.RequireFromString("98").Equal(o.TotalPrice))
	assert.False(t, f.cached(query.MyOrders(1, 10)))
	assert.False(t, f.cached(query.AdminOrders(1, 10)))
	assert.False(t, f.cached(query.StatsKey))
	assert.True(t, f.cached(query.ProductDetail(p.ID)))
	assert.Equal(t, []string{activity.OrderPlaced}, f.events.Types())
	assert.Equal(t, "Order placed successfully!", f.notices.Drain()[0].Message)
}

func TestHandler_PlaceOrder_UnpaidRejected(t *testing.T) {
	f := newTestHandler(t)
	f.loginAs("ada@example.com")
	p := addProduct(f, "Desk Lamp")
	f.seed(query.MyOrders(1, 10))

	_, err := f.handler.PlaceOrder(context.Background(), PlaceOrder{Draft: draftFor(t, f, p, "pi_unknown")})

	assert.ErrorIs(t, err, api.ErrBadRequest)
	assert.True(t, f.cached(query.MyOrders(1, 10)))
	assert.Equal(t, "Payment has not been completed", f.notices.Drain()[0].Message)
	assert.Empty(t, f.events.Events())
}

func TestHandler_CancelOrder(t *testing.T) {
	f := newTestHandler(t)
	f.loginAs("ada@example.com")
	ada, _ := f.srv.User("ada@example.com")
	o := f.srv.AddOrder(ada.ID, readmodel.Order{OrderStatus: string(order.StatusConfirmed)})
	f.seed(query.OrderDetail(o.ID), query.OrderDetail("other"), query.MyOrders(1, 10), query.AdminOrders(1, 10))

	cancelled, err := f.handler.CancelOrder(context.Background(), CancelOrder{OrderID: o.ID})

	require.NoError(t, err)
	assert.Equal(t, string(order.StatusCancelled), cancelled.OrderStatus)
	assert.False(t, f.cached(query.OrderDetail(o.ID)))
	assert.False(t, f.cached(query.MyOrders(1, 10)))
	assert.True(t, f.cached(query.OrderDetail("other")))
	assert.True(t, f.cached(query.AdminOrders(1, 10)))
	assert.Equal(t, "Order cancelled successfully", f.notices.Drain()[0].Message)
}

func TestHandler_CancelOrder_GuardedByCachedStatus(t *testing.T) {
	f := newTestHandler(t)
	f.loginAs("ada@example.com")
	ada, _ := f.srv.User("ada@example.com")
	o := f.srv.AddOrder(ada.ID, readmodel.Order{OrderStatus: string(order.StatusShipped)})
	f.cache.Set(query.OrderDetail(o.ID), &o)

	_, err := f.handler.CancelOrder(context.Background(), CancelOrder{OrderID: o.ID})

	assert.ErrorIs(t, err, order.ErrNotCancellable)
	assert.Equal(t, 0, f.srv.CallCount(http.MethodPut, "/orders/{id}/cancel"))
	notices := f.notices.Drain()
	require.Len(t, notices, 1)
	assert.Equal(t, notice.LevelError, notices[0].Level)
	assert.Contains(t, notices[0].Message, "can no longer be cancelled")
}

func TestHandler_CancelOrder_UnknownStatusDefersToServer(t *testing.T) {
	f := newTestHandler(t)
	f.loginAs("ada@example.com")
	ada, _ := f.srv.User("ada@example.com")
	o := f.srv.AddOrder(ada.ID, readmodel.Order{OrderStatus: string(order.StatusDelivered)})

	_, err := f.handler.CancelOrder(context.Background(), CancelOrder{OrderID: o.ID})

	assert.ErrorIs(t, err, api.ErrBadRequest)
	assert.Equal(t, 1, f.srv.CallCount(http.MethodPut, "/orders/{id}/cancel"))
	assert.Equal(t, "Order cannot be cancelled at this stage", f.notices.Drain()[0].Message)
}

func TestHandler_UpdateOrderStatus(t *testing.T) {
	f := newTestHandler(t)
	f.loginAs("root@example.com")
	ada, _ := f.srv.User("ada@example.com")
	o := f.srv.AddOrder(ada.ID, readmodel.Order{})
	f.seed(query.AdminOrderDetail(o.ID), query.AdminOrders(1, 10), query.OrderDetail(o.ID))

	updated, err := f.handler.UpdateOrderStatus(context.Background(), UpdateOrderStatus{OrderID: o.ID, Status: "shipped"})

	require.NoError(t, err)
	assert.Equal(t, string(order.StatusShipped), updated.OrderStatus)
	assert.False(t, f.cached(query.AdminOrderDetail(o.ID)))
	assert.False(t, f.cached(query.AdminOrders(1, 10)))
	assert.True(t, f.cached(query.OrderDetail(o.ID)))
	assert.Equal(t, []string{activity.OrderStatusUpdated}, f.events.Types())
}

func TestHandler_UpdateOrderStatus_RejectedLocally(t *testing.T) {
	tests := []struct {
		name    string
		current string
		status  string
		wantErr error
	}{
		{"unknown status", "", "Lost", order.ErrInvalidStatus},
		{"unchanged status", "Shipped", "Shipped", order.ErrUnchangedStatus},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newTestHandler(t)
			f.loginAs("root@example.com")

			_, err := f.handler.UpdateOrderStatus(context.Background(), UpdateOrderStatus{OrderID: "order-1", CurrentStatus: tt.current, Status: tt.status})

			assert.ErrorIs(t, err, tt.wantErr)
			assert.Empty(t, f.srv.Calls())
		})
	}
}

// ============================================
// User Tests
// ============================================

func TestHandler_Users_InvalidateAdminUsers(t *testing.T) {
	f := newTestHandler(t)
	f.loginAs("root@example.com")
	ada, _ := f.srv.User("ada@example.com")
	f.seed(query.AdminUsers(1, 10), query.AdminUserDetail(ada.ID), query.AuthUserKey)

	u, err := f.handler.UpdateUser(context.Background(), UpdateUser{UserID: ada.ID, Update: api.UserUpdate{Name: "Ada L", Email: "ada@example.com", Role: readmodel.RoleAdmin}})
	require.NoError(t, err)
	assert.True(t, u.IsAdmin())
	assert.False(t, f.cached(query.AdminUsers(1, 10)))
	assert.False(t, f.cached(query.AdminUserDetail(ada.ID)))
	assert.True(t, f.cached(query.AuthUserKey))

	f.seed(query.AdminUsers(1, 10))
	require.NoError(t, f.handler.DeleteUser(context.Background(), DeleteUser{UserID: ada.ID}))
	assert.False(t, f.cached(query.AdminUsers(1, 10)))
	assert.Equal(t, []string{activity.UserUpdated, activity.UserDeleted}, f.events.Types())
}

func TestHandler_UnauthorizedRaisesNoNotice(t *testing.T) {
	f := newTestHandler(t)
	f.loginAs("root@example.com")
	f.srv.RevokeTokens()

	err := f.handler.DeleteUser(context.Background(), DeleteUser{UserID: "user-2"})

	assert.True(t, api.IsUnauthorized(err))
	assert.Empty(t, f.notices.Drain())
}
