package apitest

import (
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"github.com/example/skycart/internal/readmodel"
)

type intent struct {
	id     string
	amount int64
	status string
}

func (s *Server) routes() {
	s.Router.Use(s.record)
	api := s.Router.PathPrefix(APIPrefix).Subrouter()

	// Auth
	api.HandleFunc("/auth/login", s.handleLogin).Methods(http.MethodPost)
	api.HandleFunc("/auth/register", s.handleRegister).Methods(http.MethodPost)
	api.HandleFunc("/auth/logout", s.handleLogout).Methods(http.MethodPost)
	api.HandleFunc("/auth/me", s.requireAuth(s.handleMe)).Methods(http.MethodGet)
	api.HandleFunc("/auth/password/forgot", s.handleForgotPassword).Methods(http.MethodPost)
	api.HandleFunc("/auth/password/reset/{token}", s.handleResetPassword).Methods(http.MethodPut)
	api.HandleFunc("/auth/password/update", s.requireAuth(s.handleUpdatePassword)).Methods(http.MethodPut)
	api.HandleFunc("/users/profile", s.requireAuth(s.handleUpdateProfile)).Methods(http.MethodPut)

	// Products
	api.HandleFunc("/products", s.handleListProducts).Methods(http.MethodGet)
	api.HandleFunc("/products/admin/products", s.requireAdmin(s.handleListProducts)).Methods(http.MethodGet)
	api.HandleFunc("/products/admin/product/new", s.requireAdmin(s.handleCreateProduct)).Methods(http.MethodPost)
	api.HandleFunc("/products/admin/product/{id}", s.requireAdmin(s.handleUpdateProduct)).Methods(http.MethodPut)
	api.HandleFunc("/products/admin/product/{id}", s.requireAdmin(s.handleDeleteProduct)).Methods(http.MethodDelete)
	api.HandleFunc("/products/admin/reviews", s.requireAdmin(s.handleAdminDeleteReviews)).Methods(http.MethodDelete)
	api.HandleFunc("/products/{id}", s.handleGetProduct).Methods(http.MethodGet)
	api.HandleFunc("/products/{id}/review", s.requireAuth(s.handleReview)).Methods(http.MethodPost)
	api.HandleFunc("/products/{id}/review", s.requireAuth(s.handleDeleteReview)).Methods(http.MethodDelete)

	// Orders
	api.HandleFunc("/orders/new", s.requireAuth(s.handleCreateOrder)).Methods(http.MethodPost)
	api.HandleFunc("/orders/me", s.requireAuth(s.handleMyOrders)).Methods(http.MethodGet)
	api.HandleFunc("/orders/admin/orders", s.requireAdmin(s.handleAdminOrders)).Methods(http.MethodGet)
	api.HandleFunc("/orders/admin/stats", s.requireAdmin(s.handleStats)).Methods(http.MethodGet)
	api.HandleFunc("/orders/admin/order/{id}", s.requireAdmin(s.handleGetOrder)).Methods(http.MethodGet)
	api.HandleFunc("/orders/admin/order/{id}", s.requireAdmin(s.handleUpdateOrderStatus)).Methods(http.MethodPut)
	api.HandleFunc("/orders/{id}", s.requireAuth(s.handleGetOrder)).Methods(http.MethodGet)
	api.HandleFunc("/orders/{id}/cancel", s.requireAuth(s.handleCancelOrder)).Methods(http.MethodPut)

	// Payments
	api.HandleFunc("/payments/process", s.requireAuth(s.handleProcessPayment)).Methods(http.MethodPost)
	api.HandleFunc("/payments/stripeapi", s.handleStripeKey).Methods(http.MethodGet)

	// Users
	api.HandleFunc("/users/admin/users", s.requireAdmin(s.handleListUsers)).Methods(http.MethodGet)
	api.HandleFunc("/users/admin/user/{id}", s.requireAdmin(s.handleGetUser)).Methods(http.MethodGet)
	api.HandleFunc("/users/admin/user/{id}", s.requireAdmin(s.handleUpdateUser)).Methods(http.MethodPut)
	api.HandleFunc("/users/admin/user/{id}", s.requireAdmin(s.handleDeleteUser)).Methods(http.MethodDelete)

	stripe := s.Router.PathPrefix(StripePrefix).Subrouter()
	stripe.HandleFunc("/v1/payment_intents/{id}/confirm", s.handleConfirmIntent).Methods(http.MethodPost)
}

// ============================================
// Auth
// ============================================

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	user, token, err := s.login(req.Email, req.Password)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}
	writeJSON(w, http.StatusOK, readmodel.AuthResponse{Success: true, Token: token, User: user})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if _, exists := s.User(req.Email); exists {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"success": false,
			"message": "Duplicate email entered",
			"errors":  map[string][]string{"email": {"already registered"}},
		})
		return
	}
	s.AddUser(req.Name, req.Email, req.Password, readmodel.RoleUser)
	user, token, err := s.login(req.Email, req.Password)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, readmodel.AuthResponse{Success: true, Token: token, User: user})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	header := r.Header.Get("Authorization")
	s.mu.Lock()
	delete(s.tokens, strings.TrimPrefix(header, "Bearer "))
	s.mu.Unlock()
	writeMessage(w, "Logged out")
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	user := current(r).user
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, user)
}

func (s *Server) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if _, ok := s.User(req.Email); !ok {
		writeError(w, http.StatusNotFound, "User not found with this email")
		return
	}
	writeMessage(w, "Email sent to "+req.Email)
}

// handleResetPassword treats the reset token as the account email.
func (s *Server) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	email := mux.Vars(r)["token"]
	var req struct {
		Password        string `json:"password"`
		ConfirmPassword string `json:"confirm_password"`
	}
	if err := decode(r, &req); err != nil || req.Password != req.ConfirmPassword {
		writeError(w, http.StatusBadRequest, "Password does not match")
		return
	}
	hash, err := hashPassword(req.Password)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.mu.Lock()
	acct, ok := s.accounts[email]
	if ok {
		acct.passwordHash = hash
	}
	s.mu.Unlock()
	if !ok {
		writeError(w, http.StatusBadRequest, "Password reset token is invalid or has been expired")
		return
	}
	writeMessage(w, "Password reset successfully")
}

func (s *Server) handleUpdatePassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		OldPassword string `json:"old_password"`
		NewPassword string `json:"new_password"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	acct := current(r)
	s.mu.Lock()
	matches := acct.checkPassword(req.OldPassword)
	s.mu.Unlock()
	if !matches {
		writeError(w, http.StatusBadRequest, "Old password is incorrect")
		return
	}
	hash, err := hashPassword(req.NewPassword)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.mu.Lock()
	acct.passwordHash = hash
	s.mu.Unlock()
	writeMessage(w, "Password updated successfully")
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name  string `json:"name"`
		Email string `json:"email"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	acct := current(r)
	s.mu.Lock()
	delete(s.accounts, acct.user.Email)
	acct.user.Name = req.Name
	acct.user.Email = req.Email
	s.accounts[acct.user.Email] = acct
	user := acct.user
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, user)
}

// ============================================
// Products
// ============================================

// AddProduct stores p, assigning an id when empty, and returns it.
func (s *Server) AddProduct(p readmodel.Product) readmodel.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == "" {
		p.ID = fmt.Sprintf("prod-%d", s.nextSeq())
	}
	if _, exists := s.products[p.ID]; !exists {
		s.order = append(s.order, p.ID)
	}
	if p.Images == nil {
		p.Images = []readmodel.ProductImage{}
	}
	if p.Reviews == nil {
		p.Reviews = []readmodel.ProductReview{}
	}
	stored := p
	s.products[p.ID] = &stored
	return p
}

// Product returns the stored product.
func (s *Server) Product(id string) (readmodel.Product, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok {
		return readmodel.Product{}, false
	}
	return *p, true
}

// SetStock changes a product's stock behind the client's back.
func (s *Server) SetStock(id string, stock int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.products[id]; ok {
		p.Stock = stock
	}
}

func (s *Server) handleListProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	keyword := strings.ToLower(q.Get("keyword"))
	category := q.Get("category")
	minPrice, hasMin := parseDecimal(q.Get("price[gte]"))
	maxPrice, hasMax := parseDecimal(q.Get("price[lte]"))
	minRating, _ := strconv.ParseFloat(q.Get("ratings[gte]"), 64)
	perPage := atoiDefault(q.Get("resPerPage"), atoiDefault(q.Get("limit"), 10))
	page := atoiDefault(q.Get("page"), 1)

	s.mu.Lock()
	var matched []readmodel.Product
	for _, id := range s.order {
		p, ok := s.products[id]
		if !ok {
			continue
		}
		if keyword != "" && !strings.Contains(strings.ToLower(p.Name), keyword) {
			continue
		}
		if category != "" && p.Category != category {
			continue
		}
		if hasMin && p.Price.LessThan(minPrice) {
			continue
		}
		if hasMax && p.Price.GreaterThan(maxPrice) {
			continue
		}
		if p.Ratings < minRating {
			continue
		}
		matched = append(matched, *p)
	}
	s.mu.Unlock()

	pageItems, pages := paginate(matched, page, perPage)
	writeJSON(w, http.StatusOK, map[string]any{
		"success":          true,
		"count":            len(pageItems),
		"total":            len(matched),
		"page":             page,
		"pages":            pages,
		"results_per_page": perPage,
		"products":         pageItems,
	})
}

func (s *Server) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	p, ok := s.Product(mux.Vars(r)["id"])
	if !ok {
		writeError(w, http.StatusNotFound, "Product not found")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

type productBody struct {
	Name        string                   `json:"name"`
	Price       decimal.Decimal          `json:"price"`
	Description string                   `json:"description"`
	Category    string                   `json:"category"`
	Seller      string                   `json:"seller"`
	Stock       int                      `json:"stock"`
	Images      []readmodel.ProductImage `json:"images"`
}

func (s *Server) handleCreateProduct(w http.ResponseWriter, r *http.Request) {
	var body productBody
	if err := decode(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	created := time.Now().UTC()
	p := s.AddProduct(readmodel.Product{
		Name:        body.Name,
		Price:       body.Price,
		Description: body.Description,
		Category:    body.Category,
		Seller:      body.Seller,
		Stock:       body.Stock,
		Images:      body.Images,
		User:        current(r).user.ID,
		CreatedAt:   &created,
	})
	writeJSON(w, http.StatusCreated, p)
}

func (s *Server) handleUpdateProduct(w http.ResponseWriter, r *http.Request) {
	var body productBody
	if err := decode(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	id := mux.Vars(r)["id"]
	s.mu.Lock()
	p, ok := s.products[id]
	if ok {
		p.Name = body.Name
		p.Price = body.Price
		p.Description = body.Description
		p.Category = body.Category
		p.Seller = body.Seller
		p.Stock = body.Stock
		p.Images = body.Images
	}
	var out readmodel.Product
	if ok {
		out = *p
	}
	s.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, "Product not found")
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleDeleteProduct(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	s.mu.Lock()
	_, ok := s.products[id]
	delete(s.products, id)
	s.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, "Product not found")
		return
	}
	writeMessage(w, "Product deleted")
}

func (s *Server) handleReview(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Rating  int    `json:"rating"`
		Comment string `json:"comment"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	acct := current(r)
	s.mu.Lock()
	p, ok := s.products[mux.Vars(r)["id"]]
	if ok {
		reviews := p.Reviews[:0:0]
		for _, rv := range p.Reviews {
			if rv.User != acct.user.ID {
				reviews = append(reviews, rv)
			}
		}
		p.Reviews = append(reviews, readmodel.ProductReview{User: acct.user.ID, Rating: req.Rating, Comment: req.Comment})
		recount(p)
	}
	s.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, "Product not found")
		return
	}
	writeMessage(w, "Review submitted")
}

func (s *Server) handleDeleteReview(w http.ResponseWriter, r *http.Request) {
	acct := current(r)
	s.mu.Lock()
	p, ok := s.products[mux.Vars(r)["id"]]
	if ok {
		reviews := p.Reviews[:0:0]
		for _, rv := range p.Reviews {
			if rv.User != acct.user.ID {
				reviews = append(reviews, rv)
			}
		}
		p.Reviews = reviews
		recount(p)
	}
	s.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, "Product not found")
		return
	}
	writeMessage(w, "Review deleted")
}

func (s *Server) handleAdminDeleteReviews(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	p, ok := s.products[r.URL.Query().Get("productId")]
	if ok {
		p.Reviews = []readmodel.ProductReview{}
		recount(p)
	}
	s.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, "Product not found")
		return
	}
	writeMessage(w, "Reviews deleted")
}

// ============================================
// Orders
// ============================================

type orderBody struct {
	ShippingInfo  readmodel.ShippingInfo `json:"shipping_info"`
	OrderItems    []readmodel.OrderItem  `json:"order_items"`
	ItemsPrice    decimal.Decimal        `json:"items_price"`
	TaxPrice      decimal.Decimal        `json:"tax_price"`
	ShippingPrice decimal.Decimal        `json:"shipping_price"`
	PaymentInfo   readmodel.PaymentInfo  `json:"payment_info"`
}

// Order returns the stored order.
func (s *Server) Order(id string) (readmodel.Order, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return readmodel.Order{}, false
	}
	return *o, true
}

// AddOrder stores o for userID, assigning an id when empty.
func (s *Server) AddOrder(userID string, o readmodel.Order) readmodel.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	if o.ID == "" {
		o.ID = fmt.Sprintf("order-%d", s.nextSeq())
	}
	o.User = userID
	if o.OrderStatus == "" {
		o.OrderStatus = "Processing"
	}
	if o.OrderItems == nil {
		o.OrderItems = []readmodel.OrderItem{}
	}
	stored := o
	s.orders[o.ID] = &stored
	return o
}

func (s *Server) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	var body orderBody
	if err := decode(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if len(body.OrderItems) == 0 {
		writeError(w, http.StatusBadRequest, "No order items")
		return
	}
	s.mu.Lock()
	pi, paid := s.intents[body.PaymentInfo.ID]
	paid = paid && pi.status == "succeeded"
	s.mu.Unlock()
	if !paid {
		writeError(w, http.StatusBadRequest, "Payment has not been completed")
		return
	}

	now := time.Now().UTC()
	o := s.AddOrder(current(r).user.ID, readmodel.Order{
		ShippingInfo:  body.ShippingInfo,
		OrderItems:    body.OrderItems,
		ItemsPrice:    body.ItemsPrice,
		TaxPrice:      body.TaxPrice,
		ShippingPrice: body.ShippingPrice,
		TotalPrice:    body.ItemsPrice.Add(body.TaxPrice).Add(body.ShippingPrice),
		PaymentInfo:   &body.PaymentInfo,
		PaidAt:        &now,
		CreatedAt:     &now,
	})

	s.mu.Lock()
	for _, item := range body.OrderItems {
		if p, ok := s.products[item.Product]; ok {
			p.Stock = max(0, p.Stock-item.Quantity)
		}
	}
	s.mu.Unlock()
	writeJSON(w, http.StatusCreated, o)
}

func (s *Server) ordersWhere(keep func(*readmodel.Order) bool) []readmodel.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []readmodel.Order{}
	for _, o := range s.orders {
		if keep(o) {
			out = append(out, *o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *Server) writeOrderList(w http.ResponseWriter, r *http.Request, orders []readmodel.Order) {
	q := r.URL.Query()
	page := atoiDefault(q.Get("page"), 1)
	limit := atoiDefault(q.Get("limit"), 10)
	pageItems, pages := paginate(orders, page, limit)
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"count":   len(pageItems),
		"total":   len(orders),
		"page":    page,
		"pages":   pages,
		"orders":  pageItems,
	})
}

func (s *Server) handleMyOrders(w http.ResponseWriter, r *http.Request) {
	userID := current(r).user.ID
	s.writeOrderList(w, r, s.ordersWhere(func(o *readmodel.Order) bool { return o.User == userID }))
}

func (s *Server) handleAdminOrders(w http.ResponseWriter, r *http.Request) {
	s.writeOrderList(w, r, s.ordersWhere(func(*readmodel.Order) bool { return true }))
}

func (s *Server) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	acct := current(r)
	o, ok := s.Order(mux.Vars(r)["id"])
	if !ok || (o.User != acct.user.ID && acct.user.Role != readmodel.RoleAdmin) {
		writeError(w, http.StatusNotFound, "Order not found")
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (s *Server) handleCancelOrder(w http.ResponseWriter, r *http.Request) {
	acct := current(r)
	s.mu.Lock()
	o, ok := s.orders[mux.Vars(r)["id"]]
	owned := ok && o.User == acct.user.ID
	var out readmodel.Order
	var conflict bool
	if owned {
		switch o.OrderStatus {
		case "Processing", "Confirmed":
			o.OrderStatus = "Cancelled"
			out = *o
		default:
			conflict = true
		}
	}
	s.mu.Unlock()

	switch {
	case !owned:
		writeError(w, http.StatusNotFound, "Order not found")
	case conflict:
		writeError(w, http.StatusBadRequest, "Order cannot be cancelled at this stage")
	default:
		writeJSON(w, http.StatusOK, out)
	}
}

func (s *Server) handleUpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status string `json:"status"`
	}
	if err := decode(r, &req); err != nil || req.Status == "" {
		writeError(w, http.StatusBadRequest, "Status is required")
		return
	}
	s.mu.Lock()
	o, ok := s.orders[mux.Vars(r)["id"]]
	var out readmodel.Order
	if ok {
		o.OrderStatus = req.Status
		if req.Status == "Delivered" {
			now := time.Now().UTC()
			o.DeliveredAt = &now
		}
		out = *o
	}
	s.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, "Order not found")
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	orders := s.ordersWhere(func(*readmodel.Order) bool { return true })
	stats := readmodel.SalesStats{TotalOrders: len(orders), TotalSales: decimal.Zero, AverageOrderValue: decimal.Zero}
	for _, o := range orders {
		switch o.OrderStatus {
		case "Delivered":
			stats.DeliveredOrders++
		case "Processing":
			stats.ProcessingOrders++
		case "Cancelled":
			stats.CancelledOrders++
		}
		if o.OrderStatus != "Cancelled" && o.OrderStatus != "Refunded" {
			stats.TotalSales = stats.TotalSales.Add(o.TotalPrice)
		}
	}
	if len(orders) > 0 {
		stats.AverageOrderValue = stats.TotalSales.Div(decimal.NewFromInt(int64(len(orders)))).Round(2)
	}
	writeJSON(w, http.StatusOK, stats)
}

// ============================================
// Payments
// ============================================

// Charges counts confirmed payment intents.
func (s *Server) Charges() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, pi := range s.intents {
		if pi.status == "succeeded" {
			n++
		}
	}
	return n
}

func (s *Server) handleProcessPayment(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Amount   int64  `json:"amount"`
		Currency string `json:"currency"`
	}
	if err := decode(r, &req); err != nil || req.Amount <= 0 {
		writeError(w, http.StatusBadRequest, "Invalid amount")
		return
	}
	s.mu.Lock()
	id := fmt.Sprintf("pi_%d", s.nextSeq())
	s.intents[id] = &intent{id: id, amount: req.Amount, status: "requires_confirmation"}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, readmodel.PaymentIntent{Success: true, ClientSecret: id + "_secret_test", PaymentIntentID: id})
}

func (s *Server) handleStripeKey(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	key := s.stripeKey
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, readmodel.StripeKey{StripeAPIKey: key})
}

func (s *Server) handleConfirmIntent(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := r.ParseForm(); err != nil {
		writeStripeError(w, http.StatusBadRequest, "invalid_request_error", "Malformed body")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if r.Header.Get("Authorization") != "Bearer "+s.stripeKey {
		writeStripeError(w, http.StatusUnauthorized, "invalid_request_error", "Invalid API Key provided")
		return
	}
	pi, ok := s.intents[id]
	if !ok || r.PostForm.Get("client_secret") != id+"_secret_test" {
		writeStripeError(w, http.StatusNotFound, "invalid_request_error", "No such payment_intent")
		return
	}
	if s.declineAll {
		pi.status = "requires_payment_method"
		writeStripeError(w, http.StatusPaymentRequired, "card_error", "Your card was declined.")
		return
	}
	pi.status = "succeeded"
	writeJSON(w, http.StatusOK, map[string]any{"id": pi.id, "amount": pi.amount, "status": pi.status})
}

func writeStripeError(w http.ResponseWriter, status int, kind, message string) {
	writeJSON(w, status, map[string]any{"error": map[string]string{"type": kind, "message": message}})
}

// ============================================
// Users
// ============================================

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	users := make([]readmodel.User, 0, len(s.accounts))
	for _, acct := range s.accounts {
		users = append(users, acct.user)
	}
	s.mu.Unlock()
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })

	q := r.URL.Query()
	page := atoiDefault(q.Get("page"), 1)
	limit := atoiDefault(q.Get("limit"), 10)
	pageItems, pages := paginate(users, page, limit)
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"count":   len(pageItems),
		"total":   len(users),
		"page":    page,
		"pages":   pages,
		"users":   pageItems,
	})
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	acct, ok := s.userByID(mux.Vars(r)["id"])
	var user readmodel.User
	if ok {
		user = acct.user
	}
	s.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, "User not found")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name  string `json:"name"`
		Email string `json:"email"`
		Role  string `json:"role"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	s.mu.Lock()
	acct, ok := s.userByID(mux.Vars(r)["id"])
	var user readmodel.User
	if ok {
		delete(s.accounts, acct.user.Email)
		acct.user.Name = req.Name
		acct.user.Email = req.Email
		acct.user.Role = req.Role
		s.accounts[acct.user.Email] = acct
		user = acct.user
	}
	s.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, "User not found")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	acct, ok := s.userByID(mux.Vars(r)["id"])
	if ok {
		delete(s.accounts, acct.user.Email)
	}
	s.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, "User not found")
		return
	}
	writeMessage(w, "User deleted")
}

// ============================================
// helpers
// ============================================

func recount(p *readmodel.Product) {
	p.NumOfReviews = len(p.Reviews)
	if len(p.Reviews) == 0 {
		p.Ratings = 0
		return
	}
	total := 0
	for _, rv := range p.Reviews {
		total += rv.Rating
	}
	p.Ratings = float64(total) / float64(len(p.Reviews))
}

func paginate[T any](items []T, page, perPage int) ([]T, int) {
	if perPage < 1 {
		perPage = 10
	}
	if page < 1 {
		page = 1
	}
	pages := (len(items) + perPage - 1) / perPage
	start := (page - 1) * perPage
	if start >= len(items) {
		return []T{}, pages
	}
	end := min(start+perPage, len(items))
	return items[start:end], pages
}

func atoiDefault(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

func parseDecimal(s string) (decimal.Decimal, bool) {
	if s == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(s)
	return d, err == nil
}
