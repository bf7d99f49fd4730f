// Package apitest runs an in-memory fake of the storefront API for tests.
// It keeps real state (accounts, catalog, orders), issues real JWTs, records
// every call, and can inject failures or hold requests open.
package apitest

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"github.com/example/skycart/internal/readmodel"
)

const (
	// APIPrefix is where the storefront API is mounted; Server.URL + APIPrefix
	// is the client base URL.
	APIPrefix = "/api/v1"
	// StripePrefix mounts the fake payment-intent confirm endpoint.
	StripePrefix = "/stripe"

	DefaultStripeKey = "pk_test_skycart"
)

// Call is one recorded request.
type Call struct {
	Method        string
	Route         string
	Path          string
	Query         string
	Authorization string
	RequestID     string
	Body          []byte
}

type fault struct {
	status  int
	message string
}

type Server struct {
	*httptest.Server
	Router *mux.Router

	mu         sync.Mutex
	calls      []Call
	faults     map[string][]fault
	holds      map[string]chan struct{}
	arrived    map[string]chan struct{}
	tokenTTL   time.Duration
	stripeKey  string
	declineAll bool

	accounts map[string]*account // by email
	tokens   map[string]string   // token -> user id
	products map[string]*readmodel.Product
	orders   map[string]*readmodel.Order
	intents  map[string]*intent
	order    []string // product ids in insertion order
	seq      int
}

// NewServer starts a fake API. Close it when done.
func NewServer() *Server {
	s := &Server{
		Router:    mux.NewRouter(),
		faults:    make(map[string][]fault),
		holds:     make(map[string]chan struct{}),
		arrived:   make(map[string]chan struct{}),
		tokenTTL:  time.Hour,
		stripeKey: DefaultStripeKey,
		accounts:  make(map[string]*account),
		tokens:    make(map[string]string),
		products:  make(map[string]*readmodel.Product),
		orders:    make(map[string]*readmodel.Order),
		intents:   make(map[string]*intent),
	}
	s.routes()
	s.Server = httptest.NewServer(s.Router)
	return s
}

// BaseURL is the API root to hand to api.NewClient.
func (s *Server) BaseURL() string {
	return s.URL + APIPrefix
}

// StripeURL is the base URL for the payment-intent confirmer.
func (s *Server) StripeURL() string {
	return s.URL + StripePrefix
}

// Calls returns a copy of the recorded calls.
func (s *Server) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Call, len(s.calls))
	copy(out, s.calls)
	return out
}

// CallCount counts calls to method + route template, e.g. "GET /products/{id}".
func (s *Server) CallCount(method, route string) int {
	n := 0
	for _, c := range s.Calls() {
		if c.Method == method && c.Route == route {
			n++
		}
	}
	return n
}

func (s *Server) ResetCalls() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = nil
}

// Fail makes the next matching request return status with message.
// Repeated calls queue more failures.
func (s *Server) Fail(method, route string, status int, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := method + " " + route
	s.faults[key] = append(s.faults[key], fault{status: status, message: message})
}

// Hold blocks matching requests until the returned release func is called.
// The arrived channel is closed when the first matching request is waiting.
func (s *Server) Hold(method, route string) (arrived <-chan struct{}, release func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := method + " " + route
	gate := make(chan struct{})
	seen := make(chan struct{})
	s.holds[key] = gate
	s.arrived[key] = seen
	var once sync.Once
	return seen, func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.holds, key)
			delete(s.arrived, key)
			s.mu.Unlock()
			close(gate)
		})
	}
}

// SetTokenTTL changes the lifetime of tokens issued from now on.
func (s *Server) SetTokenTTL(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokenTTL = d
}

// DeclinePayments makes the fake confirm endpoint decline every intent.
func (s *Server) DeclinePayments(decline bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.declineAll = decline
}

// RevokeTokens invalidates every issued token server-side.
func (s *Server) RevokeTokens() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens = make(map[string]string)
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route := routeOf(r)
		body, _ := io.ReadAll(r.Body)
		r.Body = io.NopCloser(strings.NewReader(string(body)))

		key := r.Method + " " + route
		s.mu.Lock()
		s.calls = append(s.calls, Call{
			Method:        r.Method,
			Route:         route,
			Path:          r.URL.Path,
			Query:         r.URL.RawQuery,
			Authorization: r.Header.Get("Authorization"),
			RequestID:     r.Header.Get("X-Request-ID"),
			Body:          body,
		})
		var injected *fault
		if queue := s.faults[key]; len(queue) > 0 {
			injected = &queue[0]
			s.faults[key] = queue[1:]
		}
		gate := s.holds[key]
		seen := s.arrived[key]
		if seen != nil {
			delete(s.arrived, key)
		}
		s.mu.Unlock()

		if gate != nil {
			if seen != nil {
				close(seen)
			}
			select {
			case <-gate:
			case <-r.Context().Done():
				return
			}
		}

		if injected != nil {
			writeError(w, injected.status, injected.message)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func routeOf(r *http.Request) string {
	route := mux.CurrentRoute(r)
	if route == nil {
		return r.URL.Path
	}
	tpl, err := route.GetPathTemplate()
	if err != nil {
		return r.URL.Path
	}
	tpl = strings.TrimPrefix(tpl, APIPrefix)
	return tpl
}

type ctxKey struct{}

// requireAuth resolves the bearer token to an account.
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		acct, ok := s.authenticate(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "Login first to access this resource")
			return
		}
		next(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, acct)))
	}
}

func (s *Server) requireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return s.requireAuth(func(w http.ResponseWriter, r *http.Request) {
		if current(r).user.Role != readmodel.RoleAdmin {
			writeError(w, http.StatusForbidden, "Role (user) is not allowed to access this resource")
			return
		}
		next(w, r)
	})
}

func (s *Server) authenticate(r *http.Request) (*account, bool) {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return nil, false
	}
	token := strings.TrimPrefix(header, "Bearer ")

	s.mu.Lock()
	defer s.mu.Unlock()
	userID, ok := s.tokens[token]
	if !ok {
		return nil, false
	}
	if expired(token) {
		return nil, false
	}
	for _, acct := range s.accounts {
		if acct.user.ID == userID {
			return acct, true
		}
	}
	return nil, false
}

func current(r *http.Request) *account {
	acct, _ := r.Context().Value(ctxKey{}).(*account)
	return acct
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"success": false, "message": message})
}

func writeMessage(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusOK, readmodel.MessageResponse{Success: true, Message: message})
}

func decode(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}
