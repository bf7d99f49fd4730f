// Package navigation tracks the current view path. Flows return redirect
// decisions and the caller executes them here.
package navigation

import (
	"sync"

	"github.com/sirupsen/logrus"
)

const (
	PathHome         = "/"
	PathLogin        = "/login"
	PathRegister     = "/register"
	PathCart         = "/cart"
	PathShipping     = "/shipping"
	PathConfirm      = "/order/confirm"
	PathPayment      = "/payment"
	PathOrderSuccess = "/order/success"
	PathMyOrders     = "/me/orders"
	PathProfile      = "/me/profile"
	PathProducts     = "/products"
	PathAdmin        = "/admin/dashboard"
)

// Navigator is safe for concurrent use.
type Navigator struct {
	mu        sync.Mutex
	current   string
	history   []string
	listeners []func(from, to string)
	logger    logrus.FieldLogger
}

func New(start string, logger logrus.FieldLogger) *Navigator {
	if start == "" {
		start = PathHome
	}
	return &Navigator{current: start, logger: logger.WithField("component", "Navigator")}
}

func (n *Navigator) Current() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.current
}

// Navigate moves to path. Moving to the current path is a no-op and
// reports false.
func (n *Navigator) Navigate(path string) bool {
	n.mu.Lock()
	from := n.current
	if path == from {
		n.mu.Unlock()
		return false
	}
	n.current = path
	n.history = append(n.history, path)
	listeners := make([]func(string, string), len(n.listeners))
	copy(listeners, n.listeners)
	n.mu.Unlock()

	n.logger.WithField("from", from).WithField("to", path).Debug("navigate")
	for _, fn := range listeners {
		fn(from, path)
	}
	return true
}

// OnNavigate registers fn for every later path change.
func (n *Navigator) OnNavigate(fn func(from, to string)) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.listeners = append(n.listeners, fn)
}

// History lists the paths navigated to, oldest first.
func (n *Navigator) History() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, len(n.history))
	copy(out, n.history)
	return out
}
