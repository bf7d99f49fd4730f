// Package store holds the process-wide client state (cart and session) and
// is the only path that changes it.
package store

import (
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/example/skycart/internal/domain/cart"
	"github.com/example/skycart/internal/domain/session"
	"github.com/example/skycart/internal/notice"
)

type State struct {
	Cart    cart.State    `json:"cart"`
	Session session.State `json:"auth"`
}

// Action is any cart or session action.
type Action interface {
	Type() string
}

// Transition is what observers see after a successful dispatch.
type Transition struct {
	Action Action
	Prev   State
	Next   State
	// Change is ChangeNone for session actions.
	Change cart.Change
}

// CartChanged reports whether the cart sub-tree moved.
func (t Transition) CartChanged() bool {
	return t.Change != cart.ChangeNone
}

// SessionChanged reports whether the session token or user moved.
func (t Transition) SessionChanged() bool {
	_, ok := t.Action.(session.Action)
	return ok
}

type Observer func(Transition)

// Store serializes dispatches. Observers run in dispatch order, under the
// store's lock, and must not dispatch.
type Store struct {
	mu        sync.Mutex
	state     State
	observers []Observer
	notifier  notice.Notifier
	logger    logrus.FieldLogger
}

func New(initial State, notifier notice.Notifier, logger logrus.FieldLogger) *Store {
	return &Store{
		state:    initial,
		notifier: notifier,
		logger:   logger.WithField("component", "Store"),
	}
}

// Subscribe adds an observer for every later transition.
func (s *Store) Subscribe(o Observer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, o)
}

func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Store) Cart() cart.State {
	return s.State().Cart
}

func (s *Store) Session() session.State {
	return s.State().Session
}

// Token is the current bearer token, suitable as an api.TokenSource.
func (s *Store) Token() string {
	return s.State().Session.Token
}

// Dispatch reduces action into the state. A rejected action leaves the state
// untouched and notifies no observer.
func (s *Store) Dispatch(action Action) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.state
	next := prev
	var change cart.Change
	var err error

	switch a := action.(type) {
	case cart.Action:
		next.Cart, change, err = cart.Reduce(prev.Cart, a)
		s.cartNotice(a, change, err)
	case session.Action:
		next.Session, err = session.Reduce(prev.Session, a)
	default:
		err = fmt.Errorf("unknown action %T", action)
	}

	log := s.logger.WithField("action", action.Type())
	if err != nil {
		log.WithError(err).Debug("action rejected")
		return prev, err
	}
	log.WithField("change", change.String()).Debug("action applied")

	s.state = next
	t := Transition{Action: action, Prev: prev, Next: next, Change: change}
	for _, o := range s.observers {
		o(t)
	}
	return next, nil
}

// cartNotice raises the user-facing message for a cart action.
func (s *Store) cartNotice(action cart.Action, change cart.Change, err error) {
	if errors.Is(err, cart.ErrStockLimitExceeded) {
		switch action.(type) {
		case cart.AddItem:
			s.notifier.Error("Cannot add more items. Stock limit reached.")
		default:
			s.notifier.Error("Cannot exceed stock limit")
		}
		return
	}
	if err != nil {
		return
	}

	switch change {
	case cart.ChangeAdded:
		s.notifier.Success("Added to cart")
	case cart.ChangeUpdated:
		if _, ok := action.(cart.AddItem); ok {
			s.notifier.Success("Cart updated")
		}
	case cart.ChangeRemoved:
		s.notifier.Success("Removed from cart")
	}
}
