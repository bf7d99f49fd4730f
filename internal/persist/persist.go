// Package persist writes the token and the cart to a storage backend as the
// store changes, and rebuilds the startup state from it.
package persist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/example/skycart/internal/domain/cart"
	"github.com/example/skycart/internal/domain/session"
	"github.com/example/skycart/internal/storage"
	"github.com/example/skycart/internal/store"
)

const (
	TokenKey = "token"
	CartKey  = "persist:skycart"

	writeTimeout = 5 * time.Second
)

// Persister mirrors the persisted slice of the client state: the bearer
// token and the cart's items and shipping info. Everything else is derived
// again on startup.
type Persister struct {
	backend storage.Store
	logger  logrus.FieldLogger
	now     func() time.Time
}

func New(backend storage.Store, logger logrus.FieldLogger) *Persister {
	return &Persister{
		backend: backend,
		logger:  logger.WithField("component", "Persist"),
		now:     time.Now,
	}
}

// Load builds the startup state. A missing, unreadable or outdated entry
// starts that sub-tree empty instead of failing.
func (p *Persister) Load(ctx context.Context) (store.State, error) {
	var state store.State

	token, err := p.backend.Get(ctx, TokenKey)
	switch {
	case err == nil:
		state.Session = session.FromToken(string(token))
	case errors.Is(err, storage.ErrNotFound):
	case errors.Is(err, storage.ErrSealed):
		p.logger.WithError(err).Warn("cannot open persisted token, starting logged out")
	default:
		return store.State{}, fmt.Errorf("load token: %w", err)
	}

	c, err := p.loadCart(ctx)
	if err != nil {
		return store.State{}, err
	}
	state.Cart = c
	return state, nil
}

func (p *Persister) loadCart(ctx context.Context) (cart.State, error) {
	raw, err := p.backend.Get(ctx, CartKey)
	if errors.Is(err, storage.ErrNotFound) {
		return cart.State{}, nil
	}
	if err != nil {
		return cart.State{}, fmt.Errorf("load cart: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		p.logger.WithError(err).Warn("discarding unreadable cart snapshot")
		return cart.State{}, nil
	}
	if snap.Version != SnapshotVersion {
		p.logger.WithField("version", snap.Version).Warn("discarding cart snapshot from another version")
		return cart.State{}, nil
	}

	var c cart.State
	if err := json.Unmarshal(snap.State, &c); err != nil {
		p.logger.WithError(err).Warn("discarding unreadable cart snapshot")
		return cart.State{}, nil
	}
	return sanitize(c), nil
}

// sanitize drops lines no reducer could have produced and clamps quantities
// to the stock snapshot.
func sanitize(c cart.State) cart.State {
	items := make([]cart.CartItem, 0, len(c.Items))
	seen := make(map[string]bool, len(c.Items))
	for _, item := range c.Items {
		if item.ProductID == "" || seen[item.ProductID] {
			continue
		}
		if item.Quantity < 1 || item.Stock < 1 || item.Price.IsNegative() {
			continue
		}
		if item.Quantity > item.Stock {
			item.Quantity = item.Stock
		}
		seen[item.ProductID] = true
		items = append(items, item)
	}
	c.Items = items
	return c
}

// Observer writes whichever persisted sub-tree a transition changed.
// Write failures are logged; the in-memory state stays authoritative.
func (p *Persister) Observer() store.Observer {
	return func(t store.Transition) {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		defer cancel()

		if t.Prev.Session.Token != t.Next.Session.Token {
			if err := p.SaveToken(ctx, t.Next.Session.Token); err != nil {
				p.logger.WithError(err).Warn("failed to persist token")
			}
		}
		if t.CartChanged() {
			if err := p.SaveCart(ctx, t.Next.Cart); err != nil {
				p.logger.WithError(err).Warn("failed to persist cart")
			}
		}
	}
}

// SaveToken stores token, or removes the entry when token is empty.
func (p *Persister) SaveToken(ctx context.Context, token string) error {
	if token == "" {
		return p.backend.Delete(ctx, TokenKey)
	}
	return p.backend.Set(ctx, TokenKey, []byte(token))
}

func (p *Persister) SaveCart(ctx context.Context, c cart.State) error {
	snap, err := newSnapshot(CartKey, c, p.now())
	if err != nil {
		return fmt.Errorf("snapshot cart: %w", err)
	}
	raw, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	return p.backend.Set(ctx, CartKey, raw)
}
