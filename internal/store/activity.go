package store

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/example/skycart/internal/activity"
	"github.com/example/skycart/internal/domain/cart"
	"github.com/example/skycart/internal/domain/session"
)

// PublishActivity returns an observer that turns cart and session
// transitions into activity events.
func PublishActivity(p activity.Publisher, logger logrus.FieldLogger) Observer {
	logger = logger.WithField("component", "StoreActivity")
	return func(t Transition) {
		eventType, subject, data := describe(t)
		if eventType == "" {
			return
		}
		event, err := activity.New(eventType, subject, data)
		if err != nil {
			logger.WithError(err).Warn("failed to build activity event")
			return
		}
		event.Actor = actor(t)
		if err := p.Publish(context.Background(), event); err != nil {
			logger.WithError(err).WithField("event_type", eventType).Warn("failed to publish activity")
		}
	}
}

func describe(t Transition) (eventType, subject string, data any) {
	switch a := t.Action.(type) {
	case cart.AddItem:
		line, _ := t.Next.Cart.Find(a.Item.ProductID)
		if t.Change == cart.ChangeAdded {
			return activity.CartItemAdded, a.Item.ProductID, line
		}
		return activity.CartQuantityUpdated, a.Item.ProductID, line
	case cart.SetQuantity:
		if t.Change == cart.ChangeRemoved {
			return activity.CartItemRemoved, a.ProductID, nil
		}
		if t.Change == cart.ChangeUpdated {
			line, _ := t.Next.Cart.Find(a.ProductID)
			return activity.CartQuantityUpdated, a.ProductID, line
		}
	case cart.RemoveItem:
		if t.Change == cart.ChangeRemoved {
			return activity.CartItemRemoved, a.ProductID, nil
		}
	case cart.Clear:
		return activity.CartCleared, "cart", nil
	case session.SetCredentials:
		return activity.SessionLoggedIn, a.User.ID, nil
	case session.Logout:
		if t.Prev.Session.User != nil {
			return activity.SessionLoggedOut, t.Prev.Session.User.ID, nil
		}
		return activity.SessionLoggedOut, "", nil
	}
	return "", "", nil
}

func actor(t Transition) string {
	for _, s := range []session.State{t.Next.Session, t.Prev.Session} {
		if s.User != nil {
			return s.User.Email
		}
	}
	return ""
}
