// Package checkout sequences the checkout steps and runs payment and order
// creation.
package checkout

import (
	"github.com/example/skycart/internal/domain/cart"
	"github.com/example/skycart/internal/navigation"
)

type Step int

const (
	StepCart Step = iota
	StepShipping
	StepConfirm
	StepPayment
	StepSuccess
)

var stepPaths = map[Step]string{
	StepCart:     navigation.PathCart,
	StepShipping: navigation.PathShipping,
	StepConfirm:  navigation.PathConfirm,
	StepPayment:  navigation.PathPayment,
	StepSuccess:  navigation.PathOrderSuccess,
}

func (s Step) Path() string {
	return stepPaths[s]
}

func (s Step) String() string {
	switch s {
	case StepCart:
		return "cart"
	case StepShipping:
		return "shipping"
	case StepConfirm:
		return "confirm"
	case StepPayment:
		return "payment"
	case StepSuccess:
		return "success"
	default:
		return "unknown"
	}
}

// Decision is the result of a step's entry guard. RedirectTo is only
// meaningful when Allowed is false.
type Decision struct {
	Allowed    bool
	RedirectTo Step
}

// Enter evaluates the entry guard of step against the current cart. An
// empty cart always sends the user back to the cart, ahead of any missing
// shipping info.
func Enter(step Step, c cart.State) Decision {
	switch step {
	case StepShipping:
		if c.IsEmpty() {
			return Decision{RedirectTo: StepCart}
		}
	case StepConfirm, StepPayment:
		if c.IsEmpty() {
			return Decision{RedirectTo: StepCart}
		}
		if c.ShippingInfo == nil {
			return Decision{RedirectTo: StepShipping}
		}
	}
	return Decision{Allowed: true}
}
