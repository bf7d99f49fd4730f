package checkout

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/example/skycart/internal/domain/cart"
)

func TestEnter(t *testing.T) {
	items := []cart.CartItem{{ProductID: "p1", Price: decimal.NewFromInt(5), Stock: 3, Quantity: 1}}
	info := &cart.ShippingInfo{Address: "1 Main Street"}

	tests := []struct {
		name  string
		step  Step
		state cart.State
		want  Decision
	}{
		{"cart always renders", StepCart, cart.State{}, Decision{Allowed: true}},
		{"shipping needs items", StepShipping, cart.State{}, Decision{RedirectTo: StepCart}},
		{"shipping with items", StepShipping, cart.State{Items: items}, Decision{Allowed: true}},
		{"confirm empty cart wins over missing shipping", StepConfirm, cart.State{}, Decision{RedirectTo: StepCart}},
		{"confirm empty cart with shipping", StepConfirm, cart.State{ShippingInfo: info}, Decision{RedirectTo: StepCart}},
		{"confirm without shipping", StepConfirm, cart.State{Items: items}, Decision{RedirectTo: StepShipping}},
		{"confirm ready", StepConfirm, cart.State{Items: items, ShippingInfo: info}, Decision{Allowed: true}},
		{"payment without shipping", StepPayment, cart.State{Items: items}, Decision{RedirectTo: StepShipping}},
		{"payment empty cart", StepPayment, cart.State{ShippingInfo: info}, Decision{RedirectTo: StepCart}},
		{"payment ready", StepPayment, cart.State{Items: items, ShippingInfo: info}, Decision{Allowed: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Enter(tt.step, tt.state))
		})
	}
}

func TestStep_Path(t *testing.T) {
	assert.Equal(t, "/cart", StepCart.Path())
	assert.Equal(t, "/shipping", StepShipping.Path())
	assert.Equal(t, "/order/confirm", StepConfirm.Path())
	assert.Equal(t, "/payment", StepPayment.Path())
	assert.Equal(t, "/order/success", StepSuccess.Path())
	assert.Equal(t, "payment", StepPayment.String())
}
