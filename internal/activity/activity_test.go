package activity

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/skycart/internal/readmodel"
)

func sampleOrder() readmodel.Order {
	return readmodel.Order{
		ID:   "order-123456789",
		User: "user-1",
		ShippingInfo: readmodel.ShippingInfo{
			Address: "1 Main Street", City: "Springfield", Country: "US", PostalCode: "12345", PhoneNo: "5551234567",
		},
		OrderItems: []readmodel.OrderItem{
			{Product: "prod-1", Name: "Desk Lamp", Price: decimal.RequireFromString("40.00"), Quantity: 2},
			{Product: "prod-2", Price: decimal.RequireFromString("1250.50"), Quantity: 1},
		},
		ItemsPrice:    decimal.RequireFromString("1330.50"),
		ShippingPrice: decimal.Zero,
		TaxPrice:      decimal.RequireFromString("133.05"),
		TotalPrice:    decimal.RequireFromString("1463.55"),
		OrderStatus:   "Processing",
	}
}

func TestNew(t *testing.T) {
	e, err := New(OrderCancelled, "order-1", map[string]string{"status": "Cancelled"})
	require.NoError(t, err)

	assert.NotEmpty(t, e.ID)
	assert.Equal(t, OrderCancelled, e.Type)
	assert.Equal(t, "order-1", e.Subject)
	assert.False(t, e.At.IsZero())

	var data map[string]string
	require.NoError(t, e.Decode(&data))
	assert.Equal(t, "Cancelled", data["status"])

	bare, err := New(CartCleared, "cart", nil)
	require.NoError(t, err)
	assert.Nil(t, bare.Data)
}

func TestMemory(t *testing.T) {
	var m Memory
	e1, _ := New(CartItemAdded, "prod-1", nil)
	e2, _ := New(CartCleared, "cart", nil)

	require.NoError(t, m.Publish(context.Background(), e1))
	require.NoError(t, m.Publish(context.Background(), e2))

	assert.Equal(t, []string{CartItemAdded, CartCleared}, m.Types())
}

func TestReceipt(t *testing.T) {
	r := Receipt(sampleOrder())

	assert.True(t, strings.HasPrefix(r, "Order confirmation #order-12\n"))
	assert.Contains(t, r, "Desk Lamp")
	assert.Contains(t, r, "$80.00")
	// Unnamed lines fall back to the product id
	assert.Contains(t, r, "prod-2")
	assert.Contains(t, r, "$1,250.50")
	assert.Contains(t, r, "$1,463.55")
	assert.Contains(t, r, "Ship to: 1 Main Street, Springfield 12345, US")
}

func TestPrinter(t *testing.T) {
	var out bytes.Buffer
	l := logrus.New()
	l.SetOutput(io.Discard)
	p := NewPrinter(&out, l)

	removed, _ := New(CartItemRemoved, "prod-9", nil)
	removed.Actor = "ada@example.com"
	require.NoError(t, p.Handle(context.Background(), removed))
	assert.Contains(t, out.String(), CartItemRemoved)
	assert.Contains(t, out.String(), "ada@example.com")
	assert.NotContains(t, out.String(), "Order confirmation")

	out.Reset()
	placed, err := New(OrderPlaced, "order-123456789", sampleOrder())
	require.NoError(t, err)
	require.NoError(t, p.Handle(context.Background(), placed))
	assert.Contains(t, out.String(), "Order confirmation #order-12")

	bad := Event{Type: OrderPlaced, Data: []byte(`"nope"`)}
	assert.Error(t, p.Handle(context.Background(), bad))
}
