package notice

import (
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCenter() *Center {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return NewCenter(l)
}

func TestCenter_DrainKeepsOrder(t *testing.T) {
	c := newTestCenter()

	c.Success("Added to cart")
	c.Error("Cannot exceed stock limit")
	c.Info("Loading")

	got := c.Drain()
	require.Len(t, got, 3)
	assert.Equal(t, LevelSuccess, got[0].Level)
	assert.Equal(t, "Added to cart", got[0].Message)
	assert.Equal(t, LevelError, got[1].Level)
	assert.Equal(t, LevelInfo, got[2].Level)
	assert.NotEqual(t, got[0].ID, got[1].ID)

	assert.Empty(t, c.Drain())
}

func TestCenter_Subscribe(t *testing.T) {
	c := newTestCenter()
	var seen []string
	c.Subscribe(func(n Notice) { seen = append(seen, string(n.Level)+":"+n.Message) })

	c.Success("Cart updated")
	c.Error("An error occurred")

	assert.Equal(t, []string{"success:Cart updated", "error:An error occurred"}, seen)
}

func TestDiscard(t *testing.T) {
	var n Notifier = Discard{}
	assert.NotPanics(t, func() { n.Success("ok") })
}
