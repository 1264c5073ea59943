package cart

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitachat-poc-v1/server/internal/agent/model"
)

var (
	energy = model.Product{ID: "energy-plus", Name: "Energy+ Active", Price: 1490}
	sleep  = model.Product{ID: "sleep-well", Name: "SleepWell Calm", Price: 1290}
)

func TestAddIncrementsExistingItem(t *testing.T) {
	c := New()
	c.Add(energy)
	c.Add(sleep)
	c.Add(energy)

	require.Len(t, c.Items, 2)
	assert.Equal(t, 2, c.Quantity("energy-plus"))
	assert.Equal(t, 1, c.Quantity("sleep-well"))
	assert.Zero(t, c.Quantity("mind-focus"))
}

func TestAddShownOncePerProduct(t *testing.T) {
	c := New()
	assert.True(t, c.AddShown(energy))
	assert.False(t, c.AddShown(energy))
	assert.Equal(t, 1, c.Quantity("energy-plus"))

	require.NoError(t, c.Remove("energy-plus"))
	assert.False(t, c.AddShown(energy), "removed items are not re-added by a repeated card")
}

func TestSetQuantity(t *testing.T) {
	c := New()
	c.Add(energy)

	require.NoError(t, c.SetQuantity("energy-plus", 3))
	assert.Equal(t, 3, c.Quantity("energy-plus"))

	require.NoError(t, c.SetQuantity("energy-plus", 0))
	assert.Empty(t, c.Items)

	err := c.SetQuantity("energy-plus", 2)
	assert.True(t, errors.Is(err, ErrNotInCart))
}

type line struct {
	product model.Product
	qty     int
}

func TestTotals(t *testing.T) {
	tests := []struct {
		name     string
		items    []line
		delivery DeliveryMethod
		want     Totals
	}{
		{name: "empty", delivery: DeliveryCourier, want: Totals{}},
		{name: "courier", items: []line{{energy, 1}}, delivery: DeliveryCourier,
			want: Totals{Items: 1, Subtotal: 1490, Delivery: 300, Total: 1790}},
		{name: "post", items: []line{{sleep, 1}}, delivery: DeliveryPost,
			want: Totals{Items: 1, Subtotal: 1290, Delivery: 250, Total: 1540}},
		{name: "pickup", items: []line{{sleep, 1}}, delivery: DeliveryPickup,
			want: Totals{Items: 1, Subtotal: 1290, Total: 1290}},
		{name: "free from 3000", items: []line{{energy, 1}, {sleep, 2}}, delivery: DeliveryCourier,
			want: Totals{Items: 3, Subtotal: 4070, Total: 4070}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New()
			require.NoError(t, c.SetDelivery(tt.delivery))
			for _, l := range tt.items {
				c.Add(l.product)
				require.NoError(t, c.SetQuantity(l.product.ID, l.qty))
			}
			assert.Equal(t, tt.want, c.Totals())
		})
	}
}

func TestSetDeliveryRejectsUnknown(t *testing.T) {
	c := New()
	assert.ErrorIs(t, c.SetDelivery("drone"), ErrUnknownDelivery)
	assert.Equal(t, DeliveryCourier, c.Delivery)
}

func TestStoreUpdateIsAtomic(t *testing.T) {
	s := NewStore()
	_, err := s.Update("s1", func(c *Cart) error { c.Add(energy); return nil })
	require.NoError(t, err)

	got, err := s.Update("s1", func(c *Cart) error {
		c.Add(sleep)
		return c.Remove("mind-focus")
	})
	require.ErrorIs(t, err, ErrNotInCart)
	assert.Len(t, got.Items, 1, "failed update leaves the cart unchanged")
	assert.Len(t, s.Get("s1").Items, 1)

	s.Delete("s1")
	assert.Empty(t, s.Get("s1").Items)
}

func TestStoreGetReturnsCopy(t *testing.T) {
	s := NewStore()
	_, err := s.Update("s1", func(c *Cart) error { c.Add(energy); return nil })
	require.NoError(t, err)

	c := s.Get("s1")
	c.Add(energy)
	assert.Equal(t, 1, s.Get("s1").Quantity("energy-plus"))
}
