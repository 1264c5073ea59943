// Package cart keeps the per-session shopping cart the chat adds recommended
// products to.
package cart

import (
	"errors"
	"fmt"

	"github.com/vitachat-poc-v1/server/internal/agent/model"
)

type DeliveryMethod string

const (
	DeliveryCourier DeliveryMethod = "courier"
	DeliveryPickup  DeliveryMethod = "pickup"
	DeliveryPost    DeliveryMethod = "post"
)

// FreeDeliveryFrom is the subtotal, in rubles, from which delivery costs nothing.
const FreeDeliveryFrom = 3000

var deliveryCosts = map[DeliveryMethod]int{
	DeliveryCourier: 300,
	DeliveryPickup:  0,
	DeliveryPost:    250,
}

var (
	ErrNotInCart       = errors.New("product is not in the cart")
	ErrUnknownDelivery = errors.New("unknown delivery method")
)

type Item struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	Price     int    `json:"price"`
	Quantity  int    `json:"quantity"`
}

// Cart is not safe for concurrent use; Store serialises access per session.
type Cart struct {
	Items    []Item         `json:"items"`
	Delivery DeliveryMethod `json:"delivery"`

	// shown records products already auto-added from a product card.
	shown map[string]bool
}

func New() *Cart {
	return &Cart{Items: []Item{}, Delivery: DeliveryCourier, shown: map[string]bool{}}
}

// Add puts one unit of p in the cart, incrementing the quantity if present.
func (c *Cart) Add(p model.Product) {
	for i := range c.Items {
		if c.Items[i].ProductID == p.ID {
			c.Items[i].Quantity++
			return
		}
	}
	c.Items = append(c.Items, Item{ProductID: p.ID, Name: p.Name, Price: p.Price, Quantity: 1})
}

// AddShown adds p the first time a product card for it is shown in this
// session and reports whether it did.
func (c *Cart) AddShown(p model.Product) bool {
	if c.shown == nil {
		c.shown = map[string]bool{}
	}
	if c.shown[p.ID] {
		return false
	}
	c.shown[p.ID] = true
	c.Add(p)
	return true
}

func (c *Cart) Remove(productID string) error {
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			c.Items = append(c.Items[:i], c.Items[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%s: %w", productID, ErrNotInCart)
}

// SetQuantity sets the quantity of an item; zero or less removes it.
func (c *Cart) SetQuantity(productID string, qty int) error {
	if qty <= 0 {
		return c.Remove(productID)
	}
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			c.Items[i].Quantity = qty
			return nil
		}
	}
	return fmt.Errorf("%s: %w", productID, ErrNotInCart)
}

func (c *Cart) SetDelivery(m DeliveryMethod) error {
	if _, ok := deliveryCosts[m]; !ok {
		return fmt.Errorf("%q: %w", m, ErrUnknownDelivery)
	}
	c.Delivery = m
	return nil
}

func (c *Cart) Clear() {
	c.Items = []Item{}
}

func (c *Cart) Quantity(productID string) int {
	for _, it := range c.Items {
		if it.ProductID == productID {
			return it.Quantity
		}
	}
	return 0
}

type Totals struct {
	Items    int `json:"total_items"`
	Subtotal int `json:"total_price"`
	Delivery int `json:"delivery_cost"`
	Total    int `json:"final_price"`
}

// Totals sums the cart. An empty cart costs nothing to deliver.
func (c *Cart) Totals() Totals {
	var t Totals
	for _, it := range c.Items {
		t.Items += it.Quantity
		t.Subtotal += it.Price * it.Quantity
	}
	if t.Items > 0 && t.Subtotal < FreeDeliveryFrom {
		t.Delivery = deliveryCosts[c.Delivery]
	}
	t.Total = t.Subtotal + t.Delivery
	return t
}

// Clone returns a deep copy.
func (c *Cart) Clone() *Cart {
	out := &Cart{
		Items:    append([]Item{}, c.Items...),
		Delivery: c.Delivery,
		shown:    make(map[string]bool, len(c.shown)),
	}
	for k, v := range c.shown {
		out.shown[k] = v
	}
	return out
}
