// Package cart holds the lines of the active checkout session. A cart is
// owned by one cashier session and is never persisted; abandoning it simply
// drops the value.
package cart

import "zaypos/backend/internal/domain"

type Line struct {
	Product domain.Product
	Qty     int
}

// Cart keeps insertion order so the receipt lists items as they were rung up.
type Cart struct {
	lines []Line
}

func New() *Cart {
	return &Cart{lines: make([]Line, 0, 8)}
}

// Add puts one unit of product into the cart. Out-of-stock products and
// increments past the available stock are silent no-ops: the grid tile stays
// tappable and the cashier just sees the quantity stop moving.
func (c *Cart) Add(product domain.Product) {
	if product.Stock <= 0 {
		return
	}
	for i := range c.lines {
		if c.lines[i].Product.ID == product.ID {
			if c.lines[i].Qty < product.Stock {
				c.lines[i].Qty++
			}
			return
		}
	}
	c.lines = append(c.lines, Line{Product: product, Qty: 1})
}

// AdjustQty moves a line's quantity by delta. Results that would leave the
// line at zero or below, or exceed the product's stock, are no-ops; lines
// only disappear through Remove.
func (c *Cart) AdjustQty(productID string, delta int) {
	for i := range c.lines {
		if c.lines[i].Product.ID != productID {
			continue
		}
		next := c.lines[i].Qty + delta
		if next <= 0 || next > c.lines[i].Product.Stock {
			return
		}
		c.lines[i].Qty = next
		return
	}
}

func (c *Cart) Remove(productID string) {
	for i := range c.lines {
		if c.lines[i].Product.ID == productID {
			c.lines = append(c.lines[:i], c.lines[i+1:]...)
			return
		}
	}
}

// Total is the amount due: sum of qty * sell price.
func (c *Cart) Total() domain.Money {
	var total domain.Money
	for _, line := range c.lines {
		total += line.Product.SellPrice * domain.Money(line.Qty)
	}
	return total
}

// CostBasis is the sum of qty * buy price, used for the profit figure.
func (c *Cart) CostBasis() domain.Money {
	var cost domain.Money
	for _, line := range c.lines {
		cost += line.Product.BuyPrice * domain.Money(line.Qty)
	}
	return cost
}

func (c *Cart) Lines() []Line {
	out := make([]Line, len(c.lines))
	copy(out, c.lines)
	return out
}

func (c *Cart) IsEmpty() bool {
	return len(c.lines) == 0
}

func (c *Cart) Clear() {
	c.lines = c.lines[:0]
}
