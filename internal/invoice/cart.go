package invoice

import "pharmadesk/m/domain"

// CartLine is one medicine entry in the active invoice with its own
// quantity and line-level discount percentage.
type CartLine struct {
	Medicine        domain.Medicine `json:"medicine"`
	Quantity        int64           `json:"quantity"`
	DiscountPercent int64           `json:"discount_percent"`
}

// LineUpdate carries optional changes for a cart line. Nil fields are
// left untouched.
type LineUpdate struct {
	Quantity        *int64
	DiscountPercent *int64
}

// Cart is the active invoice ledger. Lines are ordered and unique by
// brand identity: adding a medicine that is already in the cart
// increments its quantity instead of duplicating the line.
type Cart struct {
	lines []CartLine
}

// AddItem appends a new line with quantity 1 and discount 0, or bumps
// the quantity of an existing line for the same brand.
func (c *Cart) AddItem(m domain.Medicine) {
	c.AddQuantity(m, 1)
}

// AddQuantity folds a whole quantity into the cart at once, as the
// prescription scanner does for accepted candidates. Quantities below
// one are coerced to one.
func (c *Cart) AddQuantity(m domain.Medicine, qty int64) {
	if qty < 1 {
		qty = 1
	}
	for i := range c.lines {
		if c.lines[i].Medicine.Brand == m.Brand {
			c.lines[i].Quantity += qty
			return
		}
	}
	c.lines = append(c.lines, CartLine{Medicine: m, Quantity: qty})
}

// UpdateLine applies the update to the line for the given brand.
// Quantity is floored at 1 and discount is clamped to [0,100]; invalid
// input is coerced, never rejected. Reports whether the line exists.
func (c *Cart) UpdateLine(brand string, update LineUpdate) bool {
	for i := range c.lines {
		if c.lines[i].Medicine.Brand != brand {
			continue
		}
		if update.Quantity != nil {
			qty := *update.Quantity
			if qty < 1 {
				qty = 1
			}
			c.lines[i].Quantity = qty
		}
		if update.DiscountPercent != nil {
			pct := *update.DiscountPercent
			if pct < 0 {
				pct = 0
			}
			if pct > 100 {
				pct = 100
			}
			c.lines[i].DiscountPercent = pct
		}
		return true
	}
	return false
}

// RemoveLine deletes the line for the given brand. Removing an absent
// line is a no-op.
func (c *Cart) RemoveLine(brand string) {
	for i := range c.lines {
		if c.lines[i].Medicine.Brand == brand {
			c.lines = append(c.lines[:i], c.lines[i+1:]...)
			return
		}
	}
}

// Lines returns a copy of the cart contents in insertion order.
func (c *Cart) Lines() []CartLine {
	out := make([]CartLine, len(c.lines))
	copy(out, c.lines)
	return out
}

func (c *Cart) Len() int {
	return len(c.lines)
}

func (c *Cart) Clear() {
	c.lines = nil
}

// Descriptions flattens the cart into the "Brand Strength" strings
// stored on a finalized order record.
func (c *Cart) Descriptions() []string {
	out := make([]string, len(c.lines))
	for i, line := range c.lines {
		out[i] = line.Medicine.Description()
	}
	return out
}
