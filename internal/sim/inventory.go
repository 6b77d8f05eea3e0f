// Inventory stock helpers shared by production, logistics, and retail.
package sim

// Stock returns the total amount of a product held anywhere in the
// inventory (output stack plus input buffers).
func (inv *Inventory) Stock(product int) float64 {
	total := 0.0
	if inv.Output.ProductID == product {
		total += inv.Output.Amount
	}
	for i := range inv.Inputs {
		if inv.Inputs[i].ProductID == product {
			total += inv.Inputs[i].Amount
		}
	}
	return total
}

// StockQuality returns the stock-weighted average quality of a product in
// the inventory, or 0 when none is held.
func (inv *Inventory) StockQuality(product int) float64 {
	amt, q := 0.0, 0.0
	if inv.Output.ProductID == product && inv.Output.Amount > 0 {
		amt += inv.Output.Amount
		q += inv.Output.Amount * inv.Output.Quality
	}
	for i := range inv.Inputs {
		s := &inv.Inputs[i]
		if s.ProductID == product && s.Amount > 0 {
			amt += s.Amount
			q += s.Amount * s.Quality
		}
	}
	if amt <= 0 {
		return 0
	}
	return q / amt
}

// Take removes up to amount units of a product, output stack first, and
// returns the amount actually taken with its weighted average quality.
func (inv *Inventory) Take(product int, amount float64) (float64, float64) {
	taken, quality := 0.0, 0.0
	draw := func(s *ProductStack) {
		if taken >= amount || s.ProductID != product || s.Amount <= 0 {
			return
		}
		n := min(amount-taken, s.Amount)
		quality = (quality*taken + s.Quality*n) / (taken + n)
		taken += n
		s.Amount -= n
		if s.Amount <= 0 {
			*s = ProductStack{}
		}
	}
	draw(&inv.Output)
	for i := range inv.Inputs {
		draw(&inv.Inputs[i])
	}
	return taken, quality
}

// InputRoom returns how many more units of a product the input buffers can
// absorb: remaining room in a matching slot, plus a free slot's capacity.
func (inv *Inventory) InputRoom(product int) float64 {
	room := 0.0
	for i := range inv.Inputs {
		s := &inv.Inputs[i]
		if s.ProductID == product {
			room += inv.Capacity - s.Amount
		} else if s.ProductID == 0 {
			room += inv.Capacity
		}
	}
	if room < 0 {
		room = 0
	}
	return room
}

// StoreInput deposits product into the input buffers, blending quality as
// the stock-weighted average of the existing buffer and the incoming lot.
// Returns the amount actually stored.
func (inv *Inventory) StoreInput(product int, amount, quality float64) float64 {
	stored := 0.0
	place := func(s *ProductStack) {
		if stored >= amount {
			return
		}
		if s.ProductID != product && s.ProductID != 0 {
			return
		}
		room := inv.Capacity - s.Amount
		if room <= 0 {
			return
		}
		n := min(amount-stored, room)
		if s.ProductID == 0 {
			*s = ProductStack{ProductID: product}
		}
		if s.Amount+n > 0 {
			s.Quality = (s.Quality*s.Amount + quality*n) / (s.Amount + n)
		}
		s.Amount += n
		stored += n
	}
	// Prefer a matching slot before opening a fresh one.
	for i := range inv.Inputs {
		if inv.Inputs[i].ProductID == product {
			place(&inv.Inputs[i])
		}
	}
	for i := range inv.Inputs {
		if inv.Inputs[i].ProductID == 0 {
			place(&inv.Inputs[i])
		}
	}
	return stored
}

// StoreOutput deposits produced units into the output stack, blending
// quality, capped at capacity. Returns the amount actually stored.
func (inv *Inventory) StoreOutput(product int, amount, quality float64) float64 {
	s := &inv.Output
	if s.ProductID != 0 && s.ProductID != product {
		return 0
	}
	room := inv.Capacity - s.Amount
	if room <= 0 {
		return 0
	}
	n := min(amount, room)
	if s.ProductID == 0 {
		*s = ProductStack{ProductID: product}
	}
	if s.Amount+n > 0 {
		s.Quality = (s.Quality*s.Amount + quality*n) / (s.Amount + n)
	}
	s.Amount += n
	return n
}
