package cart

// NormalizeStock treats a negative stock ceiling as zero.
func NormalizeStock(stock *int) *int {
	if stock == nil {
		return nil
	}
	if *stock < 0 {
		return IntPtr(0)
	}
	return IntPtr(*stock)
}

// ShouldDrop reports whether an item with the given stock must be removed.
func ShouldDrop(stock *int) bool {
	s := NormalizeStock(stock)
	return s != nil && *s == 0
}

// Clamp limits requested to the stock ceiling when it is known.
// The result may be zero or negative; callers decide what that means.
func Clamp(requested int, stock *int) int {
	s := NormalizeStock(stock)
	if s != nil && requested > *s {
		return *s
	}
	return requested
}

// ClampAddition clamps an addition target. Additions never go below 1;
// a zero ceiling is handled by ShouldDrop before this is called.
func ClampAddition(requested int, stock *int) int {
	n := Clamp(requested, stock)
	if n < 1 {
		return 1
	}
	return n
}

// Normalize enforces item invariants on a list that came from storage or
// the server: empty ids are dropped, quantities are floored to 1, zero-stock
// items are dropped, quantities are clamped to stock and duplicate ids keep
// the first occurrence.
func Normalize(items []Item) []Item {
	out := make([]Item, 0, len(items))
	seen := make(map[ProductID]struct{}, len(items))
	for _, it := range items {
		if it.ID == "" {
			continue
		}
		if _, dup := seen[it.ID]; dup {
			continue
		}
		it = it.Clone()
		it.Stock = NormalizeStock(it.Stock)
		if ShouldDrop(it.Stock) {
			continue
		}
		if it.Quantity < 1 {
			it.Quantity = 1
		}
		it.Quantity = Clamp(it.Quantity, it.Stock)
		seen[it.ID] = struct{}{}
		out = append(out, it)
	}
	return out
}
