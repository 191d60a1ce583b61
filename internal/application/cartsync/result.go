package cartsync

// Operation names a cart operation in reports, metrics and logs
type Operation string

const (
	OpFetch     Operation = "fetch_cart"
	OpAdd       Operation = "add_item"
	OpUpdate    Operation = "update_quantity"
	OpRemove    Operation = "remove_item"
	OpSyncStock Operation = "sync_stock"
	OpClear     Operation = "clear_cart"
	// OpReconcile is the server refetch that follows a stock conflict
	OpReconcile Operation = "reconcile_cart"
)

// Status is the local outcome of a mutation
type Status string

const (
	// StatusApplied means the change was applied as requested
	StatusApplied Status = "applied"
	// StatusLimited means the change was applied at the stock ceiling
	StatusLimited Status = "limited"
	// StatusRemoved means the item left the cart
	StatusRemoved Status = "removed"
	// StatusCleared means the whole cart was emptied
	StatusCleared    Status = "cleared"
	StatusOutOfStock Status = "out_of_stock"
	StatusNotFound   Status = "not_found"
	StatusInvalid    Status = "invalid"
	// StatusNotReady means the store is not settled (loading, not started or closed)
	StatusNotReady Status = "not_ready"
)

// Result is returned by every mutation. Mutations never return errors.
type Result struct {
	Status Status
	// Quantity is the item's quantity after the mutation, 0 when absent
	Quantity int
}

// OK reports whether the mutation changed the cart
func (r Result) OK() bool {
	switch r.Status {
	case StatusApplied, StatusLimited, StatusRemoved, StatusCleared:
		return true
	default:
		return false
	}
}
