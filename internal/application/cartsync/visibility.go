package cartsync

import "sync"

// Visibility tracks whether the cart panel is open. It closes itself when
// it observes an empty cart.
type Visibility struct {
	mu   sync.Mutex
	open bool
}

// NewVisibility returns a closed panel
func NewVisibility() *Visibility {
	return &Visibility{}
}

func (v *Visibility) Open() {
	v.mu.Lock()
	v.open = true
	v.mu.Unlock()
}

func (v *Visibility) Close() {
	v.mu.Lock()
	v.open = false
	v.mu.Unlock()
}

func (v *Visibility) IsOpen() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.open
}

// Observe reports the current item count. An open panel closes when the
// count is zero. It returns true if the call closed the panel.
func (v *Visibility) Observe(count int) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	if count == 0 && v.open {
		v.open = false
		return true
	}
	return false
}
