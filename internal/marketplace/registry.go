package marketplace

import (
	"sort"
	"sync"

	"okazje-ingest/internal/models"
)

// Registry maps a vendor to its configured client.
type Registry struct {
	mu       sync.RWMutex
	adapters map[models.VendorID]Adapter
}

func NewRegistry(adapters ...Adapter) *Registry {
	r := &Registry{adapters: make(map[models.VendorID]Adapter)}
	for _, a := range adapters {
		r.Register(a)
	}
	return r
}

func (r *Registry) Register(a Adapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adapters[a.Vendor()] = a
}

func (r *Registry) Get(id models.VendorID) (Adapter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.adapters[id]
	return a, ok
}

// Vendors lists registered vendors in name order.
func (r *Registry) Vendors() []models.VendorID {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.VendorID, 0, len(r.adapters))
	for id := range r.adapters {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
