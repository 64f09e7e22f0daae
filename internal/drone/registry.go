package drone

import "fmt"

// ErrNotFound is returned by Registry.Get for an unknown id.
var ErrNotFound = fmt.Errorf("drone: id not found")

// Registry resolves drone ids to *Drone. Every cross-drone reference
// (neighbor tables, packet next-hop, the channel's per-id inbox) stores an
// ID and looks it up here rather than holding a *Drone directly, breaking
// the drone/module reference cycles described in spec section 9.
type Registry struct {
	drones map[ID]*Drone
	order  []ID
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{drones: make(map[ID]*Drone)}
}

// Register adds d to the registry. Registering the same id twice replaces
// the previous entry without duplicating it in All().
func (r *Registry) Register(d *Drone) {
	if _, exists := r.drones[d.ID]; !exists {
		r.order = append(r.order, d.ID)
	}
	r.drones[d.ID] = d
}

// Get resolves id to its Drone.
func (r *Registry) Get(id ID) (*Drone, bool) {
	d, ok := r.drones[id]
	return d, ok
}

// MustGet resolves id, panicking if it is not registered. Used at call
// sites where an unregistered id indicates a programming error (e.g. a
// neighbor table referencing a drone the registry never created).
func (r *Registry) MustGet(id ID) *Drone {
	d, ok := r.drones[id]
	if !ok {
		panic(fmt.Sprintf("drone: MustGet(%d): %v", id, ErrNotFound))
	}
	return d
}

// All returns every registered drone in registration order.
func (r *Registry) All() []*Drone {
	out := make([]*Drone, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.drones[id])
	}
	return out
}

// Len returns the number of registered drones.
func (r *Registry) Len() int { return len(r.drones) }
