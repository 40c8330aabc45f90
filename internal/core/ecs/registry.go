package ecs

// Registry maps component names to their stores so a despawn can strip an
// entity from every store without knowing the component types.
type Registry struct {
	names  []string
	stores []Removable
}

func NewRegistry() *Registry {
	return &Registry{
		names:  make([]string, 0, 8),
		stores: make([]Removable, 0, 8),
	}
}

// Register adds a component store under name.
func (r *Registry) Register(name string, store Removable) {
	r.names = append(r.names, name)
	r.stores = append(r.stores, store)
}

// RemoveAll clears the given entity from every registered component store.
func (r *Registry) RemoveAll(e Entity) {
	for _, s := range r.stores {
		s.Remove(e)
	}
}

// Components lists the names of the components attached to e.
func (r *Registry) Components(e Entity) []string {
	var out []string
	for i, s := range r.stores {
		if s.Has(e) {
			out = append(out, r.names[i])
		}
	}
	return out
}
