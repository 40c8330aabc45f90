package ecs

// Removable is implemented by all component stores so the Registry can
// bulk-remove an entity's data from every store on despawn.
type Removable interface {
	Remove(e Entity) bool
	Has(e Entity) bool
}

const absent = -1

// Store is a sparse set of *T keyed by entity slot index. Lookups go through
// the sparse array; iteration walks the dense arrays, so a query touches only
// entities that actually carry the component. Pointers handed out stay valid
// until the component is removed.
type Store[T any] struct {
	sparse   []int32
	dense    []*T
	entities []Entity
}

func NewStore[T any]() *Store[T] {
	return &Store[T]{
		dense:    make([]*T, 0, 64),
		entities: make([]Entity, 0, 64),
	}
}

func (s *Store[T]) slot(e Entity) int32 {
	idx := int(e.Index())
	if idx >= len(s.sparse) {
		return absent
	}
	i := s.sparse[idx]
	if i == absent || s.entities[i] != e {
		return absent
	}
	return i
}

// Set attaches c to e, replacing any previous value.
func (s *Store[T]) Set(e Entity, c *T) {
	if i := s.slot(e); i != absent {
		s.dense[i] = c
		return
	}
	idx := int(e.Index())
	if idx < len(s.sparse) && s.sparse[idx] != absent {
		// stale generation left behind by an unregistered destroy
		s.Remove(s.entities[s.sparse[idx]])
	}
	for len(s.sparse) <= idx {
		s.sparse = append(s.sparse, absent)
	}
	s.sparse[idx] = int32(len(s.dense))
	s.dense = append(s.dense, c)
	s.entities = append(s.entities, e)
}

func (s *Store[T]) Get(e Entity) (*T, bool) {
	i := s.slot(e)
	if i == absent {
		return nil, false
	}
	return s.dense[i], true
}

// Remove swaps the last element into the freed slot.
func (s *Store[T]) Remove(e Entity) bool {
	i := s.slot(e)
	if i == absent {
		return false
	}
	last := int32(len(s.dense) - 1)
	if i != last {
		s.dense[i] = s.dense[last]
		s.entities[i] = s.entities[last]
		s.sparse[s.entities[i].Index()] = i
	}
	s.dense[last] = nil
	s.dense = s.dense[:last]
	s.entities = s.entities[:last]
	s.sparse[e.Index()] = absent
	return true
}

func (s *Store[T]) Has(e Entity) bool {
	return s.slot(e) != absent
}

func (s *Store[T]) Len() int {
	return len(s.dense)
}

// Each visits every component. The store must not gain or lose members
// while Each runs.
func (s *Store[T]) Each(fn func(Entity, *T)) {
	for i, c := range s.dense {
		fn(s.entities[i], c)
	}
}
