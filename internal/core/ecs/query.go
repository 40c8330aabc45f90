package ecs

// Each2 visits entities that carry both A and B. It walks the smaller store
// and probes the other. Order is unspecified.
func Each2[A, B any](sa *Store[A], sb *Store[B], fn func(Entity, *A, *B)) {
	if sa.Len() <= sb.Len() {
		for i, a := range sa.dense {
			e := sa.entities[i]
			if b, ok := sb.Get(e); ok {
				fn(e, a, b)
			}
		}
		return
	}
	for i, b := range sb.dense {
		e := sb.entities[i]
		if a, ok := sa.Get(e); ok {
			fn(e, a, b)
		}
	}
}

// Each3 visits entities that carry A, B and C.
func Each3[A, B, C any](sa *Store[A], sb *Store[B], sc *Store[C], fn func(Entity, *A, *B, *C)) {
	// Iterate the smallest store
	smallest := sa.Len()
	which := 0
	if sb.Len() < smallest {
		smallest = sb.Len()
		which = 1
	}
	if sc.Len() < smallest {
		which = 2
	}

	switch which {
	case 0:
		for i, a := range sa.dense {
			e := sa.entities[i]
			if b, ok := sb.Get(e); ok {
				if c, ok := sc.Get(e); ok {
					fn(e, a, b, c)
				}
			}
		}
	case 1:
		for i, b := range sb.dense {
			e := sb.entities[i]
			if a, ok := sa.Get(e); ok {
				if c, ok := sc.Get(e); ok {
					fn(e, a, b, c)
				}
			}
		}
	case 2:
		for i, c := range sc.dense {
			e := sc.entities[i]
			if a, ok := sa.Get(e); ok {
				if b, ok := sb.Get(e); ok {
					fn(e, a, b, c)
				}
			}
		}
	}
}
