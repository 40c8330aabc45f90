package ecs

// Entity encodes a 32-bit slot index in the lower bits and a 32-bit generation
// in the upper bits. The generation increments on destroy so a stale Entity
// never resolves to whatever later occupies the same slot.
type Entity uint64

func NewEntity(index uint32, generation uint32) Entity {
	return Entity(uint64(generation)<<32 | uint64(index))
}

func (e Entity) Index() uint32      { return uint32(e) }
func (e Entity) Generation() uint32 { return uint32(e >> 32) }
func (e Entity) IsZero() bool       { return e == 0 }

// Pool hands out entities with generational indices and recycles freed slots.
// Generations start at 1 so the zero Entity is never issued.
type Pool struct {
	generations []uint32
	freeList    []uint32
	alive       int
}

func NewPool() *Pool {
	return &Pool{
		generations: make([]uint32, 0, 256),
		freeList:    make([]uint32, 0, 64),
	}
}

func (p *Pool) Create() Entity {
	p.alive++
	if n := len(p.freeList); n > 0 {
		idx := p.freeList[n-1]
		p.freeList = p.freeList[:n-1]
		return NewEntity(idx, p.generations[idx])
	}
	idx := uint32(len(p.generations))
	p.generations = append(p.generations, 1)
	return NewEntity(idx, 1)
}

func (p *Pool) Alive(e Entity) bool {
	idx := e.Index()
	if int(idx) >= len(p.generations) {
		return false
	}
	return p.generations[idx] == e.Generation()
}

// Destroy invalidates e. It reports false for stale or unknown entities.
func (p *Pool) Destroy(e Entity) bool {
	if !p.Alive(e) {
		return false
	}
	idx := e.Index()
	p.generations[idx]++
	p.freeList = append(p.freeList, idx)
	p.alive--
	return true
}

// Len returns the number of live entities.
func (p *Pool) Len() int { return p.alive }
