package ecs

// World is the untyped ECS container. It owns the entity pool, the component
// registry, and a deferred destruction queue flushed by CleanupSystem at the
// end of each tick.
type World struct {
	pool         *Pool
	registry     *Registry
	destroyQueue []Entity
}

func NewWorld() *World {
	return &World{
		pool:         NewPool(),
		registry:     NewRegistry(),
		destroyQueue: make([]Entity, 0, 16),
	}
}

func (w *World) Pool() *Pool         { return w.pool }
func (w *World) Registry() *Registry { return w.registry }

func (w *World) CreateEntity() Entity {
	return w.pool.Create()
}

func (w *World) Alive(e Entity) bool {
	return w.pool.Alive(e)
}

// Destroy removes e and all its components immediately.
func (w *World) Destroy(e Entity) bool {
	if !w.pool.Alive(e) {
		return false
	}
	w.registry.RemoveAll(e)
	return w.pool.Destroy(e)
}

// MarkForDestruction queues an entity for end-of-tick cleanup. Systems use
// this instead of Destroy while a query is running.
func (w *World) MarkForDestruction(e Entity) {
	w.destroyQueue = append(w.destroyQueue, e)
}

// FlushDestroyQueue destroys all queued entities and returns the ones that
// were still alive.
func (w *World) FlushDestroyQueue() []Entity {
	var destroyed []Entity
	for _, e := range w.destroyQueue {
		if w.Destroy(e) {
			destroyed = append(destroyed, e)
		}
	}
	w.destroyQueue = w.destroyQueue[:0]
	return destroyed
}
