package world

import (
	"errors"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/cartrace/engine/internal/component"
	"github.com/cartrace/engine/internal/core/ecs"
	"github.com/cartrace/engine/internal/core/event"
)

// ErrNotFound is returned for entities that were despawned or never existed.
var ErrNotFound = errors.New("entity not found")

// Bundle is the component set attached by Spawn. Nil fields are omitted.
type Bundle struct {
	Transform *component.Transform
	Mesh      *component.MeshRef
	Material  *component.MaterialRef
	Car       *component.Car
}

// World is the typed entity store shared by the simulation systems and the
// batch compiler. It is not safe for concurrent use; the engine serializes
// access.
type World struct {
	ecs *ecs.World
	bus *event.Bus

	Transforms *ecs.Store[component.Transform]
	Meshes     *ecs.Store[component.MeshRef]
	Materials  *ecs.Store[component.MaterialRef]
	Cars       *ecs.Store[component.Car]

	Camera component.Camera

	defaultRotation mgl32.Mat4
}

// New creates an empty world. bus may be nil, in which case no spawn or
// despawn events are emitted.
func New(bus *event.Bus) *World {
	w := &World{
		ecs:             ecs.NewWorld(),
		bus:             bus,
		Transforms:      ecs.NewStore[component.Transform](),
		Meshes:          ecs.NewStore[component.MeshRef](),
		Materials:       ecs.NewStore[component.MaterialRef](),
		Cars:            ecs.NewStore[component.Car](),
		Camera:          component.Camera{View: mgl32.Ident4()},
		defaultRotation: DefaultRotation(),
	}
	reg := w.ecs.Registry()
	reg.Register("transform", w.Transforms)
	reg.Register("mesh", w.Meshes)
	reg.Register("material", w.Materials)
	reg.Register("car", w.Cars)
	return w
}

// DefaultRotation is identity * Rz(pi) * Ry(pi): the orientation models are
// spawned with so glTF assets face the renderer's conventions.
func DefaultRotation() mgl32.Mat4 {
	return mgl32.Ident4().
		Mul4(mgl32.HomogRotate3DZ(math.Pi)).
		Mul4(mgl32.HomogRotate3DY(math.Pi))
}

// NewTransform builds a default-oriented, unit-scale transform at position.
func (w *World) NewTransform(position mgl32.Vec3) *component.Transform {
	return component.NewTransform(position, w.defaultRotation)
}

// Spawn allocates a fresh entity and attaches every non-nil component of b.
func (w *World) Spawn(b Bundle) ecs.Entity {
	e := w.ecs.CreateEntity()
	if b.Transform != nil {
		w.Transforms.Set(e, b.Transform)
	}
	if b.Mesh != nil {
		w.Meshes.Set(e, b.Mesh)
	}
	if b.Material != nil {
		w.Materials.Set(e, b.Material)
	}
	if b.Car != nil {
		w.Cars.Set(e, b.Car)
	}
	if w.bus != nil {
		event.Emit(w.bus, event.EntitySpawned{Entity: e})
	}
	return e
}

// Despawn removes e and all its components immediately. Do not call it from
// inside a query over the affected stores; use DespawnDeferred there.
func (w *World) Despawn(e ecs.Entity) error {
	if !w.ecs.Destroy(e) {
		return fmt.Errorf("despawn %d: %w", e, ErrNotFound)
	}
	w.emitDespawned(e)
	return nil
}

// DespawnDeferred queues e for removal at the end of the current tick.
func (w *World) DespawnDeferred(e ecs.Entity) error {
	if !w.ecs.Alive(e) {
		return fmt.Errorf("despawn %d: %w", e, ErrNotFound)
	}
	w.ecs.MarkForDestruction(e)
	return nil
}

// FlushDespawns applies queued despawns.
func (w *World) FlushDespawns() int {
	destroyed := w.ecs.FlushDestroyQueue()
	for _, e := range destroyed {
		w.emitDespawned(e)
	}
	return len(destroyed)
}

func (w *World) emitDespawned(e ecs.Entity) {
	if w.bus != nil {
		event.Emit(w.bus, event.EntityDespawned{Entity: e})
	}
}

func (w *World) Alive(e ecs.Entity) bool { return w.ecs.Alive(e) }

// Len returns the number of live entities.
func (w *World) Len() int { return w.ecs.Pool().Len() }

// Components lists the component names attached to e.
func (w *World) Components(e ecs.Entity) []string {
	return w.ecs.Registry().Components(e)
}

func (w *World) Transform(e ecs.Entity) (*component.Transform, error) {
	return lookup(w, w.Transforms, e, "transform")
}

func (w *World) Car(e ecs.Entity) (*component.Car, error) {
	return lookup(w, w.Cars, e, "car")
}

func (w *World) Mesh(e ecs.Entity) (*component.MeshRef, error) {
	return lookup(w, w.Meshes, e, "mesh")
}

func (w *World) Material(e ecs.Entity) (*component.MaterialRef, error) {
	return lookup(w, w.Materials, e, "material")
}

func lookup[T any](w *World, s *ecs.Store[T], e ecs.Entity, name string) (*T, error) {
	if !w.ecs.Alive(e) {
		return nil, fmt.Errorf("%s of %d: %w", name, e, ErrNotFound)
	}
	c, ok := s.Get(e)
	if !ok {
		return nil, fmt.Errorf("%s of %d: %w", name, e, ErrNotFound)
	}
	return c, nil
}
