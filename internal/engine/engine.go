// Package engine ties the world, the simulation systems and the asset
// library together behind the operations the outside world uses: ticking,
// spawning, loading assets and handing compiled frames to a renderer.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"github.com/cartrace/engine/internal/asset"
	"github.com/cartrace/engine/internal/batch"
	"github.com/cartrace/engine/internal/component"
	"github.com/cartrace/engine/internal/config"
	"github.com/cartrace/engine/internal/core/ecs"
	"github.com/cartrace/engine/internal/core/event"
	coresys "github.com/cartrace/engine/internal/core/system"
	"github.com/cartrace/engine/internal/input"
	"github.com/cartrace/engine/internal/system"
	"github.com/cartrace/engine/internal/world"
)

// ErrStopped is returned by operations attempted after the simulation loop
// has exited.
var ErrStopped = errors.New("engine stopped")

type Engine struct {
	mu sync.Mutex // guards everything below except published and stopped

	mode   Mode
	cfg    *config.Config
	lib    *asset.Library
	bus    *event.Bus
	world  *world.World
	input  *input.State
	runner *coresys.Runner
	camera *system.CameraSystem
	tick   uint64
	write  batch.DrawCalls

	queue     *input.Queue
	published atomic.Pointer[Frame]
	stopped   atomic.Bool

	log *zap.Logger
}

// New builds an engine around lib. The library must be fully loaded before
// the simulation and render loops start.
func New(cfg *config.Config, lib *asset.Library, log *zap.Logger) (*Engine, error) {
	mode, err := ParseMode(cfg.Engine.Handoff)
	if err != nil {
		return nil, err
	}
	controls, err := system.ParseControls(cfg.Controls)
	if err != nil {
		return nil, err
	}

	bus := event.NewBus()
	e := &Engine{
		mode:   mode,
		cfg:    cfg,
		lib:    lib,
		bus:    bus,
		world:  world.New(bus),
		input:  input.NewState(),
		runner: coresys.NewRunner(),
		write:  make(batch.DrawCalls),
		queue:  input.NewQueue(cfg.Engine.InputQueueSize),
		log:    log,
	}
	e.camera = system.NewCameraSystem(e.world, bus, cfg.Camera, log.Named("camera"))

	e.runner.Register(system.NewInputSystem(e.queue, e.input))
	e.runner.Register(system.NewEventDispatchSystem(bus))
	e.runner.Register(system.NewCarSystem(e.world, e.input, controls, cfg.Car))
	e.runner.Register(e.camera)
	e.runner.Register(system.NewInputFlushSystem(e.input))
	e.runner.Register(system.NewCleanupSystem(e.world))

	if mode == ModeDoubleBuffer {
		e.publishLocked()
	}
	log.Debug("engine ready", zap.Stringer("mode", mode), zap.Int("systems", e.runner.Len()))
	return e, nil
}

func (e *Engine) Mode() Mode { return e.mode }

// Tick advances the simulation by dt. Systems run one after another in
// phase order, so the car update is visible to the camera in the same tick.
func (e *Engine) Tick(dt time.Duration) {
	if e.stopped.Load() {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.runner.Tick(dt)
	e.tick++
	if e.mode == ModeDoubleBuffer {
		e.publishLocked()
	}
}

// Ticks returns the number of completed ticks.
func (e *Engine) Ticks() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tick
}

// SpawnInstance adds a drawable entity with the default orientation.
func (e *Engine) SpawnInstance(mesh component.MeshID, mat component.MaterialID, pos mgl32.Vec3) (ecs.Entity, error) {
	if e.stopped.Load() {
		return 0, ErrStopped
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	ent, err := e.spawnLocked(mesh, mat, pos, nil)
	if err != nil {
		return 0, err
	}
	e.afterMutationLocked()
	return ent, nil
}

// SpawnCar adds a drivable entity tuned from the car config. It becomes the
// camera target when nothing else is tracked.
func (e *Engine) SpawnCar(mesh component.MeshID, mat component.MaterialID, pos mgl32.Vec3) (ecs.Entity, error) {
	if e.stopped.Load() {
		return 0, ErrStopped
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	ent, err := e.spawnCarLocked(mesh, mat, pos)
	if err != nil {
		return 0, err
	}
	e.afterMutationLocked()
	return ent, nil
}

func (e *Engine) spawnCarLocked(mesh component.MeshID, mat component.MaterialID, pos mgl32.Vec3) (ecs.Entity, error) {
	car := &component.Car{Speed: e.cfg.Car.Speed, TurnSpeed: e.cfg.Car.TurnSpeed}
	ent, err := e.spawnLocked(mesh, mat, pos, car)
	if err != nil {
		return 0, err
	}
	if _, ok := e.camera.Target(); !ok {
		e.camera.SetTarget(ent)
	}
	return ent, nil
}

func (e *Engine) spawnLocked(mesh component.MeshID, mat component.MaterialID, pos mgl32.Vec3, car *component.Car) (ecs.Entity, error) {
	if !e.lib.HasMesh(mesh) {
		return 0, fmt.Errorf("spawn: mesh %d: %w", mesh, asset.ErrUnknownMesh)
	}
	if !e.lib.HasMaterial(mat) {
		return 0, fmt.Errorf("spawn: material %d: %w", mat, asset.ErrUnknownMaterial)
	}
	return e.world.Spawn(world.Bundle{
		Transform: e.world.NewTransform(pos),
		Mesh:      &component.MeshRef{ID: mesh},
		Material:  &component.MaterialRef{ID: mat},
		Car:       car,
	}), nil
}

// Despawn removes ent immediately. A camera tracking it holds its last pose.
func (e *Engine) Despawn(ent ecs.Entity) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.world.Despawn(ent); err != nil {
		return err
	}
	e.afterMutationLocked()
	return nil
}

// LoadMesh loads a mesh into the library under id. Call it before the loops
// start; the library is read without locking afterwards.
func (e *Engine) LoadMesh(id component.MeshID, path string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lib.LoadMesh(id, path)
}

// LoadMaterial loads a named material into the library under id. The same
// timing rule as LoadMesh applies.
func (e *Engine) LoadMaterial(id component.MaterialID, name string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lib.LoadMaterial(id, name)
}

// PushKey queues a key transition for the next tick. It blocks while the
// queue is full.
func (e *Engine) PushKey(ctx context.Context, ev input.Event) error {
	if e.stopped.Load() {
		return ErrStopped
	}
	return e.queue.Push(ctx, ev)
}

// SetCameraTarget makes the camera chase ent from the next tick on.
func (e *Engine) SetCameraTarget(ent ecs.Entity) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.trackLocked(ent)
}

func (e *Engine) trackLocked(ent ecs.Entity) error {
	if _, err := e.world.Transform(ent); err != nil {
		return fmt.Errorf("camera target: %w", err)
	}
	e.camera.SetTarget(ent)
	return nil
}

func (e *Engine) ClearCameraTarget() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.camera.ClearTarget()
}

// CameraTarget returns the tracked entity, if any.
func (e *Engine) CameraTarget() (ecs.Entity, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.camera.Target()
}

// Camera returns a copy of the camera state.
func (e *Engine) Camera() component.Camera {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.world.Camera
}

// WithWorld runs fn with exclusive access to the world. fn must not keep
// references to components after it returns.
func (e *Engine) WithWorld(fn func(w *world.World) error) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	err := fn(e.world)
	e.afterMutationLocked()
	return err
}

// Stop makes later ticks, spawns and key pushes fail fast.
func (e *Engine) Stop() {
	if e.stopped.CompareAndSwap(false, true) {
		e.log.Info("engine stopped")
	}
}

func (e *Engine) Stopped() bool { return e.stopped.Load() }
