package engine

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"github.com/cartrace/engine/internal/component"
	"github.com/cartrace/engine/internal/core/ecs"
	"github.com/cartrace/engine/internal/input"
	"github.com/cartrace/engine/internal/scripting"
	"github.com/cartrace/engine/internal/system"
)

// scene exposes the world to Lua. Script code only runs while the engine
// lock is held (RunScripts, or on_tick inside Tick), so nothing here locks.
type scene struct {
	e *Engine
}

var _ scripting.Scene = scene{}

func (s scene) SpawnInstance(mesh component.MeshID, mat component.MaterialID, pos mgl32.Vec3) (ecs.Entity, error) {
	return s.e.spawnLocked(mesh, mat, pos, nil)
}

func (s scene) SpawnCar(mesh component.MeshID, mat component.MaterialID, pos mgl32.Vec3) (ecs.Entity, error) {
	return s.e.spawnCarLocked(mesh, mat, pos)
}

func (s scene) Despawn(ent ecs.Entity) error {
	return s.e.world.Despawn(ent)
}

func (s scene) Transform(ent ecs.Entity) (*component.Transform, error) {
	return s.e.world.Transform(ent)
}

func (s scene) Track(ent ecs.Entity) error {
	return s.e.trackLocked(ent)
}

// SendKey cannot wait for room: the consumer is the tick this call runs in.
func (s scene) SendKey(ev input.Event) error {
	return s.e.queue.TryPush(ev)
}

// AttachScripts binds lua to this engine's world and schedules its on_tick
// after the car controllers.
func (e *Engine) AttachScripts(lua *scripting.Engine) {
	e.mu.Lock()
	defer e.mu.Unlock()
	lua.Bind(scene{e: e})
	e.runner.Register(system.NewScriptSystem(lua, e.log.Named("script")))
}

// RunScripts executes every script in dir against the world and returns how
// many ran. Entities they spawn appear in the next frame.
func (e *Engine) RunScripts(lua *scripting.Engine, dir string) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	n, err := lua.LoadDir(dir)
	e.afterMutationLocked()
	if err != nil {
		return n, fmt.Errorf("run scripts: %w", err)
	}
	e.log.Info("scripts loaded", zap.String("dir", dir), zap.Int("count", n), zap.Int("entities", e.world.Len()))
	return n, nil
}
