package scripting

import (
	"github.com/go-gl/mathgl/mgl32"
	lua "github.com/yuin/gopher-lua"

	"github.com/cartrace/engine/internal/component"
	"github.com/cartrace/engine/internal/core/ecs"
	"github.com/cartrace/engine/internal/input"
)

// Entity ids cross into Lua as numbers. float64 holds them exactly while the
// slot generation stays below 2^21.

func (e *Engine) register() {
	for name, fn := range map[string]lua.LGFunction{
		"spawn_instance": e.luaSpawnInstance,
		"spawn_car":      e.luaSpawnCar,
		"despawn":        e.luaDespawn,
		"translate":      e.luaTranslate,
		"set_position":   e.luaSetPosition,
		"rotate":         e.luaRotate,
		"set_scale":      e.luaSetScale,
		"position":       e.luaPosition,
		"track":          e.luaTrack,
		"key_down":       e.luaKey(true),
		"key_up":         e.luaKey(false),
	} {
		e.vm.SetGlobal(name, e.vm.NewFunction(fn))
	}
}

func (e *Engine) sceneOrRaise(L *lua.LState) Scene {
	if e.scene == nil {
		L.RaiseError("%s", errNoScene.Error())
	}
	return e.scene
}

func checkEntity(L *lua.LState, n int) ecs.Entity {
	return ecs.Entity(uint64(L.CheckNumber(n)))
}

func checkVec3(L *lua.LState, n int) mgl32.Vec3 {
	return mgl32.Vec3{
		float32(L.CheckNumber(n)),
		float32(L.CheckNumber(n + 1)),
		float32(L.CheckNumber(n + 2)),
	}
}

// spawn_instance(mesh, material, x, y, z) -> id
func (e *Engine) luaSpawnInstance(L *lua.LState) int {
	s := e.sceneOrRaise(L)
	id, err := s.SpawnInstance(component.MeshID(L.CheckInt(1)), component.MaterialID(L.CheckInt(2)), checkVec3(L, 3))
	if err != nil {
		L.RaiseError("spawn_instance: %s", err.Error())
	}
	L.Push(lua.LNumber(uint64(id)))
	return 1
}

// spawn_car(mesh, material, x, y, z) -> id
func (e *Engine) luaSpawnCar(L *lua.LState) int {
	s := e.sceneOrRaise(L)
	id, err := s.SpawnCar(component.MeshID(L.CheckInt(1)), component.MaterialID(L.CheckInt(2)), checkVec3(L, 3))
	if err != nil {
		L.RaiseError("spawn_car: %s", err.Error())
	}
	L.Push(lua.LNumber(uint64(id)))
	return 1
}

// pushResult follows the Lua convention for recoverable failures: true on
// success, false plus a message otherwise.
func pushResult(L *lua.LState, err error) int {
	if err != nil {
		L.Push(lua.LFalse)
		L.Push(lua.LString(err.Error()))
		return 2
	}
	L.Push(lua.LTrue)
	return 1
}

// despawn(id) -> ok, err
func (e *Engine) luaDespawn(L *lua.LState) int {
	s := e.sceneOrRaise(L)
	return pushResult(L, s.Despawn(checkEntity(L, 1)))
}

func (e *Engine) withTransform(L *lua.LState, fn func(*component.Transform)) int {
	s := e.sceneOrRaise(L)
	tr, err := s.Transform(checkEntity(L, 1))
	if err != nil {
		return pushResult(L, err)
	}
	fn(tr)
	return pushResult(L, nil)
}

// translate(id, dx, dy, dz) -> ok, err
func (e *Engine) luaTranslate(L *lua.LState) int {
	d := checkVec3(L, 2)
	return e.withTransform(L, func(tr *component.Transform) { tr.Translate(d) })
}

// set_position(id, x, y, z) -> ok, err
func (e *Engine) luaSetPosition(L *lua.LState) int {
	p := checkVec3(L, 2)
	return e.withTransform(L, func(tr *component.Transform) { tr.SetPosition(p) })
}

// rotate(id, radians, ax, ay, az) -> ok, err
func (e *Engine) luaRotate(L *lua.LState) int {
	angle := float32(L.CheckNumber(2))
	axis := checkVec3(L, 3)
	return e.withTransform(L, func(tr *component.Transform) { tr.RotateAroundAxis(angle, axis) })
}

// set_scale(id, x, y, z) -> ok, err
func (e *Engine) luaSetScale(L *lua.LState) int {
	sc := checkVec3(L, 2)
	s := e.sceneOrRaise(L)
	tr, err := s.Transform(checkEntity(L, 1))
	if err != nil {
		return pushResult(L, err)
	}
	return pushResult(L, tr.SetScale(sc))
}

// position(id) -> x, y, z | nil, err
func (e *Engine) luaPosition(L *lua.LState) int {
	s := e.sceneOrRaise(L)
	tr, err := s.Transform(checkEntity(L, 1))
	if err != nil {
		L.Push(lua.LNil)
		L.Push(lua.LString(err.Error()))
		return 2
	}
	p := tr.Position()
	L.Push(lua.LNumber(p.X()))
	L.Push(lua.LNumber(p.Y()))
	L.Push(lua.LNumber(p.Z()))
	return 3
}

// track(id) -> ok, err
func (e *Engine) luaTrack(L *lua.LState) int {
	s := e.sceneOrRaise(L)
	return pushResult(L, s.Track(checkEntity(L, 1)))
}

// key_down(name) / key_up(name) -> ok, err
func (e *Engine) luaKey(down bool) lua.LGFunction {
	return func(L *lua.LState) int {
		s := e.sceneOrRaise(L)
		k, err := input.ParseKey(L.CheckString(1))
		if err != nil {
			L.ArgError(1, err.Error())
		}
		return pushResult(L, s.SendKey(input.Event{Key: k, Down: down}))
	}
}
