package scripting

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-gl/mathgl/mgl32"
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/cartrace/engine/internal/component"
	"github.com/cartrace/engine/internal/core/ecs"
	"github.com/cartrace/engine/internal/input"
)

// Scene is the world surface scripts may touch. Implementations are called
// from inside the simulation's critical section and must not take it again.
type Scene interface {
	SpawnInstance(mesh component.MeshID, mat component.MaterialID, pos mgl32.Vec3) (ecs.Entity, error)
	SpawnCar(mesh component.MeshID, mat component.MaterialID, pos mgl32.Vec3) (ecs.Entity, error)
	Despawn(e ecs.Entity) error
	Transform(e ecs.Entity) (*component.Transform, error)
	Track(e ecs.Entity) error
	SendKey(ev input.Event) error
}

var errNoScene = errors.New("no scene bound")

// Engine wraps a single gopher-lua VM running scene scripts.
// Single-goroutine access only (simulation loop).
type Engine struct {
	vm    *lua.LState
	scene Scene
	log   *zap.Logger
}

// NewEngine creates a Lua VM with the scene API registered. Bind a scene
// before running any script that calls it.
func NewEngine(log *zap.Logger) *Engine {
	vm := lua.NewState()
	vm.SetGlobal("API_VERSION", lua.LNumber(1))
	e := &Engine{vm: vm, log: log}
	e.register()
	return e
}

// Bind points the scene API at s.
func (e *Engine) Bind(s Scene) { e.scene = s }

// LoadDir runs every .lua file in dir in name order and returns how many
// ran. A missing directory is not an error.
func (e *Engine) LoadDir(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}
	n := 0
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".lua" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := e.vm.DoFile(path); err != nil {
			return n, fmt.Errorf("load %s: %w", path, err)
		}
		e.log.Debug("loaded lua script", zap.String("file", path))
		n++
	}
	return n, nil
}

// DoString runs a chunk of Lua source.
func (e *Engine) DoString(src string) error {
	return e.vm.DoString(src)
}

// CallTick invokes the global on_tick(dt) if a script defined one.
func (e *Engine) CallTick(dt float32) error {
	fn := e.vm.GetGlobal("on_tick")
	if fn == lua.LNil {
		return nil
	}
	if err := e.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    0,
		Protect: true,
	}, lua.LNumber(dt)); err != nil {
		return fmt.Errorf("on_tick: %w", err)
	}
	return nil
}

// Close shuts down the Lua VM.
func (e *Engine) Close() {
	e.vm.Close()
}
