package engine

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/cartrace/engine/internal/batch"
)

// Mode selects how compiled world state travels from the simulation
// goroutine to the render goroutine.
type Mode int

const (
	// ModeLock guards the world with one mutex. A tick holds it for the whole
	// tick, a render holds it for one batch compilation.
	ModeLock Mode = iota
	// ModeDoubleBuffer compiles into a simulation-private table after each
	// tick and publishes an immutable copy through an atomic pointer. The
	// render side never blocks.
	ModeDoubleBuffer
)

func ParseMode(s string) (Mode, error) {
	switch s {
	case "lock", "":
		return ModeLock, nil
	case "double_buffer":
		return ModeDoubleBuffer, nil
	}
	return ModeLock, fmt.Errorf("unknown handoff mode %q", s)
}

func (m Mode) String() string {
	switch m {
	case ModeLock:
		return "lock"
	case ModeDoubleBuffer:
		return "double_buffer"
	}
	return "unknown"
}

// Frame is everything a renderer needs for one presented frame. It reflects
// the world after a single completed tick and is never mutated after it is
// handed out.
type Frame struct {
	Tick      uint64
	DrawCalls batch.DrawCalls
	View      mgl32.Mat4
	// CameraVersion changes whenever View does. A renderer uploads View only
	// when it differs from the last version it saw.
	CameraVersion uint64
}

// captureLocked builds a frame from the current world. Caller holds e.mu.
func (e *Engine) captureLocked(dst batch.DrawCalls) *Frame {
	cam := &e.world.Camera
	f := &Frame{
		Tick:          e.tick,
		DrawCalls:     batch.Compile(e.world, dst),
		View:          cam.View,
		CameraVersion: cam.Version,
	}
	cam.RequiresUpdate = false
	return f
}

// publishLocked compiles into the write table and swaps a deep copy in as
// the read side. Caller holds e.mu.
func (e *Engine) publishLocked() {
	f := e.captureLocked(e.write)
	e.write = f.DrawCalls
	f.DrawCalls = e.write.Clone()
	e.published.Store(f)
}

// afterMutationLocked keeps the published frame in step with changes made
// outside a tick. Caller holds e.mu.
func (e *Engine) afterMutationLocked() {
	if e.mode == ModeDoubleBuffer {
		e.publishLocked()
	}
}

// Frame returns the latest complete frame.
func (e *Engine) Frame() *Frame {
	if e.mode == ModeDoubleBuffer {
		return e.published.Load()
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.captureLocked(nil)
}

// DrawCalls returns the batch table of the latest complete frame.
func (e *Engine) DrawCalls() batch.DrawCalls {
	return e.Frame().DrawCalls
}
