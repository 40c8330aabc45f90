package system

import (
	"fmt"
	"time"

	"github.com/cartrace/engine/internal/config"
	coresys "github.com/cartrace/engine/internal/core/system"
	"github.com/cartrace/engine/internal/input"
)

// InputSystem drains queued key events into the input state. Phase 0 (Input).
type InputSystem struct {
	queue *input.Queue
	state *input.State
}

func NewInputSystem(queue *input.Queue, state *input.State) *InputSystem {
	return &InputSystem{queue: queue, state: state}
}

func (s *InputSystem) Phase() coresys.Phase { return coresys.PhaseInput }

func (s *InputSystem) Update(_ time.Duration) {
	s.queue.Drain(s.state)
}

// InputFlushSystem clears the just-pressed and just-released sets once every
// other system has seen them. Phase 4 (Cleanup).
type InputFlushSystem struct {
	state *input.State
}

func NewInputFlushSystem(state *input.State) *InputFlushSystem {
	return &InputFlushSystem{state: state}
}

func (s *InputFlushSystem) Phase() coresys.Phase { return coresys.PhaseCleanup }

func (s *InputFlushSystem) Update(_ time.Duration) {
	s.state.EndTick()
}

// Controls binds driving actions to keys.
type Controls struct {
	Forward, Back, Left, Right input.Key
}

func DefaultControls() Controls {
	return Controls{Forward: input.KeyW, Back: input.KeyS, Left: input.KeyA, Right: input.KeyD}
}

func ParseControls(cfg config.ControlsConfig) (Controls, error) {
	var c Controls
	for _, b := range []struct {
		dst  *input.Key
		name string
		what string
	}{
		{&c.Forward, cfg.Forward, "forward"},
		{&c.Back, cfg.Back, "back"},
		{&c.Left, cfg.Left, "left"},
		{&c.Right, cfg.Right, "right"},
	} {
		k, err := input.ParseKey(b.name)
		if err != nil {
			return Controls{}, fmt.Errorf("controls.%s: %w", b.what, err)
		}
		*b.dst = k
	}
	return c, nil
}
