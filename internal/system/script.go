package system

import (
	"time"

	"go.uber.org/zap"

	coresys "github.com/cartrace/engine/internal/core/system"
)

// TickHook is anything that wants a callback once per tick, typically the
// Lua scripting engine.
type TickHook interface {
	CallTick(dt float32) error
}

// ScriptSystem runs scripted per-tick behaviour after the controllers.
// Phase 2 (Update). A failing script skips its update for the tick.
type ScriptSystem struct {
	hook TickHook
	log  *zap.Logger
}

func NewScriptSystem(hook TickHook, log *zap.Logger) *ScriptSystem {
	return &ScriptSystem{hook: hook, log: log}
}

func (s *ScriptSystem) Phase() coresys.Phase { return coresys.PhaseUpdate }

func (s *ScriptSystem) Update(dt time.Duration) {
	if err := s.hook.CallTick(float32(dt.Seconds())); err != nil {
		s.log.Warn("script tick failed", zap.Error(err))
	}
}
