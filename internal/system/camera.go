package system

import (
	"errors"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"github.com/cartrace/engine/internal/component"
	"github.com/cartrace/engine/internal/config"
	"github.com/cartrace/engine/internal/core/ecs"
	"github.com/cartrace/engine/internal/core/event"
	coresys "github.com/cartrace/engine/internal/core/system"
	"github.com/cartrace/engine/internal/world"
)

// CameraSystem keeps the world camera chasing a target entity. Phase 3
// (PostUpdate), so it sees this tick's car movement.
//
// A target that no longer resolves leaves the camera at its last pose. A
// despawn event for the target clears it.
type CameraSystem struct {
	world  *world.World
	cfg    config.CameraConfig
	target ecs.Entity
	stale  bool
	log    *zap.Logger
}

func NewCameraSystem(w *world.World, bus *event.Bus, cfg config.CameraConfig, log *zap.Logger) *CameraSystem {
	s := &CameraSystem{world: w, cfg: cfg, log: log}
	if bus != nil {
		event.Subscribe(bus, s.onDespawned)
	}
	return s
}

func (s *CameraSystem) Phase() coresys.Phase { return coresys.PhasePostUpdate }

func (s *CameraSystem) SetTarget(e ecs.Entity) {
	s.target = e
	s.stale = false
}

func (s *CameraSystem) ClearTarget() {
	s.target = 0
	s.stale = false
}

// Target returns the tracked entity, if any.
func (s *CameraSystem) Target() (ecs.Entity, bool) {
	return s.target, !s.target.IsZero()
}

func (s *CameraSystem) onDespawned(ev event.EntityDespawned) {
	if ev.Entity == s.target {
		s.log.Debug("camera target despawned", zap.Uint64("entity", uint64(ev.Entity)))
		s.ClearTarget()
	}
}

func (s *CameraSystem) Update(dt time.Duration) {
	if s.target.IsZero() {
		return
	}
	tr, err := s.world.Transform(s.target)
	if err != nil {
		if errors.Is(err, world.ErrNotFound) && !s.stale {
			s.stale = true
			s.log.Debug("camera target unresolved, holding pose", zap.Error(err))
		}
		return
	}
	s.stale = false
	Follow(&s.world.Camera, tr, float32(dt.Seconds()), s.cfg)
}

// Follow moves cam one step toward its chase position behind tr and aims it
// ahead of tr. The interpolation factor is clamped to [0, 1] so a long tick
// can never overshoot the target position.
func Follow(cam *component.Camera, tr *component.Transform, dt float32, cfg config.CameraConfig) {
	forward := tr.Forward()
	pos := tr.Position()

	offsetBack := forward.Mul(-1).Mul(cfg.BackFactor)
	desired := pos.Add(offsetBack).Add(mgl32.Vec3(cfg.UpOffset))

	t := mgl32.Clamp(cfg.LerpRate*dt, 0, 1)
	cam.Position = cam.Position.Add(desired.Sub(cam.Position).Mul(t))

	look := pos.Add(forward.Mul(cfg.LookAhead))
	if look.Sub(cam.Position).Len() < 1e-6 {
		return
	}
	cam.SetView(mgl32.LookAtV(cam.Position, look, mgl32.Vec3(cfg.WorldUp)))
}
