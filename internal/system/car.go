package system

import (
	"time"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/cartrace/engine/internal/component"
	"github.com/cartrace/engine/internal/config"
	"github.com/cartrace/engine/internal/core/ecs"
	coresys "github.com/cartrace/engine/internal/core/system"
	"github.com/cartrace/engine/internal/input"
	"github.com/cartrace/engine/internal/world"
)

var worldUp = mgl32.Vec3{0, 1, 0}

// CarSystem turns driving input into velocity and heading for every entity
// with a Car and a Transform. Phase 2 (Update).
type CarSystem struct {
	world    *world.World
	input    *input.State
	controls Controls
	tuning   config.CarConfig
}

func NewCarSystem(w *world.World, in *input.State, controls Controls, tuning config.CarConfig) *CarSystem {
	return &CarSystem{world: w, input: in, controls: controls, tuning: tuning}
}

func (s *CarSystem) Phase() coresys.Phase { return coresys.PhaseUpdate }

func (s *CarSystem) Update(dt time.Duration) {
	seconds := float32(dt.Seconds())
	movement := s.input.Axis(s.controls.Forward, s.controls.Back)
	turn := s.input.Axis(s.controls.Left, s.controls.Right)
	ecs.Each2(s.world.Cars, s.world.Transforms, func(_ ecs.Entity, car *component.Car, tr *component.Transform) {
		Drive(car, tr, movement, turn, seconds, s.tuning)
	})
}

// Drive advances one car by dt seconds. movement and turn are in {-1, 0, 1}.
//
// The forward speed change per call is clamped to AccelRate*dt. Lateral
// friction removes a fixed fraction of sideways velocity per call, so its
// strength depends on the tick rate. The car only turns while moving input
// is held.
func Drive(car *component.Car, tr *component.Transform, movement, turn, dt float32, tuning config.CarConfig) {
	forward := tr.Forward()

	desired := forward.Mul(car.Speed * movement)
	current := car.Velocity.Dot(forward)

	limit := tuning.AccelRate * dt
	change := mgl32.Clamp(desired.Dot(forward)-current, -limit, limit)
	car.Velocity = car.Velocity.Add(forward.Mul(change))

	lateral := car.Velocity.Sub(forward.Mul(car.Velocity.Dot(forward)))
	car.Velocity = car.Velocity.Sub(lateral.Mul(tuning.LateralFriction))

	if movement != 0 && turn != 0 {
		tr.RotateAroundAxis(turn*car.TurnSpeed*dt, worldUp)
	}

	tr.Translate(car.Velocity.Mul(dt))
}
