package component

import "github.com/go-gl/mathgl/mgl32"

// Car is the controller state for an input-driven vehicle.
type Car struct {
	Velocity  mgl32.Vec3
	Speed     float32 // max forward speed, units/s
	TurnSpeed float32 // max yaw rate, rad/s
}
