package component

import "github.com/go-gl/mathgl/mgl32"

// Camera is the single view written by the camera system. Version increments
// on every view change so a consumer that skips frames can still tell
// whether it must re-upload the view matrix.
type Camera struct {
	View           mgl32.Mat4
	Position       mgl32.Vec3
	RequiresUpdate bool
	Version        uint64
}

// SetView stores a new view matrix and flags it for upload.
func (c *Camera) SetView(view mgl32.Mat4) {
	c.View = view
	c.RequiresUpdate = true
	c.Version++
}
