package component

import (
	"errors"

	"github.com/go-gl/mathgl/mgl32"
)

// ErrZeroScale is returned by SetScale when a component is zero, which
// would leave the model matrix without an inverse for the normal matrix.
var ErrZeroScale = errors.New("scale component must be non-zero")

// Transform places an entity in the world. Position, rotation and scale are
// only changed through the mutators, which mark the cached model and normal
// matrices stale; UpdateMatrices recomputes them at most once per batch of
// mutations. The cached matrices are only valid right after UpdateMatrices.
type Transform struct {
	position mgl32.Vec3
	rotation mgl32.Mat4
	scale    mgl32.Vec3

	model  mgl32.Mat4
	normal mgl32.Mat4

	requiresUpdate bool
}

// NewTransform returns a unit-scale transform at position with the given
// rotation. rotation is orthonormalized so shear never enters the transform.
func NewTransform(position mgl32.Vec3, rotation mgl32.Mat4) *Transform {
	return &Transform{
		position:       position,
		rotation:       orthonormalize(rotation),
		scale:          mgl32.Vec3{1, 1, 1},
		model:          mgl32.Ident4(),
		normal:         mgl32.Ident4(),
		requiresUpdate: true,
	}
}

func (t *Transform) Position() mgl32.Vec3 { return t.position }
func (t *Transform) Rotation() mgl32.Mat4 { return t.rotation }
func (t *Transform) Scale() mgl32.Vec3    { return t.scale }
func (t *Transform) RequiresUpdate() bool { return t.requiresUpdate }

// Forward is the local -Z axis expressed in world space.
func (t *Transform) Forward() mgl32.Vec3 {
	return t.rotation.Col(2).Vec3().Mul(-1)
}

func (t *Transform) Translate(delta mgl32.Vec3) {
	t.position = t.position.Add(delta)
	t.requiresUpdate = true
}

func (t *Transform) SetPosition(p mgl32.Vec3) {
	t.position = p
	t.requiresUpdate = true
}

// RotateAroundAxis applies a world-space rotation of radians about axis.
// A zero axis only marks the transform dirty.
func (t *Transform) RotateAroundAxis(radians float32, axis mgl32.Vec3) {
	t.requiresUpdate = true
	if axis.Len() == 0 {
		return
	}
	t.rotation = orthonormalize(mgl32.HomogRotate3D(radians, axis.Normalize()).Mul4(t.rotation))
}

// Rotate left-multiplies the current rotation by m. Only the upper 3x3 of
// the product is kept, re-orthonormalized with determinant +1.
func (t *Transform) Rotate(m mgl32.Mat4) {
	t.rotation = orthonormalize(m.Mul4(t.rotation))
	t.requiresUpdate = true
}

// SetScale replaces the scale. The transform is left untouched when any
// component is zero.
func (t *Transform) SetScale(s mgl32.Vec3) error {
	if s.X() == 0 || s.Y() == 0 || s.Z() == 0 {
		return ErrZeroScale
	}
	t.scale = s
	t.requiresUpdate = true
	return nil
}

// UpdateMatrices recomputes model = T * R * S and its inverse-transpose.
// No-op while the transform is clean.
func (t *Transform) UpdateMatrices() {
	if !t.requiresUpdate {
		return
	}
	t.model = ModelMatrix(t.position, t.rotation, t.scale)
	t.normal = t.model.Inv().Transpose()
	t.requiresUpdate = false
}

// Matrices returns the cached model and normal matrices.
func (t *Transform) Matrices() (model, normal mgl32.Mat4) {
	return t.model, t.normal
}

// ModelMatrix composes translation(position) * rotation * scale(scale).
func ModelMatrix(position mgl32.Vec3, rotation mgl32.Mat4, scale mgl32.Vec3) mgl32.Mat4 {
	translate := mgl32.Translate3D(position.X(), position.Y(), position.Z())
	s := mgl32.Scale3D(scale.X(), scale.Y(), scale.Z())
	return translate.Mul4(rotation).Mul4(s)
}

// orthonormalize keeps the rotational 3x3 of m via Gram-Schmidt and rebuilds
// the third axis as a cross product, so the result is a pure rotation.
func orthonormalize(m mgl32.Mat4) mgl32.Mat4 {
	x := m.Col(0).Vec3()
	y := m.Col(1).Vec3()
	if x.Len() == 0 || y.Len() == 0 {
		return mgl32.Ident4()
	}
	x = x.Normalize()
	y = y.Sub(x.Mul(x.Dot(y)))
	if y.Len() == 0 {
		return mgl32.Ident4()
	}
	y = y.Normalize()
	z := x.Cross(y)
	return mgl32.Mat4FromCols(x.Vec4(0), y.Vec4(0), z.Vec4(0), mgl32.Vec4{0, 0, 0, 1})
}
