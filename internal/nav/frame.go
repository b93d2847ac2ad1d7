package nav

import (
	"github.com/go-gl/mathgl/mgl64"
)

// Frame is the local-to-world transform of a volume:
// world = Rotation·(Scale⊙local) + Location.
type Frame struct {
	Location mgl64.Vec3
	Rotation mgl64.Quat
	Scale    mgl64.Vec3
}

// IdentityFrame returns a frame at the world origin with no rotation or scale.
func IdentityFrame() Frame {
	return Frame{
		Rotation: mgl64.QuatIdent(),
		Scale:    mgl64.Vec3{1, 1, 1},
	}
}

// NewFrame builds a frame from a location, rotation angles in degrees and a scale.
// Roll turns about +X, pitch about +Y, yaw about +Z; roll is applied first, yaw last.
func NewFrame(location mgl64.Vec3, pitch, yaw, roll float64, scale mgl64.Vec3) Frame {
	qYaw := mgl64.QuatRotate(mgl64.DegToRad(yaw), mgl64.Vec3{0, 0, 1})
	qPitch := mgl64.QuatRotate(mgl64.DegToRad(pitch), mgl64.Vec3{0, 1, 0})
	qRoll := mgl64.QuatRotate(mgl64.DegToRad(roll), mgl64.Vec3{1, 0, 0})

	return Frame{
		Location: location,
		Rotation: qYaw.Mul(qPitch).Mul(qRoll).Normalize(),
		Scale:    scale,
	}.normalized()
}

// normalized replaces a zero rotation or zero scale axis with identity values.
func (f Frame) normalized() Frame {
	if f.Rotation.W == 0 && f.Rotation.V == (mgl64.Vec3{}) {
		f.Rotation = mgl64.QuatIdent()
	}
	for i := range 3 {
		if f.Scale[i] == 0 {
			f.Scale[i] = 1
		}
	}
	return f
}

// ToWorld transforms a local-space position into world space.
func (f Frame) ToWorld(local mgl64.Vec3) mgl64.Vec3 {
	scaled := mgl64.Vec3{local[0] * f.Scale[0], local[1] * f.Scale[1], local[2] * f.Scale[2]}
	return f.Rotation.Rotate(scaled).Add(f.Location)
}

// ToLocal transforms a world-space position into the frame's local space.
func (f Frame) ToLocal(world mgl64.Vec3) mgl64.Vec3 {
	unrotated := f.Rotation.Inverse().Rotate(world.Sub(f.Location))
	return mgl64.Vec3{unrotated[0] / f.Scale[0], unrotated[1] / f.Scale[1], unrotated[2] / f.Scale[2]}
}
