package surface

import (
	"github.com/go-gl/mathgl/mgl64"
)

// Frame is the placement of the build surface in the world: an origin and a
// yaw (degrees) around the world Y axis.
type Frame struct {
	Origin mgl64.Vec3
	Yaw    float64
}

func (f Frame) rotation() mgl64.Quat {
	return mgl64.QuatRotate(mgl64.DegToRad(f.Yaw), mgl64.Vec3{0, 1, 0})
}

// ToLocal converts a world point into the frame.
func (f Frame) ToLocal(p mgl64.Vec3) mgl64.Vec3 {
	return f.rotation().Inverse().Rotate(p.Sub(f.Origin))
}

// ToWorld converts a frame-local point into world space.
func (f Frame) ToWorld(p mgl64.Vec3) mgl64.Vec3 {
	return f.rotation().Rotate(p).Add(f.Origin)
}

// DirToLocal rotates a world direction into the frame.
func (f Frame) DirToLocal(d mgl64.Vec3) mgl64.Vec3 {
	return f.rotation().Inverse().Rotate(d)
}
