// Package anchor picks which of a block's four fixed corner points leads the
// grid alignment for a given snapped direction.
package anchor

import (
	"github.com/go-gl/mathgl/mgl64"

	"brickgrid.ai/internal/sim/grid/logic/orient"
)

// Ref names one of the four anchor points of a block.
type Ref int

const (
	Primary Ref = iota
	FrontLeft
	BackLeft
	BackRight
)

func (r Ref) String() string {
	switch r {
	case Primary:
		return "PRIMARY"
	case FrontLeft:
		return "FRONT_LEFT"
	case BackLeft:
		return "BACK_LEFT"
	case BackRight:
		return "BACK_RIGHT"
	default:
		return "UNKNOWN"
	}
}

// Set holds the anchor points in the block's local space.
type Set struct {
	Primary   mgl64.Vec3
	FrontLeft mgl64.Vec3
	BackLeft  mgl64.Vec3
	BackRight mgl64.Vec3
}

// Rect derives the anchor set of a w×d brick whose local origin is the
// primary corner, +X along its width and +Z along its depth.
func Rect(w, d int, cellSize float64) Set {
	x := float64(w) * cellSize
	z := float64(d) * cellSize
	return Set{
		Primary:   mgl64.Vec3{0, 0, 0},
		FrontLeft: mgl64.Vec3{0, 0, z},
		BackLeft:  mgl64.Vec3{x, 0, z},
		BackRight: mgl64.Vec3{x, 0, 0},
	}
}

// Select returns the anchor that lands on the minimum grid corner once the
// block is turned to dir.
func Select(dir orient.Direction) Ref {
	switch dir {
	case orient.Left:
		return BackRight
	case orient.Up:
		return BackLeft
	case orient.Right:
		return FrontLeft
	default:
		return Primary
	}
}

// Point returns the local position of r.
func (s Set) Point(r Ref) mgl64.Vec3 {
	switch r {
	case FrontLeft:
		return s.FrontLeft
	case BackLeft:
		return s.BackLeft
	case BackRight:
		return s.BackRight
	default:
		return s.Primary
	}
}

// Leading is Point(Select(dir)).
func (s Set) Leading(dir orient.Direction) mgl64.Vec3 {
	return s.Point(Select(dir))
}

// World maps a local anchor point through a block pose.
func World(pos mgl64.Vec3, rot mgl64.Quat, local mgl64.Vec3) mgl64.Vec3 {
	return pos.Add(rot.Rotate(local))
}
