package orient

import (
	"fmt"
	"math"
	"strings"

	"github.com/go-gl/mathgl/mgl64"
)

// Direction is one of the four quarter-turn orientations a block can snap to.
type Direction int

const (
	Down Direction = iota
	Left
	Up
	Right
)

// Compass aliases. North is the unrotated base orientation.
const (
	North = Down
	East  = Left
	South = Up
	West  = Right
)

var canonical = [4]struct {
	angle float64
	dir   Direction
}{
	{0, Down},
	{90, Left},
	{180, Up},
	{270, Right},
}

func (d Direction) String() string {
	switch d {
	case Down:
		return "DOWN"
	case Left:
		return "LEFT"
	case Up:
		return "UP"
	case Right:
		return "RIGHT"
	default:
		return "UNKNOWN"
	}
}

// Parse accepts a direction name or its compass alias, case-insensitively.
func Parse(s string) (Direction, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DOWN", "NORTH":
		return Down, nil
	case "LEFT", "EAST":
		return Left, nil
	case "UP", "SOUTH":
		return Up, nil
	case "RIGHT", "WEST":
		return Right, nil
	}
	return Down, fmt.Errorf("orient: unknown direction %q", s)
}

// Angle returns the yaw in degrees the block's visual is rotated by for d.
func (d Direction) Angle() float64 {
	return float64(d.Turns()) * 90
}

// Turns returns d as a clockwise quarter-turn count in [0,3].
func (d Direction) Turns() int {
	return int(d) & 3
}

// Next returns the direction one quarter turn further.
func (d Direction) Next() Direction {
	return Direction((d.Turns() + 1) & 3)
}

// FromTurns converts any quarter-turn count (negative included) into a Direction.
func FromTurns(n int) Direction {
	n %= 4
	if n < 0 {
		n += 4
	}
	return Direction(n)
}

// DeltaAngle returns the shortest signed difference between two angles in
// degrees, in (-180,180].
func DeltaAngle(current, target float64) float64 {
	delta := math.Mod(target-current, 360)
	if delta < 0 {
		delta += 360
	}
	if delta > 180 {
		delta -= 360
	}
	return delta
}

// Resolve snaps current+reference to the nearest canonical direction. Ties go
// to the first canonical angle in 0,90,180,270 order.
func Resolve(current, reference float64) Direction {
	angle := current + reference
	if math.IsNaN(angle) || math.IsInf(angle, 0) {
		return Down
	}
	best := Down
	bestDist := math.Inf(1)
	for _, c := range canonical {
		d := math.Abs(DeltaAngle(angle, c.angle))
		if d < bestDist {
			bestDist = d
			best = c.dir
		}
	}
	return best
}

// YawOf returns the rotation of q around the world Y axis in degrees, [0,360).
// Forward is +Z and positive yaw turns +Z towards +X.
func YawOf(q mgl64.Quat) float64 {
	f := q.Rotate(mgl64.Vec3{0, 0, 1})
	if math.Abs(f.X()) < 1e-12 && math.Abs(f.Z()) < 1e-12 {
		// Pointing straight up or down; fall back to the right vector.
		r := q.Rotate(mgl64.Vec3{1, 0, 0})
		return normalize(mgl64.RadToDeg(math.Atan2(-r.Z(), r.X())))
	}
	return normalize(mgl64.RadToDeg(math.Atan2(f.X(), f.Z())))
}

// Yaw builds a rotation of deg degrees around the world Y axis.
func Yaw(deg float64) mgl64.Quat {
	return mgl64.QuatRotate(mgl64.DegToRad(deg), mgl64.Vec3{0, 1, 0})
}

func normalize(deg float64) float64 {
	deg = math.Mod(deg, 360)
	if deg < 0 {
		deg += 360
	}
	if deg >= 360 {
		deg = 0
	}
	return deg
}
