package footprint

import "brickgrid.ai/internal/sim/grid/logic/orient"

// Cell is an integer baseplate coordinate. X runs along the plate's local X
// axis and Y along its local Z axis.
type Cell struct {
	X int `json:"x" yaml:"x"`
	Y int `json:"y" yaml:"y"`
}

func (c Cell) Add(o Cell) Cell { return Cell{X: c.X + o.X, Y: c.Y + o.Y} }

// RotateXY rotates an (x,y) offset by rot*90 degrees clockwise seen from
// above. rot must be a normalized quarter-turn count in [0,3].
func RotateXY(x, y, rot int) (rx, ry int) {
	switch rot & 3 {
	case 0:
		return x, y
	case 1:
		return y, -x
	case 2:
		return -x, -y
	default: // 3
		return -y, x
	}
}

// Rect returns the base pattern of a w×d brick, x-major.
func Rect(w, d int) []Cell {
	if w <= 0 || d <= 0 {
		return nil
	}
	out := make([]Cell, 0, w*d)
	for x := 0; x < w; x++ {
		for y := 0; y < d; y++ {
			out = append(out, Cell{X: x, Y: y})
		}
	}
	return out
}

// Bounds returns the extent of pattern along X and Y.
func Bounds(pattern []Cell) (w, d int) {
	if len(pattern) == 0 {
		return 0, 0
	}
	minX, minY := pattern[0].X, pattern[0].Y
	maxX, maxY := minX, minY
	for _, c := range pattern[1:] {
		minX = min(minX, c.X)
		minY = min(minY, c.Y)
		maxX = max(maxX, c.X)
		maxY = max(maxY, c.Y)
	}
	return maxX - minX + 1, maxY - minY + 1
}

// Cells returns the cells pattern occupies when anchored at origin facing dir.
//
// The rotated pattern is shifted so its minimum corner sits on origin. The
// result keeps pattern order and is a pure function of its inputs.
func Cells(pattern []Cell, origin Cell, dir orient.Direction) []Cell {
	if len(pattern) == 0 {
		return nil
	}
	rot := dir.Turns()
	out := make([]Cell, len(pattern))
	minX, minY := 0, 0
	for i, c := range pattern {
		x, y := RotateXY(c.X, c.Y, rot)
		out[i] = Cell{X: x, Y: y}
		if i == 0 || x < minX {
			minX = x
		}
		if i == 0 || y < minY {
			minY = y
		}
	}
	for i := range out {
		out[i] = Cell{X: origin.X + out[i].X - minX, Y: origin.Y + out[i].Y - minY}
	}
	return out
}

// RotationOffset is the cell offset from the footprint origin to the pivot of
// a w×d visual rotated to dir.
func RotationOffset(w, d int, dir orient.Direction) Cell {
	switch dir {
	case orient.Left:
		return Cell{X: 0, Y: w}
	case orient.Up:
		return Cell{X: w, Y: d}
	case orient.Right:
		return Cell{X: d, Y: 0}
	default:
		return Cell{}
	}
}
