package grid

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"brickgrid.ai/internal/sim/grid/logic/footprint"
	"brickgrid.ai/internal/sim/grid/logic/orient"
	"brickgrid.ai/internal/sim/grid/surface"
)

func TestPlate_CellAtRotatedFrame(t *testing.T) {
	p := Plate{
		Frame:       surface.Frame{Origin: mgl64.Vec3{10, 1, 10}, Yaw: 90},
		CellSize:    0.5,
		LevelHeight: 0.6,
		Width:       16,
		Depth:       16,
	}
	local := mgl64.Vec3{1.5, 0, 2.0}
	c := p.CellAt(p.ToWorld(local))
	if c != (footprint.Cell{X: 3, Y: 4}) {
		t.Fatalf("cell=%+v", c)
	}
}

func TestPlate_GhostPoseMinCorner(t *testing.T) {
	p := testPlate()
	for _, dir := range []orient.Direction{orient.Down, orient.Left, orient.Up, orient.Right} {
		origin := footprint.Cell{X: 3, Y: 2}
		pose := p.GhostPose(origin, dir, 2, 1, 0)
		// The rotated block's minimum corner must sit on the origin cell.
		corners := []mgl64.Vec3{{0, 0, 0}, {2, 0, 0}, {0, 0, 1}, {2, 0, 1}}
		minX, minZ := math.Inf(1), math.Inf(1)
		for _, c := range corners {
			w := pose.Position.Add(pose.Rotation.Rotate(c))
			minX = math.Min(minX, w.X())
			minZ = math.Min(minZ, w.Z())
		}
		if math.Abs(minX-3) > 1e-9 || math.Abs(minZ-2) > 1e-9 {
			t.Fatalf("%s: min corner=(%v,%v)", dir, minX, minZ)
		}
	}
}

func TestPlate_ContainsAndBoxes(t *testing.T) {
	p := testPlate()
	if !p.Contains([]footprint.Cell{{X: 0, Y: 0}, {X: 7, Y: 7}}) {
		t.Fatalf("expected cells inside")
	}
	if p.Contains([]footprint.Cell{{X: 8, Y: 0}}) || p.Contains([]footprint.Cell{{X: 0, Y: -1}}) {
		t.Fatalf("expected cells outside")
	}
	boxes := p.Boxes([]footprint.Cell{{X: 2, Y: 3}}, 1)
	if len(boxes) != 1 {
		t.Fatalf("boxes=%d", len(boxes))
	}
	if boxes[0].Min != (mgl64.Vec3{2, 1, 3}) || boxes[0].Max != (mgl64.Vec3{3, 2, 4}) {
		t.Fatalf("box=%+v", boxes[0])
	}
}

func TestOccupancy_AllOrNothing(t *testing.T) {
	m := NewMemOccupancy()
	a, b := newID(1), newID(2)
	if err := m.Occupy(0, []footprint.Cell{{X: 0, Y: 0}, {X: 1, Y: 0}}, a); err != nil {
		t.Fatalf("occupy: %v", err)
	}
	err := m.Occupy(0, []footprint.Cell{{X: 2, Y: 0}, {X: 1, Y: 0}}, b)
	if err == nil {
		t.Fatalf("expected conflict")
	}
	if _, ok := m.OwnerAt(0, footprint.Cell{X: 2, Y: 0}); ok {
		t.Fatalf("partial occupy leaked")
	}
	m.Vacate(0, []footprint.Cell{{X: 0, Y: 0}, {X: 1, Y: 0}}, b)
	if len(m.CellsOccupiedAt(0)) != 2 {
		t.Fatalf("vacate by non-owner removed cells")
	}
	m.Vacate(0, []footprint.Cell{{X: 0, Y: 0}, {X: 1, Y: 0}}, a)
	if len(m.CellsOccupiedAt(0)) != 0 {
		t.Fatalf("vacate left cells")
	}
}
