package grid

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"

	"brickgrid.ai/internal/sim/grid/logic/footprint"
	"brickgrid.ai/internal/sim/grid/logic/orient"
	"brickgrid.ai/internal/sim/grid/surface"
	"brickgrid.ai/internal/sim/tuning"
)

// Plate is the baseplate: a frame in the world plus its cell layout.
type Plate struct {
	surface.Frame
	CellSize    float64
	LevelHeight float64
	Width       int
	Depth       int
}

func PlateFromTuning(t tuning.Plate) Plate {
	return Plate{
		Frame: surface.Frame{
			Origin: mgl64.Vec3(t.Origin),
			Yaw:    t.Yaw,
		},
		CellSize:    t.CellSize,
		LevelHeight: t.LevelHeight,
		Width:       t.Width,
		Depth:       t.Depth,
	}
}

// SurfaceY is the world height of the plate's top face.
func (p Plate) SurfaceY() float64 { return p.Origin.Y() }

// CellAt snaps a world point to the nearest cell corner.
func (p Plate) CellAt(world mgl64.Vec3) footprint.Cell {
	l := p.ToLocal(world)
	return footprint.Cell{
		X: int(math.Round(l.X() / p.CellSize)),
		Y: int(math.Round(l.Z() / p.CellSize)),
	}
}

func (p Plate) Contains(cells []footprint.Cell) bool {
	for _, c := range cells {
		if c.X < 0 || c.Y < 0 || c.X >= p.Width || c.Y >= p.Depth {
			return false
		}
	}
	return true
}

// Boxes returns one frame-local collider box per cell at level.
func (p Plate) Boxes(cells []footprint.Cell, level int) []surface.AABB {
	out := make([]surface.AABB, len(cells))
	y0 := float64(level) * p.LevelHeight
	for i, c := range cells {
		out[i] = surface.AABB{
			Min: mgl64.Vec3{float64(c.X) * p.CellSize, y0, float64(c.Y) * p.CellSize},
			Max: mgl64.Vec3{float64(c.X+1) * p.CellSize, y0 + p.LevelHeight, float64(c.Y+1) * p.CellSize},
		}
	}
	return out
}

// GhostPose is the pose a w×d visual takes when snapped to origin facing dir.
// localY is the height of its bottom face in the plate frame.
func (p Plate) GhostPose(origin footprint.Cell, dir orient.Direction, w, d int, localY float64) Pose {
	pivot := origin.Add(footprint.RotationOffset(w, d, dir))
	local := mgl64.Vec3{float64(pivot.X) * p.CellSize, localY, float64(pivot.Y) * p.CellSize}
	return PoseAt(p.ToWorld(local), p.Yaw+dir.Angle())
}

// LevelY is the plate-local height of the bottom face of level.
func (p Plate) LevelY(level int) float64 { return float64(level) * p.LevelHeight }

// PlateCollider is the id the plate registers under in a Scene built by NewPlateScene.
var PlateCollider = uuid.NewSHA1(uuid.NameSpaceOID, []byte("brickgrid.ai/plate"))

// NewPlateScene returns an in-memory spatial query holding a zero-thickness
// plate collider.
func NewPlateScene(p Plate) *surface.Scene {
	s := surface.NewScene(p.Frame)
	s.Track(PlateCollider, []surface.AABB{{
		Min: mgl64.Vec3{0, 0, 0},
		Max: mgl64.Vec3{float64(p.Width) * p.CellSize, 0, float64(p.Depth) * p.CellSize},
	}}, surface.LayerBuildSurface)
	return s
}
