package grid

import (
	"github.com/google/uuid"

	"brickgrid.ai/internal/sim/catalogs"
	"brickgrid.ai/internal/sim/grid/logic/anchor"
	"brickgrid.ai/internal/sim/grid/logic/footprint"
	"brickgrid.ai/internal/sim/grid/logic/orient"
	"brickgrid.ai/internal/sim/grid/surface"
)

// object is a block known to the engine. Its support edges live in the
// engine's graph, never on the object.
type object struct {
	id      uuid.UUID
	seq     int
	tpl     *catalogs.BlockTemplate
	pattern []footprint.Cell
	anchors anchor.Set

	origin footprint.Cell
	dir    orient.Direction
	level  int

	pose  Pose
	start Pose

	placed    bool
	held      bool
	supported bool
	kinematic bool
	everMoved bool

	// target is the result of the last held tick; nil when that tick had no
	// intersection.
	target *target
}

type target struct {
	hit    surface.Hit
	dir    orient.Direction
	origin footprint.Cell
}

// cells is always derived from template, origin and direction.
func (o *object) cells() []footprint.Cell {
	if !o.placed {
		return nil
	}
	return footprint.Cells(o.pattern, o.origin, o.dir)
}

func (o *object) size() (w, d int) {
	return footprint.Bounds(o.pattern)
}
