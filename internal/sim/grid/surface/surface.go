// Package surface finds where a held block's leading anchor meets the build
// surface below (or above) it.
package surface

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"
)

// Layer is a collision layer bitmask.
type Layer uint32

const (
	LayerDefault Layer = 1 << iota
	LayerBuildSurface
	LayerPlaced
	LayerIgnore
)

// PreviewMask is what the intersector is allowed to hit.
const PreviewMask = LayerBuildSurface | LayerPlaced

// Hit is a ray intersection.
type Hit struct {
	Point    mgl64.Vec3
	Collider uuid.UUID
	Layer    Layer
	Distance float64
}

// Query is the spatial query service of the physics host. Implementations
// must never report a hit on the collider owned by exclude.
type Query interface {
	Raycast(origin, dir mgl64.Vec3, maxDistance float64, mask Layer, exclude uuid.UUID) (Hit, bool)
}

// Tracker is implemented by queries that keep their own collider set in sync
// with placed blocks.
type Tracker interface {
	Track(id uuid.UUID, boxes []AABB, layer Layer)
	Untrack(id uuid.UUID)
}

var (
	down = mgl64.Vec3{0, -1, 0}
	up   = mgl64.Vec3{0, 1, 0}
)

// Intersector casts from an anchor toward the surface height.
type Intersector struct {
	Query       Query
	MaxDistance float64
	Mask        Layer
}

// Intersect casts downward when the anchor is at or above surfaceY and upward
// otherwise. ok=false means nothing was hit within MaxDistance; callers treat
// that as "no target this tick".
func (in Intersector) Intersect(anchorWorld mgl64.Vec3, surfaceY float64, self uuid.UUID) (hit Hit, ok bool) {
	if in.Query == nil {
		return Hit{}, false
	}
	mask := in.Mask
	if mask == 0 {
		mask = PreviewMask
	}
	dir := down
	if anchorWorld.Y() < surfaceY {
		dir = up
	}
	return in.Query.Raycast(anchorWorld, dir, in.MaxDistance, mask, self)
}
