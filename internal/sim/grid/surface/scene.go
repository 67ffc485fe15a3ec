package surface

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"
)

// AABB is an axis-aligned box in frame-local coordinates. Boxes may be flat
// (Min.Y == Max.Y) to model a zero-thickness plate.
type AABB struct {
	Min mgl64.Vec3
	Max mgl64.Vec3
}

func (b AABB) contains(p mgl64.Vec3) bool {
	for i := 0; i < 3; i++ {
		if p[i] <= b.Min[i] || p[i] >= b.Max[i] {
			return false
		}
	}
	return true
}

var (
	_ Query   = (*Scene)(nil)
	_ Tracker = (*Scene)(nil)
)

type collider struct {
	id    uuid.UUID
	boxes []AABB
	layer Layer
}

// Scene is an in-memory Query over boxes aligned to a Frame. Rays starting
// strictly inside a box do not hit that box.
type Scene struct {
	frame     Frame
	colliders map[uuid.UUID]int
	list      []collider
}

func NewScene(frame Frame) *Scene {
	return &Scene{
		frame:     frame,
		colliders: map[uuid.UUID]int{},
	}
}

func (s *Scene) Frame() Frame { return s.frame }

// Track adds or replaces the collider for id. A collider may be made of
// several boxes; they all share id and layer.
func (s *Scene) Track(id uuid.UUID, boxes []AABB, layer Layer) {
	c := collider{id: id, boxes: append([]AABB(nil), boxes...), layer: layer}
	if i, ok := s.colliders[id]; ok {
		s.list[i] = c
		return
	}
	s.colliders[id] = len(s.list)
	s.list = append(s.list, c)
}

func (s *Scene) Untrack(id uuid.UUID) {
	i, ok := s.colliders[id]
	if !ok {
		return
	}
	last := len(s.list) - 1
	if i != last {
		s.list[i] = s.list[last]
		s.colliders[s.list[i].id] = i
	}
	s.list = s.list[:last]
	delete(s.colliders, id)
}

func (s *Scene) Len() int { return len(s.list) }

// Raycast returns the nearest hit along dir within maxDistance.
func (s *Scene) Raycast(origin, dir mgl64.Vec3, maxDistance float64, mask Layer, exclude uuid.UUID) (Hit, bool) {
	if dir.Len() == 0 || maxDistance <= 0 {
		return Hit{}, false
	}
	o := s.frame.ToLocal(origin)
	d := s.frame.DirToLocal(dir.Normalize())

	best := Hit{Distance: math.Inf(1)}
	found := false
	for _, c := range s.list {
		if c.layer&mask == 0 || (exclude != uuid.Nil && c.id == exclude) {
			continue
		}
		for _, box := range c.boxes {
			if box.contains(o) {
				continue
			}
			t, ok := slab(o, d, box)
			if !ok || t > maxDistance || t >= best.Distance {
				continue
			}
			best = Hit{
				Point:    s.frame.ToWorld(o.Add(d.Mul(t))),
				Collider: c.id,
				Layer:    c.layer,
				Distance: t,
			}
			found = true
		}
	}
	if !found {
		return Hit{}, false
	}
	return best, true
}

// slab returns the entry distance of the ray o+t*d into box, t >= 0.
func slab(o, d mgl64.Vec3, box AABB) (float64, bool) {
	tmin, tmax := 0.0, math.Inf(1)
	for i := 0; i < 3; i++ {
		if math.Abs(d[i]) < 1e-12 {
			if o[i] < box.Min[i] || o[i] > box.Max[i] {
				return 0, false
			}
			continue
		}
		inv := 1 / d[i]
		t1 := (box.Min[i] - o[i]) * inv
		t2 := (box.Max[i] - o[i]) * inv
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		tmin = math.Max(tmin, t1)
		tmax = math.Min(tmax, t2)
		if tmin > tmax {
			return 0, false
		}
	}
	return tmin, true
}
