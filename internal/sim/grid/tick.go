package grid

import (
	"github.com/google/uuid"

	"brickgrid.ai/internal/sim/grid/logic/anchor"
	"brickgrid.ai/internal/sim/grid/logic/footprint"
	"brickgrid.ai/internal/sim/grid/logic/orient"
)

type TickSummary struct {
	Tick     uint64
	Elapsed  float64
	Held     int
	Placed   int
	Previews int
	NoTarget int
	// Dropped lists objects that lost support this tick and were handed to
	// physics.
	Dropped []uuid.UUID
	Digest  string
}

// Tick advances the engine by dt seconds.
//
// Held objects get a fresh target and preview. Support is then evaluated for
// every non-held object before any of them is changed, so an object dropped
// this tick only affects the objects it supported on the next one.
func (e *Engine) Tick(dt float64) TickSummary {
	e.tick++
	e.elapsed += dt
	sum := TickSummary{Tick: e.tick, Elapsed: e.elapsed}

	for _, id := range e.order {
		o := e.objects[id]
		if !o.held {
			continue
		}
		sum.Held++
		if e.preview(o) {
			sum.Previews++
		} else {
			sum.NoTarget++
		}
	}

	g := e.deps.Graph
	var drop []*object
	for _, id := range e.order {
		o := e.objects[id]
		if o.held {
			continue
		}
		if o.placed {
			o.supported = g.EvaluateSupport(o.id)
		} else {
			o.supported = false
		}
		if !o.supported && o.kinematic && o.everMoved {
			drop = append(drop, o)
		}
	}
	for _, o := range drop {
		wasPlaced := o.placed
		e.liftOut(o, ReasonUnsupported)
		e.setKinematic(o, false)
		sum.Dropped = append(sum.Dropped, o.id)
		if wasPlaced {
			e.deps.Logger.Info("support lost", "id", o.id, "template", o.tpl.ID, "tick", e.tick)
		} else {
			e.deps.Logger.Debug("released without target", "id", o.id, "tick", e.tick)
		}
	}

	for _, id := range e.order {
		if e.objects[id].placed {
			sum.Placed++
		}
	}
	sum.Digest = e.Digest()

	if e.deps.TickLog != nil {
		entry := TickLogEntry{
			Tick:     sum.Tick,
			Held:     sum.Held,
			Placed:   sum.Placed,
			Previews: sum.Previews,
			NoTarget: sum.NoTarget,
			Dropped:  idStrings(sum.Dropped),
			Digest:   sum.Digest,
		}
		if err := e.deps.TickLog.WriteTick(entry); err != nil {
			e.deps.Logger.Error("tick log write failed", "tick", e.tick, "err", err)
		}
	}
	return sum
}

// preview resolves the snapped direction of a held object, casts from its
// leading anchor and shows or hides the ghost. It reports whether a target was
// found.
func (e *Engine) preview(o *object) bool {
	p := e.cfg.Plate
	dir := orient.Resolve(orient.YawOf(o.pose.Rotation), -p.Yaw)
	ref := anchor.Select(dir)
	from := anchor.World(o.pose.Position, o.pose.Rotation, o.anchors.Point(ref))

	hit, ok := e.in.Intersect(from, p.SurfaceY(), o.id)
	if !ok {
		o.target = nil
		e.deps.Preview.HidePreview(o.id)
		return false
	}
	origin := p.CellAt(hit.Point)
	o.target = &target{hit: hit, dir: dir, origin: origin}

	w, d := o.size()
	e.deps.Preview.ShowPreview(o.id, Preview{
		Point:    hit.Point,
		Collider: hit.Collider,
		Dir:      dir,
		Anchor:   ref,
		Origin:   origin,
		Cells:    footprint.Cells(o.pattern, origin, dir),
		Ghost:    p.GhostPose(origin, dir, w, d, p.ToLocal(hit.Point).Y()),
	})
	return true
}
