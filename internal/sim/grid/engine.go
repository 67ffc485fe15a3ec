package grid

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"brickgrid.ai/internal/sim/catalogs"
	"brickgrid.ai/internal/sim/grid/logic/footprint"
	"brickgrid.ai/internal/sim/grid/logic/orient"
	"brickgrid.ai/internal/sim/grid/support"
	"brickgrid.ai/internal/sim/grid/surface"
	"brickgrid.ai/internal/sim/tuning"
)

type Config struct {
	Plate          Plate
	GroundLevel    int
	RayMaxDistance float64
}

func ConfigFromTuning(t tuning.Tuning) Config {
	return Config{
		Plate:          PlateFromTuning(t.Plate),
		GroundLevel:    t.GroundLevel,
		RayMaxDistance: t.RayMaxDistance,
	}
}

// Deps are the collaborators the engine works against. Nil members get an
// in-memory or no-op default.
type Deps struct {
	Graph     *support.Graph
	Occupancy Occupancy
	Spatial   surface.Query
	Preview   PreviewRenderer
	Physics   PhysicsToggle
	Audit     AuditLogger
	TickLog   TickLogger
	Logger    *log.Logger
}

// Engine reconciles held, released and placed blocks once per tick. It is
// driven by an external loop and is not safe for concurrent use.
type Engine struct {
	cfg  Config
	deps Deps
	in   surface.Intersector

	tick    uint64
	elapsed float64
	spawned int
	objects map[uuid.UUID]*object
	order   []uuid.UUID
}

func New(cfg Config, deps Deps) (*Engine, error) {
	p := cfg.Plate
	if p.CellSize <= 0 || p.LevelHeight <= 0 || p.Width <= 0 || p.Depth <= 0 {
		return nil, fmt.Errorf("grid: invalid plate %+v", p)
	}
	if cfg.RayMaxDistance <= 0 {
		return nil, fmt.Errorf("grid: ray max distance must be > 0")
	}
	if deps.Graph == nil {
		deps.Graph = support.New(cfg.GroundLevel)
	} else if deps.Graph.GroundLevel() != cfg.GroundLevel {
		return nil, fmt.Errorf("grid: graph ground level %d != config %d", deps.Graph.GroundLevel(), cfg.GroundLevel)
	}
	if deps.Occupancy == nil {
		deps.Occupancy = NewMemOccupancy()
	}
	if deps.Spatial == nil {
		deps.Spatial = NewPlateScene(p)
	}
	if deps.Preview == nil {
		deps.Preview = nopPreview{}
	}
	if deps.Physics == nil {
		deps.Physics = nopPhysics{}
	}
	if deps.Logger == nil {
		deps.Logger = log.Default()
	}
	return &Engine{
		cfg:  cfg,
		deps: deps,
		in: surface.Intersector{
			Query:       deps.Spatial,
			MaxDistance: cfg.RayMaxDistance,
			Mask:        surface.PreviewMask,
		},
		objects: map[uuid.UUID]*object{},
	}, nil
}

func (e *Engine) CurrentTick() uint64 { return e.tick }

func (e *Engine) Plate() Plate { return e.cfg.Plate }

// Spawn creates an unplaced, kinematic object at pose.
func (e *Engine) Spawn(tpl *catalogs.BlockTemplate, pose Pose) ObjectState {
	o := e.spawn(tpl, pose)
	e.audit(o, "SPAWN", "", map[string]any{"template": tpl.ID})
	return e.state(o)
}

func (e *Engine) spawn(tpl *catalogs.BlockTemplate, pose Pose) *object {
	e.spawned++
	o := &object{
		id:        uuid.New(),
		seq:       e.spawned,
		tpl:       tpl,
		pattern:   tpl.Cells(),
		anchors:   tpl.AnchorSet(e.cfg.Plate.CellSize),
		pose:      pose,
		start:     pose,
		kinematic: true,
	}
	e.objects[o.id] = o
	e.order = append(e.order, o.id)
	e.deps.Physics.SetSimulated(o.id, false)
	return o
}

func (e *Engine) lookup(id uuid.UUID) (*object, error) {
	o, ok := e.objects[id]
	if !ok {
		return nil, fmt.Errorf("%s: %w", id, ErrUnknownObject)
	}
	return o, nil
}

// OnPickUp hands the object to external control. The first pickup leaves a
// fresh copy behind at the spawn pose. A placed object is lifted out of the
// grid and all its support edges are dropped.
func (e *Engine) OnPickUp(id uuid.UUID) error {
	o, err := e.lookup(id)
	if err != nil {
		return err
	}
	if o.held {
		return nil
	}
	o.held = true
	o.target = nil
	e.setKinematic(o, true)
	if !o.everMoved {
		o.everMoved = true
		clone := e.spawn(o.tpl, o.start)
		e.audit(clone, "CLONE", "", map[string]any{"source": o.id.String()})
		e.deps.Logger.Debug("cloned on first pickup", "source", o.id, "clone", clone.id)
	}
	if o.placed {
		e.liftOut(o, "")
	}
	e.audit(o, "PICKUP", "", nil)
	return nil
}

// Hold updates the pose of a held object.
func (e *Engine) Hold(id uuid.UUID, pose Pose) error {
	o, err := e.lookup(id)
	if err != nil {
		return err
	}
	if !o.held {
		return fmt.Errorf("%s: %w", id, ErrNotHeld)
	}
	o.pose = pose
	return nil
}

// SyncPose records where the physics host moved a non-held object.
func (e *Engine) SyncPose(id uuid.UUID, pose Pose) error {
	o, err := e.lookup(id)
	if err != nil {
		return err
	}
	if o.held {
		return fmt.Errorf("%s: %w", id, ErrHeld)
	}
	if !o.placed {
		o.pose = pose
	}
	return nil
}

// OnRelease ends external control. If the last tick produced a target the
// object is placed there on level; otherwise, or when the target cells are
// not free, it stays unplaced and falls on the next tick. The returned error
// explains a refused placement; the release itself always happens.
func (e *Engine) OnRelease(id uuid.UUID, level int) (bool, error) {
	o, err := e.lookup(id)
	if err != nil {
		return false, err
	}
	if !o.held {
		return false, fmt.Errorf("%s: %w", id, ErrNotHeld)
	}
	o.held = false
	e.deps.Preview.HidePreview(id)

	t := o.target
	o.target = nil
	if t == nil {
		e.audit(o, "RELEASE", ReasonNoTarget, nil)
		return false, nil
	}
	if err := e.place(o, t.origin, t.dir, level); err != nil {
		e.audit(o, "RELEASE", reasonFor(err), map[string]any{"error": err.Error()})
		return false, err
	}
	return true, nil
}

// Place puts a non-held object straight into the grid.
func (e *Engine) Place(id uuid.UUID, origin footprint.Cell, dir orient.Direction, level int) error {
	o, err := e.lookup(id)
	if err != nil {
		return err
	}
	if o.held {
		return fmt.Errorf("%s: %w", id, ErrHeld)
	}
	if err := e.place(o, origin, dir, level); err != nil {
		e.audit(o, "PLACE", reasonFor(err), map[string]any{"error": err.Error()})
		return err
	}
	return nil
}

func (e *Engine) place(o *object, origin footprint.Cell, dir orient.Direction, level int) error {
	cells := footprint.Cells(o.pattern, origin, dir)
	if !e.cfg.Plate.Contains(cells) {
		return fmt.Errorf("%s at (%d,%d) %s: %w", o.id, origin.X, origin.Y, dir, ErrOutOfBounds)
	}
	occ := e.deps.Occupancy
	for _, c := range cells {
		if owner, ok := occ.OwnerAt(level, c); ok && owner != o.id {
			return fmt.Errorf("level %d cell (%d,%d) owned by %s: %w", level, c.X, c.Y, owner, ErrCellOccupied)
		}
	}
	// A rejected claim leaves an existing placement untouched.
	if err := occ.Occupy(level, cells, o.id); err != nil {
		return err
	}
	if o.placed {
		e.liftOut(o, "")
		// liftOut vacated any cells the two footprints share.
		if err := occ.Occupy(level, cells, o.id); err != nil {
			occ.Vacate(level, cells, o.id)
			return err
		}
	}

	o.origin, o.dir, o.level = origin, dir, level
	o.placed = true
	o.everMoved = true

	g := e.deps.Graph
	g.Add(o.id, level)
	for _, c := range cells {
		if below, ok := occ.OwnerAt(level-1, c); ok {
			e.link(below, o.id)
		}
		if above, ok := occ.OwnerAt(level+1, c); ok {
			e.link(o.id, above)
		}
	}
	o.supported = g.EvaluateSupport(o.id)

	if t, ok := e.deps.Spatial.(surface.Tracker); ok {
		t.Track(o.id, e.cfg.Plate.Boxes(cells, level), surface.LayerPlaced)
	}
	w, d := o.size()
	o.pose = e.cfg.Plate.GhostPose(origin, dir, w, d, e.cfg.Plate.LevelY(level))
	e.setKinematic(o, true)

	e.audit(o, "PLACE", "", map[string]any{
		"cells":     cellPairs(cells),
		"supported": o.supported,
		"down":      idStrings(g.Downward(o.id)),
		"up":        idStrings(g.Upward(o.id)),
	})
	e.deps.Logger.Debug("placed", "id", o.id, "origin", origin, "dir", dir, "level", level, "supported", o.supported)
	return nil
}

func (e *Engine) link(supporter, supported uuid.UUID) {
	if err := e.deps.Graph.Link(supporter, supported); err != nil {
		e.deps.Logger.Warn("support link rejected", "supporter", supporter, "supported", supported, "err", err)
	}
}

// liftOut takes o out of the grid: cells vacated, edges in both directions
// dropped, collider removed.
func (e *Engine) liftOut(o *object, reason string) {
	if !o.placed {
		return
	}
	g := e.deps.Graph
	up, down := g.Upward(o.id), g.Downward(o.id)
	e.deps.Occupancy.Vacate(o.level, o.cells(), o.id)
	g.ClearUpward(o.id)
	g.ClearDownward(o.id)
	g.Remove(o.id)
	if t, ok := e.deps.Spatial.(surface.Tracker); ok {
		t.Untrack(o.id)
	}
	o.placed = false
	o.supported = false
	e.audit(o, "UNPLACE", reason, map[string]any{"up": idStrings(up), "down": idStrings(down)})
}

func (e *Engine) setKinematic(o *object, kinematic bool) {
	if o.kinematic == kinematic {
		return
	}
	o.kinematic = kinematic
	e.deps.Physics.SetSimulated(o.id, !kinematic)
	action := "PHYSICS_OFF"
	if !kinematic {
		action = "PHYSICS_ON"
	}
	e.audit(o, action, "", nil)
}

// Remove destroys an object.
func (e *Engine) Remove(id uuid.UUID) error {
	o, err := e.lookup(id)
	if err != nil {
		return err
	}
	if o.held {
		e.deps.Preview.HidePreview(id)
	}
	e.liftOut(o, "")
	delete(e.objects, id)
	for i, v := range e.order {
		if v == id {
			e.order = append(e.order[:i], e.order[i+1:]...)
			break
		}
	}
	e.audit(o, "REMOVE", "", nil)
	return nil
}

// RevertToStart moves a non-held object back to its spawn pose, taking it out
// of the grid first.
func (e *Engine) RevertToStart(id uuid.UUID) error {
	o, err := e.lookup(id)
	if err != nil {
		return err
	}
	if o.held {
		return fmt.Errorf("%s: %w", id, ErrHeld)
	}
	e.liftOut(o, "")
	o.pose = o.start
	e.audit(o, "REVERT", "", nil)
	return nil
}

func (e *Engine) Object(id uuid.UUID) (ObjectState, bool) {
	o, ok := e.objects[id]
	if !ok {
		return ObjectState{}, false
	}
	return e.state(o), true
}

// Objects returns every object in spawn order.
func (e *Engine) Objects() []ObjectState {
	out := make([]ObjectState, 0, len(e.order))
	for _, id := range e.order {
		out = append(out, e.state(e.objects[id]))
	}
	return out
}

func (e *Engine) Upward(id uuid.UUID) []uuid.UUID   { return e.deps.Graph.Upward(id) }
func (e *Engine) Downward(id uuid.UUID) []uuid.UUID { return e.deps.Graph.Downward(id) }

func (e *Engine) state(o *object) ObjectState {
	return ObjectState{
		ID:             o.id,
		Template:       o.tpl.ID,
		Origin:         o.origin,
		Dir:            o.dir,
		Level:          o.level,
		Pose:           o.pose,
		Cells:          o.cells(),
		Placed:         o.placed,
		Held:           o.held,
		HasBaseSupport: o.supported,
		Kinematic:      o.kinematic,
		EverMoved:      o.everMoved,
		Up:             e.deps.Graph.Upward(o.id),
		Down:           e.deps.Graph.Downward(o.id),
	}
}

// Digest hashes the placement state of every object in spawn order. Objects
// are keyed by spawn sequence, so two runs of the same inputs agree even
// though their ids differ.
func (e *Engine) Digest() string {
	h := sha256.New()
	for _, id := range e.order {
		o := e.objects[id]
		fmt.Fprintf(h, "%d|%s|%t|%t|%t|%t|%d|%d,%d|%d\n",
			o.seq, o.tpl.ID, o.placed, o.held, o.supported, o.kinematic, o.level, o.origin.X, o.origin.Y, o.dir)
	}
	return hex.EncodeToString(h.Sum(nil))
}

func (e *Engine) audit(o *object, action, reason string, details map[string]any) {
	if e.deps.Audit == nil {
		return
	}
	entry := AuditEntry{
		Tick:    e.tick,
		Object:  o.id.String(),
		Action:  action,
		Pos:     [3]int{o.origin.X, o.level, o.origin.Y},
		Reason:  reason,
		Details: details,
	}
	if o.placed {
		entry.Dir = o.dir.String()
	}
	if err := e.deps.Audit.WriteAudit(entry); err != nil {
		e.deps.Logger.Error("audit write failed", "action", action, "err", err)
	}
}

func cellPairs(cells []footprint.Cell) [][2]int {
	out := make([][2]int, len(cells))
	for i, c := range cells {
		out[i] = [2]int{c.X, c.Y}
	}
	return out
}

func idStrings(ids []uuid.UUID) []string {
	if len(ids) == 0 {
		return nil
	}
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}
