package grid

import (
	"errors"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"

	"brickgrid.ai/internal/sim/grid/logic/anchor"
	"brickgrid.ai/internal/sim/grid/logic/footprint"
	"brickgrid.ai/internal/sim/grid/logic/orient"
)

var (
	ErrUnknownObject = errors.New("grid: unknown object")
	ErrHeld          = errors.New("grid: object is held")
	ErrNotHeld       = errors.New("grid: object is not held")
	ErrCellOccupied  = errors.New("grid: cell occupied")
	ErrOutOfBounds   = errors.New("grid: footprint outside the plate")
)

// Audit reason codes.
const (
	ReasonConflict    = "E_CONFLICT"
	ReasonOutOfBounds = "E_OUT_OF_BOUNDS"
	ReasonNoTarget    = "E_NO_TARGET"
	ReasonUnsupported = "E_UNSUPPORTED"
	ReasonInternal    = "E_INTERNAL"
)

func reasonFor(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrCellOccupied):
		return ReasonConflict
	case errors.Is(err, ErrOutOfBounds):
		return ReasonOutOfBounds
	default:
		return ReasonInternal
	}
}

// Pose is a continuous world position and rotation.
type Pose struct {
	Position mgl64.Vec3
	Rotation mgl64.Quat
}

// PoseAt builds a pose from a position and a yaw in degrees.
func PoseAt(pos mgl64.Vec3, yaw float64) Pose {
	return Pose{Position: pos, Rotation: orient.Yaw(yaw)}
}

// Preview is what the ghost renderer receives for a held object each tick.
type Preview struct {
	Point    mgl64.Vec3
	Collider uuid.UUID
	Dir      orient.Direction
	Anchor   anchor.Ref
	Origin   footprint.Cell
	Cells    []footprint.Cell
	Ghost    Pose
}

// PreviewRenderer draws the ghost of a held object.
type PreviewRenderer interface {
	ShowPreview(id uuid.UUID, p Preview)
	HidePreview(id uuid.UUID)
}

// PhysicsToggle switches rigid-body simulation of an object on or off.
type PhysicsToggle interface {
	SetSimulated(id uuid.UUID, enabled bool)
}

type AuditLogger interface {
	WriteAudit(entry AuditEntry) error
}

type TickLogger interface {
	WriteTick(entry TickLogEntry) error
}

// ObjectState is a read-only copy of an object.
type ObjectState struct {
	ID             uuid.UUID
	Template       string
	Origin         footprint.Cell
	Dir            orient.Direction
	Level          int
	Pose           Pose
	Cells          []footprint.Cell
	Placed         bool
	Held           bool
	HasBaseSupport bool
	Kinematic      bool
	EverMoved      bool
	Up             []uuid.UUID
	Down           []uuid.UUID
}

type AuditEntry struct {
	Tick    uint64         `json:"tick"`
	Object  string         `json:"object"`
	Action  string         `json:"action"` // e.g. "PLACE"
	Pos     [3]int         `json:"pos"`    // origin x, level, origin y
	Dir     string         `json:"dir,omitempty"`
	Reason  string         `json:"reason,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

type TickLogEntry struct {
	Tick     uint64   `json:"tick"`
	Held     int      `json:"held"`
	Placed   int      `json:"placed"`
	Previews int      `json:"previews"`
	NoTarget int      `json:"no_target"`
	Dropped  []string `json:"dropped,omitempty"`
	Digest   string   `json:"digest"`
}

type nopPreview struct{}

func (nopPreview) ShowPreview(uuid.UUID, Preview) {}
func (nopPreview) HidePreview(uuid.UUID)          {}

type nopPhysics struct{}

func (nopPhysics) SetSimulated(uuid.UUID, bool) {}
