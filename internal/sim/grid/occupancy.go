package grid

import (
	"fmt"

	"github.com/google/uuid"

	"brickgrid.ai/internal/sim/grid/logic/footprint"
)

// Occupancy tells which object owns which cell on each level.
type Occupancy interface {
	OwnerAt(level int, c footprint.Cell) (uuid.UUID, bool)
	CellsOccupiedAt(level int) map[footprint.Cell]uuid.UUID
	// Occupy claims every cell for id or none of them.
	Occupy(level int, cells []footprint.Cell, id uuid.UUID) error
	// Vacate releases the cells still owned by id.
	Vacate(level int, cells []footprint.Cell, id uuid.UUID)
}

type MemOccupancy struct {
	levels map[int]map[footprint.Cell]uuid.UUID
}

func NewMemOccupancy() *MemOccupancy {
	return &MemOccupancy{levels: map[int]map[footprint.Cell]uuid.UUID{}}
}

func (m *MemOccupancy) OwnerAt(level int, c footprint.Cell) (uuid.UUID, bool) {
	id, ok := m.levels[level][c]
	return id, ok
}

func (m *MemOccupancy) CellsOccupiedAt(level int) map[footprint.Cell]uuid.UUID {
	src := m.levels[level]
	out := make(map[footprint.Cell]uuid.UUID, len(src))
	for c, id := range src {
		out[c] = id
	}
	return out
}

func (m *MemOccupancy) Occupy(level int, cells []footprint.Cell, id uuid.UUID) error {
	lvl := m.levels[level]
	for _, c := range cells {
		if owner, ok := lvl[c]; ok && owner != id {
			return fmt.Errorf("level %d cell (%d,%d) owned by %s: %w", level, c.X, c.Y, owner, ErrCellOccupied)
		}
	}
	if lvl == nil {
		lvl = map[footprint.Cell]uuid.UUID{}
		m.levels[level] = lvl
	}
	for _, c := range cells {
		lvl[c] = id
	}
	return nil
}

func (m *MemOccupancy) Vacate(level int, cells []footprint.Cell, id uuid.UUID) {
	lvl := m.levels[level]
	for _, c := range cells {
		if lvl[c] == id {
			delete(lvl, c)
		}
	}
	if len(lvl) == 0 {
		delete(m.levels, level)
	}
}
