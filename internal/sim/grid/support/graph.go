// Package support keeps track of which placed blocks rest on which others.
//
// Every edge is stored on both endpoints and every mutation touches both
// sides in the same call, so an edge is never observable in one direction
// only. The graph is not safe for concurrent use.
package support

import (
	"bytes"
	"errors"
	"sort"

	"github.com/google/uuid"
)

var (
	ErrNotMember   = errors.New("support: object not in graph")
	ErrSelfLink    = errors.New("support: object cannot support itself")
	ErrNotAdjacent = errors.New("support: supported object must sit exactly one level above its supporter")
)

type set map[uuid.UUID]struct{}

type node struct {
	level int
	up    set // objects resting on this one
	down  set // objects this one rests on
}

type Graph struct {
	ground int
	nodes  map[uuid.UUID]*node
}

// New creates a graph whose objects on groundLevel count as supported by the
// baseplate itself.
func New(groundLevel int) *Graph {
	return &Graph{
		ground: groundLevel,
		nodes:  map[uuid.UUID]*node{},
	}
}

func (g *Graph) GroundLevel() int { return g.ground }

func (g *Graph) Len() int { return len(g.nodes) }

func (g *Graph) Contains(id uuid.UUID) bool {
	_, ok := g.nodes[id]
	return ok
}

func (g *Graph) Level(id uuid.UUID) (int, bool) {
	n, ok := g.nodes[id]
	if !ok {
		return 0, false
	}
	return n.level, true
}

// Add makes id a member at level. Re-adding at a different level drops all
// of its edges first, since they no longer connect adjacent levels.
func (g *Graph) Add(id uuid.UUID, level int) {
	if n, ok := g.nodes[id]; ok {
		if n.level == level {
			return
		}
		g.ClearUpward(id)
		g.ClearDownward(id)
		n.level = level
		return
	}
	g.nodes[id] = &node{level: level, up: set{}, down: set{}}
}

// Remove drops id and every edge touching it.
func (g *Graph) Remove(id uuid.UUID) {
	if _, ok := g.nodes[id]; !ok {
		return
	}
	g.ClearUpward(id)
	g.ClearDownward(id)
	delete(g.nodes, id)
}

// Link records that supported rests on supporter. Linking twice is a no-op.
func (g *Graph) Link(supporter, supported uuid.UUID) error {
	if supporter == supported {
		return ErrSelfLink
	}
	a, ok := g.nodes[supporter]
	if !ok {
		return ErrNotMember
	}
	b, ok := g.nodes[supported]
	if !ok {
		return ErrNotMember
	}
	if b.level != a.level+1 {
		return ErrNotAdjacent
	}
	a.up[supported] = struct{}{}
	b.down[supporter] = struct{}{}
	return nil
}

// Unlink removes the supporter→supported edge, if any.
func (g *Graph) Unlink(supporter, supported uuid.UUID) {
	if a, ok := g.nodes[supporter]; ok {
		delete(a.up, supported)
	}
	if b, ok := g.nodes[supported]; ok {
		delete(b.down, supporter)
	}
}

// ClearUpward removes every edge to objects resting on id.
func (g *Graph) ClearUpward(id uuid.UUID) {
	n, ok := g.nodes[id]
	if !ok {
		return
	}
	for other := range n.up {
		if o, ok := g.nodes[other]; ok {
			delete(o.down, id)
		}
	}
	n.up = set{}
}

// ClearDownward removes every edge to objects id rests on.
func (g *Graph) ClearDownward(id uuid.UUID) {
	n, ok := g.nodes[id]
	if !ok {
		return
	}
	for other := range n.down {
		if o, ok := g.nodes[other]; ok {
			delete(o.up, id)
		}
	}
	n.down = set{}
}

// Upward returns the objects resting on id, sorted.
func (g *Graph) Upward(id uuid.UUID) []uuid.UUID {
	n, ok := g.nodes[id]
	if !ok {
		return nil
	}
	return n.up.sorted()
}

// Downward returns the objects id rests on, sorted.
func (g *Graph) Downward(id uuid.UUID) []uuid.UUID {
	n, ok := g.nodes[id]
	if !ok {
		return nil
	}
	return n.down.sorted()
}

// Linked reports whether supported rests on supporter.
func (g *Graph) Linked(supporter, supported uuid.UUID) bool {
	n, ok := g.nodes[supporter]
	if !ok {
		return false
	}
	_, ok = n.up[supported]
	return ok
}

// EvaluateSupport reports whether id rests on something or sits on the
// ground level. Non-members are never supported.
func (g *Graph) EvaluateSupport(id uuid.UUID) bool {
	n, ok := g.nodes[id]
	if !ok {
		return false
	}
	return len(n.down) > 0 || n.level == g.ground
}

func (s set) sorted() []uuid.UUID {
	if len(s) == 0 {
		return nil
	}
	out := make([]uuid.UUID, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return bytes.Compare(out[i][:], out[j][:]) < 0 })
	return out
}
