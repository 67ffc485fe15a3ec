package support

import (
	"errors"
	"reflect"
	"testing"

	"github.com/google/uuid"
)

func ids(n int) []uuid.UUID {
	out := make([]uuid.UUID, n)
	for i := range out {
		out[i] = uuid.New()
	}
	return out
}

func TestLink_IsSymmetricAndIdempotent(t *testing.T) {
	g := New(0)
	x, y := uuid.New(), uuid.New()
	g.Add(x, 0)
	g.Add(y, 1)

	for i := 0; i < 2; i++ {
		if err := g.Link(x, y); err != nil {
			t.Fatalf("Link: %v", err)
		}
	}
	if got := g.Upward(x); !reflect.DeepEqual(got, []uuid.UUID{y}) {
		t.Fatalf("Upward(x)=%v", got)
	}
	if got := g.Downward(y); !reflect.DeepEqual(got, []uuid.UUID{x}) {
		t.Fatalf("Downward(y)=%v", got)
	}
	if !g.Linked(x, y) || g.Linked(y, x) {
		t.Fatalf("Linked mismatch")
	}
}

func TestLinkThenUnlink_RestoresState(t *testing.T) {
	g := New(0)
	x, y := uuid.New(), uuid.New()
	g.Add(x, 0)
	g.Add(y, 1)

	if err := g.Link(x, y); err != nil {
		t.Fatalf("Link: %v", err)
	}
	g.Unlink(x, y)
	g.Unlink(x, y)

	if len(g.Upward(x)) != 0 || len(g.Downward(y)) != 0 {
		t.Fatalf("dangling edges: up=%v down=%v", g.Upward(x), g.Downward(y))
	}
	if len(g.Downward(x)) != 0 || len(g.Upward(y)) != 0 {
		t.Fatalf("unexpected reverse edges")
	}
}

func TestLink_RejectsMisuse(t *testing.T) {
	g := New(0)
	a, b, c, outsider := uuid.New(), uuid.New(), uuid.New(), uuid.New()
	g.Add(a, 0)
	g.Add(b, 2)
	g.Add(c, 0)

	if err := g.Link(a, a); !errors.Is(err, ErrSelfLink) {
		t.Fatalf("self link err=%v", err)
	}
	if err := g.Link(a, outsider); !errors.Is(err, ErrNotMember) {
		t.Fatalf("outsider err=%v", err)
	}
	if err := g.Link(a, b); !errors.Is(err, ErrNotAdjacent) {
		t.Fatalf("skip-level err=%v", err)
	}
	if err := g.Link(a, c); !errors.Is(err, ErrNotAdjacent) {
		t.Fatalf("same-level err=%v", err)
	}
	if len(g.Upward(a)) != 0 {
		t.Fatalf("failed link left an edge")
	}
}

func TestEvaluateSupport(t *testing.T) {
	g := New(0)
	x, y := uuid.New(), uuid.New()
	g.Add(x, 0)
	g.Add(y, 1)

	if !g.EvaluateSupport(x) {
		t.Fatalf("ground object must be supported")
	}
	if g.EvaluateSupport(y) {
		t.Fatalf("floating object must not be supported")
	}
	if err := g.Link(x, y); err != nil {
		t.Fatalf("Link: %v", err)
	}
	if !g.EvaluateSupport(y) {
		t.Fatalf("linked object must be supported")
	}

	g.ClearDownward(y)
	if g.EvaluateSupport(y) {
		t.Fatalf("object above ground must lose support after ClearDownward")
	}
	if len(g.Upward(x)) != 0 {
		t.Fatalf("ClearDownward left the reverse edge: %v", g.Upward(x))
	}

	g.ClearDownward(x)
	if !g.EvaluateSupport(x) {
		t.Fatalf("ground object keeps support after ClearDownward")
	}
	if g.EvaluateSupport(uuid.New()) {
		t.Fatalf("non-member reported as supported")
	}
}

func TestClearUpward_DropsReverseEdges(t *testing.T) {
	g := New(0)
	v := ids(3)
	g.Add(v[0], 0)
	g.Add(v[1], 1)
	g.Add(v[2], 1)
	for _, id := range v[1:] {
		if err := g.Link(v[0], id); err != nil {
			t.Fatalf("Link: %v", err)
		}
	}
	g.ClearUpward(v[0])
	for _, id := range v[1:] {
		if len(g.Downward(id)) != 0 {
			t.Fatalf("%s still rests on cleared supporter", id)
		}
	}
}

func TestRemoveAndReAdd(t *testing.T) {
	g := New(0)
	v := ids(3)
	g.Add(v[0], 0)
	g.Add(v[1], 1)
	g.Add(v[2], 2)
	_ = g.Link(v[0], v[1])
	_ = g.Link(v[1], v[2])

	g.Remove(v[1])
	if g.Contains(v[1]) || g.Len() != 2 {
		t.Fatalf("Remove did not drop member")
	}
	if len(g.Upward(v[0])) != 0 || len(g.Downward(v[2])) != 0 {
		t.Fatalf("Remove left dangling edges")
	}

	g.Add(v[1], 1)
	_ = g.Link(v[0], v[1])
	g.Add(v[1], 3)
	if lvl, _ := g.Level(v[1]); lvl != 3 {
		t.Fatalf("level=%d", lvl)
	}
	if len(g.Upward(v[0])) != 0 {
		t.Fatalf("level change kept stale edge")
	}
}

func TestUpward_ReturnsCopy(t *testing.T) {
	g := New(0)
	x, y := uuid.New(), uuid.New()
	g.Add(x, 0)
	g.Add(y, 1)
	_ = g.Link(x, y)

	up := g.Upward(x)
	up[0] = uuid.Nil
	if got := g.Upward(x); got[0] != y {
		t.Fatalf("caller mutated internal edge set")
	}
}
