package footprint

import (
	"reflect"
	"sort"
	"testing"

	"brickgrid.ai/internal/sim/grid/logic/orient"
)

func sorted(cells []Cell) []Cell {
	out := append([]Cell(nil), cells...)
	sort.Slice(out, func(i, j int) bool {
		if out[i].X != out[j].X {
			return out[i].X < out[j].X
		}
		return out[i].Y < out[j].Y
	})
	return out
}

func TestCells_TwoByOneNorth(t *testing.T) {
	got := Cells(Rect(2, 1), Cell{}, orient.North)
	want := []Cell{{0, 0}, {1, 0}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v want %v", got, want)
	}
}

func TestCells_RectRotations(t *testing.T) {
	origin := Cell{X: 3, Y: 5}
	cases := []struct {
		dir  orient.Direction
		want []Cell
	}{
		{dir: orient.Down, want: []Cell{{3, 5}, {3, 6}, {3, 7}, {4, 5}, {4, 6}, {4, 7}}},
		{dir: orient.Left, want: []Cell{{3, 5}, {3, 6}, {4, 5}, {4, 6}, {5, 5}, {5, 6}}},
		{dir: orient.Up, want: []Cell{{3, 5}, {3, 6}, {3, 7}, {4, 5}, {4, 6}, {4, 7}}},
		{dir: orient.Right, want: []Cell{{3, 5}, {3, 6}, {4, 5}, {4, 6}, {5, 5}, {5, 6}}},
	}
	for _, c := range cases {
		got := sorted(Cells(Rect(2, 3), origin, c.dir))
		if !reflect.DeepEqual(got, c.want) {
			t.Fatalf("dir=%v got %v want %v", c.dir, got, c.want)
		}
	}
}

func TestCells_Deterministic(t *testing.T) {
	pattern := []Cell{{0, 0}, {1, 0}, {1, 1}, {2, 1}}
	for _, dir := range []orient.Direction{orient.Down, orient.Left, orient.Up, orient.Right} {
		a := Cells(pattern, Cell{X: -2, Y: 7}, dir)
		b := Cells(pattern, Cell{X: -2, Y: 7}, dir)
		if !reflect.DeepEqual(a, b) {
			t.Fatalf("dir=%v not deterministic: %v vs %v", dir, a, b)
		}
	}
}

func TestCells_FourQuarterTurnsIsIdentity(t *testing.T) {
	pattern := []Cell{{0, 0}, {1, 0}, {1, 1}, {2, 1}}
	for _, dir := range []orient.Direction{orient.Down, orient.Left, orient.Up, orient.Right} {
		base := Cells(pattern, Cell{X: 1, Y: 1}, dir)
		turned := Cells(pattern, Cell{X: 1, Y: 1}, dir.Next().Next().Next().Next())
		if !reflect.DeepEqual(base, turned) {
			t.Fatalf("dir=%v: %v after four turns became %v", dir, base, turned)
		}
	}
}

func TestCells_LShapeQuarterTurn(t *testing.T) {
	// ##
	// #.
	pattern := []Cell{{0, 0}, {1, 0}, {0, 1}}
	got := sorted(Cells(pattern, Cell{}, orient.Left))
	want := []Cell{{0, 0}, {0, 1}, {1, 1}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v want %v", got, want)
	}
}

func TestCells_EmptyPattern(t *testing.T) {
	if got := Cells(nil, Cell{}, orient.Up); got != nil {
		t.Fatalf("expected nil, got %v", got)
	}
}

func TestBoundsAndRotationOffset(t *testing.T) {
	w, d := Bounds(Rect(4, 2))
	if w != 4 || d != 2 {
		t.Fatalf("Bounds=%d,%d", w, d)
	}
	if got := RotationOffset(4, 2, orient.Left); got != (Cell{0, 4}) {
		t.Fatalf("Left offset=%v", got)
	}
	if got := RotationOffset(4, 2, orient.Up); got != (Cell{4, 2}) {
		t.Fatalf("Up offset=%v", got)
	}
	if got := RotationOffset(4, 2, orient.Right); got != (Cell{2, 0}) {
		t.Fatalf("Right offset=%v", got)
	}
}
