package scenario

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"testing"

	"github.com/charmbracelet/log"

	"brickgrid.ai/internal/sim/catalogs"
	"brickgrid.ai/internal/sim/grid"
	"brickgrid.ai/internal/sim/tuning"
)

func newRunner(t *testing.T) *Runner {
	t.Helper()
	configDir := filepath.Join("..", "..", "..", "configs")
	cats, err := catalogs.Load(configDir)
	if err != nil {
		t.Fatalf("catalogs: %v", err)
	}
	tune, err := tuning.Load(filepath.Join(configDir, "tuning.yaml"))
	if err != nil {
		t.Fatalf("tuning: %v", err)
	}
	logger := log.New(io.Discard)
	e, err := grid.New(grid.ConfigFromTuning(tune), grid.Deps{Logger: logger})
	if err != nil {
		t.Fatalf("engine: %v", err)
	}
	return &Runner{Engine: e, Catalogs: cats, Logger: logger, TickDt: 1.0 / float64(tune.TickRateHz)}
}

func TestRun_TowerScenario(t *testing.T) {
	s, err := Load(filepath.Join("..", "..", "..", "configs", "scenarios", "tower.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	r := newRunner(t)
	res, err := r.Run(context.Background(), s)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Ticks != 4 {
		t.Fatalf("ticks=%d", res.Ticks)
	}
	if res.Dropped != 2 {
		t.Fatalf("dropped=%d", res.Dropped)
	}
	// base, mid, top, hand and the clone left behind by the first pickup of hand.
	if n := len(r.Engine.Objects()); n != 5 {
		t.Fatalf("objects=%d", n)
	}
	if _, ok := res.Objects["hand"]; !ok {
		t.Fatalf("missing name binding")
	}
}

func TestRun_ExpectationFailure(t *testing.T) {
	s, err := Parse([]byte(`
name: bad
steps:
  - {op: spawn, as: a, template: BRICK_1X1}
  - {op: expect, id: a, expect: {placed: true}}
`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	r := newRunner(t)
	res, err := r.Run(context.Background(), s)
	if !errors.Is(err, ErrExpectation) {
		t.Fatalf("err=%v", err)
	}
	if res.Failures != 1 {
		t.Fatalf("failures=%d", res.Failures)
	}
}

func TestRun_ReleaseConflictContinues(t *testing.T) {
	s, err := Parse([]byte(`
name: conflict
steps:
  - {op: spawn, as: a, template: BRICK_1X1}
  - {op: spawn, as: b, template: BRICK_1X1}
  - {op: place, id: a, origin: [3, 2], dir: DOWN, level: 0}
  - {op: pickup, id: b}
  - {op: hold, id: b, at: [0.0242, 1.0, 0.0162]}
  - {op: tick}
  - {op: release, id: b, level: 0}
  - {op: expect, id: b, expect: {placed: false}}
  - {op: tick}
  - {op: expect, id: b, expect: {kinematic: false}}
`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if _, err := newRunner(t).Run(context.Background(), s); err != nil {
		t.Fatalf("Run: %v", err)
	}
}

func TestParse_Rejects(t *testing.T) {
	cases := map[string]string{
		"unknown op":    "steps: [{op: fly, id: a}]",
		"unknown field": "steps: [{op: tick, speed: 3}]",
		"missing id":    "steps: [{op: pickup}]",
		"bad dir":       "steps: [{op: place, id: a, dir: SIDEWAYS}]",
		"spawn no name": "steps: [{op: spawn, template: BRICK_1X1}]",
	}
	for name, src := range cases {
		if _, err := Parse([]byte(src)); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestRun_UnknownName(t *testing.T) {
	s, err := Parse([]byte("steps: [{op: pickup, id: ghost}]"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if _, err := newRunner(t).Run(context.Background(), s); err == nil {
		t.Fatalf("expected error")
	}
}

func TestRun_Cancelled(t *testing.T) {
	s, err := Parse([]byte("steps: [{op: tick}]"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := newRunner(t).Run(ctx, s); !errors.Is(err, context.Canceled) {
		t.Fatalf("err=%v", err)
	}
}
