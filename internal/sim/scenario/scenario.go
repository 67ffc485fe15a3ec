// Package scenario drives a grid engine from a YAML script of pickup, hold,
// release and tick steps.
package scenario

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"brickgrid.ai/internal/sim/catalogs"
	"brickgrid.ai/internal/sim/grid"
	"brickgrid.ai/internal/sim/grid/logic/footprint"
	"brickgrid.ai/internal/sim/grid/logic/orient"
)

var ErrExpectation = errors.New("scenario: expectation failed")

type Script struct {
	Name  string `yaml:"name"`
	Steps []Step `yaml:"steps"`
}

// Step is one engine call. Op selects which of the other fields apply:
//
//	spawn    as, template, at, yaw
//	pickup   id
//	hold     id, at, yaw
//	release  id, level
//	place    id, origin, dir, level
//	tick     count (default 1)
//	remove   id
//	revert   id
//	expect   id, expect
type Step struct {
	Op       string     `yaml:"op"`
	As       string     `yaml:"as,omitempty"`
	ID       string     `yaml:"id,omitempty"`
	Template string     `yaml:"template,omitempty"`
	At       [3]float64 `yaml:"at,omitempty"`
	Yaw      float64    `yaml:"yaw,omitempty"`
	Origin   [2]int     `yaml:"origin,omitempty"`
	Dir      string     `yaml:"dir,omitempty"`
	Level    int        `yaml:"level,omitempty"`
	Count    int        `yaml:"count,omitempty"`
	Expect   *Expect    `yaml:"expect,omitempty"`
}

type Expect struct {
	Placed    *bool    `yaml:"placed,omitempty"`
	Held      *bool    `yaml:"held,omitempty"`
	Supported *bool    `yaml:"supported,omitempty"`
	Kinematic *bool    `yaml:"kinematic,omitempty"`
	Origin    *[2]int  `yaml:"origin,omitempty"`
	Dir       string   `yaml:"dir,omitempty"`
	Level     *int     `yaml:"level,omitempty"`
	Down      []string `yaml:"down,omitempty"`
	Up        []string `yaml:"up,omitempty"`
}

func Load(path string) (*Script, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	s, err := Parse(b)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

func Parse(raw []byte) (*Script, error) {
	var s Script
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		return nil, err
	}
	for i, st := range s.Steps {
		if err := st.validate(); err != nil {
			return nil, fmt.Errorf("step %d (%s): %w", i, st.Op, err)
		}
	}
	return &s, nil
}

func (st Step) validate() error {
	switch st.Op {
	case "spawn":
		if st.As == "" || st.Template == "" {
			return fmt.Errorf("spawn needs as and template")
		}
	case "pickup", "hold", "release", "remove", "revert":
		if st.ID == "" {
			return fmt.Errorf("missing id")
		}
	case "place":
		if st.ID == "" {
			return fmt.Errorf("missing id")
		}
		if _, err := orient.Parse(st.Dir); err != nil {
			return err
		}
	case "expect":
		if st.ID == "" || st.Expect == nil {
			return fmt.Errorf("expect needs id and expect")
		}
		if st.Expect.Dir != "" {
			if _, err := orient.Parse(st.Expect.Dir); err != nil {
				return err
			}
		}
	case "tick":
		if st.Count < 0 {
			return fmt.Errorf("negative count")
		}
	default:
		return fmt.Errorf("unknown op %q", st.Op)
	}
	return nil
}

// Result summarizes a finished run.
type Result struct {
	Ticks    int
	Dropped  int
	Last     grid.TickSummary
	Objects  map[string]uuid.UUID
	Failures int
}

// Runner applies scripts to an engine. Object names bound by spawn steps stay
// valid across Run calls.
type Runner struct {
	Engine   *grid.Engine
	Catalogs *catalogs.Catalogs
	Logger   *log.Logger
	TickDt   float64

	names map[string]uuid.UUID
}

func (r *Runner) id(name string) (uuid.UUID, error) {
	id, ok := r.names[name]
	if !ok {
		return uuid.Nil, fmt.Errorf("unknown object name %q", name)
	}
	return id, nil
}

// Run executes every step in order. Engine errors from release steps are
// logged and the run continues; any other error, a failed expectation, or a
// cancelled ctx stops it.
func (r *Runner) Run(ctx context.Context, s *Script) (Result, error) {
	if r.names == nil {
		r.names = map[string]uuid.UUID{}
	}
	if r.Logger == nil {
		r.Logger = log.Default()
	}
	dt := r.TickDt
	if dt <= 0 {
		dt = 1.0 / 90
	}
	res := Result{}
	for i, st := range s.Steps {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if err := r.step(st, dt, &res); err != nil {
			return res, fmt.Errorf("%s step %d (%s): %w", s.Name, i, st.Op, err)
		}
	}
	res.Objects = make(map[string]uuid.UUID, len(r.names))
	for k, v := range r.names {
		res.Objects[k] = v
	}
	return res, nil
}

func (r *Runner) step(st Step, dt float64, res *Result) error {
	e := r.Engine
	switch st.Op {
	case "spawn":
		if r.Catalogs == nil {
			return fmt.Errorf("no catalogs")
		}
		tpl, ok := r.Catalogs.Template(st.Template)
		if !ok {
			return fmt.Errorf("unknown template %q", st.Template)
		}
		obj := e.Spawn(tpl, grid.PoseAt(mgl64.Vec3(st.At), st.Yaw))
		r.names[st.As] = obj.ID
		r.Logger.Debug("spawn", "as", st.As, "template", st.Template, "id", obj.ID)
		return nil

	case "tick":
		n := st.Count
		if n == 0 {
			n = 1
		}
		for i := 0; i < n; i++ {
			sum := e.Tick(dt)
			res.Ticks++
			res.Dropped += len(sum.Dropped)
			res.Last = sum
		}
		return nil
	}

	id, err := r.id(st.ID)
	if err != nil {
		return err
	}
	switch st.Op {
	case "pickup":
		return e.OnPickUp(id)
	case "hold":
		return e.Hold(id, grid.PoseAt(mgl64.Vec3(st.At), st.Yaw))
	case "release":
		placed, err := e.OnRelease(id, st.Level)
		if err != nil {
			r.Logger.Warn("release refused", "id", st.ID, "err", err)
			return nil
		}
		r.Logger.Debug("release", "id", st.ID, "placed", placed)
		return nil
	case "place":
		dir, _ := orient.Parse(st.Dir)
		return e.Place(id, footprint.Cell{X: st.Origin[0], Y: st.Origin[1]}, dir, st.Level)
	case "remove":
		err := e.Remove(id)
		delete(r.names, st.ID)
		return err
	case "revert":
		return e.RevertToStart(id)
	case "expect":
		if err := r.check(id, st.Expect); err != nil {
			res.Failures++
			return fmt.Errorf("%s: %w", st.ID, err)
		}
		return nil
	}
	return fmt.Errorf("unknown op %q", st.Op)
}

func (r *Runner) check(id uuid.UUID, x *Expect) error {
	s, ok := r.Engine.Object(id)
	if !ok {
		return fmt.Errorf("object gone: %w", ErrExpectation)
	}
	flag := func(name string, want *bool, got bool) error {
		if want != nil && *want != got {
			return fmt.Errorf("%s=%t want %t: %w", name, got, *want, ErrExpectation)
		}
		return nil
	}
	if err := flag("placed", x.Placed, s.Placed); err != nil {
		return err
	}
	if err := flag("held", x.Held, s.Held); err != nil {
		return err
	}
	if err := flag("supported", x.Supported, s.HasBaseSupport); err != nil {
		return err
	}
	if err := flag("kinematic", x.Kinematic, s.Kinematic); err != nil {
		return err
	}
	if x.Origin != nil && (s.Origin.X != x.Origin[0] || s.Origin.Y != x.Origin[1]) {
		return fmt.Errorf("origin=(%d,%d) want %v: %w", s.Origin.X, s.Origin.Y, *x.Origin, ErrExpectation)
	}
	if x.Dir != "" {
		want, _ := orient.Parse(x.Dir)
		if s.Dir != want {
			return fmt.Errorf("dir=%s want %s: %w", s.Dir, want, ErrExpectation)
		}
	}
	if x.Level != nil && s.Level != *x.Level {
		return fmt.Errorf("level=%d want %d: %w", s.Level, *x.Level, ErrExpectation)
	}
	if x.Down != nil {
		if err := r.sameNames("down", s.Down, x.Down); err != nil {
			return err
		}
	}
	if x.Up != nil {
		if err := r.sameNames("up", s.Up, x.Up); err != nil {
			return err
		}
	}
	return nil
}

func (r *Runner) sameNames(edge string, got []uuid.UUID, want []string) error {
	wantIDs := map[uuid.UUID]bool{}
	for _, n := range want {
		id, err := r.id(n)
		if err != nil {
			return err
		}
		wantIDs[id] = true
	}
	if len(got) != len(wantIDs) {
		return fmt.Errorf("%s has %d links want %d: %w", edge, len(got), len(wantIDs), ErrExpectation)
	}
	for _, id := range got {
		if !wantIDs[id] {
			return fmt.Errorf("%s has unexpected %s: %w", edge, id, ErrExpectation)
		}
	}
	return nil
}
