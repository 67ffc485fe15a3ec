package catalogs

import (
	"crypto/sha256"
	_ "embed"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"brickgrid.ai/internal/sim/grid/logic/anchor"
	"brickgrid.ai/internal/sim/grid/logic/footprint"
)

//go:embed schemas/blocks.schema.json
var blocksSchemaJSON string

type Catalogs struct {
	Blocks BlockCatalog
}

type BlockCatalog struct {
	Palette       []string
	Index         map[string]uint16
	Defs          map[string]*BlockTemplate
	PaletteDigest string
	DefsDigest    string
}

// BlockTemplate is the shared, immutable shape descriptor of a block type.
// Objects only ever hold a pointer to it.
type BlockTemplate struct {
	ID      string      `json:"id"`
	Width   int         `json:"width"`
	Depth   int         `json:"depth"`
	Pattern [][2]int    `json:"pattern,omitempty"`
	Prefab  string      `json:"prefab,omitempty"`
	Anchors *AnchorsDef `json:"anchors,omitempty"`

	cells []footprint.Cell
}

type AnchorsDef struct {
	Primary   [3]float64 `json:"primary"`
	FrontLeft [3]float64 `json:"front_left"`
	BackLeft  [3]float64 `json:"back_left"`
	BackRight [3]float64 `json:"back_right"`
}

// Rect builds a plain w×d template; used for tests and ad-hoc spawns.
func Rect(id string, w, d int) *BlockTemplate {
	t := &BlockTemplate{ID: id, Width: w, Depth: d}
	t.resolve()
	return t
}

// Shaped builds a template from explicit pattern cells; width and depth are
// taken from the pattern bounds.
func Shaped(id string, pattern ...[2]int) *BlockTemplate {
	t := &BlockTemplate{ID: id, Pattern: pattern}
	t.resolve()
	t.Width, t.Depth = footprint.Bounds(t.cells)
	return t
}

func (t *BlockTemplate) resolve() {
	if len(t.Pattern) == 0 {
		t.cells = footprint.Rect(t.Width, t.Depth)
		return
	}
	t.cells = make([]footprint.Cell, len(t.Pattern))
	for i, p := range t.Pattern {
		t.cells[i] = footprint.Cell{X: p[0], Y: p[1]}
	}
}

// Cells returns a copy of the unrotated footprint pattern.
func (t *BlockTemplate) Cells() []footprint.Cell {
	return append([]footprint.Cell(nil), t.cells...)
}

// AnchorSet returns the template's anchors, derived from its bounds when the
// template does not define them.
func (t *BlockTemplate) AnchorSet(cellSize float64) anchor.Set {
	if t.Anchors == nil {
		w, d := footprint.Bounds(t.cells)
		return anchor.Rect(w, d, cellSize)
	}
	return anchor.Set{
		Primary:   mgl64.Vec3(t.Anchors.Primary),
		FrontLeft: mgl64.Vec3(t.Anchors.FrontLeft),
		BackLeft:  mgl64.Vec3(t.Anchors.BackLeft),
		BackRight: mgl64.Vec3(t.Anchors.BackRight),
	}
}

func Load(configDir string) (*Catalogs, error) {
	var c Catalogs
	if err := loadBlocks(filepath.Join(configDir, "blocks.json"), &c.Blocks); err != nil {
		return nil, err
	}
	return &c, nil
}

// Template looks up a block template by id.
func (c *Catalogs) Template(id string) (*BlockTemplate, bool) {
	if c == nil {
		return nil, false
	}
	t, ok := c.Blocks.Defs[id]
	return t, ok
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

var blocksSchema = jsonschema.MustCompileString("blocks.schema.json", blocksSchemaJSON)

// ValidateBlocks checks raw blocks.json content against the embedded schema.
func ValidateBlocks(raw []byte) error {
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return err
	}
	return blocksSchema.Validate(doc)
}

func loadBlocks(path string, out *BlockCatalog) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return parseBlocks(raw, out)
}

func parseBlocks(raw []byte, out *BlockCatalog) error {
	if err := ValidateBlocks(raw); err != nil {
		return fmt.Errorf("blocks.json: %w", err)
	}
	out.DefsDigest = sha256Hex(raw)

	var defs []*BlockTemplate
	if err := json.Unmarshal(raw, &defs); err != nil {
		return fmt.Errorf("blocks.json: %w", err)
	}
	out.Defs = make(map[string]*BlockTemplate, len(defs))
	for _, d := range defs {
		if _, dup := out.Defs[d.ID]; dup {
			return fmt.Errorf("blocks.json: duplicate id %s", d.ID)
		}
		d.resolve()
		w, dep := footprint.Bounds(d.cells)
		if w > d.Width || dep > d.Depth {
			return fmt.Errorf("blocks.json: %s pattern exceeds %dx%d", d.ID, d.Width, d.Depth)
		}
		out.Defs[d.ID] = d
	}

	ids := make([]string, 0, len(out.Defs))
	for id := range out.Defs {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out.Palette = ids
	out.Index = make(map[string]uint16, len(ids))
	for i, id := range ids {
		out.Index[id] = uint16(i)
	}
	palJSON, _ := json.Marshal(ids)
	out.PaletteDigest = sha256Hex(palJSON)
	return nil
}
