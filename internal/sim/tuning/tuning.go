package tuning

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Tuning struct {
	TickRateHz int `yaml:"tick_rate_hz"`

	Plate Plate `yaml:"plate"`

	// GroundLevel is the grid level that rests on the baseplate itself.
	GroundLevel    int     `yaml:"ground_level"`
	RayMaxDistance float64 `yaml:"ray_max_distance"`
}

type Plate struct {
	Origin      [3]float64 `yaml:"origin"`
	Yaw         float64    `yaml:"yaw"`
	CellSize    float64    `yaml:"cell_size"`
	LevelHeight float64    `yaml:"level_height"`
	Width       int        `yaml:"width"`
	Depth       int        `yaml:"depth"`
}

func Defaults() Tuning {
	return Tuning{
		TickRateHz: 90,
		Plate: Plate{
			CellSize:    0.008,
			LevelHeight: 0.0096,
			Width:       32,
			Depth:       32,
		},
		GroundLevel:    0,
		RayMaxDistance: 999,
	}
}

// Load reads a tuning file on top of Defaults, so omitted keys keep their
// default values.
func Load(path string) (Tuning, error) {
	t := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}

func (t Tuning) Validate() error {
	switch {
	case t.TickRateHz <= 0:
		return fmt.Errorf("tick_rate_hz must be > 0")
	case t.Plate.CellSize <= 0:
		return fmt.Errorf("plate.cell_size must be > 0")
	case t.Plate.LevelHeight <= 0:
		return fmt.Errorf("plate.level_height must be > 0")
	case t.Plate.Width <= 0 || t.Plate.Depth <= 0:
		return fmt.Errorf("plate width/depth must be > 0")
	case t.RayMaxDistance <= 0:
		return fmt.Errorf("ray_max_distance must be > 0")
	}
	return nil
}
