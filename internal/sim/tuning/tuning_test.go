package tuning

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_RepoTuning(t *testing.T) {
	tune, err := Load(filepath.Join("..", "..", "..", "configs", "tuning.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if tune.Plate.Width != 32 || tune.Plate.CellSize <= 0 {
		t.Fatalf("unexpected plate: %+v", tune.Plate)
	}
}

func TestLoad_KeepsDefaultsForMissingKeys(t *testing.T) {
	p := filepath.Join(t.TempDir(), "tuning.yaml")
	if err := os.WriteFile(p, []byte("ground_level: 2\nplate:\n  width: 8\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	tune, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	def := Defaults()
	if tune.GroundLevel != 2 || tune.Plate.Width != 8 {
		t.Fatalf("overrides lost: %+v", tune)
	}
	if tune.Plate.Depth != def.Plate.Depth || tune.RayMaxDistance != def.RayMaxDistance || tune.TickRateHz != def.TickRateHz {
		t.Fatalf("defaults lost: %+v", tune)
	}
}

func TestLoad_Invalid(t *testing.T) {
	cases := []string{
		"plate:\n  cell_size: 0\n",
		"ray_max_distance: -1\n",
		"tick_rate_hz: [1\n",
	}
	for _, body := range cases {
		p := filepath.Join(t.TempDir(), "tuning.yaml")
		if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
		if _, err := Load(p); err == nil {
			t.Fatalf("expected error for %q", body)
		}
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); !os.IsNotExist(err) {
		t.Fatalf("err=%v want not-exist", err)
	}
}
