package apeiron

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

func TestDefaultConfigIsValid(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Errorf("DefaultConfig().Validate() = %v, want nil", err)
	}
}

func TestParseConfigOverrides(t *testing.T) {
	data := []byte(`
gravity: [0, -9.81, 0]
substeps: 4
iterations: 8
workers: 3
restitution: 0.25
sleep:
  enabled: false
`)

	cfg, err := ParseConfig(data)
	if err != nil {
		t.Fatalf("ParseConfig() error = %v", err)
	}

	if !vec3AlmostEqual(cfg.Gravity, mgl64.Vec3{0, -9.81, 0}, 1e-12) {
		t.Errorf("ParseConfig() gravity = %v, want (0, -9.81, 0)", cfg.Gravity)
	}
	if cfg.Substeps != 4 || cfg.Iterations != 8 || cfg.Workers != 3 {
		t.Errorf("ParseConfig() substeps/iterations/workers = %d/%d/%d, want 4/8/3", cfg.Substeps, cfg.Iterations, cfg.Workers)
	}
	if cfg.Restitution != 0.25 {
		t.Errorf("ParseConfig() restitution = %v, want 0.25", cfg.Restitution)
	}
	if cfg.Sleep.Enabled {
		t.Error("ParseConfig() sleep.enabled = true, want false")
	}

	// omitted keys keep their default
	defaults := DefaultConfig()
	if cfg.CellSize != defaults.CellSize || cfg.Sleep.TimeThreshold != defaults.Sleep.TimeThreshold {
		t.Errorf("ParseConfig() changed omitted keys: cell_size %v, sleep.time_threshold %v", cfg.CellSize, cfg.Sleep.TimeThreshold)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"zero substeps", func(c *Config) { c.Substeps = 0 }},
		{"zero iterations", func(c *Config) { c.Iterations = 0 }},
		{"zero workers", func(c *Config) { c.Workers = 0 }},
		{"negative cell size", func(c *Config) { c.CellSize = -1 }},
		{"no cells", func(c *Config) { c.NumCells = 0 }},
		{"negative thickness", func(c *Config) { c.Thickness = -0.1 }},
		{"stiffness above one", func(c *Config) { c.SpringStiffness = 1.5 }},
		{"restitution above one", func(c *Config) { c.Restitution = 2 }},
		{"negative friction", func(c *Config) { c.DynamicFriction = -0.1 }},
		{"nan gravity", func(c *Config) { c.Gravity = mgl64.Vec3{0, math.NaN(), 0} }},
		{"infinite gravity", func(c *Config) { c.Gravity = mgl64.Vec3{0, 0, math.Inf(-1)} }},
		{"negative sleep time", func(c *Config) { c.Sleep.TimeThreshold = -1 }},
		{"zero levelset resolution", func(c *Config) { c.LevelSetResolution = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("Validate() = %v, want ErrInvalidConfig", err)
			}
		})
	}
}

func TestParseConfigErrors(t *testing.T) {
	if _, err := ParseConfig([]byte("substeps: [1, 2")); err == nil {
		t.Error("ParseConfig() accepted malformed YAML")
	}

	_, err := ParseConfig([]byte("substeps: 0\nworkers: -2\n"))
	if !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("ParseConfig() error = %v, want ErrInvalidConfig", err)
	}
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "solver.yaml")
	if err := os.WriteFile(path, []byte("iterations: 6\nthickness: 0.02\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.Iterations != 6 || cfg.Thickness != 0.02 {
		t.Errorf("LoadConfig() iterations/thickness = %d/%v, want 6/0.02", cfg.Iterations, cfg.Thickness)
	}

	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("LoadConfig() of a missing file should fail")
	}
}
