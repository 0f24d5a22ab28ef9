package apeiron

import (
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/go-gl/mathgl/mgl64"
	"gopkg.in/yaml.v3"
)

const DEFAULT_WORKERS = 1

var ErrInvalidConfig = errors.New("invalid config")

// Config holds the solver tuning. The zero value is not usable, start from DefaultConfig.
type Config struct {
	// Gravity acceleration (m/s², or N/kg)
	Gravity    mgl64.Vec3 `yaml:"gravity"`
	Substeps   int        `yaml:"substeps"`
	Iterations int        `yaml:"iterations"`
	Workers    int        `yaml:"workers"`

	CellSize float64 `yaml:"cell_size"`
	NumCells int     `yaml:"num_cells"`
	// Thickness inflates bounds and contact detection
	Thickness float64 `yaml:"thickness"`

	SpringStiffness float64 `yaml:"spring_stiffness"`
	Compliance      float64 `yaml:"compliance"`
	Restitution     float64 `yaml:"restitution"`
	StaticFriction  float64 `yaml:"static_friction"`
	DynamicFriction float64 `yaml:"dynamic_friction"`

	LinearDamping  float64 `yaml:"linear_damping"`
	AngularDamping float64 `yaml:"angular_damping"`

	Sleep SleepConfig `yaml:"sleep"`

	LevelSetResolution int `yaml:"levelset_resolution"`
}

type SleepConfig struct {
	Enabled           bool    `yaml:"enabled"`
	VelocityThreshold float64 `yaml:"velocity_threshold"`
	TimeThreshold     float64 `yaml:"time_threshold"`
}

func DefaultConfig() Config {
	return Config{
		Gravity:            mgl64.Vec3{0, 0, -9.8},
		Substeps:           1,
		Iterations:         1,
		Workers:            DEFAULT_WORKERS,
		CellSize:           2,
		NumCells:           1024,
		Thickness:          0.01,
		SpringStiffness:    1,
		Compliance:         1e-7,
		Restitution:        0,
		StaticFriction:     0.5,
		DynamicFriction:    0.3,
		LinearDamping:      0,
		AngularDamping:     0,
		Sleep:              SleepConfig{Enabled: true, VelocityThreshold: 0.05, TimeThreshold: 0.5},
		LevelSetResolution: 10,
	}
}

// LoadConfig reads a YAML file; keys it omits keep their default value
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}

	return ParseConfig(data)
}

func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format+": %w", append(args, ErrInvalidConfig)...))
		}
	}

	for axis := 0; axis < 3; axis++ {
		check(!math.IsNaN(c.Gravity[axis]) && !math.IsInf(c.Gravity[axis], 0), "gravity %v", c.Gravity)
	}
	check(c.Substeps >= 1, "substeps %d", c.Substeps)
	check(c.Iterations >= 1, "iterations %d", c.Iterations)
	check(c.Workers >= 1, "workers %d", c.Workers)
	check(c.CellSize > 0, "cell_size %v", c.CellSize)
	check(c.NumCells >= 1, "num_cells %d", c.NumCells)
	check(c.Thickness >= 0, "thickness %v", c.Thickness)
	check(c.SpringStiffness > 0 && c.SpringStiffness <= 1, "spring_stiffness %v", c.SpringStiffness)
	check(c.Compliance >= 0, "compliance %v", c.Compliance)
	check(c.Restitution >= 0 && c.Restitution <= 1, "restitution %v", c.Restitution)
	check(c.StaticFriction >= 0, "static_friction %v", c.StaticFriction)
	check(c.DynamicFriction >= 0, "dynamic_friction %v", c.DynamicFriction)
	check(c.LinearDamping >= 0, "linear_damping %v", c.LinearDamping)
	check(c.AngularDamping >= 0, "angular_damping %v", c.AngularDamping)
	check(c.Sleep.VelocityThreshold >= 0, "sleep.velocity_threshold %v", c.Sleep.VelocityThreshold)
	check(c.Sleep.TimeThreshold >= 0, "sleep.time_threshold %v", c.Sleep.TimeThreshold)
	check(c.LevelSetResolution >= 1, "levelset_resolution %d", c.LevelSetResolution)

	return errors.Join(errs...)
}
