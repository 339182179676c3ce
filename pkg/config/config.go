// Package config provides configuration loading and management for localtrack.
// It handles loading configuration from YAML files and provides default values.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"

	"localtrack/internal/models"
	"localtrack/pkg/stopping"
	"localtrack/pkg/tracking"
)

// Direction getter kinds
const (
	DirectionPeaks  = "peaks"
	DirectionTensor = "tensor"
)

// Config represents the application configuration loaded from YAML
type Config struct {
	// Tracking parameters
	Tracking struct {
		// StepSize is the integration step in voxels
		StepSize float64 `yaml:"stepSize"`

		// MaxSteps caps the points added in each direction from a seed
		MaxSteps int `yaml:"maxSteps"`

		// ReturnAll keeps streamlines that do not end in a valid state
		ReturnAll bool `yaml:"returnAll"`

		// Workers specifies how many seeds are tracked concurrently
		Workers int `yaml:"workers"`

		// OutputSpace is "voxel" or "world"
		OutputSpace string `yaml:"outputSpace"`
	} `yaml:"tracking"`

	// Classifier parameters
	Classifier struct {
		// Kind is one of threshold, binary or act
		Kind string `yaml:"kind"`

		// Threshold is the metric cutoff used by the threshold classifier
		Threshold float64 `yaml:"threshold"`

		// MetricMap is the scalar map thresholded by the threshold classifier.
		// With a tensor direction field it may be left empty to threshold FA.
		MetricMap string `yaml:"metricMap"`

		// Mask is the tracking mask used by the binary classifier
		Mask string `yaml:"mask"`

		// IncludeMap and ExcludeMap are the partial volume maps used by act
		IncludeMap string `yaml:"includeMap"`
		ExcludeMap string `yaml:"excludeMap"`
	} `yaml:"classifier"`

	// Direction field parameters
	Direction struct {
		// Kind is peaks or tensor
		Kind string `yaml:"kind"`

		// Field is the raw vector volume holding peaks or tensor components
		Field string `yaml:"field"`

		// NumPeaks is the number of peaks stored per voxel
		NumPeaks int `yaml:"numPeaks"`

		// MaxAngle is the largest turn allowed between steps, in degrees
		MaxAngle float64 `yaml:"maxAngle"`
	} `yaml:"direction"`

	// Reference grid shared by every input map
	Volume struct {
		Dims      [3]int      `yaml:"dims"`
		VoxelSize [3]float64  `yaml:"voxelSize"`
		Affine    [][]float64 `yaml:"affine,omitempty"`
	} `yaml:"volume"`

	// Seeding parameters
	Seeds struct {
		// Mask selects the voxels that receive seeds
		Mask string `yaml:"mask"`

		// Density is the number of seeds per voxel along each axis
		Density int `yaml:"density"`
	} `yaml:"seeds"`

	// Output parameters
	Output struct {
		// Tractogram is the .trk file written by the track command
		Tractogram string `yaml:"tractogram"`

		// Summary is an optional YAML run summary
		Summary string `yaml:"summary"`

		// Verbose enables debug logging
		Verbose bool `yaml:"verbose"`
	} `yaml:"output"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Tracking.StepSize = 0.5
	cfg.Tracking.MaxSteps = 500
	cfg.Tracking.ReturnAll = false
	cfg.Tracking.Workers = runtime.NumCPU()
	cfg.Tracking.OutputSpace = string(tracking.VoxelSpace)

	cfg.Classifier.Kind = string(stopping.KindThreshold)
	cfg.Classifier.Threshold = 0.2
	cfg.Classifier.MetricMap = "fa.bin"

	cfg.Direction.Kind = DirectionPeaks
	cfg.Direction.Field = "peaks.bin"
	cfg.Direction.NumPeaks = 1
	cfg.Direction.MaxAngle = 60

	cfg.Volume.Dims = [3]int{1, 1, 1}
	cfg.Volume.VoxelSize = [3]float64{1, 1, 1}

	cfg.Seeds.Mask = "seeds.bin"
	cfg.Seeds.Density = 1

	cfg.Output.Tractogram = "tracks.trk"
	cfg.Output.Summary = "summary.yaml"
	cfg.Output.Verbose = false

	return cfg
}

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the specified path
func CreateDefaultConfigFile(configPath string) error {
	cfg := DefaultConfig()
	return SaveConfig(cfg, configPath)
}

// Validate checks that the configuration describes a runnable tracking job.
// Values are checked for shape only; the maps themselves are validated when loaded.
func (c *Config) Validate() error {
	if c.Tracking.StepSize <= 0 {
		return invalid("tracking.stepSize must be positive, got %v", c.Tracking.StepSize)
	}
	if c.Tracking.MaxSteps <= 0 {
		return invalid("tracking.maxSteps must be positive, got %d", c.Tracking.MaxSteps)
	}
	if c.Tracking.Workers < 0 {
		return invalid("tracking.workers must not be negative, got %d", c.Tracking.Workers)
	}
	switch tracking.Space(c.Tracking.OutputSpace) {
	case "", tracking.VoxelSpace, tracking.WorldSpace:
	default:
		return invalid("tracking.outputSpace must be voxel or world, got %q", c.Tracking.OutputSpace)
	}

	kind, err := stopping.ParseKind(c.Classifier.Kind)
	if err != nil {
		return invalid("classifier.kind: %v", err)
	}
	switch kind {
	case stopping.KindThreshold:
		// A tensor field can supply its own FA map
		if c.Classifier.MetricMap == "" && !strings.EqualFold(c.Direction.Kind, DirectionTensor) {
			return invalid("classifier.metricMap is required for the threshold classifier")
		}
	case stopping.KindBinary:
		if c.Classifier.Mask == "" {
			return invalid("classifier.mask is required for the binary classifier")
		}
	case stopping.KindACT:
		if c.Classifier.IncludeMap == "" || c.Classifier.ExcludeMap == "" {
			return invalid("classifier.includeMap and classifier.excludeMap are required for act")
		}
	}

	switch strings.ToLower(c.Direction.Kind) {
	case DirectionPeaks:
		if c.Direction.NumPeaks <= 0 {
			return invalid("direction.numPeaks must be positive, got %d", c.Direction.NumPeaks)
		}
	case DirectionTensor:
	default:
		return invalid("direction.kind must be peaks or tensor, got %q", c.Direction.Kind)
	}
	if c.Direction.Field == "" {
		return invalid("direction.field is required")
	}
	if c.Direction.MaxAngle < 0 || c.Direction.MaxAngle > 90 {
		return invalid("direction.maxAngle must be within [0, 90], got %v", c.Direction.MaxAngle)
	}

	for i, d := range c.Volume.Dims {
		if d <= 0 {
			return invalid("volume.dims[%d] must be positive, got %d", i, d)
		}
	}
	for i, s := range c.Volume.VoxelSize {
		if s <= 0 {
			return invalid("volume.voxelSize[%d] must be positive, got %v", i, s)
		}
	}
	if n := len(c.Volume.Affine); n != 0 && n != 3 && n != 4 {
		return invalid("volume.affine must have 3 or 4 rows, got %d", n)
	}
	if tracking.Space(c.Tracking.OutputSpace) == tracking.WorldSpace && len(c.Volume.Affine) == 0 {
		return invalid("world output space requires volume.affine")
	}

	if c.Seeds.Mask == "" {
		return invalid("seeds.mask is required")
	}
	if c.Seeds.Density <= 0 {
		return invalid("seeds.density must be positive, got %d", c.Seeds.Density)
	}
	if c.Output.Tractogram == "" {
		return invalid("output.tractogram is required")
	}

	return nil
}

// VoxelSize returns the configured voxel size
func (c *Config) VoxelSize() models.VoxelSize {
	vs := c.Volume.VoxelSize
	return models.VoxelSize{X: vs[0], Y: vs[1], Z: vs[2]}
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", models.ErrConfiguration, fmt.Sprintf(format, args...))
}
