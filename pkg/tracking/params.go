package tracking

import (
	"fmt"
	"math"
	"runtime"

	"github.com/sirupsen/logrus"

	"localtrack/internal/models"
	"localtrack/pkg/affine"
)

// Space names the coordinate space of the streamlines handed out by the engine
type Space string

const (
	// VoxelSpace keeps points in continuous voxel-index coordinates
	VoxelSpace Space = "voxel"
	// WorldSpace maps points through the reference affine
	WorldSpace Space = "world"
)

// Params holds the tracking configuration. All values are fixed for the
// duration of a run.
type Params struct {
	// StepSize is the Euler integration step in voxel units
	StepSize float64

	// MaxSteps caps the number of points added in each direction from a seed.
	// A direction that reaches the cap halts as TRACKPOINT.
	MaxSteps int

	// ReturnAll yields every streamline, including invalid ones. When false
	// only streamlines whose both ends are ENDPOINT or OUTSIDEIMAGE are kept.
	ReturnAll bool

	// Workers is the number of seeds tracked concurrently. 1 tracks
	// sequentially on the caller's goroutine.
	Workers int

	// OutputSpace selects the coordinate space of yielded streamlines
	OutputSpace Space

	// Affine maps voxel indices to world coordinates. Required for WorldSpace.
	Affine *affine.Affine

	// Logger receives diagnostics. Defaults to the logrus standard logger.
	Logger logrus.FieldLogger
}

// DefaultParams returns half-voxel steps, a 500 point cap per direction and
// one worker per CPU.
func DefaultParams() Params {
	return Params{
		StepSize:    0.5,
		MaxSteps:    500,
		ReturnAll:   true,
		Workers:     runtime.NumCPU(),
		OutputSpace: VoxelSpace,
	}
}

// Validate checks the parameters and fills in defaults for optional fields
func (p *Params) Validate() error {
	if math.IsNaN(p.StepSize) || math.IsInf(p.StepSize, 0) || p.StepSize <= 0 {
		return fmt.Errorf("%w: step size must be positive and finite, got %v", models.ErrConfiguration, p.StepSize)
	}
	if p.MaxSteps <= 0 {
		return fmt.Errorf("%w: max steps must be positive, got %d", models.ErrConfiguration, p.MaxSteps)
	}
	if p.Workers <= 0 {
		p.Workers = 1
	}

	switch p.OutputSpace {
	case "":
		p.OutputSpace = VoxelSpace
	case VoxelSpace:
	case WorldSpace:
		if p.Affine == nil {
			return fmt.Errorf("%w: world output space needs an affine", models.ErrConfiguration)
		}
	default:
		return fmt.Errorf("%w: unknown output space %q", models.ErrConfiguration, p.OutputSpace)
	}

	if p.Logger == nil {
		p.Logger = logrus.StandardLogger()
	}
	return nil
}
