package direction

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"

	"localtrack/internal/models"
	"localtrack/pkg/interpolation"
)

// Peaks follows a precomputed field of fiber orientation peaks, in the
// manner of EuDX. Each voxel stores NumPeaks direction vectors (3 components
// each, strongest first); all-zero vectors mark absent peaks.
type Peaks struct {
	field    *models.VectorVolume
	numPeaks int
	minCos   float64
}

// NewPeaks creates a peak-following getter. maxAngle bounds, in degrees, the
// turn allowed between consecutive steps; 0 disables the bound.
func NewPeaks(field *models.VectorVolume, maxAngle float64) (*Peaks, error) {
	if err := field.Validate(); err != nil {
		return nil, fmt.Errorf("peak field: %w", err)
	}
	if field.Components%3 != 0 {
		return nil, fmt.Errorf("%w: peak field needs a multiple of 3 components, got %d",
			models.ErrConfiguration, field.Components)
	}
	if maxAngle < 0 || maxAngle > 90 {
		return nil, fmt.Errorf("%w: max angle must be within [0, 90] degrees, got %v",
			models.ErrConfiguration, maxAngle)
	}
	return &Peaks{
		field:    field,
		numPeaks: field.Components / 3,
		minCos:   cosLimit(maxAngle),
	}, nil
}

// NextDirection looks up the peaks of the voxel nearest to p
func (g *Peaks) NextDirection(p, prev r3.Vec) (r3.Vec, bool) {
	x, y, z, ok := interpolation.NearestVoxel(g.field.Dims(), p)
	if !ok {
		return r3.Vec{}, false
	}

	vox := g.field.Voxel(x, y, z)
	candidates := make([]r3.Vec, 0, g.numPeaks)
	for i := 0; i < g.numPeaks; i++ {
		peak, ok := normalize(r3.Vec{X: vox[3*i], Y: vox[3*i+1], Z: vox[3*i+2]})
		if ok {
			candidates = append(candidates, peak)
		}
	}

	return align(candidates, prev, g.minCos)
}
