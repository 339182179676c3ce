package stopping

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"

	"localtrack/internal/models"
	"localtrack/pkg/interpolation"
)

// actCutoff is the partial volume fraction above which a map is considered hit
const actCutoff = 0.5

// ACT implements anatomically-constrained tractography stopping. The include
// map marks valid stopping regions (gray matter and background), the exclude
// map marks implausible ones (CSF). Both are sampled trilinearly.
type ACT struct {
	include *models.Volume
	exclude *models.Volume
}

// NewACT creates an ACT classifier. Both maps must share the same grid.
func NewACT(include, exclude *models.Volume) (*ACT, error) {
	if err := include.Validate(); err != nil {
		return nil, fmt.Errorf("ACT include map: %w", err)
	}
	if err := exclude.Validate(); err != nil {
		return nil, fmt.Errorf("ACT exclude map: %w", err)
	}
	if !include.SameShape(exclude) {
		return nil, fmt.Errorf("%w: ACT maps differ in shape: include %v, exclude %v",
			models.ErrConfiguration, include.Dims(), exclude.Dims())
	}
	return &ACT{include: include, exclude: exclude}, nil
}

// Classify checks the exclude map before the include map, so a position
// that is both implausible and a valid target is reported as InvalidPoint.
func (c *ACT) Classify(p r3.Vec) State {
	incl, ok := interpolation.Trilinear(c.include, p)
	if !ok {
		return OutsideImage
	}
	excl, ok := interpolation.Trilinear(c.exclude, p)
	if !ok {
		return OutsideImage
	}

	switch {
	case excl > actCutoff:
		return InvalidPoint
	case incl > actCutoff:
		return EndPoint
	default:
		return TrackPoint
	}
}
