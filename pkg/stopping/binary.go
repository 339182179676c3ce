package stopping

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"

	"localtrack/internal/models"
	"localtrack/pkg/interpolation"
)

// Binary stops tracking when the position leaves a mask. The mask is read
// with nearest-neighbour lookup; any non-zero voxel is inside.
//
// It never produces InvalidPoint.
type Binary struct {
	mask *models.Volume
}

// NewBinary creates a binary classifier over mask
func NewBinary(mask *models.Volume) (*Binary, error) {
	if err := mask.Validate(); err != nil {
		return nil, fmt.Errorf("binary classifier mask: %w", err)
	}
	return &Binary{mask: mask}, nil
}

// Classify returns EndPoint when the nearest voxel is outside the mask
func (c *Binary) Classify(p r3.Vec) State {
	value, ok := interpolation.Nearest(c.mask, p)
	if !ok {
		return OutsideImage
	}
	if value == 0 {
		return EndPoint
	}
	return TrackPoint
}
