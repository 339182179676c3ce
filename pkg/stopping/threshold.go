package stopping

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"localtrack/internal/models"
	"localtrack/pkg/interpolation"
)

// Threshold stops tracking where a scalar metric (typically FA) drops below
// a fixed cutoff. The metric is sampled with trilinear interpolation.
//
// It never produces InvalidPoint.
type Threshold struct {
	metric    *models.Volume
	threshold float64
}

// NewThreshold creates a threshold classifier over metric
func NewThreshold(metric *models.Volume, threshold float64) (*Threshold, error) {
	if err := metric.Validate(); err != nil {
		return nil, fmt.Errorf("threshold classifier metric map: %w", err)
	}
	if math.IsNaN(threshold) || math.IsInf(threshold, 0) {
		return nil, fmt.Errorf("%w: threshold must be finite, got %v", models.ErrConfiguration, threshold)
	}
	return &Threshold{metric: metric, threshold: threshold}, nil
}

// Classify returns EndPoint where the interpolated metric is strictly below
// the threshold. A value equal to the threshold keeps tracking.
func (c *Threshold) Classify(p r3.Vec) State {
	value, ok := interpolation.Trilinear(c.metric, p)
	if !ok {
		return OutsideImage
	}
	if value < c.threshold {
		return EndPoint
	}
	return TrackPoint
}
