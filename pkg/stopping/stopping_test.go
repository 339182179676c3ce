package stopping

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"localtrack/internal/models"
)

func filledVolume(n int, value float64) *models.Volume {
	v := models.NewVolume(n, n, n)
	v.Fill(value)
	return v
}

// interiorPositions samples a coarse lattice of in-bounds positions
func interiorPositions(n int) []r3.Vec {
	var out []r3.Vec
	max := float64(n - 1)
	for x := 0.0; x <= max; x += 0.75 {
		for y := 0.0; y <= max; y += 1.3 {
			for z := 0.0; z <= max; z += 0.5 {
				out = append(out, r3.Vec{X: x, Y: y, Z: z})
			}
		}
	}
	return out
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "TRACKPOINT", TrackPoint.String())
	assert.Equal(t, "ENDPOINT", EndPoint.String())
	assert.Equal(t, "INVALIDPOINT", InvalidPoint.String())
	assert.Equal(t, "OUTSIDEIMAGE", OutsideImage.String())
	assert.Equal(t, "State(9)", State(9).String())
}

func TestStateValid(t *testing.T) {
	assert.True(t, EndPoint.Valid())
	assert.True(t, OutsideImage.Valid())
	assert.False(t, TrackPoint.Valid())
	assert.False(t, InvalidPoint.Valid())
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind(" ACT ")
	require.NoError(t, err)
	assert.Equal(t, KindACT, k)

	_, err = ParseKind("cmc")
	assert.Error(t, err)
}

func TestThresholdAllZeroIsEndPoint(t *testing.T) {
	c, err := NewThreshold(filledVolume(5, 0), 0.1)
	require.NoError(t, err)

	for _, p := range interiorPositions(5) {
		assert.Equal(t, EndPoint, c.Classify(p), "position %v", p)
	}
}

func TestThresholdAllOnesIsTrackPoint(t *testing.T) {
	c, err := NewThreshold(filledVolume(5, 1), 0.1)
	require.NoError(t, err)

	for _, p := range interiorPositions(5) {
		assert.Equal(t, TrackPoint, c.Classify(p), "position %v", p)
	}
}

func TestThresholdBoundaries(t *testing.T) {
	metric := models.NewVolume(3, 1, 1)
	metric.Set(0, 0, 0, 0.2)
	metric.Set(1, 0, 0, 0.2)
	metric.Set(2, 0, 0, 0.0)

	c, err := NewThreshold(metric, 0.2)
	require.NoError(t, err)

	// Equal to the threshold keeps tracking
	assert.Equal(t, TrackPoint, c.Classify(r3.Vec{X: 1}))
	// Interpolated below the threshold
	assert.Equal(t, EndPoint, c.Classify(r3.Vec{X: 1.5}))
	// The last voxel is still inside the image
	assert.Equal(t, EndPoint, c.Classify(r3.Vec{X: 2}))
	assert.Equal(t, OutsideImage, c.Classify(r3.Vec{X: 2.01}))
	assert.Equal(t, OutsideImage, c.Classify(r3.Vec{X: -0.01}))
	assert.Equal(t, OutsideImage, c.Classify(r3.Vec{X: math.NaN()}))
}

func TestThresholdConfiguration(t *testing.T) {
	_, err := NewThreshold(filledVolume(2, 1), math.NaN())
	assert.ErrorIs(t, err, models.ErrConfiguration)

	_, err = NewThreshold(filledVolume(2, 1), math.Inf(-1))
	assert.ErrorIs(t, err, models.ErrConfiguration)

	_, err = NewThreshold(nil, 0.2)
	assert.ErrorIs(t, err, models.ErrConfiguration)
}

func TestBinaryNearestNeighbour(t *testing.T) {
	mask := models.NewVolume(2, 1, 1)
	mask.Set(0, 0, 0, 1)

	c, err := NewBinary(mask)
	require.NoError(t, err)

	// Close to the false neighbour, but the nearest cell is still true
	assert.Equal(t, TrackPoint, c.Classify(r3.Vec{X: 0.49}))
	// Close to the true neighbour, but the nearest cell is false
	assert.Equal(t, EndPoint, c.Classify(r3.Vec{X: 0.51}))
	assert.Equal(t, EndPoint, c.Classify(r3.Vec{X: 1}))
	assert.Equal(t, OutsideImage, c.Classify(r3.Vec{X: 1.2}))
	assert.Equal(t, OutsideImage, c.Classify(r3.Vec{Y: 0.5}))
}

func TestACTStates(t *testing.T) {
	tests := []struct {
		name             string
		include, exclude float64
		want             State
	}{
		{"both set: exclude wins", 1, 1, InvalidPoint},
		{"exclude only", 0, 0.8, InvalidPoint},
		{"include only", 0.9, 0.1, EndPoint},
		{"neither", 0.3, 0.3, TrackPoint},
		{"exactly at cutoff", 0.5, 0.5, TrackPoint},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewACT(filledVolume(3, tt.include), filledVolume(3, tt.exclude))
			require.NoError(t, err)
			assert.Equal(t, tt.want, c.Classify(r3.Vec{X: 1.2, Y: 0.4, Z: 1.9}))
		})
	}
}

func TestACTOutsideImage(t *testing.T) {
	c, err := NewACT(filledVolume(3, 1), filledVolume(3, 1))
	require.NoError(t, err)

	assert.Equal(t, OutsideImage, c.Classify(r3.Vec{X: 3}))
	assert.Equal(t, OutsideImage, c.Classify(r3.Vec{Z: -1}))
}

func TestACTConfiguration(t *testing.T) {
	_, err := NewACT(filledVolume(3, 0), filledVolume(4, 0))
	assert.ErrorIs(t, err, models.ErrConfiguration)

	_, err = NewACT(filledVolume(3, 0), nil)
	assert.ErrorIs(t, err, models.ErrConfiguration)
}

func TestClassifiersSatisfyCriterion(t *testing.T) {
	var _ Criterion = (*Threshold)(nil)
	var _ Criterion = (*Binary)(nil)
	var _ Criterion = (*ACT)(nil)
}
