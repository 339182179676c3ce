package direction

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"

	"localtrack/internal/models"
	"localtrack/pkg/interpolation"
)

// TensorComponents is the number of values stored per voxel in a tensor
// field, in the order Dxx, Dxy, Dxz, Dyy, Dyz, Dzz.
const TensorComponents = 6

// Tensor follows the principal eigenvector of a diffusion tensor field
type Tensor struct {
	field  *models.VectorVolume
	minCos float64
}

// NewTensor creates a getter over a fitted tensor field
func NewTensor(field *models.VectorVolume, maxAngle float64) (*Tensor, error) {
	if err := field.Validate(); err != nil {
		return nil, fmt.Errorf("tensor field: %w", err)
	}
	if field.Components != TensorComponents {
		return nil, fmt.Errorf("%w: tensor field needs %d components, got %d",
			models.ErrConfiguration, TensorComponents, field.Components)
	}
	if maxAngle < 0 || maxAngle > 90 {
		return nil, fmt.Errorf("%w: max angle must be within [0, 90] degrees, got %v",
			models.ErrConfiguration, maxAngle)
	}
	return &Tensor{field: field, minCos: cosLimit(maxAngle)}, nil
}

// NextDirection uses the tensor of the voxel nearest to p
func (g *Tensor) NextDirection(p, prev r3.Vec) (r3.Vec, bool) {
	x, y, z, ok := interpolation.NearestVoxel(g.field.Dims(), p)
	if !ok {
		return r3.Vec{}, false
	}

	values, vectors, ok := eigen(g.field.Voxel(x, y, z))
	if !ok || values[2] <= 0 {
		return r3.Vec{}, false
	}
	principal, ok := normalize(vectors[2])
	if !ok {
		return r3.Vec{}, false
	}

	return align([]r3.Vec{principal}, prev, g.minCos)
}

// eigen decomposes a packed symmetric tensor. Eigenvalues are returned in
// ascending order with their matching eigenvectors.
func eigen(d []float64) ([3]float64, [3]r3.Vec, bool) {
	var values [3]float64
	var vectors [3]r3.Vec

	for _, v := range d {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return values, vectors, false
		}
	}

	sym := mat.NewSymDense(3, []float64{
		d[0], d[1], d[2],
		d[1], d[3], d[4],
		d[2], d[4], d[5],
	})

	var es mat.EigenSym
	if !es.Factorize(sym, true) {
		return values, vectors, false
	}
	es.Values(values[:])

	var ev mat.Dense
	es.VectorsTo(&ev)
	for i := 0; i < 3; i++ {
		vectors[i] = r3.Vec{X: ev.At(0, i), Y: ev.At(1, i), Z: ev.At(2, i)}
	}
	return values, vectors, true
}

// FractionalAnisotropy computes the FA map of a tensor field. Voxels whose
// tensor is zero or cannot be decomposed get FA 0.
func FractionalAnisotropy(field *models.VectorVolume) (*models.Volume, error) {
	if err := field.Validate(); err != nil {
		return nil, fmt.Errorf("tensor field: %w", err)
	}
	if field.Components != TensorComponents {
		return nil, fmt.Errorf("%w: tensor field needs %d components, got %d",
			models.ErrConfiguration, TensorComponents, field.Components)
	}

	fa := models.NewVolume(field.Width, field.Height, field.Depth)
	for z := 0; z < field.Depth; z++ {
		for y := 0; y < field.Height; y++ {
			for x := 0; x < field.Width; x++ {
				values, _, ok := eigen(field.Voxel(x, y, z))
				if !ok {
					continue
				}
				fa.Set(x, y, z, anisotropy(values))
			}
		}
	}
	return fa, nil
}

// anisotropy is FA = sqrt(1/2) * sqrt(sum (li - lj)^2) / sqrt(sum li^2)
func anisotropy(l [3]float64) float64 {
	den := l[0]*l[0] + l[1]*l[1] + l[2]*l[2]
	if den == 0 {
		return 0
	}
	num := (l[0]-l[1])*(l[0]-l[1]) + (l[1]-l[2])*(l[1]-l[2]) + (l[2]-l[0])*(l[2]-l[0])
	return math.Sqrt(0.5 * num / den)
}
