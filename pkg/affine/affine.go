// Package affine maps points between voxel-index space and world (scanner)
// space with 4x4 homogeneous transforms.
package affine

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"

	"localtrack/internal/models"
)

// Affine is a 4x4 homogeneous transform whose last row is (0, 0, 0, 1)
type Affine struct {
	m *mat.Dense
}

// Identity returns the identity transform
func Identity() *Affine {
	m := mat.NewDense(4, 4, nil)
	for i := 0; i < 4; i++ {
		m.Set(i, i, 1)
	}
	return &Affine{m: m}
}

// FromVoxelSize returns a scaling transform from voxel indices to mm
func FromVoxelSize(vs models.VoxelSize) *Affine {
	a := Identity()
	a.m.Set(0, 0, vs.X)
	a.m.Set(1, 1, vs.Y)
	a.m.Set(2, 2, vs.Z)
	return a
}

// FromRows builds a transform from its first three rows. A nil or empty
// rows value yields the identity.
func FromRows(rows [][]float64) (*Affine, error) {
	if len(rows) == 0 {
		return Identity(), nil
	}
	if len(rows) != 3 && len(rows) != 4 {
		return nil, fmt.Errorf("%w: affine needs 3 or 4 rows, got %d", models.ErrConfiguration, len(rows))
	}
	a := Identity()
	for i, row := range rows {
		if len(row) != 4 {
			return nil, fmt.Errorf("%w: affine row %d has %d values, want 4", models.ErrConfiguration, i, len(row))
		}
		for j, v := range row {
			a.m.Set(i, j, v)
		}
	}
	if len(rows) == 4 && (a.m.At(3, 0) != 0 || a.m.At(3, 1) != 0 || a.m.At(3, 2) != 0 || a.m.At(3, 3) != 1) {
		return nil, fmt.Errorf("%w: affine last row must be [0 0 0 1]", models.ErrConfiguration)
	}
	return a, nil
}

// At returns element (i, j) of the matrix
func (a *Affine) At(i, j int) float64 {
	return a.m.At(i, j)
}

// Apply transforms a single point
func (a *Affine) Apply(p r3.Vec) r3.Vec {
	m := a.m
	return r3.Vec{
		X: m.At(0, 0)*p.X + m.At(0, 1)*p.Y + m.At(0, 2)*p.Z + m.At(0, 3),
		Y: m.At(1, 0)*p.X + m.At(1, 1)*p.Y + m.At(1, 2)*p.Z + m.At(1, 3),
		Z: m.At(2, 0)*p.X + m.At(2, 1)*p.Y + m.At(2, 2)*p.Z + m.At(2, 3),
	}
}

// Inverse returns the inverse transform
func (a *Affine) Inverse() (*Affine, error) {
	var inv mat.Dense
	if err := inv.Inverse(a.m); err != nil {
		return nil, fmt.Errorf("%w: affine is not invertible: %v", models.ErrConfiguration, err)
	}
	return &Affine{m: &inv}, nil
}

// Streamline returns a transformed copy of s
func (a *Affine) Streamline(s models.Streamline) models.Streamline {
	out := make(models.Streamline, len(s))
	for i, p := range s {
		out[i] = a.Apply(p)
	}
	return out
}

// Streamlines transforms every streamline in sls
func (a *Affine) Streamlines(sls []models.Streamline) []models.Streamline {
	out := make([]models.Streamline, len(sls))
	for i, s := range sls {
		out[i] = a.Streamline(s)
	}
	return out
}
