// Package seeds places tracking seeds inside a mask at a sub-voxel density.
package seeds

import (
	"fmt"
	"iter"
	"slices"

	"gonum.org/v1/gonum/spatial/r3"

	"localtrack/internal/models"
	"localtrack/pkg/tracking"
)

// FromMask returns density[0]*density[1]*density[2] evenly spaced seeds in
// every voxel where mask is non-zero. Seeds are ordered by voxel in storage
// order (x fastest) and, within a voxel, x fastest as well. Offsets are
// (k+0.5)/d - 0.5 voxel along each axis, so a density of 1 seeds voxel centres.
//
// With a density above 1, mask voxels on the border of the grid get seeds
// outside the sampling bounds [0, dim-1]. Those seeds classify as
// OUTSIDEIMAGE and produce one-point streamlines.
func FromMask(mask *models.Volume, density [3]int) ([]tracking.Seed, error) {
	if err := mask.Validate(); err != nil {
		return nil, fmt.Errorf("seed mask: %w", err)
	}
	for axis, d := range density {
		if d <= 0 {
			return nil, fmt.Errorf("%w: seed density must be positive on every axis, got %d on axis %d",
				models.ErrConfiguration, d, axis)
		}
	}

	offsets := [3][]float64{}
	for axis, d := range density {
		offsets[axis] = make([]float64, d)
		for k := 0; k < d; k++ {
			offsets[axis][k] = (float64(k)+0.5)/float64(d) - 0.5
		}
	}

	var out []tracking.Seed
	for z := 0; z < mask.Depth; z++ {
		for y := 0; y < mask.Height; y++ {
			for x := 0; x < mask.Width; x++ {
				if mask.At(x, y, z) == 0 {
					continue
				}
				for _, oz := range offsets[2] {
					for _, oy := range offsets[1] {
						for _, ox := range offsets[0] {
							out = append(out, tracking.Seed{Position: r3.Vec{
								X: float64(x) + ox,
								Y: float64(y) + oy,
								Z: float64(z) + oz,
							}})
						}
					}
				}
			}
		}
	}
	return out, nil
}

// Uniform returns a density of n seeds along each axis
func Uniform(n int) [3]int {
	return [3]int{n, n, n}
}

// Seq adapts a seed list to the lazy sequence consumed by tracking.Engine
func Seq(seeds []tracking.Seed) iter.Seq[tracking.Seed] {
	return slices.Values(seeds)
}
