// Package interpolation samples 3D voxel maps at continuous positions.
//
// Positions are expressed in voxel-index space: the centre of voxel (i, j, k)
// sits at (i, j, k). A position is inside a map when every coordinate lies in
// [0, dim-1], which is the region where trilinear interpolation has all eight
// neighbouring cells available. The same bounds are used for nearest-neighbour
// sampling so that every sampling mode agrees on what "outside the image" means.
package interpolation

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"localtrack/internal/models"
)

// InBounds reports whether p lies inside a grid of the given dimensions.
// Non-finite coordinates are always out of bounds.
func InBounds(dims [3]int, p r3.Vec) bool {
	return axisInBounds(p.X, dims[0]) && axisInBounds(p.Y, dims[1]) && axisInBounds(p.Z, dims[2])
}

func axisInBounds(c float64, n int) bool {
	// NaN fails both comparisons
	return c >= 0 && c <= float64(n-1)
}

// Trilinear interpolates a scalar volume at p. The second return value is
// false, and no voxel is read, when p is outside the volume.
func Trilinear(v *models.Volume, p r3.Vec) (float64, bool) {
	if !InBounds(v.Dims(), p) {
		return 0, false
	}

	x0, x1, fx := corner(p.X, v.Width)
	y0, y1, fy := corner(p.Y, v.Height)
	z0, z1, fz := corner(p.Z, v.Depth)

	// Interpolate along x on the four edges, then y, then z
	c00 := lerp(v.At(x0, y0, z0), v.At(x1, y0, z0), fx)
	c10 := lerp(v.At(x0, y1, z0), v.At(x1, y1, z0), fx)
	c01 := lerp(v.At(x0, y0, z1), v.At(x1, y0, z1), fx)
	c11 := lerp(v.At(x0, y1, z1), v.At(x1, y1, z1), fx)

	c0 := lerp(c00, c10, fy)
	c1 := lerp(c01, c11, fy)

	return lerp(c0, c1, fz), true
}

// Nearest returns the value of the grid cell closest to p. Intended for
// discrete maps such as binary masks, where interpolation would blur labels.
func Nearest(v *models.Volume, p r3.Vec) (float64, bool) {
	x, y, z, ok := NearestVoxel(v.Dims(), p)
	if !ok {
		return 0, false
	}
	return v.At(x, y, z), true
}

// NearestVoxel returns the integer voxel closest to p
func NearestVoxel(dims [3]int, p r3.Vec) (x, y, z int, ok bool) {
	if !InBounds(dims, p) {
		return 0, 0, 0, false
	}
	return int(math.Round(p.X)), int(math.Round(p.Y)), int(math.Round(p.Z)), true
}

// corner returns the lower and upper grid indices surrounding c and the
// fractional offset from the lower one. c must already be in [0, n-1].
func corner(c float64, n int) (int, int, float64) {
	if n == 1 {
		return 0, 0, 0
	}
	i0 := int(math.Floor(c))
	if i0 > n-2 {
		// Exactly on the last voxel: use the final cell with full weight on it
		i0 = n - 2
	}
	return i0, i0 + 1, c - float64(i0)
}

func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}
