package models

import (
	"errors"
	"fmt"
	"math"
)

// ErrConfiguration marks a malformed field or tracking setup. It is detected
// at construction time, before any seed is processed.
var ErrConfiguration = errors.New("configuration error")

// VoxelSize is the physical extent of one voxel in mm
type VoxelSize struct {
	X, Y, Z float64
}

// Volume represents a scalar 3D map (FA, PVE fraction, binary mask)
type Volume struct {
	// Data is the 3D volume data as a 1D array, x varying fastest
	Data []float64

	// Width is the size of the volume along x in voxels
	Width int

	// Height is the size of the volume along y in voxels
	Height int

	// Depth is the size of the volume along z in voxels
	Depth int

	// VoxelSize is the physical size of each voxel in mm
	VoxelSize VoxelSize
}

// NewVolume allocates a zero-filled volume with unit voxels
func NewVolume(width, height, depth int) *Volume {
	return &Volume{
		Data:      make([]float64, width*height*depth),
		Width:     width,
		Height:    height,
		Depth:     depth,
		VoxelSize: VoxelSize{1, 1, 1},
	}
}

// Index returns the flat offset of voxel (x, y, z)
func (v *Volume) Index(x, y, z int) int {
	return z*v.Width*v.Height + y*v.Width + x
}

// At returns the value stored at voxel (x, y, z)
func (v *Volume) At(x, y, z int) float64 {
	return v.Data[v.Index(x, y, z)]
}

// Set stores a value at voxel (x, y, z)
func (v *Volume) Set(x, y, z int, value float64) {
	v.Data[v.Index(x, y, z)] = value
}

// Dims returns the grid shape as (width, height, depth)
func (v *Volume) Dims() [3]int {
	return [3]int{v.Width, v.Height, v.Depth}
}

// Fill sets every voxel to value
func (v *Volume) Fill(value float64) {
	for i := range v.Data {
		v.Data[i] = value
	}
}

// SameShape reports whether two volumes share a grid
func (v *Volume) SameShape(o *Volume) bool {
	return v.Dims() == o.Dims()
}

// Validate checks that the volume is non-empty, that its data matches its
// dimensions and that every value is finite.
func (v *Volume) Validate() error {
	if v == nil {
		return fmt.Errorf("%w: nil volume", ErrConfiguration)
	}
	if v.Width <= 0 || v.Height <= 0 || v.Depth <= 0 {
		return fmt.Errorf("%w: invalid dimensions %dx%dx%d", ErrConfiguration, v.Width, v.Height, v.Depth)
	}
	if want := v.Width * v.Height * v.Depth; len(v.Data) != want {
		return fmt.Errorf("%w: volume holds %d values, dimensions need %d", ErrConfiguration, len(v.Data), want)
	}
	for i, val := range v.Data {
		if math.IsNaN(val) || math.IsInf(val, 0) {
			return fmt.Errorf("%w: non-finite value at offset %d", ErrConfiguration, i)
		}
	}
	return nil
}

// VectorVolume holds several values per voxel, e.g. peak directions or
// diffusion tensor components.
type VectorVolume struct {
	// Data is laid out voxel-major: the Components values of a voxel are contiguous
	Data []float64

	Width, Height, Depth int

	// Components is the number of values per voxel
	Components int
}

// NewVectorVolume allocates a zero-filled vector volume
func NewVectorVolume(width, height, depth, components int) *VectorVolume {
	return &VectorVolume{
		Data:       make([]float64, width*height*depth*components),
		Width:      width,
		Height:     height,
		Depth:      depth,
		Components: components,
	}
}

// Dims returns the grid shape as (width, height, depth)
func (v *VectorVolume) Dims() [3]int {
	return [3]int{v.Width, v.Height, v.Depth}
}

// Voxel returns the components of voxel (x, y, z). The returned slice
// aliases the volume data.
func (v *VectorVolume) Voxel(x, y, z int) []float64 {
	off := (z*v.Width*v.Height + y*v.Width + x) * v.Components
	return v.Data[off : off+v.Components]
}

// Validate checks shape consistency of the vector volume
func (v *VectorVolume) Validate() error {
	if v == nil {
		return fmt.Errorf("%w: nil vector volume", ErrConfiguration)
	}
	if v.Width <= 0 || v.Height <= 0 || v.Depth <= 0 || v.Components <= 0 {
		return fmt.Errorf("%w: invalid dimensions %dx%dx%dx%d", ErrConfiguration,
			v.Width, v.Height, v.Depth, v.Components)
	}
	if want := v.Width * v.Height * v.Depth * v.Components; len(v.Data) != want {
		return fmt.Errorf("%w: vector volume holds %d values, dimensions need %d", ErrConfiguration, len(v.Data), want)
	}
	return nil
}
