// Package trk writes and reads streamlines in the TrackVis .trk format
// (version 2). Points are stored in "voxmm" space: voxel index plus one half,
// scaled by the voxel size, so the corner of the first voxel sits at zero.
package trk

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"

	"localtrack/internal/models"
	"localtrack/pkg/affine"
)

const (
	headerSize = 1000
	version    = 2
	magic      = "TRACK"
)

// header is the on-disk layout. Field order and sizes must not change.
type header struct {
	IDString                [6]byte
	Dim                     [3]int16
	VoxelSize               [3]float32
	Origin                  [3]float32
	NScalars                int16
	ScalarName              [200]byte
	NProperties             int16
	PropertyName            [200]byte
	VoxToRAS                [4][4]float32
	Reserved                [444]byte
	VoxelOrder              [4]byte
	Pad2                    [4]byte
	ImageOrientationPatient [6]float32
	Pad1                    [2]byte
	InvertX                 uint8
	InvertY                 uint8
	InvertZ                 uint8
	SwapXY                  uint8
	SwapYZ                  uint8
	SwapZX                  uint8
	NCount                  int32
	Version                 int32
	HdrSize                 int32
}

func newHeader(dims [3]int, vs models.VoxelSize, aff *affine.Affine, count int) header {
	var h header
	copy(h.IDString[:], magic)
	for i, d := range dims {
		h.Dim[i] = int16(d)
	}
	h.VoxelSize = [3]float32{float32(vs.X), float32(vs.Y), float32(vs.Z)}
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			h.VoxToRAS[i][j] = float32(aff.At(i, j))
		}
	}
	copy(h.VoxelOrder[:], "RAS")
	h.ImageOrientationPatient = [6]float32{1, 0, 0, 0, 1, 0}
	h.NCount = int32(count)
	h.Version = version
	h.HdrSize = headerSize
	return h
}

func (h *header) validate() error {
	if !bytes.HasPrefix(h.IDString[:], []byte(magic)) {
		return fmt.Errorf("not a trk file: bad magic %q", h.IDString[:])
	}
	if h.HdrSize != headerSize {
		return fmt.Errorf("unsupported trk header size %d", h.HdrSize)
	}
	if h.Version != 1 && h.Version != version {
		return fmt.Errorf("unsupported trk version %d", h.Version)
	}
	if h.NCount < 0 {
		return fmt.Errorf("invalid trk streamline count %d", h.NCount)
	}
	if h.NScalars < 0 {
		return fmt.Errorf("invalid trk scalar count %d", h.NScalars)
	}
	if h.NProperties < 0 {
		return fmt.Errorf("invalid trk property count %d", h.NProperties)
	}
	for i, v := range h.VoxelSize {
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) || f <= 0 {
			return fmt.Errorf("invalid trk voxel size %v on axis %d", v, i)
		}
	}
	return nil
}

func (h *header) dims() [3]int {
	return [3]int{int(h.Dim[0]), int(h.Dim[1]), int(h.Dim[2])}
}

func (h *header) voxelSize() models.VoxelSize {
	return models.VoxelSize{X: float64(h.VoxelSize[0]), Y: float64(h.VoxelSize[1]), Z: float64(h.VoxelSize[2])}
}

// affine returns the stored voxel-to-RAS transform. Version 1 files and
// writers that leave it blank fall back to a plain voxel size scaling.
func (h *header) affine() *affine.Affine {
	if h.VoxToRAS[3][3] == 0 {
		return affine.FromVoxelSize(h.voxelSize())
	}
	rows := make([][]float64, 4)
	for i := range rows {
		rows[i] = make([]float64, 4)
		for j := range rows[i] {
			rows[i][j] = float64(h.VoxToRAS[i][j])
		}
	}
	a, err := affine.FromRows(rows)
	if err != nil {
		return affine.FromVoxelSize(h.voxelSize())
	}
	return a
}

var byteOrder = binary.LittleEndian
