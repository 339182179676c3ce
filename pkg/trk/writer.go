package trk

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"

	"gonum.org/v1/gonum/spatial/r3"

	"localtrack/internal/models"
	"localtrack/pkg/affine"
	"localtrack/pkg/tracking"
)

// Tractogram is a set of streamlines together with the grid they were
// tracked on.
type Tractogram struct {
	Streamlines []models.Streamline

	// Affine maps voxel indices to world coordinates. Nil means a scaling by VoxelSize.
	Affine *affine.Affine

	// Dims is the shape of the reference grid
	Dims [3]int

	VoxelSize models.VoxelSize

	// Space is the coordinate space Streamlines are expressed in
	Space tracking.Space
}

func (t *Tractogram) affine() *affine.Affine {
	if t.Affine != nil {
		return t.Affine
	}
	return affine.FromVoxelSize(t.VoxelSize)
}

func (t *Tractogram) validate() error {
	for i, d := range t.Dims {
		if d <= 0 || d > math.MaxInt16 {
			return fmt.Errorf("%w: trk dimension %d on axis %d out of range", models.ErrConfiguration, d, i)
		}
	}
	vs := t.VoxelSize
	if vs.X <= 0 || vs.Y <= 0 || vs.Z <= 0 {
		return fmt.Errorf("%w: voxel size must be positive, got %v", models.ErrConfiguration, vs)
	}
	switch t.Space {
	case "", tracking.VoxelSpace, tracking.WorldSpace:
	default:
		return fmt.Errorf("%w: unknown streamline space %q", models.ErrConfiguration, t.Space)
	}
	return nil
}

// Save writes t to path, creating parent directories as needed
func Save(path string, t *Tractogram) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create tractogram directory: %w", err)
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create tractogram file: %w", err)
	}
	defer file.Close()

	bw := bufio.NewWriter(file)
	if err := Write(bw, t); err != nil {
		return err
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("failed to write tractogram: %w", err)
	}
	return file.Close()
}

// Write encodes t to w. World-space streamlines are mapped back to voxel
// space through the inverse affine first.
func Write(w io.Writer, t *Tractogram) error {
	if err := t.validate(); err != nil {
		return err
	}

	aff := t.affine()
	streamlines := t.Streamlines
	if t.Space == tracking.WorldSpace {
		inv, err := aff.Inverse()
		if err != nil {
			return err
		}
		streamlines = inv.Streamlines(streamlines)
	}

	h := newHeader(t.Dims, t.VoxelSize, aff, len(streamlines))
	if err := binary.Write(w, byteOrder, &h); err != nil {
		return fmt.Errorf("failed to write trk header: %w", err)
	}

	var buf []float32
	for i, s := range streamlines {
		buf = buf[:0]
		for _, p := range s {
			mm := toVoxmm(p, t.VoxelSize)
			buf = append(buf, float32(mm.X), float32(mm.Y), float32(mm.Z))
		}
		if err := binary.Write(w, byteOrder, int32(len(s))); err != nil {
			return fmt.Errorf("failed to write streamline %d: %w", i, err)
		}
		if err := binary.Write(w, byteOrder, buf); err != nil {
			return fmt.Errorf("failed to write streamline %d: %w", i, err)
		}
	}
	return nil
}

func toVoxmm(p r3.Vec, vs models.VoxelSize) r3.Vec {
	return r3.Vec{
		X: (p.X + 0.5) * vs.X,
		Y: (p.Y + 0.5) * vs.Y,
		Z: (p.Z + 0.5) * vs.Z,
	}
}

func fromVoxmm(p r3.Vec, vs models.VoxelSize) r3.Vec {
	return r3.Vec{
		X: p.X/vs.X - 0.5,
		Y: p.Y/vs.Y - 0.5,
		Z: p.Z/vs.Z - 0.5,
	}
}
