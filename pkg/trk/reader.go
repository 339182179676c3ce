package trk

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"gonum.org/v1/gonum/spatial/r3"

	"localtrack/internal/models"
	"localtrack/pkg/tracking"
)

// maxValues bounds the float32 values (points, scalars and properties) of a
// single streamline read from disk, so a corrupt count cannot trigger a huge
// allocation.
const maxValues = 1 << 24

// Load reads the tractogram stored at path
func Load(path string) (*Tractogram, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open tractogram: %w", err)
	}
	defer file.Close()

	return Read(bufio.NewReader(file))
}

// Read decodes a tractogram from r. Streamlines come back in voxel space.
// Per-point scalars and per-streamline properties are skipped.
func Read(r io.Reader) (*Tractogram, error) {
	var h header
	if err := binary.Read(r, byteOrder, &h); err != nil {
		return nil, fmt.Errorf("failed to read trk header: %w", err)
	}
	if err := h.validate(); err != nil {
		return nil, err
	}

	vs := h.voxelSize()
	t := &Tractogram{
		Affine:    h.affine(),
		Dims:      h.dims(),
		VoxelSize: vs,
		Space:     tracking.VoxelSpace,
	}

	stride := 3 + int(h.NScalars)
	props := int(h.NProperties)

	// A zero count means the writer did not record it; read to EOF
	for i := 0; h.NCount == 0 || i < int(h.NCount); i++ {
		var n int32
		if err := binary.Read(r, byteOrder, &n); err != nil {
			if h.NCount == 0 && errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("failed to read streamline %d: %w", i, err)
		}
		if n < 0 {
			return nil, fmt.Errorf("streamline %d has invalid point count %d", i, n)
		}
		size := int64(n)*int64(stride) + int64(props)
		if size > maxValues {
			return nil, fmt.Errorf("streamline %d holds %d values, more than %d", i, size, maxValues)
		}

		values := make([]float32, size)
		if err := binary.Read(r, byteOrder, values); err != nil {
			return nil, fmt.Errorf("failed to read streamline %d: %w", i, err)
		}

		s := make(models.Streamline, n)
		for k := range s {
			v := values[k*stride:]
			s[k] = fromVoxmm(r3.Vec{X: float64(v[0]), Y: float64(v[1]), Z: float64(v[2])}, vs)
		}
		t.Streamlines = append(t.Streamlines, s)
	}

	return t, nil
}
