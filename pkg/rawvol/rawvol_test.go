package rawvol

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"localtrack/internal/models"
)

func TestWriteRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "fa.bin")
	data := []float64{0, 0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7}

	require.NoError(t, Write(path, data))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, int64(len(data)*8), info.Size())

	v, err := Read(path, 2, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, data, v.Data)
	assert.Equal(t, 0.7, v.At(1, 1, 1))
	assert.Equal(t, models.VoxelSize{X: 1, Y: 1, Z: 1}, v.VoxelSize)
}

func TestReadVector(t *testing.T) {
	path := filepath.Join(t.TempDir(), "peaks.bin")
	data := []float64{1, 0, 0, 0, 1, 0}
	require.NoError(t, Write(path, data))

	v, err := ReadVector(path, 2, 1, 1, 3)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 1, 0}, v.Voxel(1, 0, 0))
}

func TestReadSizeMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "short.bin")
	require.NoError(t, Write(path, []float64{1, 2, 3}))

	_, err := Read(path, 2, 2, 1)
	assert.ErrorIs(t, err, models.ErrConfiguration)

	_, err = ReadVector(path, 1, 1, 1, 2)
	assert.ErrorIs(t, err, models.ErrConfiguration)
}

func TestReadRejectsNonFinite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nan.bin")
	require.NoError(t, Write(path, []float64{1, math.NaN()}))

	_, err := Read(path, 2, 1, 1)
	assert.ErrorIs(t, err, models.ErrConfiguration)
}

func TestReadMissingFile(t *testing.T) {
	_, err := Read(filepath.Join(t.TempDir(), "missing.bin"), 1, 1, 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}
