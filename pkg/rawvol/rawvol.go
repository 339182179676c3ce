// Package rawvol reads and writes headerless volumes stored as little-endian
// float64 values, x varying fastest.
package rawvol

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"localtrack/internal/models"
)

const valueSize = 8

// Read loads a scalar volume of the given dimensions from path
func Read(path string, width, height, depth int) (*models.Volume, error) {
	data, err := readValues(path, width*height*depth)
	if err != nil {
		return nil, err
	}
	v := &models.Volume{
		Data:      data,
		Width:     width,
		Height:    height,
		Depth:     depth,
		VoxelSize: models.VoxelSize{X: 1, Y: 1, Z: 1},
	}
	if err := v.Validate(); err != nil {
		return nil, fmt.Errorf("volume %s: %w", path, err)
	}
	return v, nil
}

// ReadVector loads a vector volume with components values per voxel
func ReadVector(path string, width, height, depth, components int) (*models.VectorVolume, error) {
	data, err := readValues(path, width*height*depth*components)
	if err != nil {
		return nil, err
	}
	v := &models.VectorVolume{
		Data:       data,
		Width:      width,
		Height:     height,
		Depth:      depth,
		Components: components,
	}
	if err := v.Validate(); err != nil {
		return nil, fmt.Errorf("vector volume %s: %w", path, err)
	}
	return v, nil
}

// Write stores data at path, creating parent directories as needed
func Write(path string, data []float64) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create volume directory: %w", err)
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create volume file: %w", err)
	}
	defer file.Close()

	w := bufio.NewWriter(file)
	if err := binary.Write(w, binary.LittleEndian, data); err != nil {
		return fmt.Errorf("failed to write volume data: %w", err)
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("failed to write volume data: %w", err)
	}
	return file.Close()
}

func readValues(path string, n int) ([]float64, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: volume %s has no voxels", models.ErrConfiguration, path)
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open volume: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat volume: %w", err)
	}
	if want := int64(n) * valueSize; info.Size() != want {
		return nil, fmt.Errorf("%w: volume %s is %d bytes, dimensions need %d",
			models.ErrConfiguration, path, info.Size(), want)
	}

	data := make([]float64, n)
	if err := binary.Read(bufio.NewReader(file), binary.LittleEndian, data); err != nil {
		if err == io.ErrUnexpectedEOF {
			return nil, fmt.Errorf("%w: volume %s is truncated", models.ErrConfiguration, path)
		}
		return nil, fmt.Errorf("failed to read volume: %w", err)
	}
	return data, nil
}
