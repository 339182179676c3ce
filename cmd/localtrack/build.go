package main

import (
	"fmt"
	"strings"

	"localtrack/internal/models"
	"localtrack/pkg/affine"
	"localtrack/pkg/config"
	"localtrack/pkg/direction"
	"localtrack/pkg/rawvol"
	"localtrack/pkg/stopping"
	"localtrack/pkg/tracking"
)

// job holds everything loaded from a configuration before tracking starts
type job struct {
	criterion stopping.Criterion
	getter    direction.Getter
	seedMask  *models.Volume
	affine    *affine.Affine
	params    tracking.Params
}

func loadScalar(cfg *config.Config, path string) (*models.Volume, error) {
	d := cfg.Volume.Dims
	v, err := rawvol.Read(path, d[0], d[1], d[2])
	if err != nil {
		return nil, err
	}
	v.VoxelSize = cfg.VoxelSize()
	return v, nil
}

// buildGetter loads the direction field. The field is returned as well so a
// tensor field can stand in for a missing FA map.
func buildGetter(cfg *config.Config) (direction.Getter, *models.VectorVolume, error) {
	d := cfg.Volume.Dims
	switch strings.ToLower(cfg.Direction.Kind) {
	case config.DirectionPeaks:
		field, err := rawvol.ReadVector(cfg.Direction.Field, d[0], d[1], d[2], 3*cfg.Direction.NumPeaks)
		if err != nil {
			return nil, nil, err
		}
		g, err := direction.NewPeaks(field, cfg.Direction.MaxAngle)
		if err != nil {
			return nil, nil, err
		}
		return g, field, nil
	case config.DirectionTensor:
		field, err := rawvol.ReadVector(cfg.Direction.Field, d[0], d[1], d[2], direction.TensorComponents)
		if err != nil {
			return nil, nil, err
		}
		g, err := direction.NewTensor(field, cfg.Direction.MaxAngle)
		if err != nil {
			return nil, nil, err
		}
		return g, field, nil
	}
	return nil, nil, fmt.Errorf("%w: unknown direction kind %q", models.ErrConfiguration, cfg.Direction.Kind)
}

func buildCriterion(cfg *config.Config, field *models.VectorVolume) (stopping.Criterion, error) {
	kind, err := stopping.ParseKind(cfg.Classifier.Kind)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrConfiguration, err)
	}

	switch kind {
	case stopping.KindThreshold:
		var metric *models.Volume
		if cfg.Classifier.MetricMap == "" {
			metric, err = direction.FractionalAnisotropy(field)
		} else {
			metric, err = loadScalar(cfg, cfg.Classifier.MetricMap)
		}
		if err != nil {
			return nil, err
		}
		return stopping.NewThreshold(metric, cfg.Classifier.Threshold)
	case stopping.KindBinary:
		mask, err := loadScalar(cfg, cfg.Classifier.Mask)
		if err != nil {
			return nil, err
		}
		return stopping.NewBinary(mask)
	default:
		include, err := loadScalar(cfg, cfg.Classifier.IncludeMap)
		if err != nil {
			return nil, err
		}
		exclude, err := loadScalar(cfg, cfg.Classifier.ExcludeMap)
		if err != nil {
			return nil, err
		}
		return stopping.NewACT(include, exclude)
	}
}

func buildAffine(cfg *config.Config) (*affine.Affine, error) {
	if len(cfg.Volume.Affine) == 0 {
		return affine.FromVoxelSize(cfg.VoxelSize()), nil
	}
	return affine.FromRows(cfg.Volume.Affine)
}

// buildJob validates cfg and loads every map it references
func buildJob(cfg *config.Config) (*job, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	getter, field, err := buildGetter(cfg)
	if err != nil {
		return nil, fmt.Errorf("direction field: %w", err)
	}
	criterion, err := buildCriterion(cfg, field)
	if err != nil {
		return nil, fmt.Errorf("classifier: %w", err)
	}
	seedMask, err := loadScalar(cfg, cfg.Seeds.Mask)
	if err != nil {
		return nil, fmt.Errorf("seed mask: %w", err)
	}
	aff, err := buildAffine(cfg)
	if err != nil {
		return nil, err
	}

	params := tracking.DefaultParams()
	params.StepSize = cfg.Tracking.StepSize
	params.MaxSteps = cfg.Tracking.MaxSteps
	params.ReturnAll = cfg.Tracking.ReturnAll
	if cfg.Tracking.Workers > 0 {
		params.Workers = cfg.Tracking.Workers
	}
	params.OutputSpace = tracking.Space(cfg.Tracking.OutputSpace)
	params.Affine = aff

	return &job{
		criterion: criterion,
		getter:    getter,
		seedMask:  seedMask,
		affine:    aff,
		params:    params,
	}, nil
}
