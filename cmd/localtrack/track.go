package main

import (
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"localtrack/pkg/config"
	"localtrack/pkg/seeds"
	"localtrack/pkg/tracking"
	"localtrack/pkg/trk"
)

var configPath string

var trackCmd = &cobra.Command{
	Use:   "track",
	Short: "Track streamlines from a configuration file",
	Long: `Loads the direction field, classifier maps and seed mask named in the
configuration, tracks one streamline per seed and writes a TrackVis
tractogram plus an optional YAML run summary.`,
	Args: cobra.NoArgs,
	RunE: runTrack,
}

func init() {
	trackCmd.Flags().StringVarP(&configPath, "config", "c", "localtrack.yaml", "Configuration file")
	rootCmd.AddCommand(trackCmd)
}

func runTrack(cmd *cobra.Command, _ []string) error {
	if _, err := os.Stat(configPath); err != nil {
		return fmt.Errorf("config file: %w", err)
	}
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return err
	}

	log := newLogger(cmd, verbose || cfg.Output.Verbose)

	j, err := buildJob(cfg)
	if err != nil {
		return err
	}

	seedList, err := seeds.FromMask(j.seedMask, seeds.Uniform(cfg.Seeds.Density))
	if err != nil {
		return err
	}
	log.WithFields(logrus.Fields{
		"seeds":   len(seedList),
		"workers": j.params.Workers,
		"step":    j.params.StepSize,
	}).Info("Starting tracking")

	j.params.Logger = log
	engine, err := tracking.NewEngine(j.criterion, j.getter, j.params)
	if err != nil {
		return err
	}

	start := time.Now()
	streamlines := engine.Streamlines(seeds.Seq(seedList))
	elapsed := time.Since(start)

	tg := &trk.Tractogram{
		Streamlines: streamlines,
		Affine:      j.affine,
		Dims:        cfg.Volume.Dims,
		VoxelSize:   cfg.VoxelSize(),
		Space:       engine.Params().OutputSpace,
	}
	if err := trk.Save(cfg.Output.Tractogram, tg); err != nil {
		return err
	}

	summary := tracking.Summarize(engine.Stats(), streamlines)
	if cfg.Output.Summary != "" {
		if err := tracking.SaveSummary(summary, cfg.Output.Summary); err != nil {
			return err
		}
	}

	cmd.Printf("Tracked %d streamlines from %d seeds in %.2f seconds\n",
		len(streamlines), len(seedList), elapsed.Seconds())
	cmd.Printf("Tractogram saved to: %s\n", cfg.Output.Tractogram)
	if cfg.Output.Summary != "" {
		cmd.Printf("Summary saved to: %s\n", cfg.Output.Summary)
	}
	return nil
}
