package main

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "localtrack",
	Short: "Deterministic local fiber tracking",
	Long: `localtrack reconstructs white matter streamlines from a direction field
and a tissue classifier, seeding from a mask and writing a TrackVis tractogram.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
}

// newLogger returns a text logger writing to the command's error stream
func newLogger(cmd *cobra.Command, debug bool) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(cmd.ErrOrStderr())
	log.SetFormatter(&logrus.TextFormatter{DisableColors: true, FullTimestamp: true})
	log.SetLevel(logrus.InfoLevel)
	if debug {
		log.SetLevel(logrus.DebugLevel)
	}
	return log
}
