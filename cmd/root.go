// Package cmd implements the clipbooth Cobra command tree.
package cmd

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// Version, Commit, and Date are set at build time via -ldflags.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

var verboseFlag bool

var rootCmd = &cobra.Command{
	Use:   "clipbooth",
	Short: "Record a 15 second camera clip with timed captions",
	Long: `clipbooth - fixed-length camera recorder with animated captions

Captures the camera and microphone, composites a timed caption schedule onto
the live frames, records for exactly 15 seconds, and writes a single video
file.

Examples:
  # Record with the built-in caption schedule
  clipbooth record

  # Record with a custom schedule
  clipbooth record --schedule captions.yaml --output-dir ./clips

  # Check that the environment can record
  clipbooth doctor

  # Validate a caption schedule without recording
  clipbooth validate captions.yaml`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		level := zerolog.WarnLevel
		if verboseFlag {
			level = zerolog.DebugLevel
		}
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
			Level(level).With().Timestamp().Logger()
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() { //nolint:gochecknoinits
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "enable debug logging")
	rootCmd.SetVersionTemplate(fmt.Sprintf("clipbooth version {{.Version}} (commit: %s, built: %s)\n", Commit, Date))
}
