package cmd

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/spf13/cobra"

	"github.com/clipbooth/clipbooth/internal/capture"
	"github.com/clipbooth/clipbooth/internal/config"
	"github.com/clipbooth/clipbooth/internal/encoder"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check that the environment can record",
	Long: `Doctor checks the recording prerequisites: ffmpeg availability, the
camera device, and which output formats the runtime supports.

Exit code 0 if recording should work, 1 otherwise.`,
	Args: cobra.NoArgs,
	RunE: runDoctor,
}

func init() { //nolint:gochecknoinits // Standard cobra pattern
	rootCmd.AddCommand(doctorCmd)
}

func runDoctor(_ *cobra.Command, _ []string) error {
	healthy := true

	if _, err := exec.LookPath("ffmpeg"); err != nil {
		fmt.Fprintln(os.Stderr, "✗ ffmpeg: not found on PATH")
		healthy = false
	} else {
		fmt.Fprintln(os.Stderr, "✓ ffmpeg: found")
	}

	support := encoder.NewFFmpegSupport()
	anyFormat := false
	for _, f := range encoder.PreferredFormats() {
		if support.Supports(f) {
			fmt.Fprintf(os.Stderr, "✓ format %s (%s+%s): supported\n", f.Container, f.VideoCodec, f.AudioCodec)
			anyFormat = true
		} else {
			fmt.Fprintf(os.Stderr, "✗ format %s (%s+%s): unsupported\n", f.Container, f.VideoCodec, f.AudioCodec)
		}
	}
	if !anyFormat {
		healthy = false
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "✗ config: %v\n", err)
		healthy = false
	}

	constraints := capture.DefaultConstraints()
	constraints.VideoDevice = cfg.VideoDevice
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	src, err := capture.OpenCamera(ctx, constraints)
	if err != nil {
		fmt.Fprintf(os.Stderr, "✗ camera: %v\n", err)
		healthy = false
	} else {
		fmt.Fprintln(os.Stderr, "✓ camera: acquired a frame")
		_ = src.Close()
	}

	if !healthy {
		os.Exit(1)
	}
	fmt.Fprintln(os.Stderr, "\nReady to record.")
	return nil
}
