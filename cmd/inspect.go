package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/clipbooth/clipbooth/internal/inspect"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <clip.mp4>",
	Short: "Report the track layout of a recorded MP4 clip",
	Long: `Inspect parses a finished MP4 clip and prints its duration and
track layout. Only the mp4 container is supported; webm clips can be
inspected with standard ffprobe tooling instead.`,
	Args: cobra.ExactArgs(1),
	RunE: runInspect,
}

func init() { //nolint:gochecknoinits // Standard cobra pattern
	rootCmd.AddCommand(inspectCmd)
}

func runInspect(_ *cobra.Command, args []string) error {
	path := args[0]
	if !strings.HasSuffix(strings.ToLower(path), ".mp4") {
		return fmt.Errorf("inspect supports .mp4 clips, got %s", path)
	}

	report, err := inspect.File(path)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stdout, "%s\n", path)
	fmt.Fprintf(os.Stdout, "  duration: %.2fs\n", report.DurationSeconds)
	for _, t := range report.Tracks {
		if t.Width > 0 || t.Height > 0 {
			fmt.Fprintf(os.Stdout, "  track %d: %s %dx%d\n", t.ID, t.Handler, t.Width, t.Height)
		} else {
			fmt.Fprintf(os.Stdout, "  track %d: %s\n", t.ID, t.Handler)
		}
	}
	return nil
}
