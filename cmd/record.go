package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/clipbooth/clipbooth/internal/artifact"
	"github.com/clipbooth/clipbooth/internal/capture"
	"github.com/clipbooth/clipbooth/internal/config"
	"github.com/clipbooth/clipbooth/internal/controller"
	"github.com/clipbooth/clipbooth/internal/encoder"
	"github.com/clipbooth/clipbooth/internal/schedule"
)

var (
	schedulePath  string
	outputDirFlag string
	deviceFlag    string
	syntheticFlag bool
)

var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Record a 15 second clip with timed captions",
	Long: `Record acquires the camera and microphone, composites the caption
schedule onto the live frames, records for exactly 15 seconds, and writes the
finished clip into the output directory.

Interrupting with Ctrl-C stops the recording early; chunks already encoded
are still finalized into a (shorter) clip.

Examples:
  clipbooth record
  clipbooth record --schedule captions.yaml --output-dir ./clips
  clipbooth record --synthetic`,
	Args: cobra.NoArgs,
	RunE: runRecord,
}

func init() { //nolint:gochecknoinits // Standard cobra pattern
	recordCmd.Flags().StringVarP(&schedulePath, "schedule", "s", "", "caption schedule YAML file (default: built-in schedule)")
	recordCmd.Flags().StringVarP(&outputDirFlag, "output-dir", "o", "", "directory for the finished clip (default: CLIPBOOTH_OUTPUT_DIR or .)")
	recordCmd.Flags().StringVar(&deviceFlag, "device", "", "camera device (default: platform default)")
	recordCmd.Flags().BoolVar(&syntheticFlag, "synthetic", false, "use a generated test pattern instead of the camera")
	rootCmd.AddCommand(recordCmd)
}

func runRecord(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if outputDirFlag != "" {
		cfg.OutputDir = outputDirFlag
	}
	if deviceFlag != "" {
		cfg.VideoDevice = deviceFlag
	}

	sched := schedule.Default()
	if schedulePath != "" {
		sched, err = schedule.LoadFile(schedulePath)
		if err != nil {
			return err
		}
	}

	constraints := capture.DefaultConstraints()
	constraints.FrameRate = cfg.FrameRate
	constraints.VideoDevice = cfg.VideoDevice

	open := capture.OpenCamera
	if syntheticFlag {
		open = capture.OpenSynthetic
	}

	ctrl := controller.New(constraints, sched, controller.Deps{
		Open:       open,
		Support:    encoder.NewFFmpegSupport(),
		NewEncoder: newTunedEncoder(cfg),
		Saver:      artifact.DirSaver{Dir: cfg.OutputDir},
	},
		controller.WithCountdownObserver(printCountdown),
		controller.WithOverlayObserver(printOverlay),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Fprintln(os.Stderr, "Acquiring camera...")
	if err := ctrl.Run(ctx); err != nil {
		return err
	}

	if isTerminal() {
		fmt.Fprint(os.Stderr, "\r\033[K")
	}
	art := ctrl.Artifact()
	fmt.Fprintf(os.Stderr, "✓ Recorded %s (%d bytes, %s)\n", art.Filename, len(art.Data), art.MIME)
	return nil
}

// newTunedEncoder wraps the ffmpeg encoder factory with the configured
// bitrate targets.
func newTunedEncoder(cfg config.Config) encoder.Factory {
	return func(f encoder.Format, audio capture.AudioTrack, opts encoder.Options) (encoder.Encoder, error) {
		opts.VideoBitrate = cfg.VideoBitrate
		opts.AudioBitrate = cfg.AudioBitrate
		return encoder.NewFFmpegEncoder(f, audio, opts)
	}
}

// printCountdown shows the remaining seconds, rewriting the line on a TTY.
func printCountdown(remaining int) {
	if isTerminal() {
		fmt.Fprintf(os.Stderr, "\r\033[KRecording... %2ds", remaining)
		return
	}
	fmt.Fprintf(os.Stderr, "Recording... %ds\n", remaining)
}

// printOverlay mirrors the active caption outside the recorded frame.
func printOverlay(o *schedule.Overlay) {
	if o == nil {
		return
	}
	if isTerminal() {
		fmt.Fprintf(os.Stderr, "\r\033[K  [%s]\n", o.Text)
		return
	}
	fmt.Fprintf(os.Stderr, "  [%s]\n", o.Text)
}

func isTerminal() bool {
	return term.IsTerminal(int(os.Stderr.Fd()))
}
