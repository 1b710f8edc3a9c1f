package capture

import (
	"context"
	"fmt"
	"image"
	"io"
	"os/exec"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// CameraSource captures raw RGBA frames from the platform camera through an
// ffmpeg subprocess. The subprocess owns the hardware handle; killing it on
// Close releases the device.
type CameraSource struct {
	cmd       *exec.Cmd
	stdout    io.ReadCloser
	stderr    *strings.Builder
	frames    chan Frame
	audio     AudioTrack
	width     int
	height    int
	waitOnce  sync.Once
	waitErr   error
	closeOnce sync.Once
	closeErr  error
	done      chan struct{}
}

// OpenCamera acquires the platform camera with the given constraints and
// starts frame delivery. It blocks until the first frame arrives, the
// process fails, or the context is cancelled. Failures are classified into
// the package taxonomy.
func OpenCamera(ctx context.Context, c Constraints) (Source, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid constraints: %w", err)
	}
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		return nil, fmt.Errorf("%w: ffmpeg not found on PATH", ErrDeviceUnavailable)
	}

	inFormat, inDevice := cameraInput(c)
	args := []string{
		"-hide_banner", "-loglevel", "error",
		"-f", inFormat,
		"-framerate", fmt.Sprintf("%d", c.FrameRate),
		"-video_size", fmt.Sprintf("%dx%d", c.Width, c.Height),
		"-i", inDevice,
		"-f", "rawvideo",
		"-pix_fmt", "rgba",
		"-s", fmt.Sprintf("%dx%d", c.Width, c.Height),
		"-r", fmt.Sprintf("%d", c.FrameRate),
		"pipe:1",
	}

	cmd := exec.CommandContext(ctx, "ffmpeg", args...) //nolint:gosec // args are built from validated constraints
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to open ffmpeg stdout: %w", err)
	}
	var stderr strings.Builder
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: failed to start capture process: %v", ErrDeviceUnavailable, err)
	}

	s := &CameraSource{
		cmd:    cmd,
		stdout: stdout,
		stderr: &stderr,
		frames: make(chan Frame, 1),
		audio: AudioTrack{
			Device:           defaultAudioDevice(),
			SampleRate:       c.Audio.SampleRate,
			EchoCancellation: c.Audio.EchoCancellation,
			NoiseSuppression: c.Audio.NoiseSuppression,
		},
		width:  c.Width,
		height: c.Height,
		done:   make(chan struct{}),
	}

	ready := make(chan error, 1)
	go s.readLoop(ready)

	select {
	case err := <-ready:
		if err != nil {
			_ = s.Close()
			return nil, err
		}
		return s, nil
	case <-ctx.Done():
		_ = s.Close()
		return nil, ctx.Err()
	}
}

// cameraInput returns the ffmpeg input format and device for the platform.
func cameraInput(c Constraints) (format, device string) {
	if c.VideoDevice != "" {
		device = c.VideoDevice
	}
	switch runtime.GOOS {
	case "darwin":
		if device == "" {
			device = "0:none"
		}
		return "avfoundation", device
	default:
		if device == "" {
			device = "/dev/video0"
		}
		return "v4l2", device
	}
}

// defaultAudioDevice returns the platform default microphone device.
func defaultAudioDevice() string {
	switch runtime.GOOS {
	case "darwin":
		return ":default"
	default:
		return "default"
	}
}

// readLoop reads fixed-size raw RGBA frames from the subprocess and publishes
// each as the latest frame. The first successful read (or the first failure)
// is reported on ready.
func (s *CameraSource) readLoop(ready chan<- error) {
	defer close(s.frames)

	frameSize := s.width * s.height * 4
	buf := make([]byte, frameSize)
	first := true

	for {
		if _, err := io.ReadFull(s.stdout, buf); err != nil {
			classified := s.classifyExit(err)
			if first {
				ready <- classified
			} else {
				log.Debug().Err(classified).Msg("camera frame delivery ended")
			}
			return
		}

		pix := make([]byte, frameSize)
		copy(pix, buf)
		frame := Frame{
			Image: &image.RGBA{
				Pix:    pix,
				Stride: 4 * s.width,
				Rect:   image.Rect(0, 0, s.width, s.height),
			},
			Timestamp: time.Now(),
		}

		if first {
			first = false
			ready <- nil
		}
		s.publish(frame)
	}
}

// publish replaces any pending frame with the given one so consumers always
// see the most recent frame.
func (s *CameraSource) publish(f Frame) {
	select {
	case <-s.done:
		return
	default:
	}
	select {
	case s.frames <- f:
	default:
		select {
		case <-s.frames:
		default:
		}
		select {
		case s.frames <- f:
		default:
		}
	}
}

// wait reaps the subprocess exactly once.
func (s *CameraSource) wait() error {
	s.waitOnce.Do(func() {
		s.waitErr = s.cmd.Wait()
	})
	return s.waitErr
}

// classifyExit maps a subprocess failure onto the acquisition taxonomy using
// the ffmpeg diagnostics captured on stderr.
func (s *CameraSource) classifyExit(readErr error) error {
	_ = s.wait()
	return ClassifyDeviceError(s.stderr.String(), readErr)
}

// ClassifyDeviceError maps ffmpeg stderr output onto the acquisition failure
// taxonomy. Unrecognized failures are reported as ErrDeviceUnavailable.
func ClassifyDeviceError(stderr string, cause error) error {
	lower := strings.ToLower(stderr)
	switch {
	case strings.Contains(lower, "permission denied") ||
		strings.Contains(lower, "operation not permitted"):
		return fmt.Errorf("%w: %s", ErrPermissionDenied, firstLine(stderr))
	case strings.Contains(lower, "no such file or directory") ||
		strings.Contains(lower, "no such device") ||
		strings.Contains(lower, "cannot find a proper format"):
		return fmt.Errorf("%w: %s", ErrDeviceNotFound, firstLine(stderr))
	case stderr != "":
		return fmt.Errorf("%w: %s", ErrDeviceUnavailable, firstLine(stderr))
	default:
		return fmt.Errorf("%w: %v", ErrDeviceUnavailable, cause)
	}
}

// firstLine returns the first non-empty line of s.
func firstLine(s string) string {
	for _, line := range strings.Split(s, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			return trimmed
		}
	}
	return s
}

// Frames returns the latest-frame channel. The channel is closed when frame
// delivery ends.
func (s *CameraSource) Frames() <-chan Frame {
	return s.frames
}

// AudioTrack returns the microphone handle associated with this source.
func (s *CameraSource) AudioTrack() AudioTrack {
	return s.audio
}

// Close stops the capture subprocess, releasing the camera and microphone.
// Safe to call multiple times and on every exit path.
func (s *CameraSource) Close() error {
	s.closeOnce.Do(func() {
		close(s.done)
		if s.cmd.Process != nil {
			_ = s.cmd.Process.Kill()
		}
		if err := s.wait(); err != nil && !strings.Contains(err.Error(), "killed") {
			s.closeErr = fmt.Errorf("capture process exit: %w", err)
		}
	})
	return s.closeErr
}
