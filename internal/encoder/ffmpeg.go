package encoder

import (
	"bytes"
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

	"github.com/clipbooth/clipbooth/internal/capture"
)

// FFmpegEncoder encodes raw composited frames plus the microphone input into
// a containerized stream via an ffmpeg subprocess. Frames are written to the
// subprocess stdin as raw RGBA; encoded output is read from stdout and
// emitted as ordered chunks at the flush interval.
type FFmpegEncoder struct {
	format Format
	audio  capture.AudioTrack
	opts   Options

	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout io.ReadCloser
	stderr strings.Builder

	mu      sync.Mutex
	pending bytes.Buffer

	chunks   chan []byte
	done     chan error
	eof      chan struct{}
	readErr  error
	stopOnce sync.Once
	started  bool
}

// NewFFmpegEncoder is a Factory for ffmpeg-backed encoders.
func NewFFmpegEncoder(f Format, audio capture.AudioTrack, opts Options) (Encoder, error) {
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		return nil, fmt.Errorf("%w: ffmpeg not found on PATH", ErrEncoder)
	}
	if opts.FlushInterval <= 0 {
		opts.FlushInterval = 100 * time.Millisecond
	}
	return &FFmpegEncoder{
		format: f,
		audio:  audio,
		opts:   opts,
		chunks: make(chan []byte, 16),
		done:   make(chan error, 1),
		eof:    make(chan struct{}),
	}, nil
}

// Start launches the subprocess and begins chunk delivery.
func (e *FFmpegEncoder) Start(ctx context.Context) error {
	if e.started {
		return fmt.Errorf("%w: encoder already started", ErrEncoder)
	}

	cmd := exec.CommandContext(ctx, "ffmpeg", e.args()...) //nolint:gosec // args are built from validated options
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("%w: failed to open encoder stdin: %v", ErrEncoder, err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("%w: failed to open encoder stdout: %v", ErrEncoder, err)
	}
	cmd.Stderr = &e.stderr

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("%w: failed to start encoder process: %v", ErrEncoder, err)
	}

	e.cmd = cmd
	e.stdin = stdin
	e.stdout = stdout
	e.started = true

	go e.readLoop()
	go e.flushLoop()
	return nil
}

// args builds the ffmpeg invocation for the selected format and options.
func (e *FFmpegEncoder) args() []string {
	args := []string{
		"-hide_banner", "-loglevel", "error",
		"-f", "rawvideo",
		"-pix_fmt", "rgba",
		"-s", fmt.Sprintf("%dx%d", e.opts.Width, e.opts.Height),
		"-r", fmt.Sprintf("%d", e.opts.FrameRate),
		"-i", "pipe:0",
	}
	args = append(args, e.audioInputArgs()...)
	args = append(args,
		"-c:v", e.format.VideoCodec,
		"-b:v", e.opts.VideoBitrate,
		"-pix_fmt", "yuv420p",
	)
	if strings.HasPrefix(e.format.VideoCodec, "libvpx") {
		// Live encoding: favor latency over compression.
		args = append(args, "-deadline", "realtime", "-cpu-used", "8")
	}
	args = append(args,
		"-c:a", e.format.AudioCodec,
		"-b:a", e.opts.AudioBitrate,
		"-ar", fmt.Sprintf("%d", e.audio.SampleRate),
	)
	if e.format.Container == "mp4" {
		// mp4 on a pipe requires a fragmented layout.
		args = append(args, "-movflags", "+frag_keyframe+empty_moov")
	}
	args = append(args, "-f", e.format.Container, "pipe:1")
	return args
}

// audioInputArgs returns the microphone input for the platform, or a silent
// source when the capture session has no real audio device.
func (e *FFmpegEncoder) audioInputArgs() []string {
	if e.audio.Device == "" || e.audio.Device == "synthetic" {
		return []string{"-f", "lavfi", "-i", fmt.Sprintf("anullsrc=r=%d:cl=stereo", e.audio.SampleRate)}
	}
	var args []string
	switch runtime.GOOS {
	case "darwin":
		args = []string{"-f", "avfoundation", "-i", e.audio.Device}
	default:
		args = []string{"-f", "pulse", "-i", e.audio.Device}
	}
	if e.audio.NoiseSuppression {
		args = append(args, "-af", "afftdn")
	}
	return args
}

// WriteFrame feeds one composited RGBA frame to the encoder.
func (e *FFmpegEncoder) WriteFrame(img *image.RGBA) error {
	if !e.started {
		return fmt.Errorf("%w: encoder not started", ErrEncoder)
	}
	want := e.opts.Width * e.opts.Height * 4
	if len(img.Pix) < want {
		return fmt.Errorf("%w: frame is %d bytes, want %d", ErrEncoder, len(img.Pix), want)
	}
	if _, err := e.stdin.Write(img.Pix[:want]); err != nil {
		return fmt.Errorf("%w: failed to write frame: %v", ErrEncoder, err)
	}
	return nil
}

// readLoop drains the subprocess stdout into the pending buffer until EOF,
// then hands off to the flush loop for final delivery.
func (e *FFmpegEncoder) readLoop() {
	buf := make([]byte, 64<<10)
	for {
		n, err := e.stdout.Read(buf)
		if n > 0 {
			e.mu.Lock()
			e.pending.Write(buf[:n])
			e.mu.Unlock()
		}
		if err != nil {
			e.readErr = err
			close(e.eof)
			return
		}
	}
}

// flushLoop emits the accumulated output as one chunk per flush interval.
// When the reader signals EOF it flushes the remainder, closes the chunk
// channel, and reports the terminal result on Done.
func (e *FFmpegEncoder) flushLoop() {
	ticker := time.NewTicker(e.opts.FlushInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			e.emitPending()
		case <-e.eof:
			e.emitPending()
			close(e.chunks)
			e.done <- e.terminalError(e.readErr)
			return
		}
	}
}

// emitPending sends the buffered output as one chunk, if any.
func (e *FFmpegEncoder) emitPending() {
	e.mu.Lock()
	data := e.pending.Bytes()
	if len(data) == 0 {
		e.mu.Unlock()
		return
	}
	chunk := make([]byte, len(data))
	copy(chunk, data)
	e.pending.Reset()
	e.mu.Unlock()

	e.chunks <- chunk
}

// terminalError reaps the subprocess and classifies its exit. EOF after a
// clean exit is success.
func (e *FFmpegEncoder) terminalError(readErr error) error {
	waitErr := e.cmd.Wait()
	if waitErr == nil && (readErr == io.EOF || readErr == nil) {
		return nil
	}
	msg := strings.TrimSpace(e.stderr.String())
	if msg == "" {
		msg = fmt.Sprintf("%v", waitErr)
	}
	log.Error().Str("stderr", msg).Msg("encoder process failed")
	return fmt.Errorf("%w: %s", ErrEncoder, msg)
}

// Chunks returns the ordered chunk channel. It is closed after the final
// chunk of a finalized recording.
func (e *FFmpegEncoder) Chunks() <-chan []byte {
	return e.chunks
}

// Stop signals the encoder to finalize by closing its input. Idempotent;
// buffered output continues to drain and Done fires when the container is
// complete.
func (e *FFmpegEncoder) Stop() {
	e.stopOnce.Do(func() {
		if e.stdin != nil {
			_ = e.stdin.Close()
		}
	})
}

// Done reports terminal completion or failure exactly once.
func (e *FFmpegEncoder) Done() <-chan error {
	return e.done
}
