package capture

import (
	"context"
	"image"
	"image/color"
	"sync"
	"time"
)

// SyntheticSource generates a moving test pattern instead of opening camera
// hardware. It backs the --synthetic flag and the test suite.
type SyntheticSource struct {
	frames    chan Frame
	audio     AudioTrack
	width     int
	height    int
	interval  time.Duration
	closeOnce sync.Once
	done      chan struct{}
}

// OpenSynthetic returns a Source producing a generated test pattern at the
// constraint frame rate. It never touches hardware and never fails.
func OpenSynthetic(_ context.Context, c Constraints) (Source, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	s := &SyntheticSource{
		frames: make(chan Frame, 1),
		audio: AudioTrack{
			Device:           "synthetic",
			SampleRate:       c.Audio.SampleRate,
			EchoCancellation: c.Audio.EchoCancellation,
			NoiseSuppression: c.Audio.NoiseSuppression,
		},
		width:    c.Width,
		height:   c.Height,
		interval: time.Second / time.Duration(c.FrameRate),
		done:     make(chan struct{}),
	}
	go s.run()
	return s, nil
}

// run emits one generated frame per tick until the source is closed.
func (s *SyntheticSource) run() {
	defer close(s.frames)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	n := 0
	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			frame := Frame{Image: s.pattern(n), Timestamp: time.Now()}
			select {
			case s.frames <- frame:
			default:
				select {
				case <-s.frames:
				default:
				}
				select {
				case s.frames <- frame:
				default:
				}
			}
			n++
		}
	}
}

// pattern renders a diagonal gradient that shifts each frame, so motion is
// visible in recorded output.
func (s *SyntheticSource) pattern(n int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, s.width, s.height))
	shift := n * 3
	for y := 0; y < s.height; y += 4 {
		for x := 0; x < s.width; x += 4 {
			c := color.RGBA{
				R: uint8(((x + shift) % s.width) * 255 / s.width),
				G: uint8(((y + shift) % s.height) * 255 / s.height),
				B: uint8(128 + shift%128),
				A: 255,
			}
			for dy := 0; dy < 4 && y+dy < s.height; dy++ {
				for dx := 0; dx < 4 && x+dx < s.width; dx++ {
					img.SetRGBA(x+dx, y+dy, c)
				}
			}
		}
	}
	return img
}

// Frames returns the latest-frame channel.
func (s *SyntheticSource) Frames() <-chan Frame {
	return s.frames
}

// AudioTrack returns a placeholder audio handle.
func (s *SyntheticSource) AudioTrack() AudioTrack {
	return s.audio
}

// Close stops frame generation. Safe to call multiple times.
func (s *SyntheticSource) Close() error {
	s.closeOnce.Do(func() {
		close(s.done)
	})
	return nil
}
