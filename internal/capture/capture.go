// Package capture acquires and owns the live camera/microphone source that
// feeds the compositor and the recording controller.
package capture

import (
	"context"
	"errors"
	"image"
	"time"
)

// Acquisition failure taxonomy. Each maps to a distinct user-facing message;
// there is no automatic retry, the user must explicitly re-trigger acquisition.
var (
	ErrPermissionDenied  = errors.New("camera or microphone access was denied")
	ErrDeviceNotFound    = errors.New("no camera device was found")
	ErrDeviceUnavailable = errors.New("the camera is unavailable")
)

// Frame is one decodable video frame from the live source.
type Frame struct {
	Image     *image.RGBA
	Timestamp time.Time
}

// AudioTrack describes the live audio input. It is a handle, not a stream:
// the encoder opens the device itself. Clone returns an independent copy so
// the original track is never consumed or mutated by a recording.
type AudioTrack struct {
	Device           string
	SampleRate       int
	EchoCancellation bool
	NoiseSuppression bool
}

// Clone returns an independent copy of the track.
func (t AudioTrack) Clone() AudioTrack {
	return t
}

// AudioConstraints describe the requested microphone processing.
type AudioConstraints struct {
	SampleRate       int
	EchoCancellation bool
	NoiseSuppression bool
}

// Constraints describe the requested camera and microphone configuration.
// Width/Height and FrameRate are the ideal values; the Min values are the
// floor below which acquisition should be rejected.
type Constraints struct {
	Width        int
	Height       int
	MinWidth     int
	MinHeight    int
	FrameRate    int
	MinFrameRate int
	FrontFacing  bool
	VideoDevice  string
	Audio        AudioConstraints
}

// DefaultConstraints returns the portrait capture configuration: ideal
// 1080x1920 at 30fps (floor 720x1280 at 24fps), front-facing camera, and
// echo-cancelled, noise-suppressed audio at 48kHz.
func DefaultConstraints() Constraints {
	return Constraints{
		Width:        1080,
		Height:       1920,
		MinWidth:     720,
		MinHeight:    1280,
		FrameRate:    30,
		MinFrameRate: 24,
		FrontFacing:  true,
		Audio: AudioConstraints{
			SampleRate:       48000,
			EchoCancellation: true,
			NoiseSuppression: true,
		},
	}
}

// Validate checks that the constraints are satisfiable.
func (c *Constraints) Validate() error {
	if c.Width < c.MinWidth || c.Height < c.MinHeight {
		return errors.New("ideal resolution must not be below the minimum")
	}
	if c.FrameRate < c.MinFrameRate {
		return errors.New("ideal frame rate must not be below the minimum")
	}
	if c.Audio.SampleRate <= 0 {
		return errors.New("audio sample rate must be positive")
	}
	return nil
}

// Source is a live audio+video capture handle. Frames delivers the most
// recent decodable frame; slow consumers observe only the latest frame,
// never a backlog. Close stops all underlying hardware tracks and must be
// called on every exit path.
type Source interface {
	Frames() <-chan Frame
	AudioTrack() AudioTrack
	Close() error
}

// Opener acquires a Source for the given constraints. Acquisition may block
// until the device opens or the context is cancelled.
type Opener func(ctx context.Context, c Constraints) (Source, error)
