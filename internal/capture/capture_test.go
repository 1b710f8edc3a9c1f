package capture

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConstraints_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Constraints)
		wantErr string
	}{
		{name: "defaults are valid", mutate: func(*Constraints) {}},
		{
			name:    "resolution below minimum",
			mutate:  func(c *Constraints) { c.Width = 640; c.Height = 480 },
			wantErr: "ideal resolution must not be below the minimum",
		},
		{
			name:    "frame rate below minimum",
			mutate:  func(c *Constraints) { c.FrameRate = 15 },
			wantErr: "ideal frame rate must not be below the minimum",
		},
		{
			name:    "zero sample rate",
			mutate:  func(c *Constraints) { c.Audio.SampleRate = 0 },
			wantErr: "audio sample rate must be positive",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := DefaultConstraints()
			tt.mutate(&c)
			err := c.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestDefaultConstraints(t *testing.T) {
	c := DefaultConstraints()
	assert.Equal(t, 1080, c.Width)
	assert.Equal(t, 1920, c.Height)
	assert.Equal(t, 720, c.MinWidth)
	assert.Equal(t, 1280, c.MinHeight)
	assert.Equal(t, 30, c.FrameRate)
	assert.Equal(t, 24, c.MinFrameRate)
	assert.True(t, c.FrontFacing)
	assert.Equal(t, 48000, c.Audio.SampleRate)
	assert.True(t, c.Audio.EchoCancellation)
	assert.True(t, c.Audio.NoiseSuppression)
}

func TestAudioTrack_Clone(t *testing.T) {
	orig := AudioTrack{Device: "default", SampleRate: 48000, EchoCancellation: true}
	clone := orig.Clone()

	clone.Device = "other"
	assert.Equal(t, "default", orig.Device, "mutating the clone must not touch the original")
	assert.Equal(t, 48000, clone.SampleRate)
}

func TestClassifyDeviceError(t *testing.T) {
	tests := []struct {
		name   string
		stderr string
		want   error
	}{
		{
			name:   "permission denied",
			stderr: "/dev/video0: Permission denied",
			want:   ErrPermissionDenied,
		},
		{
			name:   "operation not permitted",
			stderr: "avfoundation: Operation not permitted",
			want:   ErrPermissionDenied,
		},
		{
			name:   "device missing",
			stderr: "/dev/video0: No such file or directory",
			want:   ErrDeviceNotFound,
		},
		{
			name:   "no such device",
			stderr: "v4l2: No such device",
			want:   ErrDeviceNotFound,
		},
		{
			name:   "busy device",
			stderr: "/dev/video0: Device or resource busy",
			want:   ErrDeviceUnavailable,
		},
		{
			name:   "empty stderr",
			stderr: "",
			want:   ErrDeviceUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ClassifyDeviceError(tt.stderr, errors.New("read failed"))
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestClassifyDeviceError_DistinctMessages(t *testing.T) {
	msgs := map[string]bool{
		ErrPermissionDenied.Error():  true,
		ErrDeviceNotFound.Error():    true,
		ErrDeviceUnavailable.Error(): true,
	}
	assert.Len(t, msgs, 3, "taxonomy messages must be distinct")
}

func TestOpenSynthetic(t *testing.T) {
	c := DefaultConstraints()
	c.Width = 90
	c.Height = 160
	c.MinWidth = 90
	c.MinHeight = 160

	src, err := OpenSynthetic(context.Background(), c)
	require.NoError(t, err)
	defer func() { _ = src.Close() }()

	select {
	case frame := <-src.Frames():
		require.NotNil(t, frame.Image)
		assert.Equal(t, 90, frame.Image.Bounds().Dx())
		assert.Equal(t, 160, frame.Image.Bounds().Dy())
		assert.False(t, frame.Timestamp.IsZero())
	case <-time.After(2 * time.Second):
		t.Fatal("no frame produced")
	}

	assert.Equal(t, "synthetic", src.AudioTrack().Device)
}

func TestOpenSynthetic_InvalidConstraints(t *testing.T) {
	c := DefaultConstraints()
	c.Audio.SampleRate = 0
	_, err := OpenSynthetic(context.Background(), c)
	assert.Error(t, err)
}

func TestSyntheticSource_CloseIdempotent(t *testing.T) {
	src, err := OpenSynthetic(context.Background(), DefaultConstraints())
	require.NoError(t, err)

	assert.NoError(t, src.Close())
	assert.NoError(t, src.Close())

	// After close the frame channel drains and closes.
	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-src.Frames():
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("frame channel not closed after Close")
		}
	}
}
