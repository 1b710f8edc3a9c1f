package encoder

import (
	"image"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clipbooth/clipbooth/internal/capture"
)

// testEncoder builds an FFmpegEncoder without going through the factory, so
// the args tests do not depend on ffmpeg being installed.
func testEncoder(f Format, audio capture.AudioTrack) *FFmpegEncoder {
	return &FFmpegEncoder{
		format: f,
		audio:  audio,
		opts:   DefaultOptions(1080, 1920),
	}
}

func TestFFmpegEncoder_Args(t *testing.T) {
	webmVP9 := Format{Container: "webm", VideoCodec: "libvpx-vp9", AudioCodec: "libopus", MIME: "video/webm", Ext: ".webm"}
	mp4H264 := Format{Container: "mp4", VideoCodec: "libx264", AudioCodec: "aac", MIME: "video/mp4", Ext: ".mp4"}

	tests := []struct {
		name       string
		format     Format
		audio      capture.AudioTrack
		want       []string
		wantAbsent []string
	}{
		{
			name:   "vp9 uses realtime deadline",
			format: webmVP9,
			audio:  capture.AudioTrack{Device: "synthetic", SampleRate: 48000},
			want:   []string{"-c:v libvpx-vp9", "-deadline realtime", "-f webm pipe:1", "-s 1080x1920", "-pix_fmt rgba"},
		},
		{
			name:       "h264 skips vpx tuning and fragments the container",
			format:     mp4H264,
			audio:      capture.AudioTrack{Device: "synthetic", SampleRate: 48000},
			want:       []string{"-c:v libx264", "-movflags +frag_keyframe+empty_moov", "-f mp4 pipe:1"},
			wantAbsent: []string{"-deadline"},
		},
		{
			name:   "synthetic audio uses a silent source",
			format: webmVP9,
			audio:  capture.AudioTrack{Device: "synthetic", SampleRate: 48000},
			want:   []string{"anullsrc=r=48000:cl=stereo"},
		},
		{
			name:   "real microphone with noise suppression",
			format: webmVP9,
			audio:  capture.AudioTrack{Device: "default", SampleRate: 48000, NoiseSuppression: true},
			want:   []string{"-i default", "-af afftdn", "-ar 48000"},
		},
		{
			name:       "noise suppression off omits the filter",
			format:     webmVP9,
			audio:      capture.AudioTrack{Device: "default", SampleRate: 48000},
			wantAbsent: []string{"afftdn"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			joined := strings.Join(testEncoder(tt.format, tt.audio).args(), " ")
			for _, w := range tt.want {
				assert.Contains(t, joined, w)
			}
			for _, a := range tt.wantAbsent {
				assert.NotContains(t, joined, a)
			}
		})
	}
}

func TestFFmpegEncoder_ArgsInputOrder(t *testing.T) {
	// Video on pipe:0 must be the first input so the raw frame stream maps to
	// stream 0 in the container.
	f := Format{Container: "webm", VideoCodec: "libvpx", AudioCodec: "libopus"}
	args := testEncoder(f, capture.AudioTrack{Device: "synthetic", SampleRate: 48000}).args()

	joined := strings.Join(args, " ")
	assert.Less(t, strings.Index(joined, "pipe:0"), strings.Index(joined, "anullsrc"))
	assert.Equal(t, "pipe:1", args[len(args)-1])
}

func TestFFmpegEncoder_WriteFrameBeforeStart(t *testing.T) {
	f := Format{Container: "webm", VideoCodec: "libvpx", AudioCodec: "libopus"}
	enc := testEncoder(f, capture.AudioTrack{Device: "synthetic", SampleRate: 48000})

	err := enc.WriteFrame(image.NewRGBA(image.Rect(0, 0, 1080, 1920)))
	require.ErrorIs(t, err, ErrEncoder)
	assert.Contains(t, err.Error(), "not started")
}

func TestFFmpegEncoder_WriteFrameSizeMismatch(t *testing.T) {
	f := Format{Container: "webm", VideoCodec: "libvpx", AudioCodec: "libopus"}
	enc := testEncoder(f, capture.AudioTrack{Device: "synthetic", SampleRate: 48000})
	enc.started = true

	err := enc.WriteFrame(image.NewRGBA(image.Rect(0, 0, 64, 64)))
	require.ErrorIs(t, err, ErrEncoder)
	assert.Contains(t, err.Error(), "want")
}
