// Package encoder turns the composited surface stream plus a cloned audio
// track into containerized binary chunks.
package encoder

import (
	"context"
	"errors"
	"image"
	"time"

	"github.com/clipbooth/clipbooth/internal/capture"
)

var (
	// ErrUnsupportedFormat reports that no candidate container/codec
	// combination is supported by the runtime.
	ErrUnsupportedFormat = errors.New("no supported recording format found")

	// ErrEncoder reports a runtime failure during capture or finalize.
	ErrEncoder = errors.New("encoder failure")
)

// Format is one container/codec combination the encoder can produce.
type Format struct {
	Container  string
	VideoCodec string
	AudioCodec string
	MIME       string
	Ext        string
}

// String returns the format as a MIME-style codec string.
func (f Format) String() string {
	return f.MIME + ";codecs=" + f.VideoCodec + "," + f.AudioCodec
}

// PreferredFormats is the preference-ordered list of candidate formats. The
// first one the runtime supports is selected.
func PreferredFormats() []Format {
	return []Format{
		{Container: "webm", VideoCodec: "libvpx-vp9", AudioCodec: "libopus", MIME: "video/webm", Ext: ".webm"},
		{Container: "webm", VideoCodec: "libvpx", AudioCodec: "libopus", MIME: "video/webm", Ext: ".webm"},
		{Container: "mp4", VideoCodec: "libx264", AudioCodec: "aac", MIME: "video/mp4", Ext: ".mp4"},
	}
}

// SupportQuery reports whether the runtime can produce a given format.
type SupportQuery interface {
	Supports(f Format) bool
}

// SelectFormat returns the first candidate the runtime supports.
func SelectFormat(q SupportQuery, candidates []Format) (Format, error) {
	for _, f := range candidates {
		if q.Supports(f) {
			return f, nil
		}
	}
	return Format{}, ErrUnsupportedFormat
}

// Options tune the encoding of one recording.
type Options struct {
	Width         int
	Height        int
	FrameRate     int
	VideoBitrate  string
	AudioBitrate  string
	FlushInterval time.Duration
}

// DefaultOptions returns the standard recording targets: 30fps at roughly
// 8 Mbps video and 128 kbps audio, with chunks flushed every 100ms.
func DefaultOptions(width, height int) Options {
	return Options{
		Width:         width,
		Height:        height,
		FrameRate:     30,
		VideoBitrate:  "8M",
		AudioBitrate:  "128k",
		FlushInterval: 100 * time.Millisecond,
	}
}

// Encoder consumes composited frames and emits opaque binary chunks at the
// configured flush interval. Chunks must be concatenated in arrival order to
// reconstruct the artifact. Stop signals finalization; Done reports terminal
// completion or error exactly once.
type Encoder interface {
	Start(ctx context.Context) error
	WriteFrame(img *image.RGBA) error
	Chunks() <-chan []byte
	Stop()
	Done() <-chan error
}

// Factory creates an Encoder for a selected format and a cloned audio track.
type Factory func(f Format, audio capture.AudioTrack, opts Options) (Encoder, error)
