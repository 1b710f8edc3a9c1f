package encoder

import (
	"fmt"
	"os/exec"
	"strings"
	"sync"
)

// FFmpegSupport answers format support queries by probing the encoders the
// local ffmpeg build ships with. The probe runs once and is cached.
type FFmpegSupport struct {
	once     sync.Once
	encoders map[string]bool
	probeErr error
}

// NewFFmpegSupport returns a lazy ffmpeg capability prober.
func NewFFmpegSupport() *FFmpegSupport {
	return &FFmpegSupport{}
}

// Supports reports whether both codecs of the format are available. A failed
// probe makes every format unsupported; the caller surfaces that as
// ErrUnsupportedFormat.
func (s *FFmpegSupport) Supports(f Format) bool {
	s.once.Do(s.probe)
	if s.probeErr != nil {
		return false
	}
	return s.encoders[f.VideoCodec] && s.encoders[f.AudioCodec]
}

// probe lists the available encoders.
func (s *FFmpegSupport) probe() {
	out, err := exec.Command("ffmpeg", "-hide_banner", "-encoders").Output()
	if err != nil {
		s.probeErr = fmt.Errorf("failed to probe ffmpeg encoders: %w", err)
		return
	}
	s.encoders = ParseEncoderList(string(out))
}

// ParseEncoderList extracts encoder names from `ffmpeg -encoders` output.
// Each listing line looks like " V....D libx264  H.264 / AVC ...": a flags
// column, the encoder name, then a description.
func ParseEncoderList(out string) map[string]bool {
	encoders := make(map[string]bool)
	inList := false
	for _, line := range strings.Split(out, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "------") {
			inList = true
			continue
		}
		if !inList {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		encoders[fields[1]] = true
	}
	return encoders
}

// StaticSupport is a fixed support table, used in tests and by doctor output.
type StaticSupport map[string]bool

// Supports reports whether both codecs are present in the table.
func (s StaticSupport) Supports(f Format) bool {
	return s[f.VideoCodec] && s[f.AudioCodec]
}
