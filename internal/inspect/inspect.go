// Package inspect reads back a finished MP4 artifact and reports its track
// layout, as a sanity check on recorded output.
package inspect

import (
	"fmt"
	"io"
	"os"

	"github.com/Eyevinn/mp4ff/mp4"
)

// TrackInfo summarizes one track of an MP4 artifact.
type TrackInfo struct {
	ID      uint32
	Handler string
	Width   uint16
	Height  uint16
}

// Report summarizes an MP4 artifact.
type Report struct {
	DurationSeconds float64
	Tracks          []TrackInfo
}

// File parses the MP4 file at path and returns its report.
func File(path string) (*Report, error) {
	f, err := os.Open(path) //nolint:gosec // File path comes from user input, expected behavior
	if err != nil {
		return nil, fmt.Errorf("failed to open artifact: %w", err)
	}
	defer func() { _ = f.Close() }()
	return Read(f)
}

// Read parses an MP4 stream and returns its report. Fragmented artifacts
// without a duration in the movie header report zero seconds.
func Read(r io.Reader) (*Report, error) {
	parsed, err := mp4.DecodeFile(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse mp4: %w", err)
	}

	moov := parsed.Moov
	if moov == nil && parsed.Init != nil {
		moov = parsed.Init.Moov
	}
	if moov == nil {
		return nil, fmt.Errorf("artifact has no movie header")
	}

	report := &Report{}
	if moov.Mvhd != nil && moov.Mvhd.Timescale > 0 {
		report.DurationSeconds = float64(moov.Mvhd.Duration) / float64(moov.Mvhd.Timescale)
	}

	for _, trak := range moov.Traks {
		info := TrackInfo{}
		if trak.Tkhd != nil {
			info.ID = trak.Tkhd.TrackID
			// Tkhd dimensions are 16.16 fixed point.
			info.Width = uint16(trak.Tkhd.Width >> 16)
			info.Height = uint16(trak.Tkhd.Height >> 16)
		}
		if trak.Mdia != nil && trak.Mdia.Hdlr != nil {
			info.Handler = trak.Mdia.Hdlr.HandlerType
		}
		report.Tracks = append(report.Tracks, info)
	}
	return report, nil
}
