// Package schedule provides types and functions for loading and validating
// clipbooth caption schedules.
package schedule

import (
	"errors"
	"fmt"
	"image/color"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// fadeWindow is the duration of the linear fade-in and fade-out ramps at the
// edges of an overlay's interval.
const fadeWindow = 500 * time.Millisecond

// Schedule represents a complete caption timeline loaded from a YAML file.
type Schedule struct {
	Meta     Meta      `yaml:"meta"`
	Overlays []Overlay `yaml:"overlays"`
}

// Validate checks that the schedule is valid. Overlapping overlay intervals
// are logged as warnings but do not fail validation; lookup resolves overlaps
// by declaration order.
func (s *Schedule) Validate() error {
	if err := s.Meta.Validate(); err != nil {
		return fmt.Errorf("meta: %w", err)
	}
	if len(s.Overlays) == 0 {
		return errors.New("overlays must contain at least one overlay")
	}
	for i, o := range s.Overlays {
		if err := o.Validate(); err != nil {
			return fmt.Errorf("overlay %d: %w", i, err)
		}
	}
	s.warnOverlaps()
	return nil
}

// warnOverlaps logs a warning for every pair of overlays whose intervals
// intersect. Declaration order decides which one wins at lookup time.
func (s *Schedule) warnOverlaps() {
	for i := 0; i < len(s.Overlays); i++ {
		for j := i + 1; j < len(s.Overlays); j++ {
			a, b := s.Overlays[i], s.Overlays[j]
			if a.Start() < b.End() && b.Start() < a.End() {
				log.Warn().
					Int("overlay", i).
					Int("overlaps", j).
					Msg("overlay intervals overlap; earliest declared wins")
			}
		}
	}
}

// ActiveAt returns the overlay whose interval contains the given elapsed
// recording time, or false if no overlay is active. When intervals overlap,
// the earliest declared overlay wins.
func (s *Schedule) ActiveAt(elapsed time.Duration) (*Overlay, bool) {
	for i := range s.Overlays {
		o := &s.Overlays[i]
		if elapsed >= o.Start() && elapsed < o.End() {
			return o, true
		}
	}
	return nil, false
}

// Meta contains schedule metadata.
type Meta struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description,omitempty"`
}

// Validate checks that the meta section is valid.
func (m *Meta) Validate() error {
	if strings.TrimSpace(m.Name) == "" {
		return errors.New("name must be non-empty")
	}
	return nil
}

// Overlay is a single timed caption: the text, its colors, and the time
// window (relative to recording start) during which it is shown.
type Overlay struct {
	Text       string `yaml:"text"`
	Foreground string `yaml:"foreground"`
	Background string `yaml:"background"`
	StartMs    uint   `yaml:"start_ms"`
	DurationMs uint   `yaml:"duration_ms"`
}

// Validate checks that the overlay is valid.
func (o *Overlay) Validate() error {
	if strings.TrimSpace(o.Text) == "" {
		return errors.New("text must be non-empty")
	}
	if o.DurationMs == 0 {
		return errors.New("duration_ms must be greater than zero")
	}
	if _, err := ParseHexColor(o.Foreground); err != nil {
		return fmt.Errorf("foreground: %w", err)
	}
	if _, err := ParseHexColor(o.Background); err != nil {
		return fmt.Errorf("background: %w", err)
	}
	return nil
}

// Start returns the overlay's start offset relative to recording start.
func (o *Overlay) Start() time.Duration {
	return time.Duration(o.StartMs) * time.Millisecond
}

// End returns the exclusive end of the overlay's interval.
func (o *Overlay) End() time.Duration {
	return o.Start() + o.Duration()
}

// Duration returns how long the overlay stays on screen.
func (o *Overlay) Duration() time.Duration {
	return time.Duration(o.DurationMs) * time.Millisecond
}

// ForegroundColor returns the parsed foreground color. Validate must have
// succeeded for the result to be meaningful.
func (o *Overlay) ForegroundColor() color.NRGBA {
	c, _ := ParseHexColor(o.Foreground)
	return c
}

// BackgroundColor returns the parsed background color, typically carrying
// an alpha component for the semi-transparent caption backdrop.
func (o *Overlay) BackgroundColor() color.NRGBA {
	c, _ := ParseHexColor(o.Background)
	return c
}

// OpacityAt returns the caption opacity for a point within the overlay's
// interval: a linear fade-in over the first 500ms, full opacity in the
// middle, and a linear fade-out over the last 500ms. The result is always
// within [0, 1]. Times outside the interval yield 0.
func (o *Overlay) OpacityAt(elapsedInInterval time.Duration) float64 {
	d := o.Duration()
	if elapsedInInterval < 0 || elapsedInInterval > d {
		return 0
	}
	in := float64(elapsedInInterval) / float64(fadeWindow)
	out := float64(d-elapsedInInterval) / float64(fadeWindow)
	opacity := 1.0
	if in < opacity {
		opacity = in
	}
	if out < opacity {
		opacity = out
	}
	if opacity < 0 {
		return 0
	}
	return opacity
}

// ParseHexColor parses a #RRGGBB or #RRGGBBAA hex color string.
func ParseHexColor(s string) (color.NRGBA, error) {
	if !strings.HasPrefix(s, "#") {
		return color.NRGBA{}, fmt.Errorf("color %q must start with '#'", s)
	}
	hex := s[1:]
	if len(hex) != 6 && len(hex) != 8 {
		return color.NRGBA{}, fmt.Errorf("color %q must be #RRGGBB or #RRGGBBAA", s)
	}
	var vals [4]uint8
	vals[3] = 0xff
	for i := 0; i < len(hex)/2; i++ {
		hi, ok1 := hexDigit(hex[2*i])
		lo, ok2 := hexDigit(hex[2*i+1])
		if !ok1 || !ok2 {
			return color.NRGBA{}, fmt.Errorf("color %q contains invalid hex digits", s)
		}
		vals[i] = hi<<4 | lo
	}
	return color.NRGBA{R: vals[0], G: vals[1], B: vals[2], A: vals[3]}, nil
}

func hexDigit(b byte) (uint8, bool) {
	switch {
	case b >= '0' && b <= '9':
		return b - '0', true
	case b >= 'a' && b <= 'f':
		return b - 'a' + 10, true
	case b >= 'A' && b <= 'F':
		return b - 'A' + 10, true
	default:
		return 0, false
	}
}
