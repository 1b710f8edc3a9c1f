// Package compositor renders the live camera frame and the active timed
// caption into a fixed-resolution portrait output surface.
package compositor

import (
	"fmt"
	"image"
	"image/draw"
	"time"

	"github.com/gogpu/gg"
	ggtext "github.com/gogpu/gg/text"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/clipbooth/clipbooth/internal/capture"
	"github.com/clipbooth/clipbooth/internal/schedule"
)

// Canonical output resolution. The surface is portrait and fixed regardless
// of the source camera's native resolution, so downstream consumers always
// get a stable frame size.
const (
	Width  = 1080
	Height = 1920
)

// Caption layout constants.
const (
	paddingX     = 40.0
	paddingY     = 20.0
	bottomMargin = 300.0
	cornerRadius = 24.0
	fontSize     = 64.0
	outlineWidth = 2.0
)

// OverlayChangeFunc is notified whenever the active overlay transitions,
// including to nil when a caption window ends. It mirrors the caption outside
// the recorded frame (live preview); it is not part of the recorded output.
type OverlayChangeFunc func(*schedule.Overlay)

// Compositor merges the latest camera frame with time-indexed captions onto
// one output surface. It is the sole writer of that surface and is intended
// to run on a single goroutine.
type Compositor struct {
	dc       *gg.Context
	sched    *schedule.Schedule
	onChange OverlayChangeFunc
	active   *schedule.Overlay
}

// Option configures a Compositor.
type Option func(*Compositor)

// WithOverlayObserver registers the overlay-change callback.
func WithOverlayObserver(fn OverlayChangeFunc) Option {
	return func(c *Compositor) {
		c.onChange = fn
	}
}

// New creates a Compositor for the given caption schedule.
func New(sched *schedule.Schedule, opts ...Option) (*Compositor, error) {
	source, err := ggtext.NewFontSource(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("failed to load caption font: %w", err)
	}

	dc := gg.NewContext(Width, Height)
	dc.SetFont(source.Face(fontSize))

	c := &Compositor{
		dc:    dc,
		sched: sched,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// RenderTick produces one composited frame: it clears the surface, draws the
// latest camera frame scaled and cropped to fill, and, while recording,
// draws the active caption for the elapsed recording time. A returned error
// spoils only this tick; the surface stays usable for the next one.
func (c *Compositor) RenderTick(frame *capture.Frame, recording bool, elapsed time.Duration) error {
	c.dc.SetRGBA(0, 0, 0, 1)
	c.dc.DrawRectangle(0, 0, Width, Height)
	c.dc.Fill()

	if frame != nil && frame.Image != nil {
		c.drawCover(frame.Image)
	}

	var active *schedule.Overlay
	if recording {
		if o, ok := c.sched.ActiveAt(elapsed); ok {
			active = o
			if err := c.drawOverlay(o, elapsed-o.Start()); err != nil {
				c.notify(active)
				return err
			}
		}
	}
	c.notify(active)
	return nil
}

// notify fires the overlay-change observer when the active overlay differs
// from the previous tick's.
func (c *Compositor) notify(active *schedule.Overlay) {
	if active == c.active {
		return
	}
	c.active = active
	if c.onChange != nil {
		c.onChange(active)
	}
}

// drawCover draws the source image scaled and center-cropped so it fills the
// surface exactly, with no letterboxing.
func (c *Compositor) drawCover(src *image.RGBA) {
	srcW := src.Bounds().Dx()
	srcH := src.Bounds().Dy()
	if srcW == 0 || srcH == 0 {
		return
	}

	// Crop the centered region of the source whose aspect matches the
	// surface, then scale it to cover the full surface.
	cropW, cropH := srcW, srcH
	if srcW*Height > srcH*Width {
		cropW = srcH * Width / Height
	} else {
		cropH = srcW * Height / Width
	}
	x0 := (srcW - cropW) / 2
	y0 := (srcH - cropH) / 2
	srcRect := image.Rect(x0, y0, x0+cropW, y0+cropH)

	c.dc.DrawImageEx(gg.ImageBufFromImage(src), gg.DrawImageOptions{
		X:             0,
		Y:             0,
		DstWidth:      Width,
		DstHeight:     Height,
		SrcRect:       &srcRect,
		Interpolation: gg.InterpBilinear,
		Opacity:       1.0,
		BlendMode:     gg.BlendNormal,
	})
}

// drawOverlay draws the caption backdrop and text for the given point inside
// the overlay's interval, modulated by the fade opacity.
func (c *Compositor) drawOverlay(o *schedule.Overlay, elapsedInInterval time.Duration) error {
	opacity := o.OpacityAt(elapsedInInterval)
	if opacity <= 0 {
		return nil
	}

	textW, textH := c.dc.MeasureString(o.Text)
	centerX := float64(Width) / 2
	baselineY := float64(Height) - bottomMargin

	// Backdrop sized to the measured text bounds plus padding, centered
	// horizontally and anchored above the bottom edge.
	bg := o.BackgroundColor()
	c.dc.SetRGBA(
		float64(bg.R)/255,
		float64(bg.G)/255,
		float64(bg.B)/255,
		float64(bg.A)/255*opacity,
	)
	c.dc.DrawRoundedRectangle(
		centerX-textW/2-paddingX,
		baselineY-textH/2-paddingY,
		textW+2*paddingX,
		textH+2*paddingY,
		cornerRadius,
	)
	c.dc.Fill()

	// Outline pass for legibility: the text repeated at fixed offsets in a
	// dark semi-opaque color, then the filled text on top.
	c.dc.SetRGBA(0, 0, 0, 0.8*opacity)
	for _, dx := range []float64{-outlineWidth, 0, outlineWidth} {
		for _, dy := range []float64{-outlineWidth, 0, outlineWidth} {
			if dx == 0 && dy == 0 {
				continue
			}
			c.dc.DrawStringAnchored(o.Text, centerX+dx, baselineY+dy, 0.5, 0.5)
		}
	}

	fg := o.ForegroundColor()
	c.dc.SetRGBA(
		float64(fg.R)/255,
		float64(fg.G)/255,
		float64(fg.B)/255,
		float64(fg.A)/255*opacity,
	)
	c.dc.DrawStringAnchored(o.Text, centerX, baselineY, 0.5, 0.5)
	return nil
}

// Active returns the overlay drawn on the most recent tick, or nil.
func (c *Compositor) Active() *schedule.Overlay {
	return c.active
}

// RGBA returns a copy of the current surface contents as an RGBA image,
// suitable for handing to the encoder.
func (c *Compositor) RGBA() *image.RGBA {
	img := c.dc.Image()
	out := image.NewRGBA(image.Rect(0, 0, Width, Height))
	draw.Draw(out, out.Bounds(), img, img.Bounds().Min, draw.Src)
	return out
}
