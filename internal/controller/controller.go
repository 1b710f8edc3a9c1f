package controller

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/clipbooth/clipbooth/internal/artifact"
	"github.com/clipbooth/clipbooth/internal/capture"
	"github.com/clipbooth/clipbooth/internal/compositor"
	"github.com/clipbooth/clipbooth/internal/encoder"
	"github.com/clipbooth/clipbooth/internal/schedule"
)

// ErrNotReady reports a recording start without an active capture session
// and output surface. It causes no state change.
var ErrNotReady = errors.New("recording requires an active capture session")

// RecordingDuration is the fixed length of every take.
const RecordingDuration = 15 * time.Second

// finalizeGrace bounds how long a cancelled session waits for the encoder to
// flush the chunks it already buffered.
const finalizeGrace = 5 * time.Second

// Deps are the external capabilities the controller drives.
type Deps struct {
	Open       capture.Opener
	Support    encoder.SupportQuery
	NewEncoder encoder.Factory
	Saver      artifact.Saver
}

// Controller owns the recording session: the capture source, the compositor
// surface, the encoder, the countdown, and the buffered chunk sequence. All
// mutable session fields are owned here and mutated only on the event loop,
// so no locking is needed.
type Controller struct {
	constraints capture.Constraints
	sched       *schedule.Schedule
	deps        Deps
	opts        encoder.Options

	machine *Machine
	comp    *compositor.Compositor
	src     capture.Source
	enc     encoder.Encoder
	format  encoder.Format

	chunks    [][]byte
	startAt   time.Time
	remaining int
	art       *artifact.Artifact
	latest    *capture.Frame

	onCountdown func(int)
	onOverlay   compositor.OverlayChangeFunc
	now         func() time.Time
}

// Option configures a Controller.
type Option func(*Controller)

// WithCountdownObserver registers a callback fired once per countdown second
// with the remaining whole seconds.
func WithCountdownObserver(fn func(remaining int)) Option {
	return func(c *Controller) {
		c.onCountdown = fn
	}
}

// WithOverlayObserver registers the live-preview caption callback.
func WithOverlayObserver(fn compositor.OverlayChangeFunc) Option {
	return func(c *Controller) {
		c.onOverlay = fn
	}
}

// withClock overrides the wall clock, for tests.
func withClock(now func() time.Time) Option {
	return func(c *Controller) {
		c.now = now
	}
}

// New creates a Controller. The session starts in Initializing; call
// Initialize (or Run) to acquire the capture source.
func New(constraints capture.Constraints, sched *schedule.Schedule, deps Deps, opts ...Option) *Controller {
	c := &Controller{
		constraints: constraints,
		sched:       sched,
		deps:        deps,
		opts:        encoder.DefaultOptions(compositor.Width, compositor.Height),
		machine:     NewMachine(),
		now:         time.Now,
	}
	c.opts.FrameRate = constraints.FrameRate
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State returns the current lifecycle state.
func (c *Controller) State() State {
	return c.machine.State()
}

// Err returns the failure behind an Error state, or nil.
func (c *Controller) Err() error {
	return c.machine.Err()
}

// Artifact returns the finished recording, or nil before completion and
// after Reset.
func (c *Controller) Artifact() *artifact.Artifact {
	return c.art
}

// Initialize acquires the capture source and builds the output surface,
// moving the session from Initializing to Ready. Acquisition failures move
// it to Error with the capture taxonomy preserved.
func (c *Controller) Initialize(ctx context.Context) error {
	if c.machine.State() != StateInitializing {
		return fmt.Errorf("cannot initialize from state %s", c.machine.State())
	}

	src, err := c.deps.Open(ctx, c.constraints)
	if err != nil {
		_ = c.machine.Fail(err)
		return err
	}

	comp, err := compositor.New(c.sched, compositor.WithOverlayObserver(c.onOverlay))
	if err != nil {
		_ = src.Close()
		_ = c.machine.Fail(err)
		return err
	}

	c.src = src
	c.comp = comp
	return c.machine.Transition(StateReady)
}

// Retry moves an errored session back to Initializing so acquisition can be
// re-attempted. It is the only way out of the Error state.
func (c *Controller) Retry() error {
	if err := c.machine.Transition(StateInitializing); err != nil {
		return err
	}
	c.closeSource()
	return nil
}

// Start begins a recording: selects an output format, starts the encoder on
// the surface stream plus a clone of the live audio track, records the start
// timestamp, and arms the countdown. Preconditions failing yields ErrNotReady
// with no state change.
func (c *Controller) Start(ctx context.Context) error {
	if c.src == nil || c.comp == nil {
		return ErrNotReady
	}
	if c.machine.State() != StateReady {
		return ErrNotReady
	}

	format, err := encoder.SelectFormat(c.deps.Support, encoder.PreferredFormats())
	if err != nil {
		_ = c.machine.Fail(err)
		return err
	}

	enc, err := c.deps.NewEncoder(format, c.src.AudioTrack().Clone(), c.opts)
	if err != nil {
		_ = c.machine.Fail(err)
		return err
	}
	// The encoder outlives ctx cancellation so already-buffered chunks can
	// still be finalized; it is stopped through Stop.
	if err := enc.Start(context.WithoutCancel(ctx)); err != nil {
		_ = c.machine.Fail(err)
		return err
	}

	c.enc = enc
	c.format = format
	c.chunks = nil
	c.art = nil
	c.startAt = c.now()
	c.remaining = int(RecordingDuration / time.Second)
	return c.machine.Transition(StateRecording)
}

// Elapsed returns the time since recording start.
func (c *Controller) Elapsed() time.Duration {
	if c.startAt.IsZero() {
		return 0
	}
	return c.now().Sub(c.startAt)
}

// Remaining returns the countdown value in whole seconds.
func (c *Controller) Remaining() int {
	return c.remaining
}

// Stop ends the active recording and signals the encoder to finalize.
// Idempotent: it is a no-op unless the session is actively recording.
func (c *Controller) Stop() {
	if c.machine.State() != StateRecording {
		return
	}
	c.enc.Stop()
	if err := c.machine.Transition(StateProcessing); err != nil {
		log.Error().Err(err).Msg("stop transition rejected")
	}
}

// Reset discards the current artifact and returns the session to Ready so a
// new recording can start without re-acquiring the capture source.
func (c *Controller) Reset() error {
	if err := c.machine.Transition(StateReady); err != nil {
		return err
	}
	c.art = nil
	c.chunks = nil
	c.remaining = 0
	c.startAt = time.Time{}
	return nil
}

// renderTick runs one frame of the render loop: pick up the latest camera
// frame, composite, and, while recording, feed the surface to the encoder.
// Drawing and encoding errors spoil only this tick; the loop never dies.
func (c *Controller) renderTick() {
	select {
	case f, ok := <-c.src.Frames():
		if ok {
			c.latest = &f
		}
	default:
	}

	recording := c.machine.State() == StateRecording
	var elapsed time.Duration
	if recording {
		elapsed = c.Elapsed()
	}

	if err := c.comp.RenderTick(c.latest, recording, elapsed); err != nil {
		log.Warn().Err(err).Msg("render tick failed")
		return
	}

	if recording {
		if err := c.enc.WriteFrame(c.comp.RGBA()); err != nil {
			log.Warn().Err(err).Msg("frame delivery to encoder failed")
		}
	}
}

// countdownTick decrements the one-second countdown and stops the recording
// when it reaches zero.
func (c *Controller) countdownTick() {
	if c.machine.State() != StateRecording {
		return
	}
	c.remaining--
	if c.onCountdown != nil {
		c.onCountdown(c.remaining)
	}
	if c.remaining <= 0 {
		c.Stop()
	}
}

// handleChunk appends one encoded chunk to the ordered sequence.
func (c *Controller) handleChunk(chunk []byte) {
	c.chunks = append(c.chunks, chunk)
}

// finalize consumes the encoder's terminal result: on success it builds the
// artifact from the buffered chunks, completes the session, and hands the
// artifact to the save capability.
func (c *Controller) finalize(encErr error) error {
	if encErr != nil {
		_ = c.machine.Fail(encErr)
		return encErr
	}

	c.art = artifact.New(c.chunks, c.format.MIME, c.format.Ext, c.now())
	if err := c.machine.Transition(StateComplete); err != nil {
		return err
	}

	if err := c.deps.Saver.Save(c.art); err != nil {
		return fmt.Errorf("failed to save artifact %s: %w", c.art.Filename, err)
	}
	return nil
}

// closeSource releases the capture hardware, if held.
func (c *Controller) closeSource() {
	if c.src != nil {
		if err := c.src.Close(); err != nil {
			log.Warn().Err(err).Msg("capture source close failed")
		}
		c.src = nil
	}
}

// Run drives one complete take: acquire the source, start recording, run the
// render loop and countdown until the encoder finalizes, save the artifact,
// and release the hardware on every exit path.
func (c *Controller) Run(ctx context.Context) error {
	if err := c.Initialize(ctx); err != nil {
		return err
	}
	defer c.closeSource()

	if err := c.Start(ctx); err != nil {
		return err
	}

	render := time.NewTicker(time.Second / time.Duration(c.opts.FrameRate))
	defer render.Stop()
	countdown := time.NewTicker(time.Second)
	defer countdown.Stop()

	chunks := c.enc.Chunks()
	for {
		select {
		case <-ctx.Done():
			c.Stop()
			return c.drainAndFinalize(chunks)
		case <-render.C:
			c.renderTick()
		case <-countdown.C:
			c.countdownTick()
		case chunk, ok := <-chunks:
			if !ok {
				chunks = nil
				continue
			}
			c.handleChunk(chunk)
		case err := <-c.enc.Done():
			c.drainChunks(chunks)
			return c.finalize(err)
		}
	}
}

// drainAndFinalize waits briefly for the stopped encoder to flush what it
// already buffered, then finalizes with whatever arrived.
func (c *Controller) drainAndFinalize(chunks <-chan []byte) error {
	deadline := time.NewTimer(finalizeGrace)
	defer deadline.Stop()
	for {
		select {
		case chunk, ok := <-chunks:
			if !ok {
				chunks = nil
				continue
			}
			c.handleChunk(chunk)
		case err := <-c.enc.Done():
			c.drainChunks(chunks)
			return c.finalize(err)
		case <-deadline.C:
			err := fmt.Errorf("%w: finalize timed out", encoder.ErrEncoder)
			_ = c.machine.Fail(err)
			return err
		}
	}
}

// drainChunks collects any chunks still buffered on a closed or idle channel.
func (c *Controller) drainChunks(chunks <-chan []byte) {
	if chunks == nil {
		return
	}
	for {
		select {
		case chunk, ok := <-chunks:
			if !ok {
				return
			}
			c.handleChunk(chunk)
		default:
			return
		}
	}
}
