package record

import (
	"errors"
	"fmt"
	"image"

	"github.com/bryanchriswhite/grab/internal/config"
	"github.com/bryanchriswhite/grab/internal/logger"
	"github.com/bryanchriswhite/grab/internal/overlay"
	"github.com/disintegration/imaging"
)

// ErrNoFrameSize is returned when recording is requested before any usable
// frame exists to size the video
var ErrNoFrameSize = errors.New("no frame to size the recording")

// State is the recording state
type State int

const (
	Idle State = iota
	Active
)

func (s State) String() string {
	if s == Active {
		return "recording"
	}
	return "idle"
}

// Controller switches between idle and recording. While recording, every
// frame handed to Write goes to the sink and the indicator widget is
// enabled so the preview shows it.
type Controller struct {
	open      SinkOpener
	namer     *Namer
	fps       float64
	ext       string
	indicator overlay.Widget

	state    State
	sink     Sink
	size     image.Point
	path     string
	lastPath string
	frames   int
}

// NewController creates an idle controller. indicator may be nil.
func NewController(open SinkOpener, namer *Namer, cfg config.RecordingConfig, indicator overlay.Widget) *Controller {
	c := &Controller{
		open:      open,
		namer:     namer,
		fps:       cfg.FPS,
		ext:       cfg.VideoExt,
		indicator: indicator,
	}
	c.showIndicator(false)
	return c
}

// Active reports whether frames are currently being recorded
func (c *Controller) Active() bool {
	return c.state == Active
}

// State returns the current state
func (c *Controller) State() State {
	return c.state
}

// Path returns the file being recorded, or "" when idle
func (c *Controller) Path() string {
	return c.path
}

// LastPath returns the file of the most recent recording, active or not
func (c *Controller) LastPath() string {
	return c.lastPath
}

// Frames returns the number of frames written to the current or last recording
func (c *Controller) Frames() int {
	return c.frames
}

// Toggle starts recording at the given frame size when idle, or stops when
// recording. It returns the affected file name. A start error means no
// destination could be opened and the controller stays idle.
func (c *Controller) Toggle(size image.Point) (string, error) {
	if c.state == Active {
		return c.Stop()
	}
	return c.Start(size)
}

// Start opens a new, freshly named sink
func (c *Controller) Start(size image.Point) (string, error) {
	if c.state == Active {
		return c.path, nil
	}
	if size.X <= 0 || size.Y <= 0 {
		return "", ErrNoFrameSize
	}

	path := c.namer.Next(c.ext)
	sink, err := c.open(path, c.fps, size.X, size.Y)
	if err != nil {
		return "", fmt.Errorf("could not open the video file for writing: %w", err)
	}

	c.sink = sink
	c.size = size
	c.path = path
	c.lastPath = path
	c.frames = 0
	c.state = Active
	c.showIndicator(true)

	logger.WithComponent("record").Info().
		Str("path", path).
		Float64("fps", c.fps).
		Int("width", size.X).
		Int("height", size.Y).
		Msg("Recording started")
	return path, nil
}

// Stop closes the sink. The file name stays available through LastPath.
func (c *Controller) Stop() (string, error) {
	if c.state == Idle {
		return c.lastPath, nil
	}

	err := c.sink.Close()
	c.sink = nil
	c.path = ""
	c.state = Idle
	c.showIndicator(false)

	logger.WithComponent("record").Info().
		Str("path", c.lastPath).
		Int("frames", c.frames).
		Msg("Recording stopped")
	if err != nil {
		return c.lastPath, fmt.Errorf("closing %s: %w", c.lastPath, err)
	}
	return c.lastPath, nil
}

// Write records frame if recording and does nothing otherwise. Frames whose
// size differs from the recording's are resized to fit.
func (c *Controller) Write(frame *image.RGBA) error {
	if c.state != Active || frame == nil || frame.Bounds().Empty() {
		return nil
	}

	out := frame
	if frame.Bounds().Size() != c.size {
		out = toRGBA(imaging.Resize(frame, c.size.X, c.size.Y, imaging.Linear))
	}
	if err := c.sink.Write(out); err != nil {
		return fmt.Errorf("writing frame to %s: %w", c.path, err)
	}
	c.frames++
	return nil
}

// Close stops an active recording
func (c *Controller) Close() error {
	_, err := c.Stop()
	return err
}

func (c *Controller) showIndicator(on bool) {
	if c.indicator != nil {
		c.indicator.SetEnabled(on)
	}
}

// toRGBA reuses the pixel buffer of an opaque NRGBA image; the byte layout
// is identical when every alpha is 255
func toRGBA(img *image.NRGBA) *image.RGBA {
	return &image.RGBA{Pix: img.Pix, Stride: img.Stride, Rect: img.Rect}
}
