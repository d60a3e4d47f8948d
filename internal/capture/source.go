package capture

import (
	"errors"
	"fmt"
	"image"

	"github.com/bryanchriswhite/grab/internal/config"
	"github.com/bryanchriswhite/grab/internal/logger"
	"github.com/disintegration/imaging"
)

// ErrDeviceUnavailable is returned when a camera cannot be opened at startup
var ErrDeviceUnavailable = errors.New("could not access the camera")

// Kind identifies which origin a Source reads from
type Kind int

const (
	KindStill Kind = iota
	KindDevice
	KindClip
)

func (k Kind) String() string {
	switch k {
	case KindStill:
		return "still"
	case KindDevice:
		return "device"
	case KindClip:
		return "clip"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Source produces one raw frame per call from a still image, a camera or a
// movie clip. The set of kinds is closed; behaviour is selected by kind
// rather than by separate types.
type Source struct {
	kind    Kind
	origin  string
	grabber Grabber
	noData  *image.RGBA

	// decode loads still images; replaced in tests
	decode func(path string) (image.Image, error)

	// degraded is true while the placeholder is being served
	degraded bool
}

// NewStillSource reads path from disk on every frame. An undecodable file
// yields an empty frame rather than the placeholder.
func NewStillSource(path string) *Source {
	return &Source{
		kind:   KindStill,
		origin: path,
		decode: func(p string) (image.Image, error) { return imaging.Open(p) },
	}
}

// NewDeviceSource wraps an already opened camera grabber
func NewDeviceSource(name string, g Grabber, cfg config.MediaConfig) *Source {
	return newGrabberSource(KindDevice, name, g, cfg)
}

// NewClipSource wraps an already opened clip grabber
func NewClipSource(path string, g Grabber, cfg config.MediaConfig) *Source {
	return newGrabberSource(KindClip, path, g, cfg)
}

func newGrabberSource(kind Kind, origin string, g Grabber, cfg config.MediaConfig) *Source {
	if g == nil {
		g = closedGrabber{}
	}
	w := int(g.Get(PropFrameWidth))
	h := int(g.Get(PropFrameHeight))
	return &Source{
		kind:    kind,
		origin:  origin,
		grabber: g,
		noData:  Placeholder(cfg, w, h),
	}
}

// OpenDeviceSource opens camera index. Failing to open the camera at all is
// fatal; later failures only degrade to the placeholder.
func OpenDeviceSource(index int, cfg config.MediaConfig) (*Source, error) {
	g, err := OpenDevice(index)
	if err != nil {
		return nil, fmt.Errorf("%w %d: %v", ErrDeviceUnavailable, index, err)
	}
	return NewDeviceSource(fmt.Sprintf("camera %d", index), g, cfg), nil
}

// OpenClipSource opens a movie file. A clip that cannot be opened serves the
// placeholder on every call.
func OpenClipSource(path string, cfg config.MediaConfig) *Source {
	g, err := OpenClip(path)
	if err != nil {
		logger.WithComponent("capture").Warn().
			Err(err).
			Str("path", path).
			Msg("Clip could not be opened, serving placeholder")
		g = nil
	}
	return NewClipSource(path, g, cfg)
}

// Kind returns the origin kind
func (s *Source) Kind() Kind {
	return s.kind
}

// Origin returns a human-readable description of the origin
func (s *Source) Origin() string {
	return s.origin
}

// Placeholder returns the cached no-data frame; nil for still sources
func (s *Source) Placeholder() *image.RGBA {
	return s.noData
}

// next returns the raw frame for this call
func (s *Source) next() *image.RGBA {
	switch s.kind {
	case KindStill:
		return s.readStill()
	case KindDevice:
		return s.readDevice()
	case KindClip:
		return s.readClip()
	default:
		return s.noData
	}
}

func (s *Source) readStill() *image.RGBA {
	img, err := s.decode(s.origin)
	if err != nil {
		logger.WithComponent("capture").Warn().
			Err(err).
			Str("path", s.origin).
			Msg("Failed to decode still image")
		return &image.RGBA{}
	}
	return ToRGBA(img)
}

func (s *Source) readDevice() *image.RGBA {
	if frame, ok := s.grab(); ok {
		return s.live(frame)
	}
	return s.fallback()
}

func (s *Source) readClip() *image.RGBA {
	if frame, ok := s.grab(); ok {
		return s.live(frame)
	}

	// Most likely the end of the clip: rewind and try exactly once more
	s.grabber.Set(PropPosFrames, 0)
	s.grabber.Set(PropPosMsec, 0)
	if frame, ok := s.grab(); ok {
		logger.WithComponent("capture").Debug().Str("origin", s.origin).Msg("Clip rewound")
		return s.live(frame)
	}
	return s.fallback()
}

// grab performs one read, treating a closed origin or empty frame as failure
func (s *Source) grab() (*image.RGBA, bool) {
	if !s.grabber.IsOpened() {
		return nil, false
	}
	frame, ok := s.grabber.Read()
	if !ok || IsEmpty(frame) {
		return nil, false
	}
	return frame, true
}

func (s *Source) live(frame *image.RGBA) *image.RGBA {
	if s.degraded {
		s.degraded = false
		logger.WithComponent("capture").Info().
			Str("origin", s.origin).
			Msg("Origin available again")
	}
	return frame
}

func (s *Source) fallback() *image.RGBA {
	if !s.degraded {
		s.degraded = true
		logger.WithComponent("capture").Info().
			Str("origin", s.origin).
			Str("kind", s.kind.String()).
			Msg("Origin unavailable, showing placeholder")
	}
	return s.noData
}

// Close releases the origin
func (s *Source) Close() error {
	if s.grabber == nil {
		return nil
	}
	return s.grabber.Close()
}
