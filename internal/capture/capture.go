package capture

import (
	"image"
)

// Property names a numeric setting of a Grabber
type Property int

const (
	PropFrameWidth Property = iota
	PropFrameHeight
	PropPosFrames
	PropPosMsec
	PropFPS
)

// Grabber is the device or clip decoder behind a Source. Implementations
// never block longer than one decode.
type Grabber interface {
	// IsOpened reports whether the origin is currently usable
	IsOpened() bool

	// Read decodes the next frame. ok is false on a failed grab or end of stream.
	Read() (frame *image.RGBA, ok bool)

	// Get reads a property; unknown or unavailable properties report 0
	Get(prop Property) float64

	// Set changes a property, such as the playback position
	Set(prop Property, value float64)

	// Close releases the origin
	Close() error
}

// closedGrabber stands in for an origin that could not be opened at all
type closedGrabber struct{}

func (closedGrabber) IsOpened() bool { return false }
func (closedGrabber) Read() (*image.RGBA, bool) { return nil, false }
func (closedGrabber) Get(Property) float64 { return 0 }
func (closedGrabber) Set(Property, float64) {}
func (closedGrabber) Close() error { return nil }
