package overlay

import (
	"image"
	"image/color"
	"image/draw"
)

// Widget is something drawn on top of a preview frame. Widgets only ever
// touch the copy handed to Render, never the captured frame itself.
type Widget interface {
	// ID returns the unique identifier for this widget instance
	ID() string

	// Type returns the widget type name
	Type() string

	// Render draws the widget onto the provided image at its position
	Render(img *image.RGBA) error

	// IsEnabled returns whether the widget should be rendered
	IsEnabled() bool

	// SetEnabled sets whether the widget should be rendered
	SetEnabled(enabled bool)
}

// BaseWidget provides common functionality for all widgets
type BaseWidget struct {
	id      string
	enabled bool
	x       int
	y       int
	opacity float64 // 0.0 to 1.0
}

// NewBaseWidget creates a new base widget
func NewBaseWidget(id string, x, y int, opacity float64) *BaseWidget {
	w := &BaseWidget{id: id, enabled: true, x: x, y: y}
	w.SetOpacity(opacity)
	return w
}

// ID returns the widget's unique identifier
func (w *BaseWidget) ID() string {
	return w.id
}

// IsEnabled returns whether the widget should be rendered
func (w *BaseWidget) IsEnabled() bool {
	return w.enabled
}

// SetEnabled sets whether the widget should be rendered
func (w *BaseWidget) SetEnabled(enabled bool) {
	w.enabled = enabled
}

// Position returns the widget's anchor point
func (w *BaseWidget) Position() image.Point {
	return image.Pt(w.x, w.y)
}

// SetPosition moves the widget's anchor point
func (w *BaseWidget) SetPosition(x, y int) {
	w.x = x
	w.y = y
}

// SetOpacity sets the widget's opacity (0.0 to 1.0)
func (w *BaseWidget) SetOpacity(opacity float64) {
	if opacity < 0.0 {
		opacity = 0.0
	}
	if opacity > 1.0 {
		opacity = 1.0
	}
	w.opacity = opacity
}

// opacityMask returns nil for fully opaque widgets so draw.DrawMask can
// take its fast path
func (w *BaseWidget) opacityMask() image.Image {
	if w.opacity >= 1.0 {
		return nil
	}
	return image.NewUniform(color.Alpha{A: uint8(w.opacity * 255)})
}

// FillRectangle fills r (clipped to dst) with c blended at the given opacity
func FillRectangle(dst *image.RGBA, r image.Rectangle, c color.Color, opacity float64) {
	r = r.Intersect(dst.Bounds())
	if r.Empty() {
		return
	}
	var mask image.Image
	if opacity < 1.0 {
		mask = image.NewUniform(color.Alpha{A: uint8(opacity * 255)})
	}
	draw.DrawMask(dst, r, image.NewUniform(c), image.Point{}, mask, image.Point{}, draw.Over)
}
