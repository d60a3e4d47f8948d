package overlay

import (
	"image"
	"image/color"

	"golang.org/x/image/vector"
)

// kappa places cubic Bézier control points so four curves approximate a circle
const kappa = 0.5522847498

// IndicatorWidget is a filled dot, used to show that recording is live
type IndicatorWidget struct {
	*BaseWidget
	radius int
	fill   color.RGBA
}

// NewIndicatorWidget creates a dot centred on (x, y). It starts disabled.
func NewIndicatorWidget(id string, x, y, radius int, fill color.RGBA) *IndicatorWidget {
	w := &IndicatorWidget{
		BaseWidget: NewBaseWidget(id, x, y, 1.0),
		radius:     radius,
		fill:       fill,
	}
	w.SetEnabled(false)
	return w
}

// Type returns the widget type
func (w *IndicatorWidget) Type() string {
	return "indicator"
}

// Render draws the dot
func (w *IndicatorWidget) Render(img *image.RGBA) error {
	if !w.IsEnabled() || w.radius <= 0 {
		return nil
	}

	b := img.Bounds()
	if b.Empty() {
		return nil
	}

	cx := float32(w.x - b.Min.X)
	cy := float32(w.y - b.Min.Y)
	r := float32(w.radius)
	k := r * kappa

	z := vector.NewRasterizer(b.Dx(), b.Dy())
	z.MoveTo(cx+r, cy)
	z.CubeTo(cx+r, cy+k, cx+k, cy+r, cx, cy+r)
	z.CubeTo(cx-k, cy+r, cx-r, cy+k, cx-r, cy)
	z.CubeTo(cx-r, cy-k, cx-k, cy-r, cx, cy-r)
	z.CubeTo(cx+k, cy-r, cx+r, cy-k, cx+r, cy)
	z.ClosePath()

	var src image.Image = image.NewUniform(w.fill)
	if mask := w.opacityMask(); mask != nil {
		c := w.fill
		c.A = uint8(float64(c.A) * w.opacity)
		src = image.NewUniform(premultiply(c))
	}
	z.Draw(img, b, src, image.Point{})
	return nil
}

func premultiply(c color.RGBA) color.RGBA {
	a := uint16(c.A)
	return color.RGBA{
		R: uint8(uint16(c.R) * a / 255),
		G: uint8(uint16(c.G) * a / 255),
		B: uint8(uint16(c.B) * a / 255),
		A: c.A,
	}
}
