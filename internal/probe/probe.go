// Package probe reports the colour of a single pixel in the notations an
// OpenCV user expects: BGR order, 8-bit HSV and luma.
package probe

import (
	"fmt"
	"image"
	"math"

	"github.com/lucasb-eyer/go-colorful"
)

// Fixed-point luma weights, 14 bits of fraction
const (
	yR     = 4899
	yG     = 9617
	yB     = 1868
	yShift = 14
)

// Sample is the colour of one pixel
type Sample struct {
	X, Y    int
	B, G, R uint8
	H, S, V uint8 // H is 0..179 (degrees halved), S and V are 0..255
	Gray    uint8
}

// At samples img at (x, y), relative to the image's top-left corner. It
// returns false when the point is outside the image.
func At(img *image.RGBA, x, y int) (Sample, bool) {
	if img == nil {
		return Sample{}, false
	}
	b := img.Bounds()
	p := image.Pt(b.Min.X+x, b.Min.Y+y)
	if !p.In(b) {
		return Sample{}, false
	}

	c := img.RGBAAt(p.X, p.Y)
	s := Sample{X: x, Y: y, B: c.B, G: c.G, R: c.R}
	s.H, s.S, s.V = hsv(c.R, c.G, c.B)
	s.Gray = gray(c.R, c.G, c.B)
	return s, true
}

func hsv(r, g, b uint8) (uint8, uint8, uint8) {
	col := colorful.Color{R: float64(r) / 255, G: float64(g) / 255, B: float64(b) / 255}
	h, s, v := col.Hsv()
	hh := int(math.Round(h/2)) % 180
	return uint8(hh), uint8(math.Round(s * 255)), uint8(math.Round(v * 255))
}

func gray(r, g, b uint8) uint8 {
	y := (int(r)*yR + int(g)*yG + int(b)*yB + 1<<(yShift-1)) >> yShift
	if y > 255 {
		y = 255
	}
	return uint8(y)
}

// String renders the sample as a single operator line
func (s Sample) String() string {
	return fmt.Sprintf("XY=(%d,%d), BGR=(%d,%d,%d), HSV=(%d,%d,%d), gray=%d.",
		s.X, s.Y, s.B, s.G, s.R, s.H, s.S, s.V, s.Gray)
}
