package capture

import (
	"image"
	"image/draw"
)

// IsEmpty reports whether a frame has no pixels
func IsEmpty(frame *image.RGBA) bool {
	return frame == nil || frame.Bounds().Empty()
}

// Clone returns a deep copy of frame
func Clone(frame *image.RGBA) *image.RGBA {
	if frame == nil {
		return nil
	}
	dst := &image.RGBA{
		Pix:    make([]uint8, len(frame.Pix)),
		Stride: frame.Stride,
		Rect:   frame.Rect,
	}
	copy(dst.Pix, frame.Pix)
	return dst
}

// ToRGBA converts any image into an opaque, origin-anchored *image.RGBA.
// Transparent areas are flattened onto black.
func ToRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok && rgba.Rect.Min == (image.Point{}) {
		return rgba
	}
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), image.Black, image.Point{}, draw.Src)
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Over)
	return dst
}
