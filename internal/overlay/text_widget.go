package overlay

import (
	"image"
	"image/color"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// TextWidget displays a single line of text
type TextWidget struct {
	*BaseWidget
	text      string
	textColor color.RGBA
	bgColor   *color.RGBA // Optional background color
	padding   int
}

// NewTextWidget creates a new text widget with its top-left corner at (x, y)
func NewTextWidget(id, text string, x, y int) *TextWidget {
	return &TextWidget{
		BaseWidget: NewBaseWidget(id, x, y, 1.0),
		text:       text,
		textColor:  color.RGBA{255, 255, 255, 255},
		padding:    5,
	}
}

// Type returns the widget type
func (w *TextWidget) Type() string {
	return "text"
}

// face is the only font shipped with the binary
var face = basicfont.Face7x13

// Size returns the rendered size including padding
func (w *TextWidget) Size() image.Point {
	d := &font.Drawer{Face: face}
	width := d.MeasureString(w.text).Ceil()
	return image.Pt(width+w.padding*2, face.Height+w.padding*2)
}

// Render draws the text widget
func (w *TextWidget) Render(img *image.RGBA) error {
	if !w.IsEnabled() || w.text == "" {
		return nil
	}

	size := w.Size()
	if w.bgColor != nil {
		FillRectangle(img, image.Rectangle{Min: w.Position(), Max: w.Position().Add(size)}, *w.bgColor, w.opacity)
	}

	c := w.textColor
	c.A = uint8(float64(c.A) * w.opacity)
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(premultiply(c)),
		Face: face,
		Dot:  fixed.P(w.x+w.padding, w.y+w.padding+face.Ascent),
	}
	d.DrawString(w.text)
	return nil
}

// SetText updates the text content
func (w *TextWidget) SetText(text string) {
	w.text = text
}

// Text returns the current text
func (w *TextWidget) Text() string {
	return w.text
}

// SetColor sets the text color
func (w *TextWidget) SetColor(c color.RGBA) {
	w.textColor = c
}

// SetBackground sets the background color (nil for transparent)
func (w *TextWidget) SetBackground(c *color.RGBA) {
	w.bgColor = c
}
