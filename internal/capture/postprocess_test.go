package capture

import (
	"image"
	"image/color"
	"math/rand"
	"testing"
)

func noise(w, h int, seed int64) *image.RGBA {
	r := rand.New(rand.NewSource(seed))
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i] = uint8(r.Intn(256))
		img.Pix[i+1] = uint8(r.Intn(256))
		img.Pix[i+2] = uint8(r.Intn(256))
		img.Pix[i+3] = 255
	}
	return img
}

func TestSizeFactorStaysInBounds(t *testing.T) {
	p := NewPostProcessor(mediaConfig())
	r := rand.New(rand.NewSource(1))
	for i := 0; i < 1000; i++ {
		switch r.Intn(3) {
		case 0:
			p.IncreaseSize()
		case 1:
			p.DecreaseSize()
		case 2:
			if r.Intn(10) == 0 {
				p.SetNormalSize()
				if f := p.State().SizeFactor; f != 1.0 {
					t.Fatalf("normal size = %v, want exactly 1.0", f)
				}
			}
		}
		if f := p.State().SizeFactor; f < 0.2 || f > 2.0 {
			t.Fatalf("size factor %v escaped [0.2, 2.0] after %d commands", f, i)
		}
	}
}

func TestIncreaseClampsAtMaximum(t *testing.T) {
	p := NewPostProcessor(mediaConfig())
	for i := 0; i < 20; i++ {
		p.IncreaseSize()
	}
	if f := p.State().SizeFactor; f != 2.0 {
		t.Fatalf("size factor = %v, want 2.0", f)
	}
}

func TestDecreaseClampsAtMinimum(t *testing.T) {
	p := NewPostProcessor(mediaConfig())
	for i := 0; i < 20; i++ {
		p.DecreaseSize()
	}
	if f := p.State().SizeFactor; f != 0.2 {
		t.Fatalf("size factor = %v, want 0.2", f)
	}
}

func TestStepsAreReversible(t *testing.T) {
	p := NewPostProcessor(mediaConfig())
	for i := 0; i < 7; i++ {
		p.IncreaseSize()
	}
	for i := 0; i < 7; i++ {
		p.DecreaseSize()
	}
	if f := p.State().SizeFactor; f != 1.0 {
		t.Fatalf("size factor = %v, want 1.0", f)
	}
}

func TestDoubleHorizontalFlipIsIdentity(t *testing.T) {
	in := noise(17, 9, 42)
	p := NewPostProcessor(mediaConfig())
	before := p.Apply(in)

	p.ToggleFlipHorizontal()
	flipped := p.Apply(in)
	if string(flipped.Pix) == string(before.Pix) {
		t.Fatal("single flip produced identical output")
	}
	p.ToggleFlipHorizontal()
	after := p.Apply(in)

	if string(after.Pix) != string(before.Pix) {
		t.Fatal("flipping twice is not bit-identical to not flipping")
	}
}

func TestFlipsMirrorPixels(t *testing.T) {
	in := image.NewRGBA(image.Rect(0, 0, 3, 2))
	for i := 3; i < len(in.Pix); i += 4 {
		in.Pix[i] = 255
	}
	mark := color.RGBA{255, 0, 0, 255}
	in.SetRGBA(0, 0, mark)

	tests := []struct {
		name         string
		flipH, flipV bool
		want         image.Point
	}{
		{"none", false, false, image.Pt(0, 0)},
		{"horizontal", true, false, image.Pt(2, 0)},
		{"vertical", false, true, image.Pt(0, 1)},
		{"both", true, true, image.Pt(2, 1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPostProcessor(mediaConfig())
			if tt.flipH {
				p.ToggleFlipHorizontal()
			}
			if tt.flipV {
				p.ToggleFlipVertical()
			}
			out := p.Apply(in)
			if got := out.RGBAAt(tt.want.X, tt.want.Y); got != mark {
				t.Fatalf("pixel %v = %v, want marked", tt.want, got)
			}
		})
	}
}

func TestApplyScalesAndNeverAliases(t *testing.T) {
	in := noise(40, 30, 7)
	orig := string(in.Pix)

	p := NewPostProcessor(mediaConfig())
	out := p.Apply(in)
	if out == in {
		t.Fatal("Apply returned its input")
	}

	p.IncreaseSize()
	p.IncreaseSize()
	p.IncreaseSize()
	p.IncreaseSize()
	p.IncreaseSize()
	if got := p.Apply(in).Bounds().Size(); got != image.Pt(60, 45) {
		t.Fatalf("scaled size = %v, want 60x45", got)
	}
	if string(in.Pix) != orig {
		t.Fatal("Apply modified its input")
	}
}

func TestApplyIsDeterministic(t *testing.T) {
	in := noise(23, 11, 3)
	p := NewPostProcessor(mediaConfig())
	p.DecreaseSize()
	p.ToggleFlipVertical()
	a := p.Apply(in)
	b := p.Apply(in)
	if string(a.Pix) != string(b.Pix) {
		t.Fatal("same input and state produced different output")
	}
}
