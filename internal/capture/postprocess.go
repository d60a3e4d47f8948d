package capture

import (
	"image"
	"math"

	"github.com/bryanchriswhite/grab/internal/config"
	"github.com/disintegration/imaging"
)

// NormalSize is the size factor restored by SetNormalSize
const NormalSize = 1.0

// ProcessorState is a snapshot of the post-processing settings
type ProcessorState struct {
	SizeFactor     float64 `json:"size_factor"`
	FlipHorizontal bool    `json:"flip_horizontal"`
	FlipVertical   bool    `json:"flip_vertical"`
}

// PostProcessor scales and mirrors every frame a session returns
type PostProcessor struct {
	minScale   float64
	maxScale   float64
	step       float64
	sizeFactor float64
	flipH      bool
	flipV      bool
}

// NewPostProcessor creates a processor at normal size with no mirroring
func NewPostProcessor(cfg config.MediaConfig) *PostProcessor {
	return &PostProcessor{
		minScale:   cfg.MinScale,
		maxScale:   cfg.MaxScale,
		step:       cfg.ScaleStep,
		sizeFactor: NormalSize,
	}
}

// IncreaseSize grows the size factor by one step, up to the maximum
func (p *PostProcessor) IncreaseSize() {
	p.sizeFactor = p.clamp(roundStep(p.sizeFactor + p.step))
}

// DecreaseSize shrinks the size factor by one step, down to the minimum
func (p *PostProcessor) DecreaseSize() {
	p.sizeFactor = p.clamp(roundStep(p.sizeFactor - p.step))
}

// SetNormalSize restores the size factor to exactly 1.0
func (p *PostProcessor) SetNormalSize() {
	p.sizeFactor = NormalSize
}

// ToggleFlipHorizontal switches horizontal mirroring and returns the new value
func (p *PostProcessor) ToggleFlipHorizontal() bool {
	p.flipH = !p.flipH
	return p.flipH
}

// ToggleFlipVertical switches vertical mirroring and returns the new value
func (p *PostProcessor) ToggleFlipVertical() bool {
	p.flipV = !p.flipV
	return p.flipV
}

// State returns the current settings
func (p *PostProcessor) State() ProcessorState {
	return ProcessorState{
		SizeFactor:     p.sizeFactor,
		FlipHorizontal: p.flipH,
		FlipVertical:   p.flipV,
	}
}

// Apply returns a new frame: scaled by the size factor, then mirrored
// horizontally, then vertically. frame itself is never modified.
func (p *PostProcessor) Apply(frame *image.RGBA) *image.RGBA {
	if IsEmpty(frame) {
		return frame
	}

	var img image.Image = frame
	if p.sizeFactor != NormalSize {
		b := frame.Bounds()
		w := scaled(b.Dx(), p.sizeFactor)
		h := scaled(b.Dy(), p.sizeFactor)
		img = imaging.Resize(frame, w, h, imaging.Linear)
	}
	if p.flipH {
		img = imaging.FlipH(img)
	}
	if p.flipV {
		img = imaging.FlipV(img)
	}

	if img == image.Image(frame) {
		return Clone(frame)
	}
	return ToRGBA(img)
}

func (p *PostProcessor) clamp(f float64) float64 {
	if f > p.maxScale {
		return p.maxScale
	}
	if f < p.minScale {
		return p.minScale
	}
	return f
}

// roundStep removes the drift of repeated float additions so that stepping
// up and back down lands on the same value
func roundStep(f float64) float64 {
	return math.Round(f*1e6) / 1e6
}

func scaled(n int, factor float64) int {
	s := int(math.Round(float64(n) * factor))
	if s < 1 {
		return 1
	}
	return s
}
