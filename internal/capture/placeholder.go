package capture

import (
	"image"
	"image/color"
	"image/draw"

	"github.com/bryanchriswhite/grab/internal/config"
	"github.com/bryanchriswhite/grab/internal/logger"
	"github.com/bryanchriswhite/grab/internal/overlay"
	"github.com/disintegration/imaging"
)

var cardBackground = color.RGBA{48, 48, 48, 255}

// Placeholder builds the frame shown while an origin has nothing to give.
// width and height are the origin's native size; non-positive values fall
// back to the configured default. The image at cfg.PlaceholderPath is
// stretched to that size, or a plain "NO DATA" card is drawn when it
// cannot be loaded.
func Placeholder(cfg config.MediaConfig, width, height int) *image.RGBA {
	if width <= 0 {
		width = cfg.DefaultWidth
	}
	if height <= 0 {
		height = cfg.DefaultHeight
	}

	if cfg.PlaceholderPath != "" {
		img, err := imaging.Open(cfg.PlaceholderPath)
		if err == nil {
			return ToRGBA(imaging.Resize(img, width, height, imaging.Linear))
		}
		logger.WithComponent("capture").Debug().
			Err(err).
			Str("path", cfg.PlaceholderPath).
			Msg("Placeholder image unavailable, drawing card")
	}
	return noDataCard(width, height)
}

func noDataCard(width, height int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), image.NewUniform(cardBackground), image.Point{}, draw.Src)

	label := overlay.NewTextWidget("no-data", "NO DATA", 0, 0)
	size := label.Size()
	label.SetPosition((width-size.X)/2, (height-size.Y)/2)
	label.Render(img)
	return img
}
