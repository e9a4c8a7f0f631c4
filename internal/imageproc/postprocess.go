package imageproc

import (
	"fmt"
	"image/color"

	"github.com/disintegration/imaging"

	"thumbsmith/internal/domain"
)

// Final delivery sizes for post-processed thumbnails.
const FinalLongEdge = 1920

const brightnessGain = 1.05

// PostProcess stretches the generated image to full HD for its aspect ratio
// without cropping, then sharpens it and lifts brightness and saturation.
// Output is JPEG.
func PostProcess(data []byte, aspect domain.AspectRatio) ([]byte, error) {
	img, err := Decode(data)
	if err != nil {
		return nil, err
	}
	w, h := FinalSize(aspect)
	out := imaging.Resize(img, w, h, imaging.Lanczos)
	out = imaging.Sharpen(out, 0.5)
	// AdjustBrightness shifts by a fixed amount; the lift here is a gain.
	out = imaging.AdjustFunc(out, func(c color.NRGBA) color.NRGBA {
		return color.NRGBA{R: gain(c.R), G: gain(c.G), B: gain(c.B), A: c.A}
	})
	out = imaging.AdjustSaturation(out, 10)

	buf, err := encodeJPEG(out, DefaultQuality)
	if err != nil {
		return nil, fmt.Errorf("post-process %s: %w", aspect, err)
	}
	return buf, nil
}

// FinalSize is 1920x1080 for 16:9 and 1080x1920 for 9:16.
func FinalSize(aspect domain.AspectRatio) (int, int) {
	return WorkingSize(aspect, FinalLongEdge)
}

func gain(v uint8) uint8 {
	return uint8(min(float64(v)*brightnessGain+0.5, 255))
}
