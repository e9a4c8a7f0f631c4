// Package imageproc prepares uploads for the image model and finishes its output.
package imageproc

import (
	"bytes"
	"context"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"

	"thumbsmith/internal/domain"
)

const (
	DefaultMaxDimension = 1024
	DefaultQuality      = 95
)

// Buffers holds one encoded JPEG per aspect ratio.
type Buffers map[domain.AspectRatio][]byte

// Normalizer crops uploads to the working size sent to the image model.
type Normalizer struct {
	MaxDimension int
	Quality      int
}

func NewNormalizer() *Normalizer {
	return &Normalizer{MaxDimension: DefaultMaxDimension, Quality: DefaultQuality}
}

// WorkingSize returns the pixel size for aspect with the given long edge.
func WorkingSize(aspect domain.AspectRatio, longEdge int) (int, int) {
	short := longEdge * 9 / 16
	if aspect == domain.AspectVertical {
		return short, longEdge
	}
	return longEdge, short
}

// Normalize decodes data and cover-fits it once per aspect ratio.
func (n *Normalizer) Normalize(ctx context.Context, data []byte) (Buffers, error) {
	img, err := Decode(data)
	if err != nil {
		return nil, err
	}
	out := make(Buffers, len(domain.AspectRatios))
	for _, aspect := range domain.AspectRatios {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		w, h := WorkingSize(aspect, n.maxDimension())
		buf, err := encodeJPEG(imaging.Fill(img, w, h, imaging.Center, imaging.Lanczos), n.quality())
		if err != nil {
			return nil, fmt.Errorf("normalize %s: %w", aspect, err)
		}
		out[aspect] = buf
	}
	return out, nil
}

// Decode reads JPEG, PNG, GIF, BMP, TIFF or WebP and applies EXIF orientation.
func Decode(data []byte) (image.Image, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty upload", domain.ErrInvalidImage)
	}
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidImage, err)
	}
	return img, nil
}

func (n *Normalizer) maxDimension() int {
	if n == nil || n.MaxDimension <= 0 {
		return DefaultMaxDimension
	}
	return n.MaxDimension
}

func (n *Normalizer) quality() int {
	if n == nil || n.Quality <= 0 || n.Quality > 100 {
		return DefaultQuality
	}
	return n.Quality
}

func encodeJPEG(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
