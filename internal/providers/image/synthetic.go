package image

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"strconv"

	"github.com/disintegration/imaging"

	"thumbsmith/internal/domain"
	"thumbsmith/internal/imageproc"
)

// SyntheticSynthesizer renders deterministic placeholder thumbnails offline.
// The source photo is pasted over a seeded striped background.
type SyntheticSynthesizer struct {
	LongEdge int
}

func NewSyntheticSynthesizer() *SyntheticSynthesizer {
	return &SyntheticSynthesizer{LongEdge: imageproc.DefaultMaxDimension}
}

func (s *SyntheticSynthesizer) Synthesize(ctx context.Context, req SynthesisRequest) (*domain.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	longEdge := s.LongEdge
	if longEdge <= 0 {
		longEdge = imageproc.DefaultMaxDimension
	}
	width, height := imageproc.WorkingSize(req.Aspect, longEdge)
	seed := deterministicSeed(req.Prompt, req.Aspect, req.Variant)
	canvas := renderBackground(width, height, seed)

	if len(req.Source) > 0 {
		src, err := imageproc.Decode(req.Source)
		if err != nil {
			return nil, err
		}
		subject := imaging.Fit(src, width*2/3, height*2/3, imaging.Lanczos)
		offset := image.Pt((width-subject.Bounds().Dx())/2, (height-subject.Bounds().Dy())/2)
		canvas = imaging.Overlay(canvas, subject, offset, 0.85)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, canvas, imaging.PNG); err != nil {
		return nil, fmt.Errorf("encode synthetic %s image: %w", req.Aspect, err)
	}
	return &domain.Image{
		Aspect:  req.Aspect,
		Variant: req.Variant,
		MIME:    "image/png",
		Data:    buf.Bytes(),
	}, nil
}

func renderBackground(width, height int, seed string) *image.NRGBA {
	img := imaging.New(width, height, colorFromSeed(seed, 0))
	accent := &image.Uniform{colorFromSeed(seed, 1)}
	stripeHeight := max(32, height/12)
	for y := 0; y < height; y += stripeHeight * 2 {
		draw.Draw(img, image.Rect(0, y, width, min(height, y+stripeHeight)), accent, image.Point{}, draw.Over)
	}
	diagonal := colorFromSeed(seed, 2)
	for x := 0; x < max(width, height); x += max(16, width/32) {
		for y := 0; y < height && x+y < width; y++ {
			img.Set(x+y, y, diagonal)
		}
	}
	return img
}

func colorFromSeed(seed string, shift int) color.NRGBA {
	if len(seed) < 6 {
		seed = "000000"
	}
	doubled := seed + seed
	start := (shift * 6) % len(seed)
	segment := doubled[start : start+6]
	return color.NRGBA{R: hexByte(segment[0:2]), G: hexByte(segment[2:4]), B: hexByte(segment[4:6]), A: 255}
}

func hexByte(s string) uint8 {
	v, err := strconv.ParseUint(s, 16, 8)
	if err != nil {
		return 0
	}
	return uint8(v)
}

func deterministicSeed(parts ...any) string {
	hasher := sha256.New()
	for _, part := range parts {
		fmt.Fprintf(hasher, "%v|", part)
	}
	return hex.EncodeToString(hasher.Sum(nil))[:16]
}

var _ Synthesizer = (*SyntheticSynthesizer)(nil)
