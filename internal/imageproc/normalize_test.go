package imageproc

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/disintegration/imaging"

	"thumbsmith/internal/domain"
)

func pngFixture(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode fixture: %v", err)
	}
	return buf.Bytes()
}

func decodedSize(t *testing.T, data []byte) (int, int, string) {
	t.Helper()
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode output: %v", err)
	}
	return cfg.Width, cfg.Height, format
}

func TestNormalizeProducesBothAspects(t *testing.T) {
	tests := []struct {
		name string
		w, h int
	}{
		{name: "landscape", w: 300, h: 200},
		{name: "portrait", w: 120, h: 400},
		{name: "square upscale", w: 64, h: 64},
	}
	want := map[domain.AspectRatio][2]int{
		domain.AspectHorizontal: {1024, 576},
		domain.AspectVertical:   {576, 1024},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			bufs, err := NewNormalizer().Normalize(context.Background(), pngFixture(t, tc.w, tc.h))
			if err != nil {
				t.Fatalf("Normalize returned error: %v", err)
			}
			if len(bufs) != 2 {
				t.Fatalf("buffers = %d, want 2", len(bufs))
			}
			for aspect, dims := range want {
				w, h, format := decodedSize(t, bufs[aspect])
				if w != dims[0] || h != dims[1] {
					t.Fatalf("%s size = %dx%d, want %dx%d", aspect, w, h, dims[0], dims[1])
				}
				if format != "jpeg" {
					t.Fatalf("%s format = %s, want jpeg", aspect, format)
				}
			}
		})
	}
}

func TestNormalizeRejectsBadInput(t *testing.T) {
	for name, data := range map[string][]byte{
		"empty":   nil,
		"garbage": []byte("definitely not an image"),
	} {
		t.Run(name, func(t *testing.T) {
			_, err := NewNormalizer().Normalize(context.Background(), data)
			if !errors.Is(err, domain.ErrInvalidImage) {
				t.Fatalf("err = %v, want ErrInvalidImage", err)
			}
		})
	}
}

func TestNormalizeHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewNormalizer().Normalize(ctx, pngFixture(t, 32, 32)); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestPostProcessFinalSize(t *testing.T) {
	src := imaging.New(200, 100, color.NRGBA{R: 200, G: 30, B: 30, A: 255})
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, src, imaging.PNG); err != nil {
		t.Fatalf("encode: %v", err)
	}
	out, err := PostProcess(buf.Bytes(), domain.AspectVertical)
	if err != nil {
		t.Fatalf("PostProcess returned error: %v", err)
	}
	w, h, format := decodedSize(t, out)
	if w != 1080 || h != 1920 || format != "jpeg" {
		t.Fatalf("got %dx%d %s, want 1080x1920 jpeg", w, h, format)
	}
}

func TestPostProcessStretchesWithoutCropping(t *testing.T) {
	// square source with a red band across the top tenth
	src := imaging.New(100, 100, color.NRGBA{R: 20, G: 20, B: 220, A: 255})
	for y := 0; y < 10; y++ {
		for x := 0; x < 100; x++ {
			src.SetNRGBA(x, y, color.NRGBA{R: 220, G: 20, B: 20, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, src, imaging.PNG); err != nil {
		t.Fatalf("encode: %v", err)
	}
	out, err := PostProcess(buf.Bytes(), domain.AspectHorizontal)
	if err != nil {
		t.Fatalf("PostProcess returned error: %v", err)
	}
	img, err := imaging.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("decode output: %v", err)
	}
	r, _, b, _ := img.At(960, 20).RGBA()
	if r>>8 < 150 || b>>8 > 100 {
		t.Fatalf("top band was cropped away: pixel rgb r=%d b=%d", r>>8, b>>8)
	}
}

func TestPostProcessBrightnessIsMultiplicative(t *testing.T) {
	src := imaging.New(160, 90, color.NRGBA{R: 100, G: 100, B: 100, A: 255})
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, src, imaging.PNG); err != nil {
		t.Fatalf("encode: %v", err)
	}
	out, err := PostProcess(buf.Bytes(), domain.AspectHorizontal)
	if err != nil {
		t.Fatalf("PostProcess returned error: %v", err)
	}
	img, err := imaging.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("decode output: %v", err)
	}
	// 100 * 1.05; a fixed 5% shift would give about 113
	r, g, b, _ := img.At(960, 540).RGBA()
	for _, v := range []uint32{r >> 8, g >> 8, b >> 8} {
		if v < 102 || v > 108 {
			t.Fatalf("gray 100 became %d, want about 105", v)
		}
	}
}
