package image

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/disintegration/imaging"

	"thumbsmith/internal/domain"
)

func TestSyntheticSynthesizerSizes(t *testing.T) {
	s := &SyntheticSynthesizer{LongEdge: 320}
	src := sourceJPEG(t, 64, 64)
	for _, tc := range []struct {
		aspect domain.AspectRatio
		w, h   int
	}{
		{domain.AspectHorizontal, 320, 180},
		{domain.AspectVertical, 180, 320},
	} {
		img, err := s.Synthesize(context.Background(), SynthesisRequest{Source: src, Aspect: tc.aspect, Prompt: "p", Variant: 1})
		if err != nil {
			t.Fatalf("Synthesize(%s) returned error: %v", tc.aspect, err)
		}
		decoded, err := imaging.Decode(bytes.NewReader(img.Data))
		if err != nil {
			t.Fatalf("decode output: %v", err)
		}
		if b := decoded.Bounds(); b.Dx() != tc.w || b.Dy() != tc.h {
			t.Fatalf("%s size = %dx%d, want %dx%d", tc.aspect, b.Dx(), b.Dy(), tc.w, tc.h)
		}
		if img.MIME != "image/png" || !strings.HasSuffix(img.Filename(), ".png") {
			t.Fatalf("unexpected naming: %s %s", img.MIME, img.Filename())
		}
	}
}

func TestSyntheticSynthesizerDeterministic(t *testing.T) {
	s := &SyntheticSynthesizer{LongEdge: 128}
	req := SynthesisRequest{Aspect: domain.AspectHorizontal, Prompt: "same", Variant: 1}
	a, err := s.Synthesize(context.Background(), req)
	if err != nil {
		t.Fatalf("Synthesize returned error: %v", err)
	}
	b, err := s.Synthesize(context.Background(), req)
	if err != nil {
		t.Fatalf("Synthesize returned error: %v", err)
	}
	if !bytes.Equal(a.Data, b.Data) {
		t.Fatal("same request produced different images")
	}
	req.Variant = 2
	c, err := s.Synthesize(context.Background(), req)
	if err != nil {
		t.Fatalf("Synthesize returned error: %v", err)
	}
	if bytes.Equal(a.Data, c.Data) {
		t.Fatal("different variants produced identical images")
	}
}

func TestSyntheticSynthesizerRejectsBadSource(t *testing.T) {
	s := NewSyntheticSynthesizer()
	if _, err := s.Synthesize(context.Background(), SynthesisRequest{Source: []byte("nope"), Aspect: domain.AspectHorizontal}); err == nil {
		t.Fatal("expected decode error")
	}
}
