package image

import (
	"context"

	"thumbsmith/internal/domain"
)

const (
	geminiProviderName    = "gemini"
	syntheticProviderName = "synthetic"
)

// SynthesisRequest is one image-model call for a single aspect ratio.
type SynthesisRequest struct {
	// Source is the normalized JPEG for Aspect.
	Source    []byte
	Aspect    domain.AspectRatio
	Prompt    string
	Variant   int
	RequestID string
}

// Synthesizer is the contract implemented by all image providers.
type Synthesizer interface {
	Synthesize(ctx context.Context, req SynthesisRequest) (*domain.Image, error)
}
