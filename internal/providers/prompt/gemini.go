package prompt

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/genai"

	"thumbsmith/internal/domain"
	genaiclient "thumbsmith/internal/providers/genai"
)

type GeminiOptions struct {
	APIKey     string
	Model      string
	BaseURL    string
	HTTPClient *http.Client
	// Generator overrides the SDK client; APIKey is then unused.
	Generator  genaiclient.ContentGenerator
	Templates  *Templates
	Fallback   Composer
	OnFallback func(reason string, err error)
}

// GeminiComposer renders the same templates through a Gemini text model.
type GeminiComposer struct {
	models     genaiclient.ContentGenerator
	model      string
	templates  *Templates
	fallback   Composer
	onFallback func(reason string, err error)
}

const defaultGeminiTextModel = "gemini-2.5-flash"

func NewGeminiComposer(ctx context.Context, opts GeminiOptions) (*GeminiComposer, error) {
	models := opts.Generator
	if models == nil {
		if strings.TrimSpace(opts.APIKey) == "" {
			return nil, errors.New("gemini api key is required")
		}
		var err error
		models, err = genaiclient.NewGenerator(ctx, genaiclient.Options{
			APIKey:     opts.APIKey,
			BaseURL:    opts.BaseURL,
			HTTPClient: opts.HTTPClient,
		})
		if err != nil {
			return nil, err
		}
	}
	templates := opts.Templates
	if templates == nil {
		templates = DefaultTemplates()
	}
	return &GeminiComposer{
		models:     models,
		model:      coalesce(opts.Model, defaultGeminiTextModel),
		templates:  templates,
		fallback:   opts.Fallback,
		onFallback: opts.OnFallback,
	}, nil
}

func (g *GeminiComposer) CreativeDirection(ctx context.Context, brief Brief) (string, error) {
	text, reason, err := g.complete(ctx, g.templates.directionPrompt(brief))
	if err != nil {
		if g.fallback != nil && ctx.Err() == nil {
			g.emitFallback(reason, err)
			return g.fallback.CreativeDirection(ctx, brief)
		}
		return "", fmt.Errorf("enhance prompt with gemini: %w", err)
	}
	return trimCodeFence(text), nil
}

func (g *GeminiComposer) Concepts(ctx context.Context, brief Brief, n int) ([]string, error) {
	if n < 1 {
		return nil, fmt.Errorf("%w: concept count %d", domain.ErrInvalidRequest, n)
	}
	text, reason, err := g.complete(ctx, g.templates.conceptsPrompt(brief, n))
	var concepts []string
	if err == nil {
		concepts, err = parseConcepts(text, g.templates, n, geminiProviderName)
		reason = "parse_concepts"
	}
	if err != nil {
		if g.fallback != nil && ctx.Err() == nil {
			g.emitFallback(reason, err)
			return g.fallback.Concepts(ctx, brief, n)
		}
		return nil, fmt.Errorf("enhance prompt with gemini: %w", err)
	}
	return concepts, nil
}

func (g *GeminiComposer) complete(ctx context.Context, p chatPrompt) (string, string, error) {
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(p.System, genai.RoleUser),
		Temperature:       genai.Ptr(float32(p.Temperature)),
		CandidateCount:    1,
	}
	if p.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(p.MaxTokens)
	}
	if p.PresencePenalty != 0 {
		cfg.PresencePenalty = genai.Ptr(float32(p.PresencePenalty))
	}
	if p.FrequencyPenalty != 0 {
		cfg.FrequencyPenalty = genai.Ptr(float32(p.FrequencyPenalty))
	}
	contents := []*genai.Content{genai.NewContentFromText(p.User, genai.RoleUser)}
	resp, err := g.models.GenerateContent(ctx, g.model, contents, cfg)
	if err != nil {
		if code, ok := genaiclient.StatusCode(err); ok {
			return "", fmt.Sprintf("http_%d", code), fmt.Errorf("%w: %w", domain.ErrProviderFailure, err)
		}
		return "", "http_request", fmt.Errorf("%w: %w", domain.ErrProviderFailure, err)
	}
	text := genaiclient.Text(resp)
	if text == "" {
		return "", "empty_response", fmt.Errorf("%w: gemini returned an empty completion", domain.ErrProviderFailure)
	}
	return text, "", nil
}

func (g *GeminiComposer) emitFallback(reason string, err error) {
	if g.onFallback != nil {
		g.onFallback(reason, err)
	}
}

var _ Composer = (*GeminiComposer)(nil)
