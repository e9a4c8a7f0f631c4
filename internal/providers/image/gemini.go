package image

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/rs/zerolog"
	"google.golang.org/genai"

	"thumbsmith/internal/domain"
	genaiclient "thumbsmith/internal/providers/genai"
)

const defaultGeminiImageModel = "gemini-2.5-flash-image-preview"

type GeminiOptions struct {
	APIKey     string
	Model      string
	BaseURL    string
	HTTPClient *http.Client
	Generator  genaiclient.ContentGenerator
	Logger     *zerolog.Logger
}

// GeminiSynthesizer edits the uploaded photo into a thumbnail with a Gemini image model.
type GeminiSynthesizer struct {
	models genaiclient.ContentGenerator
	model  string
	logger zerolog.Logger
}

func NewGeminiSynthesizer(ctx context.Context, opts GeminiOptions) (*GeminiSynthesizer, error) {
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
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = defaultGeminiImageModel
	}
	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = opts.Logger.With().Str("provider", geminiProviderName).Logger()
	}
	return &GeminiSynthesizer{models: models, model: model, logger: logger}, nil
}

// Model reports the configured image model.
func (g *GeminiSynthesizer) Model() string {
	return g.model
}

func (g *GeminiSynthesizer) Synthesize(ctx context.Context, req SynthesisRequest) (*domain.Image, error) {
	if len(req.Source) == 0 {
		return nil, fmt.Errorf("%w: source image is empty", domain.ErrInvalidRequest)
	}
	contents := []*genai.Content{genai.NewContentFromParts([]*genai.Part{
		genai.NewPartFromText(req.Prompt),
		genai.NewPartFromBytes(req.Source, "image/jpeg"),
	}, genai.RoleUser)}
	resp, err := g.models.GenerateContent(ctx, g.model, contents, g.config(req.Aspect))
	if err != nil {
		if code, ok := genaiclient.StatusCode(err); ok {
			return nil, fmt.Errorf("%w: gemini status %d: %w", domain.ErrProviderFailure, code, err)
		}
		return nil, fmt.Errorf("%w: gemini: %w", domain.ErrProviderFailure, err)
	}
	blob, ok := genaiclient.FirstInlineData(resp)
	if !ok {
		if text := genaiclient.Text(resp); text != "" {
			g.logger.Debug().Str("request_id", req.RequestID).Str("aspect", string(req.Aspect)).Str("text", text).Msg("gemini answered without an image")
		}
		return nil, fmt.Errorf("%w: gemini returned no image for %s", domain.ErrProviderFailure, req.Aspect)
	}
	mime := blob.MIMEType
	if mime == "" {
		mime = "image/png"
	}
	return &domain.Image{
		Aspect:  req.Aspect,
		Variant: req.Variant,
		MIME:    mime,
		Data:    blob.Data,
	}, nil
}

func (g *GeminiSynthesizer) config(aspect domain.AspectRatio) *genai.GenerateContentConfig {
	return &genai.GenerateContentConfig{
		Temperature:        genai.Ptr[float32](0.8),
		TopP:               genai.Ptr[float32](0.8),
		TopK:               genai.Ptr[float32](15),
		MaxOutputTokens:    2048,
		CandidateCount:     1,
		ResponseModalities: []string{string(genai.ModalityImage), string(genai.ModalityText)},
		ImageConfig:        &genai.ImageConfig{AspectRatio: string(aspect)},
	}
}

var _ Synthesizer = (*GeminiSynthesizer)(nil)
