package prompt

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"thumbsmith/internal/domain"
)

type OpenAIOptions struct {
	APIKey       string
	Model        string
	BaseURL      string
	Organization string
	HTTPClient   *http.Client
	MaxRetries   int
	Templates    *Templates
	Fallback     Composer
	OnFallback   func(reason string, err error)
	OnWarning    func(reason, detail string)
}

// OpenAIComposer writes directions and concepts with the chat completions API.
type OpenAIComposer struct {
	client     openai.Client
	model      string
	templates  *Templates
	fallback   Composer
	onFallback func(reason string, err error)
}

const openAIDefaultTimeout = 30 * time.Second

const defaultOpenAIModel = "gpt-4o-mini"

var openAIModelCanonical = map[string]string{
	"gpt-3.5-turbo": "gpt-3.5-turbo",
	"gpt-4o-mini":   "gpt-4o-mini",
	"gpt-4o":        "gpt-4o",
	"gpt-4.1-mini":  "gpt-4.1-mini",
}

var openAIModelAliases = map[string]string{
	"gpt-3.5":                "gpt-3.5-turbo",
	"gpt3.5":                 "gpt-3.5-turbo",
	"gpt-35-turbo":           "gpt-3.5-turbo",
	"gpt4o-mini":             "gpt-4o-mini",
	"gpt4omini":              "gpt-4o-mini",
	"gpt-4o-mini-2024-07-18": "gpt-4o-mini",
	"gpt4o":                  "gpt-4o",
	"gpt-4o-2024-08-06":      "gpt-4o",
	"gpt4.1-mini":            "gpt-4.1-mini",
}

func NewOpenAIComposer(opts OpenAIOptions) (*OpenAIComposer, error) {
	apiKey := strings.TrimSpace(opts.APIKey)
	if apiKey == "" {
		return nil, errors.New("openai api key is required")
	}
	modelInput := strings.TrimSpace(opts.Model)
	model, reason := normalizeOpenAIModel(modelInput)
	if reason != "" && opts.OnWarning != nil {
		opts.OnWarning("model_"+reason, fmt.Sprintf("requested=%s resolved=%s", coalesce(modelInput, defaultOpenAIModel), model))
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: openAIDefaultTimeout}
	}
	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithHTTPClient(httpClient),
		option.WithMaxRetries(opts.MaxRetries),
	}
	if base := strings.TrimSpace(opts.BaseURL); base != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(strings.TrimRight(base, "/")+"/"))
	}
	if org := strings.TrimSpace(opts.Organization); org != "" {
		reqOpts = append(reqOpts, option.WithOrganization(org))
	}
	templates := opts.Templates
	if templates == nil {
		templates = DefaultTemplates()
	}
	return &OpenAIComposer{
		client:     openai.NewClient(reqOpts...),
		model:      model,
		templates:  templates,
		fallback:   opts.Fallback,
		onFallback: opts.OnFallback,
	}, nil
}

// Model reports the resolved chat model.
func (o *OpenAIComposer) Model() string {
	return o.model
}

func (o *OpenAIComposer) CreativeDirection(ctx context.Context, brief Brief) (string, error) {
	text, reason, err := o.complete(ctx, o.templates.directionPrompt(brief))
	if err != nil {
		if o.fallback != nil && ctx.Err() == nil {
			o.emitFallback(reason, err)
			return o.fallback.CreativeDirection(ctx, brief)
		}
		return "", fmt.Errorf("enhance prompt with openai: %w", err)
	}
	return trimCodeFence(text), nil
}

func (o *OpenAIComposer) Concepts(ctx context.Context, brief Brief, n int) ([]string, error) {
	if n < 1 {
		return nil, fmt.Errorf("%w: concept count %d", domain.ErrInvalidRequest, n)
	}
	text, reason, err := o.complete(ctx, o.templates.conceptsPrompt(brief, n))
	var concepts []string
	if err == nil {
		concepts, err = parseConcepts(text, o.templates, n, openAIProviderName)
		reason = "parse_concepts"
	}
	if err != nil {
		if o.fallback != nil && ctx.Err() == nil {
			o.emitFallback(reason, err)
			return o.fallback.Concepts(ctx, brief, n)
		}
		return nil, fmt.Errorf("enhance prompt with openai: %w", err)
	}
	return concepts, nil
}

// complete runs one chat completion and returns its text, or a fallback reason with the error.
func (o *OpenAIComposer) complete(ctx context.Context, p chatPrompt) (string, string, error) {
	params := openai.ChatCompletionNewParams{
		Model: o.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(p.System),
			openai.UserMessage(p.User),
		},
		Temperature: openai.Float(p.Temperature),
	}
	if p.MaxTokens > 0 {
		params.MaxTokens = openai.Int(p.MaxTokens)
	}
	if p.PresencePenalty != 0 {
		params.PresencePenalty = openai.Float(p.PresencePenalty)
	}
	if p.FrequencyPenalty != 0 {
		params.FrequencyPenalty = openai.Float(p.FrequencyPenalty)
	}
	resp, err := o.client.Chat.Completions.New(ctx, params)
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			return "", fmt.Sprintf("http_%d", apiErr.StatusCode), fmt.Errorf("%w: %w", domain.ErrProviderFailure, err)
		}
		return "", "http_request", fmt.Errorf("%w: %w", domain.ErrProviderFailure, err)
	}
	if len(resp.Choices) == 0 {
		return "", "empty_choices", fmt.Errorf("%w: openai returned no choices", domain.ErrProviderFailure)
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", "empty_response", fmt.Errorf("%w: openai returned an empty completion", domain.ErrProviderFailure)
	}
	return text, "", nil
}

func (o *OpenAIComposer) emitFallback(reason string, err error) {
	if o.onFallback != nil {
		o.onFallback(reason, err)
	}
}

var _ Composer = (*OpenAIComposer)(nil)

func normalizeOpenAIModel(name string) (string, string) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return defaultOpenAIModel, ""
	}
	normalized := strings.ToLower(trimmed)
	normalized = strings.ReplaceAll(normalized, "_", "-")
	normalized = strings.ReplaceAll(normalized, " ", "-")
	if canonical, ok := openAIModelCanonical[normalized]; ok {
		return canonical, ""
	}
	if alias, ok := openAIModelAliases[normalized]; ok {
		if canonical, ok := openAIModelCanonical[alias]; ok {
			return canonical, "alias"
		}
		return alias, "alias"
	}
	return defaultOpenAIModel, "defaulted"
}
