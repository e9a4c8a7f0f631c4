// Package genai builds the shared Gemini API client used by the prompt and
// image providers.
package genai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	sdk "google.golang.org/genai"
)

// Options controls how the Gemini client is configured.
type Options struct {
	APIKey     string
	BaseURL    string
	HTTPClient *http.Client
}

// ContentGenerator is the part of the SDK the providers call. sdk.Models
// satisfies it; tests substitute fakes.
type ContentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*sdk.Content, config *sdk.GenerateContentConfig) (*sdk.GenerateContentResponse, error)
}

// ErrMissingAPIKey is returned when no key is configured.
var ErrMissingAPIKey = errors.New("genai: api key is required")

const defaultTimeout = 120 * time.Second

// NewClient returns a Gemini Developer API client. BaseURL overrides the
// endpoint, which tests point at an httptest server.
func NewClient(ctx context.Context, opts Options) (*sdk.Client, error) {
	apiKey := strings.TrimSpace(opts.APIKey)
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	cfg := &sdk.ClientConfig{
		APIKey:     apiKey,
		Backend:    sdk.BackendGeminiAPI,
		HTTPClient: httpClient,
	}
	if base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/"); base != "" {
		cfg.HTTPOptions = sdk.HTTPOptions{BaseURL: base + "/"}
	}
	client, err := sdk.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("genai: new client: %w", err)
	}
	return client, nil
}

// NewGenerator is NewClient narrowed to the models service.
func NewGenerator(ctx context.Context, opts Options) (ContentGenerator, error) {
	client, err := NewClient(ctx, opts)
	if err != nil {
		return nil, err
	}
	return client.Models, nil
}

// StatusCode extracts the HTTP status of a Gemini API error.
func StatusCode(err error) (int, bool) {
	var apiErr sdk.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code, true
	}
	return 0, false
}

// FirstInlineData returns the first inline blob across all candidates.
func FirstInlineData(resp *sdk.GenerateContentResponse) (*sdk.Blob, bool) {
	if resp == nil {
		return nil, false
	}
	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if part != nil && part.InlineData != nil && len(part.InlineData.Data) > 0 {
				return part.InlineData, true
			}
		}
	}
	return nil, false
}

// Text concatenates the text parts of the first candidate.
func Text(resp *sdk.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil && part.Text != "" && !part.Thought {
			b.WriteString(part.Text)
		}
	}
	return strings.TrimSpace(b.String())
}
