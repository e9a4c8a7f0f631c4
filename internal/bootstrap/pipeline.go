// Package bootstrap assembles the thumbnail pipeline from configuration so the
// API, worker and CLI binaries share one wiring.
package bootstrap

import (
	"context"
	"fmt"

	"thumbsmith/internal/cache"
	"thumbsmith/internal/infra"
	"thumbsmith/internal/infra/credentials"
	"thumbsmith/internal/providers/image"
	"thumbsmith/internal/providers/prompt"
	"thumbsmith/internal/thumbnail"
)

// KeySource resolves provider API keys. A nil *credentials.Store satisfies it
// with environment values only.
type KeySource interface {
	Resolve(ctx context.Context, provider, envValue string) (string, error)
}

// Pipeline builds the orchestrator with the configured providers and cache.
// The returned func releases the cache connection.
func Pipeline(ctx context.Context, cfg *infra.Config, logger infra.Logger, keys KeySource) (*thumbnail.Pipeline, func(), error) {
	composer, err := Composer(ctx, cfg, logger, keys)
	if err != nil {
		return nil, nil, err
	}
	synth, err := Synthesizer(ctx, cfg, logger, keys)
	if err != nil {
		return nil, nil, err
	}
	results, closeCache, err := cache.Open(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	pipeline, err := thumbnail.New(thumbnail.Options{
		Composer:    composer,
		Synthesizer: synth,
		Cache:       results,
		MinInterval: cfg.SynthMinInterval,
		Logger:      &logger,
	})
	if err != nil {
		closeCache()
		return nil, nil, err
	}
	return pipeline, closeCache, nil
}

// Composer selects the prompt provider named by PROMPT_PROVIDER.
func Composer(ctx context.Context, cfg *infra.Config, logger infra.Logger, keys KeySource) (prompt.Composer, error) {
	var fallback prompt.Composer
	if cfg.PromptFallback {
		fallback = prompt.NewStaticComposer()
	}
	onFallback := func(reason string, err error) {
		logger.Warn().Err(err).Str("reason", reason).Str("provider", cfg.PromptProvider).Msg("prompt provider fell back to static templates")
	}

	switch cfg.PromptProvider {
	case infra.PromptProviderStatic:
		return prompt.NewStaticComposer(), nil
	case infra.PromptProviderOpenAI:
		key, err := resolveKey(ctx, keys, credentials.ProviderOpenAI, cfg.OpenAIAPIKey)
		if err != nil {
			return nil, err
		}
		composer, err := prompt.NewOpenAIComposer(prompt.OpenAIOptions{
			APIKey:       key,
			Model:        cfg.OpenAIModel,
			BaseURL:      cfg.OpenAIBaseURL,
			Organization: cfg.OpenAIOrg,
			Fallback:     fallback,
			OnFallback:   onFallback,
			OnWarning: func(reason, detail string) {
				logger.Warn().Str("reason", reason).Str("detail", detail).Msg("openai model adjusted")
			},
		})
		if err != nil {
			return nil, err
		}
		logger.Info().Str("model", composer.Model()).Msg("prompt provider: openai")
		return composer, nil
	case infra.PromptProviderGemini:
		key, err := resolveKey(ctx, keys, credentials.ProviderGemini, cfg.GeminiAPIKey)
		if err != nil {
			return nil, err
		}
		return prompt.NewGeminiComposer(ctx, prompt.GeminiOptions{
			APIKey:     key,
			Model:      cfg.GeminiTextModel,
			BaseURL:    cfg.GeminiBaseURL,
			Fallback:   fallback,
			OnFallback: onFallback,
		})
	default:
		return nil, fmt.Errorf("unsupported prompt provider %q", cfg.PromptProvider)
	}
}

// Synthesizer selects the image provider named by IMAGE_PROVIDER and wraps it
// with the retry policy.
func Synthesizer(ctx context.Context, cfg *infra.Config, logger infra.Logger, keys KeySource) (image.Synthesizer, error) {
	var next image.Synthesizer
	switch cfg.ImageProvider {
	case infra.ImageProviderSynthetic:
		next = image.NewSyntheticSynthesizer()
	case infra.ImageProviderGemini:
		key, err := resolveKey(ctx, keys, credentials.ProviderGemini, cfg.GeminiAPIKey)
		if err != nil {
			return nil, err
		}
		gemini, err := image.NewGeminiSynthesizer(ctx, image.GeminiOptions{
			APIKey:  key,
			Model:   cfg.GeminiImageModel,
			BaseURL: cfg.GeminiBaseURL,
			Logger:  &logger,
		})
		if err != nil {
			return nil, err
		}
		logger.Info().Str("model", gemini.Model()).Msg("image provider: gemini")
		next = gemini
	default:
		return nil, fmt.Errorf("unsupported image provider %q", cfg.ImageProvider)
	}
	return image.NewRetrying(next, image.RetryOptions{
		MaxAttempts:     cfg.SynthMaxAttempts,
		InitialInterval: cfg.SynthBackoff,
		Logger:          &logger,
	}), nil
}

func resolveKey(ctx context.Context, keys KeySource, provider, envValue string) (string, error) {
	if keys == nil {
		keys = (*credentials.Store)(nil)
	}
	key, err := keys.Resolve(ctx, provider, envValue)
	if err != nil {
		return "", err
	}
	if key == "" {
		return "", fmt.Errorf("%s api key is not configured", provider)
	}
	return key, nil
}
