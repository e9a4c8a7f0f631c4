package credentials

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"thumbsmith/internal/infra"
	"thumbsmith/internal/sqlinline"
)

const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

// Store reads and writes provider API keys kept in the integration_tokens table.
type Store struct {
	sql infra.SQLExecutor
}

func NewStore(sql infra.SQLExecutor) *Store {
	return &Store{sql: sql}
}

// ParseProvider validates a provider name.
func ParseProvider(raw string) (string, error) {
	switch p := strings.ToLower(strings.TrimSpace(raw)); p {
	case ProviderGemini, ProviderOpenAI:
		return p, nil
	case "google":
		return ProviderGemini, nil
	default:
		return "", fmt.Errorf("unsupported provider %q", raw)
	}
}

// Token returns the stored key for provider, or "" when none is stored.
func (s *Store) Token(ctx context.Context, provider string) (string, error) {
	row := s.sql.QueryRow(ctx, sqlinline.QSelectIntegrationToken, provider)
	var token string
	if err := row.Scan(&token); err != nil {
		if infra.IsNoRows(err) {
			return "", nil
		}
		return "", fmt.Errorf("load %s token: %w", provider, err)
	}
	return strings.TrimSpace(token), nil
}

// Resolve prefers the environment value and falls back to the stored token.
// A nil store resolves to the environment value only.
func (s *Store) Resolve(ctx context.Context, provider, envValue string) (string, error) {
	if v := strings.TrimSpace(envValue); v != "" || s == nil {
		return v, nil
	}
	return s.Token(ctx, provider)
}

// Set upserts the key for provider.
func (s *Store) Set(ctx context.Context, provider, key string) error {
	provider, err := ParseProvider(provider)
	if err != nil {
		return err
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return fmt.Errorf("%s api key is required", provider)
	}
	props, err := json.Marshal(map[string]any{
		"updated_via": "thumbctl",
		"updated_at":  time.Now().UTC().Format(time.RFC3339),
		"suffix":      keySuffix(key),
	})
	if err != nil {
		return err
	}
	if _, err := s.sql.Exec(ctx, sqlinline.QUpsertIntegrationToken, provider, key, props); err != nil {
		return fmt.Errorf("store %s token: %w", provider, err)
	}
	return nil
}

func keySuffix(key string) string {
	if len(key) <= 4 {
		return ""
	}
	return key[len(key)-4:]
}
