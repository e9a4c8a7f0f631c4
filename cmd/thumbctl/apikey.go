package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"thumbsmith/internal/infra"
	"thumbsmith/internal/infra/credentials"
)

func newAPIKeyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "apikey",
		Short: "Manage provider API keys stored in the database",
	}
	cmd.AddCommand(newAPIKeySetCmd())
	return cmd
}

func newAPIKeySetCmd() *cobra.Command {
	var provider, key string
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Store an API key for gemini or openai",
		RunE: func(cmd *cobra.Command, args []string) error {
			provider, err := credentials.ParseProvider(provider)
			if err != nil {
				return err
			}
			if strings.TrimSpace(key) == "" {
				key = envKey(provider)
			}
			if strings.TrimSpace(key) == "" {
				return fmt.Errorf("%s api key is required via --key or environment", provider)
			}

			dbURL := strings.TrimSpace(os.Getenv("DATABASE_URL"))
			if dbURL == "" {
				return fmt.Errorf("DATABASE_URL is required")
			}
			cfg := &infra.Config{DatabaseURL: dbURL, WorkerConcurrency: 1}
			pool, err := infra.NewDBPool(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer pool.Close()

			logger := infra.NewLogger("cli").With().Str("cmd", "apikey").Str("provider", provider).Logger()
			store := credentials.NewStore(infra.NewSQLRunner(pool, logger))

			ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
			defer cancel()
			if err := store.Set(ctx, provider, key); err != nil {
				return err
			}
			logger.Info().Msg("api key stored")
			return nil
		},
	}
	cmd.Flags().StringVar(&provider, "provider", credentials.ProviderGemini, "provider to configure: gemini or openai")
	cmd.Flags().StringVar(&key, "key", "", "API key (defaults to GEMINI_API_KEY or OPENAI_API_KEY)")
	return cmd
}

func envKey(provider string) string {
	if provider == credentials.ProviderOpenAI {
		return os.Getenv("OPENAI_API_KEY")
	}
	return os.Getenv("GEMINI_API_KEY")
}
