package main

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"thumbsmith/internal/bootstrap"
	"thumbsmith/internal/domain"
	"thumbsmith/internal/infra"
	"thumbsmith/internal/infra/credentials"
)

type generateOptions struct {
	image        string
	topic        string
	style        string
	placement    string
	tone         string
	channelStyle string
	variants     int
	postProcess  bool
	out          string
}

func newGenerateCmd() *cobra.Command {
	var opts generateOptions
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Run the pipeline on a local photo and write the zip",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd, opts)
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.image, "image", "", "path to the source photo")
	f.StringVar(&opts.topic, "topic", "", "video topic, also the overlay text")
	f.StringVar(&opts.style, "style", "", "visual style")
	f.StringVar(&opts.placement, "placement", "", "subject placement: left, center or right")
	f.StringVar(&opts.tone, "tone", "", "content tone")
	f.StringVar(&opts.channelStyle, "channel-style", "", "channel style")
	f.IntVar(&opts.variants, "variants", domain.DefaultVariants, "number of variants (1-4)")
	f.BoolVar(&opts.postProcess, "post-process", false, "upscale and sharpen the results")
	f.StringVar(&opts.out, "out", "thumbnails.zip", "output zip path")
	_ = cmd.MarkFlagRequired("image")
	_ = cmd.MarkFlagRequired("topic")
	_ = cmd.MarkFlagRequired("style")
	_ = cmd.MarkFlagRequired("placement")
	return cmd
}

func runGenerate(cmd *cobra.Command, opts generateOptions) error {
	ctx := cmd.Context()
	cfg, err := infra.LoadConfig()
	if err != nil {
		return err
	}
	logger := infra.NewLogger("cli").With().Str("cmd", "generate").Logger()

	data, err := os.ReadFile(opts.image)
	if err != nil {
		return fmt.Errorf("read image: %w", err)
	}

	var keys *credentials.Store
	if cfg.DatabaseURL != "" {
		pool, err := infra.NewDBPool(ctx, cfg)
		if err != nil {
			return err
		}
		defer pool.Close()
		keys = credentials.NewStore(infra.NewSQLRunner(pool, logger))
	}

	pipeline, closePipeline, err := bootstrap.Pipeline(ctx, cfg, logger, keys)
	if err != nil {
		return err
	}
	defer closePipeline()

	res, err := pipeline.Generate(ctx, domain.Request{
		Image:        data,
		ImageMIME:    http.DetectContentType(data),
		Topic:        opts.topic,
		Style:        opts.style,
		Placement:    domain.Placement(opts.placement),
		Tone:         opts.tone,
		ChannelStyle: opts.channelStyle,
		Variants:     opts.variants,
		PostProcess:  opts.postProcess,
	})
	if err != nil {
		return err
	}

	if dir := filepath.Dir(opts.out); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}
	if err := os.WriteFile(opts.out, res.Archive, 0o644); err != nil {
		return fmt.Errorf("write archive: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d horizontal, %d vertical)\n", opts.out, len(res.Horizontal), len(res.Vertical))
	return nil
}
