// Package thumbnail turns one uploaded photo into paired YouTube thumbnails.
package thumbnail

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"thumbsmith/internal/cache"
	"thumbsmith/internal/domain"
	"thumbsmith/internal/imageproc"
	"thumbsmith/internal/providers/image"
	"thumbsmith/internal/providers/prompt"
	"thumbsmith/pkg/zip"
)

// errThrottled marks a limiter wait that cannot finish before the deadline.
var errThrottled = errors.New("thumbnail: synthesis throttled past deadline")

// Normalizer prepares the upload once per aspect ratio.
type Normalizer interface {
	Normalize(ctx context.Context, data []byte) (imageproc.Buffers, error)
}

// PostProcessor finishes one synthesized image.
type PostProcessor func(data []byte, aspect domain.AspectRatio) ([]byte, error)

type Options struct {
	Normalizer  Normalizer
	Composer    prompt.Composer
	Synthesizer image.Synthesizer
	Cache       cache.ResultCache
	// MinInterval spaces synthesis calls when a request has several variants.
	MinInterval time.Duration
	PostProcess PostProcessor
	Logger      *zerolog.Logger
}

// Pipeline orchestrates normalization, prompting, synthesis, and archiving.
type Pipeline struct {
	normalizer  Normalizer
	composer    prompt.Composer
	synthesizer image.Synthesizer
	cache       cache.ResultCache
	limiter     *rate.Limiter
	postProcess PostProcessor
	logger      zerolog.Logger
}

func New(opts Options) (*Pipeline, error) {
	if opts.Composer == nil {
		return nil, errors.New("thumbnail: composer is required")
	}
	if opts.Synthesizer == nil {
		return nil, errors.New("thumbnail: synthesizer is required")
	}
	p := &Pipeline{
		normalizer:  opts.Normalizer,
		composer:    opts.Composer,
		synthesizer: opts.Synthesizer,
		cache:       opts.Cache,
		limiter:     rate.NewLimiter(rate.Inf, 1),
		postProcess: opts.PostProcess,
		logger:      zerolog.Nop(),
	}
	if p.normalizer == nil {
		p.normalizer = imageproc.NewNormalizer()
	}
	if p.cache == nil {
		p.cache = cache.Nop{}
	}
	if opts.MinInterval > 0 {
		p.limiter = rate.NewLimiter(rate.Every(opts.MinInterval), 1)
	}
	if p.postProcess == nil {
		p.postProcess = imageproc.PostProcess
	}
	if opts.Logger != nil {
		p.logger = opts.Logger.With().Str("component", "pipeline").Logger()
	}
	return p, nil
}

// Generate runs one request end to end. Results are cached by fingerprint.
func (p *Pipeline) Generate(ctx context.Context, req domain.Request) (*domain.Result, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}
	fingerprint := cache.Fingerprint(req)
	log := p.logger.With().Str("request_id", req.RequestID).Str("fingerprint", fingerprint).Logger()

	if cached, ok, err := p.cache.Get(ctx, fingerprint); err != nil {
		log.Warn().Err(err).Msg("result cache read failed")
	} else if ok {
		log.Info().Msg("serving cached result")
		return cached, nil
	}

	sources, err := p.normalizer.Normalize(ctx, req.Image)
	if err != nil {
		return nil, err
	}
	brief := prompt.BriefFromRequest(req)
	concepts, err := p.composer.Concepts(ctx, brief, req.Variants)
	if err != nil {
		return nil, err
	}

	res := &domain.Result{Fingerprint: fingerprint}
	if req.Variants == 1 {
		pair, err := p.variant(ctx, req, brief, sources, concepts[0], 1, false)
		if err != nil {
			return nil, err
		}
		res.Horizontal = append(res.Horizontal, pair[0])
		res.Vertical = append(res.Vertical, pair[1])
	} else {
		for i, concept := range concepts {
			pair, err := p.variant(ctx, req, brief, sources, concept, len(res.Horizontal)+1, true)
			if err != nil {
				if ctx.Err() != nil {
					return nil, ctx.Err()
				}
				if errors.Is(err, errThrottled) {
					return nil, err
				}
				log.Warn().Err(err).Int("variant", i+1).Msg("variant failed, skipping")
				continue
			}
			res.Horizontal = append(res.Horizontal, pair[0])
			res.Vertical = append(res.Vertical, pair[1])
		}
	}
	if len(res.Horizontal) == 0 {
		return nil, domain.ErrNoImages
	}

	if req.PostProcess {
		if err := p.finish(res); err != nil {
			return nil, err
		}
	}
	if res.Archive, err = archive(res); err != nil {
		return nil, err
	}
	if err := p.cache.Set(ctx, fingerprint, res); err != nil {
		log.Warn().Err(err).Msg("result cache write failed")
	}
	log.Info().
		Int("requested", req.Variants).
		Int("produced", len(res.Horizontal)).
		Msg("thumbnails generated")
	return res, nil
}

// variant produces the horizontal and vertical image for one concept, numbered n.
// Throttled variants wait on the shared limiter and synthesize one aspect at a time.
func (p *Pipeline) variant(ctx context.Context, req domain.Request, brief prompt.Brief, sources imageproc.Buffers, concept string, n int, throttled bool) ([2]domain.Image, error) {
	var pair [2]domain.Image
	direction, err := p.composer.CreativeDirection(ctx, brief)
	if err != nil {
		return pair, err
	}
	synthesize := func(ctx context.Context, idx int, aspect domain.AspectRatio) error {
		if throttled {
			if err := p.limiter.Wait(ctx); err != nil {
				return fmt.Errorf("%w: %w", errThrottled, err)
			}
		}
		img, err := p.synthesizer.Synthesize(ctx, image.SynthesisRequest{
			Source: sources[aspect],
			Aspect: aspect,
			Prompt: image.BuildPrompt(image.PromptSpec{
				Topic:             req.Topic,
				Style:             req.Style,
				Placement:         req.Placement,
				Aspect:            aspect,
				Concept:           concept,
				CreativeDirection: direction,
			}),
			Variant:   n,
			RequestID: req.RequestID,
		})
		if err != nil {
			return err
		}
		img.Aspect = aspect
		img.Variant = n
		pair[idx] = *img
		return nil
	}

	if throttled {
		for idx, aspect := range domain.AspectRatios {
			if err := synthesize(ctx, idx, aspect); err != nil {
				return pair, err
			}
		}
		return pair, nil
	}
	g, gctx := errgroup.WithContext(ctx)
	for idx, aspect := range domain.AspectRatios {
		g.Go(func() error {
			return synthesize(gctx, idx, aspect)
		})
	}
	return pair, g.Wait()
}

func (p *Pipeline) finish(res *domain.Result) error {
	for _, images := range [][]domain.Image{res.Horizontal, res.Vertical} {
		for i := range images {
			data, err := p.postProcess(images[i].Data, images[i].Aspect)
			if err != nil {
				return fmt.Errorf("post-process %s: %w", images[i].Filename(), err)
			}
			images[i].Data = data
			images[i].MIME = "image/jpeg"
		}
	}
	return nil
}

func archive(res *domain.Result) ([]byte, error) {
	images := res.Images()
	assets := make([]zip.Asset, len(images))
	for i, img := range images {
		assets[i] = zip.Asset{Filename: img.Filename(), MIME: img.MIME, Data: img.Data}
	}
	return zip.Archive(assets)
}
