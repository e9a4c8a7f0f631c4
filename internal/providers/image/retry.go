package image

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"thumbsmith/internal/domain"
)

const (
	DefaultMaxAttempts     = 3
	DefaultInitialInterval = 2 * time.Second
)

type RetryOptions struct {
	MaxAttempts     int
	InitialInterval time.Duration
	Logger          *zerolog.Logger
}

// Retrying retries a Synthesizer with exponential backoff: the wait doubles
// after every failed attempt and carries no jitter.
type Retrying struct {
	next            Synthesizer
	maxAttempts     int
	initialInterval time.Duration
	logger          zerolog.Logger
}

func NewRetrying(next Synthesizer, opts RetryOptions) *Retrying {
	r := &Retrying{
		next:            next,
		maxAttempts:     opts.MaxAttempts,
		initialInterval: opts.InitialInterval,
		logger:          zerolog.Nop(),
	}
	if r.maxAttempts < 1 {
		r.maxAttempts = DefaultMaxAttempts
	}
	if r.initialInterval <= 0 {
		r.initialInterval = DefaultInitialInterval
	}
	if opts.Logger != nil {
		r.logger = *opts.Logger
	}
	return r
}

func (r *Retrying) Synthesize(ctx context.Context, req SynthesisRequest) (*domain.Image, error) {
	var (
		out      *domain.Image
		attempts int
		lastErr  error
	)
	op := func() error {
		attempts++
		img, err := r.next.Synthesize(ctx, req)
		if err != nil {
			lastErr = err
			if errors.Is(err, domain.ErrInvalidRequest) || ctx.Err() != nil {
				return backoff.Permanent(err)
			}
			return err
		}
		out = img
		return nil
	}
	notify := func(err error, wait time.Duration) {
		r.logger.Warn().
			Err(err).
			Str("request_id", req.RequestID).
			Str("aspect", string(req.Aspect)).
			Int("variant", req.Variant).
			Int("attempt", attempts).
			Dur("retry_in", wait).
			Msg("image synthesis failed, retrying")
	}
	if err := backoff.RetryNotify(op, r.policy(ctx), notify); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if lastErr == nil {
			lastErr = err
		}
		return nil, fmt.Errorf("synthesize %s image after %d attempts: %w", req.Aspect, attempts, lastErr)
	}
	return out, nil
}

func (r *Retrying) policy(ctx context.Context) backoff.BackOff {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = r.initialInterval
	exp.Multiplier = 2
	exp.RandomizationFactor = 0
	exp.MaxInterval = r.initialInterval << uint(r.maxAttempts)
	exp.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(exp, uint64(r.maxAttempts-1)), ctx)
}

var _ Synthesizer = (*Retrying)(nil)
