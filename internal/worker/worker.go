// Package worker drains the thumbnail job queue.
package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"thumbsmith/internal/domain"
	"thumbsmith/internal/storage"
	"thumbsmith/pkg/zip"
)

const (
	defaultPollInterval = 2 * time.Second
	defaultRetryBase    = 30 * time.Second
	defaultLease        = 10 * time.Minute
	maxBackoffShift     = 10
	bookkeepingTimeout  = 10 * time.Second
)

// Generator runs the thumbnail pipeline for one request.
type Generator interface {
	Generate(ctx context.Context, req domain.Request) (*domain.Result, error)
}

type Options struct {
	Jobs          domain.JobRepository
	Store         storage.ArchiveStore
	Pipeline      Generator
	Concurrency   int
	JobsPerMinute int
	RetryBase     time.Duration
	// Lease is how long a running job may go without a heartbeat before
	// another worker reclaims it.
	Lease         time.Duration
	PollInterval  time.Duration
	Logger        *zerolog.Logger
	Now           func() time.Time
}

// Worker claims queued jobs and runs them through the pipeline.
type Worker struct {
	jobs         domain.JobRepository
	store        storage.ArchiveStore
	pipeline     Generator
	concurrency  int
	limiter      *rate.Limiter
	retryBase    time.Duration
	lease        time.Duration
	pollInterval time.Duration
	logger       zerolog.Logger
	now          func() time.Time
}

func New(opts Options) (*Worker, error) {
	if opts.Jobs == nil || opts.Store == nil || opts.Pipeline == nil {
		return nil, errors.New("worker: jobs, store and pipeline are required")
	}
	w := &Worker{
		jobs:         opts.Jobs,
		store:        opts.Store,
		pipeline:     opts.Pipeline,
		concurrency:  max(1, opts.Concurrency),
		limiter:      rate.NewLimiter(rate.Inf, 1),
		retryBase:    opts.RetryBase,
		lease:        opts.Lease,
		pollInterval: opts.PollInterval,
		logger:       zerolog.Nop(),
		now:          opts.Now,
	}
	if opts.JobsPerMinute > 0 {
		w.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(opts.JobsPerMinute)), 1)
	}
	if w.retryBase <= 0 {
		w.retryBase = defaultRetryBase
	}
	if w.lease <= 0 {
		w.lease = defaultLease
	}
	if w.pollInterval <= 0 {
		w.pollInterval = defaultPollInterval
	}
	if opts.Logger != nil {
		w.logger = opts.Logger.With().Str("component", "worker").Logger()
	}
	if w.now == nil {
		w.now = time.Now
	}
	return w, nil
}

// Run polls until ctx is cancelled, with Concurrency jobs in flight at most.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.Info().Int("concurrency", w.concurrency).Msg("worker started")
	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < w.concurrency; i++ {
		slot := i
		g.Go(func() error {
			return w.loop(ctx, slot)
		})
	}
	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (w *Worker) loop(ctx context.Context, slot int) error {
	for {
		processed, err := w.RunOnce(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			w.logger.Error().Err(err).Int("slot", slot).Msg("worker iteration failed")
		}
		if processed {
			continue
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(w.pollInterval):
		}
	}
}

// RunOnce claims and runs at most one job. It reports whether a job was claimed.
func (w *Worker) RunOnce(ctx context.Context) (bool, error) {
	job, err := w.jobs.Claim(ctx, w.lease)
	if err != nil {
		return false, err
	}
	if job == nil {
		return false, nil
	}
	log := w.logger.With().Str("job_id", job.ID).Int("attempt", job.Attempts).Int("priority", job.Priority).Logger()

	// Reclaimed after its worker died on the final attempt.
	if job.Attempts > job.MaxAttempts {
		msg := job.ErrorMessage
		if msg == "" {
			msg = "worker lost the job"
		}
		log.Error().Str("last_error", msg).Msg("job abandoned, attempts exhausted")
		return true, w.bookkeep(ctx, func(bctx context.Context) error {
			return w.jobs.MarkFailed(bctx, job.ID, fmt.Sprintf("attempts exhausted: %s", msg))
		})
	}

	if err := w.limiter.Wait(ctx); err != nil {
		w.release(job, log, "worker stopped before start")
		return true, err
	}
	log.Info().Msg("job started")

	stop := w.heartbeat(ctx, job, log)
	result, runErr := w.run(ctx, job, log)
	stop()
	if runErr == nil {
		if err := w.bookkeep(ctx, func(bctx context.Context) error {
			return w.jobs.MarkSucceeded(bctx, job.ID, *result)
		}); err != nil {
			return true, fmt.Errorf("mark job %s succeeded: %w", job.ID, err)
		}
		log.Info().Int("images", result.Horizontal+result.Vertical).Bool("cached", result.Cached).Msg("job succeeded")
		return true, nil
	}
	if ctx.Err() != nil {
		w.release(job, log, "worker stopped mid-job")
		return true, ctx.Err()
	}
	return true, w.fail(ctx, job, log, runErr)
}

// run converts a pipeline panic into an ordinary job failure.
func (w *Worker) run(ctx context.Context, job *domain.Job, log zerolog.Logger) (res *domain.JobResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Str("stack", string(debug.Stack())).Interface("panic", r).Msg("job panicked")
			res, err = nil, fmt.Errorf("job panicked: %v", r)
		}
	}()
	return w.execute(ctx, job)
}

// heartbeat keeps the job's lease fresh until the returned stop func is called.
func (w *Worker) heartbeat(ctx context.Context, job *domain.Job, log zerolog.Logger) func() {
	hctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(w.lease / 3)
		defer ticker.Stop()
		for {
			select {
			case <-hctx.Done():
				return
			case <-ticker.C:
				if err := w.jobs.Heartbeat(hctx, job.ID); err != nil && hctx.Err() == nil {
					log.Warn().Err(err).Msg("job heartbeat failed")
				}
			}
		}
	}()
	return func() {
		cancel()
		<-done
	}
}

func (w *Worker) execute(ctx context.Context, job *domain.Job) (*domain.JobResult, error) {
	source, err := w.store.Get(ctx, job.SourceKey)
	if err != nil {
		return nil, fmt.Errorf("load upload: %w", err)
	}
	req := job.Request(source)
	req.RequestID = job.ID
	res, err := w.pipeline.Generate(ctx, req)
	if err != nil {
		return nil, err
	}
	key, err := w.store.Put(ctx, storage.ArchiveKey(job.ID), res.Archive, zip.MIME)
	if err != nil {
		return nil, fmt.Errorf("store archive: %w", err)
	}
	return &domain.JobResult{
		Fingerprint: res.Fingerprint,
		ArchiveKey:  key,
		Horizontal:  len(res.Horizontal),
		Vertical:    len(res.Vertical),
		Cached:      res.Cached,
	}, nil
}

func (w *Worker) fail(ctx context.Context, job *domain.Job, log zerolog.Logger, runErr error) error {
	if job.Attempts < job.MaxAttempts && retryable(runErr) {
		runAfter := w.now().Add(w.Backoff(job.Attempts))
		log.Warn().Err(runErr).Time("run_after", runAfter).Msg("job failed, retrying")
		return w.bookkeep(ctx, func(bctx context.Context) error {
			return w.jobs.MarkRetry(bctx, job.ID, runErr.Error(), runAfter)
		})
	}
	log.Error().Err(runErr).Msg("job failed")
	return w.bookkeep(ctx, func(bctx context.Context) error {
		return w.jobs.MarkFailed(bctx, job.ID, runErr.Error())
	})
}

// release hands a claimed job back to the queue without waiting or spending
// the attempt.
func (w *Worker) release(job *domain.Job, log zerolog.Logger, reason string) {
	err := w.bookkeep(context.Background(), func(bctx context.Context) error {
		return w.jobs.Release(bctx, job.ID, reason)
	})
	if err != nil {
		log.Error().Err(err).Msg("release job failed")
	}
}

// bookkeep runs fn on a context that survives worker shutdown.
func (w *Worker) bookkeep(ctx context.Context, fn func(context.Context) error) error {
	bctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), bookkeepingTimeout)
	defer cancel()
	return fn(bctx)
}

// Backoff is the delay before retry number attempts: 2^attempts * RetryBase.
func (w *Worker) Backoff(attempts int) time.Duration {
	shift := min(max(attempts, 0), maxBackoffShift)
	return w.retryBase * time.Duration(1<<shift)
}

// retryable reports whether running the job again could succeed.
func retryable(err error) bool {
	switch {
	case errors.Is(err, domain.ErrInvalidRequest),
		errors.Is(err, domain.ErrInvalidImage),
		errors.Is(err, domain.ErrNotFound):
		return false
	default:
		return true
	}
}
