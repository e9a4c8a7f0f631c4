package domain

import (
	"context"
	"time"
)

// JobRepository defines persistence for asynchronous thumbnail jobs.
type JobRepository interface {
	// Enqueue inserts a job unless a live job with the same fingerprint exists,
	// in which case the existing job is returned with created=false.
	Enqueue(ctx context.Context, job *Job) (stored *Job, created bool, err error)
	// Claim moves the next runnable job to running. A running job not
	// heartbeated within staleAfter is runnable again; staleAfter <= 0 disables
	// reclaiming. It returns nil, nil when the queue is empty.
	Claim(ctx context.Context, staleAfter time.Duration) (*Job, error)
	// Heartbeat extends the lease of a running job.
	Heartbeat(ctx context.Context, jobID string) error
	// Release puts a running job back in the queue without spending an attempt.
	Release(ctx context.Context, jobID string, reason string) error
	MarkSucceeded(ctx context.Context, jobID string, result JobResult) error
	MarkRetry(ctx context.Context, jobID string, errMsg string, runAfter time.Time) error
	MarkFailed(ctx context.Context, jobID string, errMsg string) error
	Get(ctx context.Context, jobID string) (*Job, error)
	ListRecent(ctx context.Context, limit int) ([]Job, error)
	Stats(ctx context.Context) (*JobStats, error)
}
