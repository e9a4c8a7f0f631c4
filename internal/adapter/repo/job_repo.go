package repo

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"thumbsmith/internal/domain"
	"thumbsmith/internal/infra"
	"thumbsmith/internal/sqlinline"
)

// JobRepositoryPG implements domain.JobRepository.
type JobRepositoryPG struct {
	db infra.SQLExecutor
}

// NewJobRepository creates a job repository over any SQLExecutor.
func NewJobRepository(db infra.SQLExecutor) *JobRepositoryPG {
	return &JobRepositoryPG{db: db}
}

// Enqueue assigns an ID when missing and inserts the job. A live job with the
// same fingerprint wins and is returned instead.
func (r *JobRepositoryPG) Enqueue(ctx context.Context, job *domain.Job) (*domain.Job, bool, error) {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.MaxAttempts < 1 {
		job.MaxAttempts = 1
	}
	stored, err := scanJob(r.db.QueryRow(ctx, sqlinline.QEnqueueJob,
		job.ID,
		job.Fingerprint,
		job.Priority,
		job.MaxAttempts,
		domain.MarshalOptions(job.Options),
		job.SourceKey,
		job.Country,
	))
	if err == nil {
		return stored, true, nil
	}
	if !infra.IsNoRows(err) {
		return nil, false, fmt.Errorf("enqueue job: %w", err)
	}
	existing, err := scanJob(r.db.QueryRow(ctx, sqlinline.QSelectLiveJobByFingerprint, job.Fingerprint))
	if err != nil {
		if infra.IsNoRows(err) {
			return nil, false, fmt.Errorf("enqueue job: conflicting job vanished: %w", domain.ErrDuplicateOperation)
		}
		return nil, false, fmt.Errorf("load live job: %w", err)
	}
	return existing, false, nil
}

func (r *JobRepositoryPG) Claim(ctx context.Context, staleAfter time.Duration) (*domain.Job, error) {
	job, err := scanJob(r.db.QueryRow(ctx, sqlinline.QClaimJob, max(staleAfter, 0).Seconds()))
	if err != nil {
		if infra.IsNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("claim job: %w", err)
	}
	return job, nil
}

func (r *JobRepositoryPG) MarkSucceeded(ctx context.Context, jobID string, result domain.JobResult) error {
	raw, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode job result: %w", err)
	}
	return r.exec(ctx, sqlinline.QMarkJobSucceeded, jobID, raw)
}

func (r *JobRepositoryPG) MarkRetry(ctx context.Context, jobID string, errMsg string, runAfter time.Time) error {
	return r.exec(ctx, sqlinline.QMarkJobRetry, jobID, errMsg, runAfter)
}

func (r *JobRepositoryPG) Heartbeat(ctx context.Context, jobID string) error {
	return r.exec(ctx, sqlinline.QHeartbeatJob, jobID)
}

func (r *JobRepositoryPG) Release(ctx context.Context, jobID string, reason string) error {
	return r.exec(ctx, sqlinline.QReleaseJob, jobID, reason)
}

func (r *JobRepositoryPG) MarkFailed(ctx context.Context, jobID string, errMsg string) error {
	return r.exec(ctx, sqlinline.QMarkJobFailed, jobID, errMsg)
}

func (r *JobRepositoryPG) exec(ctx context.Context, query string, args ...any) error {
	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *JobRepositoryPG) Get(ctx context.Context, jobID string) (*domain.Job, error) {
	if _, err := uuid.Parse(jobID); err != nil {
		return nil, domain.ErrNotFound
	}
	job, err := scanJob(r.db.QueryRow(ctx, sqlinline.QSelectJob, jobID))
	if err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return job, nil
}

func (r *JobRepositoryPG) ListRecent(ctx context.Context, limit int) ([]domain.Job, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	rows, err := r.db.Query(ctx, sqlinline.QListRecentJobs, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var jobs []domain.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *job)
	}
	return jobs, rows.Err()
}

func (r *JobRepositoryPG) Stats(ctx context.Context) (*domain.JobStats, error) {
	rows, err := r.db.Query(ctx, sqlinline.QJobStats)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	stats := &domain.JobStats{ByStatus: map[domain.JobStatus]int{}, ByCountry: map[string]int{}}
	for rows.Next() {
		var (
			status  string
			country string
			count   int
		)
		if err := rows.Scan(&status, &country, &count); err != nil {
			return nil, err
		}
		stats.ByStatus[domain.JobStatus(status)] += count
		stats.ByCountry[country] += count
	}
	return stats, rows.Err()
}

func scanJob(row pgx.Row) (*domain.Job, error) {
	var (
		job     domain.Job
		status  string
		options []byte
		result  []byte
	)
	if err := row.Scan(
		&job.ID,
		&job.Fingerprint,
		&status,
		&job.Priority,
		&job.Attempts,
		&job.MaxAttempts,
		&options,
		&job.SourceKey,
		&job.Country,
		&result,
		&job.ErrorMessage,
		&job.RunAfter,
		&job.CreatedAt,
		&job.UpdatedAt,
	); err != nil {
		return nil, err
	}
	job.Status = domain.JobStatus(status)
	if len(options) > 0 {
		if err := json.Unmarshal(options, &job.Options); err != nil {
			return nil, fmt.Errorf("decode job options: %w", err)
		}
	}
	if len(result) > 0 {
		job.Result = &domain.JobResult{}
		if err := json.Unmarshal(result, job.Result); err != nil {
			return nil, fmt.Errorf("decode job result: %w", err)
		}
	}
	return &job, nil
}

var _ domain.JobRepository = (*JobRepositoryPG)(nil)
