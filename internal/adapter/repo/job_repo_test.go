package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"thumbsmith/internal/domain"
	"thumbsmith/internal/sqlinline"
)

type stubRow struct {
	scan func(dest ...any) error
}

func (r stubRow) Scan(dest ...any) error {
	return r.scan(dest...)
}

// stubRows serves pre-built rows to Query callers.
type stubRows struct {
	rows [][]any
	idx  int
}

func (r *stubRows) Close()                                       {}
func (r *stubRows) Err() error                                   { return nil }
func (r *stubRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *stubRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *stubRows) Values() ([]any, error)                       { return r.rows[r.idx-1], nil }
func (r *stubRows) RawValues() [][]byte                          { return nil }
func (r *stubRows) Conn() *pgx.Conn                              { return nil }

func (r *stubRows) Next() bool {
	if r.idx >= len(r.rows) {
		return false
	}
	r.idx++
	return true
}

func (r *stubRows) Scan(dest ...any) error {
	return assign(dest, r.rows[r.idx-1])
}

// stubDB is a tiny in-memory model of the thumbnail_jobs table.
type stubDB struct {
	mu   sync.Mutex
	jobs map[string]*jobRecord
	seq  int
	now  time.Time
}

type jobRecord struct {
	job     domain.Job
	options []byte
	result  []byte
	seq     int
}

func newStubDB() *stubDB {
	return &stubDB{jobs: map[string]*jobRecord{}, now: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)}
}

func (s *stubDB) advance(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = s.now.Add(d)
}

func (s *stubDB) Exec(ctx context.Context, query string, args ...any) (pgconn.CommandTag, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.jobs[args[0].(string)]
	if !ok {
		return pgconn.NewCommandTag("UPDATE 0"), nil
	}
	switch query {
	case sqlinline.QMarkJobSucceeded:
		rec.job.Status = domain.JobStatusSucceeded
		rec.result = args[1].([]byte)
	case sqlinline.QMarkJobRetry:
		if rec.job.Status != domain.JobStatusRunning {
			return pgconn.NewCommandTag("UPDATE 0"), nil
		}
		rec.job.Status = domain.JobStatusQueued
		rec.job.ErrorMessage = args[1].(string)
		rec.job.RunAfter = args[2].(time.Time)
	case sqlinline.QHeartbeatJob:
		if rec.job.Status != domain.JobStatusRunning {
			return pgconn.NewCommandTag("UPDATE 0"), nil
		}
		rec.job.UpdatedAt = s.now
	case sqlinline.QReleaseJob:
		if rec.job.Status != domain.JobStatusRunning {
			return pgconn.NewCommandTag("UPDATE 0"), nil
		}
		rec.job.Status = domain.JobStatusQueued
		rec.job.Attempts = max(rec.job.Attempts-1, 0)
		rec.job.ErrorMessage = args[1].(string)
		rec.job.RunAfter = s.now
	case sqlinline.QMarkJobFailed:
		rec.job.Status = domain.JobStatusFailed
		rec.job.ErrorMessage = args[1].(string)
	default:
		return pgconn.CommandTag{}, fmt.Errorf("unsupported exec: %s", query)
	}
	return pgconn.NewCommandTag("UPDATE 1"), nil
}

func (s *stubDB) QueryRow(ctx context.Context, query string, args ...any) pgx.Row {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch query {
	case sqlinline.QEnqueueJob:
		fingerprint := args[1].(string)
		if s.liveByFingerprint(fingerprint) != nil {
			return noRow()
		}
		s.seq++
		rec := &jobRecord{seq: s.seq, options: args[4].([]byte)}
		rec.job = domain.Job{
			ID:          args[0].(string),
			Fingerprint: fingerprint,
			Status:      domain.JobStatusQueued,
			Priority:    args[2].(int),
			MaxAttempts: args[3].(int),
			SourceKey:   args[5].(string),
			Country:     args[6].(string),
			CreatedAt:   time.Unix(int64(s.seq), 0),
		}
		s.jobs[rec.job.ID] = rec
		return rec.row()
	case sqlinline.QSelectLiveJobByFingerprint:
		if rec := s.liveByFingerprint(args[0].(string)); rec != nil {
			return rec.row()
		}
		return noRow()
	case sqlinline.QClaimJob:
		staleAfter := time.Duration(args[0].(float64) * float64(time.Second))
		var queued []*jobRecord
		for _, rec := range s.jobs {
			stale := staleAfter > 0 && rec.job.Status == domain.JobStatusRunning &&
				rec.job.UpdatedAt.Before(s.now.Add(-staleAfter))
			if rec.job.Status == domain.JobStatusQueued || stale {
				queued = append(queued, rec)
			}
		}
		if len(queued) == 0 {
			return noRow()
		}
		sort.Slice(queued, func(i, j int) bool {
			if queued[i].job.Priority != queued[j].job.Priority {
				return queued[i].job.Priority > queued[j].job.Priority
			}
			return queued[i].seq < queued[j].seq
		})
		rec := queued[0]
		rec.job.Status = domain.JobStatusRunning
		rec.job.Attempts++
		rec.job.UpdatedAt = s.now
		return rec.row()
	case sqlinline.QSelectJob:
		if rec, ok := s.jobs[args[0].(string)]; ok {
			return rec.row()
		}
		return noRow()
	}
	return stubRow{scan: func(dest ...any) error { return fmt.Errorf("unsupported query: %s", query) }}
}

func (s *stubDB) Query(ctx context.Context, query string, args ...any) (pgx.Rows, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch query {
	case sqlinline.QListRecentJobs:
		recs := make([]*jobRecord, 0, len(s.jobs))
		for _, rec := range s.jobs {
			recs = append(recs, rec)
		}
		sort.Slice(recs, func(i, j int) bool { return recs[i].seq > recs[j].seq })
		if limit := args[0].(int); len(recs) > limit {
			recs = recs[:limit]
		}
		out := &stubRows{}
		for _, rec := range recs {
			out.rows = append(out.rows, rec.values())
		}
		return out, nil
	case sqlinline.QJobStats:
		counts := map[[2]string]int{}
		for _, rec := range s.jobs {
			country := rec.job.Country
			if country == "" {
				country = "unknown"
			}
			counts[[2]string{string(rec.job.Status), country}]++
		}
		out := &stubRows{}
		for key, n := range counts {
			out.rows = append(out.rows, []any{key[0], key[1], n})
		}
		return out, nil
	}
	return nil, fmt.Errorf("unsupported query: %s", query)
}

func (s *stubDB) liveByFingerprint(fp string) *jobRecord {
	for _, rec := range s.jobs {
		if rec.job.Fingerprint == fp && rec.job.Status.Live() {
			return rec
		}
	}
	return nil
}

func (rec *jobRecord) values() []any {
	j := rec.job
	return []any{j.ID, j.Fingerprint, string(j.Status), j.Priority, j.Attempts, j.MaxAttempts, rec.options, j.SourceKey, j.Country, rec.result, j.ErrorMessage, j.RunAfter, j.CreatedAt, j.UpdatedAt}
}

func (rec *jobRecord) row() pgx.Row {
	values := rec.values()
	return stubRow{scan: func(dest ...any) error { return assign(dest, values) }}
}

func noRow() pgx.Row {
	return stubRow{scan: func(dest ...any) error { return pgx.ErrNoRows }}
}

func assign(dest []any, values []any) error {
	if len(dest) != len(values) {
		return fmt.Errorf("scan: %d targets for %d columns", len(dest), len(values))
	}
	for i, d := range dest {
		switch ptr := d.(type) {
		case *string:
			*ptr = values[i].(string)
		case *int:
			*ptr = values[i].(int)
		case *[]byte:
			if values[i] == nil {
				*ptr = nil
			} else {
				*ptr = values[i].([]byte)
			}
		case *time.Time:
			*ptr = values[i].(time.Time)
		default:
			return fmt.Errorf("scan: unsupported target %T", d)
		}
	}
	return nil
}

func newJob(fp string, priority int) *domain.Job {
	return &domain.Job{
		Fingerprint: fp,
		Priority:    priority,
		MaxAttempts: 3,
		SourceKey:   "uploads/" + fp,
		Country:     "ID",
		Options:     domain.JobOptions{Topic: "Learn Go", Style: "Bold", Placement: domain.PlacementLeft, Variants: 2},
	}
}

func TestEnqueueIsIdempotentPerFingerprint(t *testing.T) {
	ctx := context.Background()
	r := NewJobRepository(newStubDB())

	first, created, err := r.Enqueue(ctx, newJob("fp-1", 0))
	if err != nil || !created {
		t.Fatalf("Enqueue = %v, %v", created, err)
	}
	if first.ID == "" || first.Status != domain.JobStatusQueued || first.Options.Variants != 2 {
		t.Fatalf("unexpected job: %+v", first)
	}
	second, created, err := r.Enqueue(ctx, newJob("fp-1", 5))
	if err != nil {
		t.Fatalf("Enqueue returned error: %v", err)
	}
	if created || second.ID != first.ID {
		t.Fatalf("duplicate enqueue created=%v id=%s, want existing %s", created, second.ID, first.ID)
	}

	if err := r.MarkFailed(ctx, first.ID, "boom"); err != nil {
		t.Fatalf("MarkFailed returned error: %v", err)
	}
	third, created, err := r.Enqueue(ctx, newJob("fp-1", 0))
	if err != nil || !created || third.ID == first.ID {
		t.Fatalf("failed jobs must not block a new enqueue: created=%v err=%v", created, err)
	}
}

func TestClaimOrdersByPriorityThenAge(t *testing.T) {
	ctx := context.Background()
	r := NewJobRepository(newStubDB())
	low, _, _ := r.Enqueue(ctx, newJob("low", 1))
	high, _, _ := r.Enqueue(ctx, newJob("high", 7))
	highLater, _, _ := r.Enqueue(ctx, newJob("high-later", 7))

	var order []string
	for i := 0; i < 3; i++ {
		job, err := r.Claim(ctx, time.Minute)
		if err != nil || job == nil {
			t.Fatalf("Claim = %v, %v", job, err)
		}
		if job.Status != domain.JobStatusRunning || job.Attempts != 1 {
			t.Fatalf("claimed job state: %+v", job)
		}
		order = append(order, job.ID)
	}
	want := []string{high.ID, highLater.ID, low.ID}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("claim order = %v, want %v", order, want)
		}
	}
	job, err := r.Claim(ctx, time.Minute)
	if err != nil || job != nil {
		t.Fatalf("empty queue Claim = %v, %v; want nil, nil", job, err)
	}
}

func TestMarkTransitions(t *testing.T) {
	ctx := context.Background()
	r := NewJobRepository(newStubDB())
	job, _, _ := r.Enqueue(ctx, newJob("fp", 0))
	if _, err := r.Claim(ctx, time.Minute); err != nil {
		t.Fatalf("Claim returned error: %v", err)
	}

	runAfter := time.Now().Add(time.Minute).UTC()
	if err := r.MarkRetry(ctx, job.ID, "transient", runAfter); err != nil {
		t.Fatalf("MarkRetry returned error: %v", err)
	}
	got, err := r.Get(ctx, job.ID)
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if got.Status != domain.JobStatusQueued || got.ErrorMessage != "transient" || !got.RunAfter.Equal(runAfter) {
		t.Fatalf("after retry: %+v", got)
	}

	result := domain.JobResult{Fingerprint: "fp", ArchiveKey: "jobs/x/thumbnails.zip", Horizontal: 2, Vertical: 2}
	if err := r.MarkSucceeded(ctx, job.ID, result); err != nil {
		t.Fatalf("MarkSucceeded returned error: %v", err)
	}
	got, _ = r.Get(ctx, job.ID)
	if got.Status != domain.JobStatusSucceeded || got.Result == nil || *got.Result != result {
		t.Fatalf("after success: %+v", got)
	}

	if err := r.MarkFailed(ctx, "00000000-0000-0000-0000-000000000000", "x"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("MarkFailed(unknown) = %v, want ErrNotFound", err)
	}
	if _, err := r.Get(ctx, "not-a-uuid"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("Get(not-a-uuid) = %v, want ErrNotFound", err)
	}
}

func TestListRecentAndStats(t *testing.T) {
	ctx := context.Background()
	db := newStubDB()
	r := NewJobRepository(db)
	for i := 0; i < 3; i++ {
		job := newJob(fmt.Sprintf("fp-%d", i), 0)
		if i == 2 {
			job.Country = ""
		}
		if _, _, err := r.Enqueue(ctx, job); err != nil {
			t.Fatalf("Enqueue returned error: %v", err)
		}
	}
	if _, err := r.Claim(ctx, time.Minute); err != nil {
		t.Fatalf("Claim returned error: %v", err)
	}

	recent, err := r.ListRecent(ctx, 2)
	if err != nil {
		t.Fatalf("ListRecent returned error: %v", err)
	}
	if len(recent) != 2 || recent[0].Fingerprint != "fp-2" {
		t.Fatalf("recent = %+v", recent)
	}

	stats, err := r.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats returned error: %v", err)
	}
	if stats.ByStatus[domain.JobStatusQueued] != 2 || stats.ByStatus[domain.JobStatusRunning] != 1 {
		t.Fatalf("by status = %v", stats.ByStatus)
	}
	if stats.ByCountry["ID"] != 2 || stats.ByCountry["unknown"] != 1 {
		t.Fatalf("by country = %v", stats.ByCountry)
	}
	raw, _ := json.Marshal(stats)
	if len(raw) == 0 {
		t.Fatal("stats must encode")
	}
}

func TestClaimReclaimsStaleRunningJobs(t *testing.T) {
	ctx := context.Background()
	db := newStubDB()
	r := NewJobRepository(db)
	job, _, _ := r.Enqueue(ctx, newJob("fp-stale", 0))

	if claimed, err := r.Claim(ctx, 10*time.Minute); err != nil || claimed == nil || claimed.ID != job.ID {
		t.Fatalf("first Claim = %v, %v", claimed, err)
	}

	db.advance(6 * time.Minute)
	if err := r.Heartbeat(ctx, job.ID); err != nil {
		t.Fatalf("Heartbeat returned error: %v", err)
	}
	db.advance(6 * time.Minute)
	if claimed, err := r.Claim(ctx, 10*time.Minute); err != nil || claimed != nil {
		t.Fatalf("heartbeated job must stay leased: %v, %v", claimed, err)
	}
	if claimed, err := r.Claim(ctx, 0); err != nil || claimed != nil {
		t.Fatalf("staleAfter=0 must not reclaim: %v, %v", claimed, err)
	}

	// the worker died: no heartbeat for longer than the lease
	db.advance(5 * time.Minute)
	claimed, err := r.Claim(ctx, 10*time.Minute)
	if err != nil || claimed == nil {
		t.Fatalf("stale Claim = %v, %v", claimed, err)
	}
	if claimed.ID != job.ID || claimed.Attempts != 2 || claimed.Status != domain.JobStatusRunning {
		t.Fatalf("reclaimed job: %+v", claimed)
	}
}

func TestReleaseRefundsAttempt(t *testing.T) {
	ctx := context.Background()
	r := NewJobRepository(newStubDB())
	job, _, _ := r.Enqueue(ctx, newJob("fp-release", 0))

	for i := 0; i < 3; i++ {
		claimed, err := r.Claim(ctx, time.Minute)
		if err != nil || claimed == nil {
			t.Fatalf("Claim #%d = %v, %v", i+1, claimed, err)
		}
		if claimed.Attempts != 1 {
			t.Fatalf("Claim #%d attempts = %d, want 1", i+1, claimed.Attempts)
		}
		if err := r.Release(ctx, job.ID, "worker stopped mid-job"); err != nil {
			t.Fatalf("Release returned error: %v", err)
		}
	}
	got, _ := r.Get(ctx, job.ID)
	if got.Status != domain.JobStatusQueued || got.Attempts != 0 || got.ErrorMessage != "worker stopped mid-job" {
		t.Fatalf("after release: %+v", got)
	}
	if err := r.Release(ctx, job.ID, "again"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("Release(queued) = %v, want ErrNotFound", err)
	}
}
