package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"thumbsmith/internal/cache"
	"thumbsmith/internal/domain"
	"thumbsmith/internal/infra/geoip"
	"thumbsmith/internal/middleware"
	"thumbsmith/internal/storage"
	"thumbsmith/pkg/zip"
)

type jobResponse struct {
	ID          string            `json:"id"`
	Status      domain.JobStatus  `json:"status"`
	Priority    int               `json:"priority"`
	Attempts    int               `json:"attempts"`
	MaxAttempts int               `json:"max_attempts"`
	Fingerprint string            `json:"fingerprint"`
	Options     domain.JobOptions `json:"options"`
	Country     string            `json:"country,omitempty"`
	Error       string            `json:"error,omitempty"`
	Horizontal  int               `json:"horizontal"`
	Vertical    int               `json:"vertical"`
	ArchiveURL  string            `json:"archive_url,omitempty"`
	RunAfter    time.Time         `json:"run_after"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

func newJobResponse(job *domain.Job) jobResponse {
	resp := jobResponse{
		ID:          job.ID,
		Status:      job.Status,
		Priority:    job.Priority,
		Attempts:    job.Attempts,
		MaxAttempts: job.MaxAttempts,
		Fingerprint: job.Fingerprint,
		Options:     job.Options,
		Country:     job.Country,
		Error:       job.ErrorMessage,
		RunAfter:    job.RunAfter,
		CreatedAt:   job.CreatedAt,
		UpdatedAt:   job.UpdatedAt,
	}
	if job.Result != nil {
		resp.Horizontal = job.Result.Horizontal
		resp.Vertical = job.Result.Vertical
	}
	if job.Status == domain.JobStatusSucceeded {
		resp.ArchiveURL = fmt.Sprintf("/v1/thumbnails/jobs/%s/archive", job.ID)
	}
	return resp
}

func (a *App) jobsEnabled(w http.ResponseWriter) bool {
	if a.Jobs == nil || a.Store == nil {
		a.error(w, http.StatusServiceUnavailable, "Job queue is not configured")
		return false
	}
	return true
}

// EnqueueJob stores the upload and queues a job keyed by the request
// fingerprint. A live job for the same fingerprint is returned as is.
func (a *App) EnqueueJob(w http.ResponseWriter, r *http.Request) {
	if !a.jobsEnabled(w) {
		return
	}
	req, err := a.readRequest(w, r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	priority, err := parsePriority(r.FormValue("priority"))
	if err != nil {
		a.fail(w, r, err)
		return
	}

	fingerprint := cache.Fingerprint(req)
	sourceKey, err := a.Store.Put(r.Context(), storage.UploadKey(fingerprint), req.Image, req.ImageMIME)
	if err != nil {
		a.fail(w, r, fmt.Errorf("store upload: %w", err))
		return
	}
	maxAttempts := 3
	if a.Config != nil && a.Config.JobMaxAttempts > 0 {
		maxAttempts = a.Config.JobMaxAttempts
	}
	job := &domain.Job{
		Fingerprint: fingerprint,
		Priority:    priority,
		MaxAttempts: maxAttempts,
		Options: domain.JobOptions{
			Topic:        req.Topic,
			Style:        req.Style,
			Placement:    req.Placement,
			Tone:         req.Tone,
			ChannelStyle: req.ChannelStyle,
			Variants:     req.Variants,
			PostProcess:  req.PostProcess,
			ImageMIME:    req.ImageMIME,
		},
		SourceKey: sourceKey,
		Country:   geoip.CountryOf(a.GeoIP, middleware.ClientIP(r)),
	}
	stored, created, err := a.Jobs.Enqueue(r.Context(), job)
	if err != nil {
		a.fail(w, r, err)
		return
	}

	code := http.StatusOK
	if created {
		code = http.StatusAccepted
	}
	a.logger(r).Info().
		Str("job_id", stored.ID).
		Bool("created", created).
		Int("priority", stored.Priority).
		Msg("thumbnail job enqueued")
	w.Header().Set("Location", fmt.Sprintf("/v1/thumbnails/jobs/%s", stored.ID))
	a.json(w, code, newJobResponse(stored))
}

func (a *App) JobStatus(w http.ResponseWriter, r *http.Request) {
	if !a.jobsEnabled(w) {
		return
	}
	job, err := a.Jobs.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, newJobResponse(job))
}

// JobArchive streams the stored zip once the job has succeeded.
func (a *App) JobArchive(w http.ResponseWriter, r *http.Request) {
	if !a.jobsEnabled(w) {
		return
	}
	job, err := a.Jobs.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if job.Status != domain.JobStatusSucceeded || job.Result == nil {
		a.fail(w, r, fmt.Errorf("job %s is %s: %w", job.ID, job.Status, domain.ErrNotReady))
		return
	}
	data, err := a.Store.Get(r.Context(), job.Result.ArchiveKey)
	if err != nil {
		a.fail(w, r, fmt.Errorf("load archive: %w", err))
		return
	}
	w.Header().Set("Content-Type", zip.MIME)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=thumbnails-%s.zip", job.ID))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// History lists the most recent jobs, newest first.
func (a *App) History(w http.ResponseWriter, r *http.Request) {
	if !a.jobsEnabled(w) {
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	jobs, err := a.Jobs.ListRecent(r.Context(), limit)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	items := make([]jobResponse, 0, len(jobs))
	for i := range jobs {
		items = append(items, newJobResponse(&jobs[i]))
	}
	a.json(w, http.StatusOK, map[string]any{"items": items})
}

func (a *App) Stats(w http.ResponseWriter, r *http.Request) {
	if !a.jobsEnabled(w) {
		return
	}
	stats, err := a.Jobs.Stats(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, stats)
}
