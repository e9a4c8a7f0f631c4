package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"thumbsmith/internal/catalog"
	"thumbsmith/internal/domain"
	"thumbsmith/internal/infra"
	"thumbsmith/internal/infra/geoip"
	"thumbsmith/internal/storage"
)

// Generator runs the thumbnail pipeline synchronously.
type Generator interface {
	Generate(ctx context.Context, req domain.Request) (*domain.Result, error)
}

// App carries the dependencies shared by every handler. Jobs and Store are
// nil when the API runs without a database; the job routes then answer 503.
type App struct {
	Config      *infra.Config
	Logger      zerolog.Logger
	Pipeline    Generator
	Jobs        domain.JobRepository
	Store       storage.ArchiveStore
	GeoIP       geoip.CountryResolver
	CatalogData *catalog.Catalog
}

type errorResponse struct {
	Error string `json:"error"`
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, message string) {
	a.json(w, code, errorResponse{Error: message})
}

// fail maps a domain error to its status code and client message.
func (a *App) fail(w http.ResponseWriter, r *http.Request, err error) {
	code, message := http.StatusInternalServerError, err.Error()
	switch {
	case errors.Is(err, domain.ErrMissingFields):
		code, message = http.StatusBadRequest, "Missing required fields"
	case errors.Is(err, domain.ErrVariantRange):
		code, message = http.StatusBadRequest, "Number of variants must be between 1 and 4"
	case errors.Is(err, domain.ErrUnknownPlacement):
		code, message = http.StatusBadRequest, "Placement must be left, center or right"
	case errors.Is(err, errTooLarge):
		code, message = http.StatusRequestEntityTooLarge, "Request body too large"
	case errors.Is(err, errPriorityRange):
		code, message = http.StatusBadRequest, "Priority must be between 0 and 9"
	case errors.Is(err, domain.ErrInvalidImage):
		code, message = http.StatusBadRequest, "Uploaded file is not a supported image"
	case errors.Is(err, domain.ErrInvalidRequest):
		code = http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		code, message = http.StatusNotFound, "Job not found"
	case errors.Is(err, domain.ErrNotReady):
		code, message = http.StatusConflict, "Job has not succeeded yet"
	case errors.Is(err, domain.ErrNoImages):
		code, message = http.StatusBadGateway, "No images were generated successfully"
	case errors.Is(err, context.DeadlineExceeded):
		code, message = http.StatusGatewayTimeout, "Thumbnail generation timed out"
	}
	log := a.logger(r)
	if code >= http.StatusInternalServerError {
		log.Error().Err(err).Int("status", code).Msg("request failed")
	} else {
		log.Debug().Err(err).Int("status", code).Msg("request rejected")
	}
	a.error(w, code, message)
}

// logger prefers the request-scoped logger installed by the logging middleware.
func (a *App) logger(r *http.Request) *zerolog.Logger {
	if l := zerolog.Ctx(r.Context()); l.GetLevel() != zerolog.Disabled {
		return l
	}
	return &a.Logger
}
