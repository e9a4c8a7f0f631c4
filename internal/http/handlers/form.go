package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"thumbsmith/internal/domain"
	"thumbsmith/internal/middleware"
)

const defaultMaxUploadBytes = 10 << 20

var errPriorityRange = fmt.Errorf("%w: priority must be between %d and %d", domain.ErrInvalidRequest, domain.MinJobPriority, domain.MaxJobPriority)

// errTooLarge is reported when the multipart body exceeds the upload cap.
var errTooLarge = errors.New("request body too large")

func (a *App) maxUploadBytes() int64 {
	if a.Config != nil && a.Config.MaxUploadBytes > 0 {
		return a.Config.MaxUploadBytes
	}
	return defaultMaxUploadBytes
}

// readRequest decodes the multipart thumbnail form. The returned request is
// normalized and validated.
func (a *App) readRequest(w http.ResponseWriter, r *http.Request) (domain.Request, error) {
	limit := a.maxUploadBytes()
	if r.ContentLength > limit {
		return domain.Request{}, errTooLarge
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := r.ParseMultipartForm(limit); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return domain.Request{}, errTooLarge
		}
		return domain.Request{}, fmt.Errorf("%w: invalid multipart form", domain.ErrMissingFields)
	}

	req := domain.Request{
		Topic:        r.FormValue("topic"),
		Style:        r.FormValue("style"),
		Placement:    domain.Placement(r.FormValue("placement")),
		Tone:         r.FormValue("tone"),
		ChannelStyle: r.FormValue("channelStyle"),
		Variants:     domain.DefaultVariants,
		RequestID:    middleware.RequestIDFromContext(r.Context()),
	}
	if raw := strings.TrimSpace(r.FormValue("variants")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return domain.Request{}, domain.ErrVariantRange
		}
		req.Variants = n
	}
	if raw := strings.TrimSpace(r.FormValue("postProcess")); raw != "" {
		req.PostProcess, _ = strconv.ParseBool(raw)
	}

	file, header, err := r.FormFile("image")
	if err == nil {
		defer file.Close()
		data, err := io.ReadAll(file)
		if err != nil {
			return domain.Request{}, fmt.Errorf("read upload: %w", err)
		}
		req.Image = data
		req.ImageMIME = header.Header.Get("Content-Type")
		if req.ImageMIME == "" || req.ImageMIME == "application/octet-stream" {
			req.ImageMIME = http.DetectContentType(data)
		}
	} else if !errors.Is(err, http.ErrMissingFile) {
		return domain.Request{}, fmt.Errorf("%w: invalid image field", domain.ErrMissingFields)
	}

	req.Normalize()
	if err := req.Validate(); err != nil {
		return domain.Request{}, err
	}
	if !strings.HasPrefix(req.ImageMIME, "image/") {
		return domain.Request{}, domain.ErrInvalidImage
	}
	return req, nil
}

func parsePriority(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return domain.MinJobPriority, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < domain.MinJobPriority || n > domain.MaxJobPriority {
		return 0, errPriorityRange
	}
	return n, nil
}
