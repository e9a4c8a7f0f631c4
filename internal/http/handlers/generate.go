package handlers

import (
	"net/http"

	"thumbsmith/internal/domain"
	"thumbsmith/pkg/zip"
)

type generatedImages struct {
	Horizontal []string `json:"horizontal"`
	Vertical   []string `json:"vertical"`
	Zip        string   `json:"zip"`
}

type generateResponse struct {
	Images      generatedImages `json:"images"`
	Fingerprint string          `json:"fingerprint"`
	Cached      bool            `json:"cached"`
}

// GenerateThumbnails runs the pipeline inline and returns data URIs for every
// image plus the zip.
func (a *App) GenerateThumbnails(w http.ResponseWriter, r *http.Request) {
	req, err := a.readRequest(w, r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	res, err := a.Pipeline.Generate(r.Context(), req)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, generateResponse{
		Images: generatedImages{
			Horizontal: dataURIs(res.Horizontal),
			Vertical:   dataURIs(res.Vertical),
			Zip:        zip.DataURI(zip.MIME, res.Archive),
		},
		Fingerprint: res.Fingerprint,
		Cached:      res.Cached,
	})
}

func dataURIs(images []domain.Image) []string {
	out := make([]string, 0, len(images))
	for _, img := range images {
		out = append(out, img.DataURI())
	}
	return out
}
