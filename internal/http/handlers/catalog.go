package handlers

import (
	"net/http"

	"thumbsmith/internal/catalog"
)

func (a *App) Catalog(w http.ResponseWriter, r *http.Request) {
	c := a.CatalogData
	if c == nil {
		c = catalog.Default()
	}
	a.json(w, http.StatusOK, c)
}
