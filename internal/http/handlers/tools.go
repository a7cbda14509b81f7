package handlers

import (
	"net/http"

	"neuroforge/internal/domain"
)

func (a *App) Tools(w http.ResponseWriter, r *http.Request) {
	a.json(w, http.StatusOK, map[string]any{"tools": domain.Tools()})
}
