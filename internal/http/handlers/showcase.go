package handlers

import (
	"net/http"
	"strconv"
	"time"
)

const (
	defaultShowcaseLimit = 12
	maxShowcaseLimit     = 50
)

type showcaseEntryDTO struct {
	ID        int64     `json:"id"`
	ToolID    string    `json:"tool_id"`
	OutputURL string    `json:"output_url"`
	Prompt    string    `json:"prompt"`
	CreatedAt time.Time `json:"created_at"`
}

func (a *App) ShowcaseLatest(w http.ResponseWriter, r *http.Request) {
	limit := defaultShowcaseLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			a.error(w, http.StatusBadRequest, "bad_request", "limit must be a positive integer")
			return
		}
		limit = n
	}
	if limit > maxShowcaseLimit {
		limit = maxShowcaseLimit
	}

	entries, err := a.Showcase.Latest(r.Context(), limit)
	if err != nil {
		a.Logger.Error().Err(err).Msg("load showcase failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to load showcase")
		return
	}
	out := make([]showcaseEntryDTO, 0, len(entries))
	for _, entry := range entries {
		out = append(out, showcaseEntryDTO{
			ID:        entry.ID,
			ToolID:    entry.ToolID,
			OutputURL: entry.OutputURL,
			Prompt:    entry.Prompt,
			CreatedAt: entry.CreatedAt,
		})
	}
	a.json(w, http.StatusOK, map[string]any{"entries": out})
}
