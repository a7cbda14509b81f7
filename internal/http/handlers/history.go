package handlers

import (
	"net/http"
	"time"
)

type generationRecordDTO struct {
	ID          int64     `json:"id"`
	ToolID      string    `json:"tool_id"`
	OutputURL   string    `json:"output_url"`
	Prompt      string    `json:"prompt"`
	CostCredits int       `json:"cost_credits"`
	APITaskID   string    `json:"api_task_id"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

func (a *App) GenerationHistory(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == 0 {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	records, err := a.Accounts.History(r.Context(), userID)
	if err != nil {
		a.Logger.Error().Err(err).Int64("user_id", userID).Msg("load history failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to load history")
		return
	}
	out := make([]generationRecordDTO, 0, len(records))
	for _, record := range records {
		out = append(out, generationRecordDTO{
			ID:          record.ID,
			ToolID:      record.ToolID,
			OutputURL:   record.OutputURL,
			Prompt:      record.Prompt,
			CostCredits: record.CostCredits,
			APITaskID:   record.APITaskID,
			Status:      record.Status,
			CreatedAt:   record.CreatedAt,
		})
	}
	a.json(w, http.StatusOK, map[string]any{"generations": out})
}
