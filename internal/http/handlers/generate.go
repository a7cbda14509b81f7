package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"neuroforge/internal/domain"
	"neuroforge/internal/service"
)

type generateRequest struct {
	Prompt string         `json:"prompt"`
	Args   map[string]any `json:"args"`
}

type generateResponse struct {
	OutputURL  string         `json:"output_url"`
	TaskID     string         `json:"task_id"`
	NewBalance int            `json:"new_balance"`
	Raw        map[string]any `json:"raw_response,omitempty"`
}

func (a *App) Generate(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == 0 {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	toolID := chi.URLParam(r, "tool_id")
	if toolID == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "tool_id required")
		return
	}
	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}

	account, err := a.Accounts.Get(r.Context(), userID)
	if err != nil {
		a.Logger.Error().Err(err).Int64("user_id", userID).Msg("load account failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to load account")
		return
	}

	result, err := a.Generator.Generate(r.Context(), service.GenerateInput{
		Account: account,
		ToolID:  toolID,
		Prompt:  req.Prompt,
		Args:    req.Args,
	})
	if err != nil {
		a.generateError(w, err)
		return
	}
	a.json(w, http.StatusOK, generateResponse{
		OutputURL:  result.OutputURL,
		TaskID:     result.TaskID,
		NewBalance: result.NewBalance,
		Raw:        result.Raw,
	})
}

func (a *App) generateError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrUnknownTool):
		a.error(w, http.StatusNotFound, "unknown_tool", "no such tool")
	case errors.Is(err, domain.ErrEmptyPrompt):
		a.error(w, http.StatusBadRequest, "empty_prompt", "prompt is required")
	case errors.Is(err, domain.ErrMissingCredentials):
		a.error(w, http.StatusUnauthorized, "missing_credentials", "account has no bot link")
	case errors.Is(err, domain.ErrInsufficientCredits):
		a.error(w, http.StatusPaymentRequired, "insufficient_credits", "not enough credits")
	case errors.Is(err, domain.ErrGenerationInFlight):
		a.error(w, http.StatusConflict, "generation_in_flight", "another generation is already running")
	case errors.Is(err, domain.ErrGenerationTimeout):
		a.error(w, http.StatusGatewayTimeout, "generation_timeout", "generation did not finish in time")
	case errors.Is(err, domain.ErrGenerationFailed):
		a.error(w, http.StatusBadGateway, "generation_failed", err.Error())
	default:
		a.Logger.Error().Err(err).Msg("generation failed")
		a.error(w, http.StatusInternalServerError, "internal", "generation failed")
	}
}
