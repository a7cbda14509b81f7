package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"neuroforge/internal/domain"
	"neuroforge/internal/middleware"
	"neuroforge/internal/service"
)

const sessionTTL = 24 * time.Hour

type registerRequest struct {
	Email         string `json:"email"`
	Password      string `json:"password"`
	FullName      string `json:"full_name"`
	PreferredLang string `json:"preferred_lang"`
	BotID         int64  `json:"bot_id"`
	BotToken      string `json:"bot_token"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sessionResponse struct {
	Token string         `json:"token"`
	User  userProfileDTO `json:"user"`
}

type userProfileDTO struct {
	ID             int64     `json:"id"`
	Email          string    `json:"email"`
	FullName       string    `json:"full_name"`
	PreferredLang  string    `json:"preferred_lang"`
	CreditsBalance int       `json:"credits_balance"`
	HasBotLink     bool      `json:"has_bot_link"`
	Platform       string    `json:"platform"`
	CreatedAt      time.Time `json:"created_at"`
}

func profileDTO(account *domain.Account) userProfileDTO {
	return userProfileDTO{
		ID:             account.ID,
		Email:          account.Email,
		FullName:       account.FullName,
		PreferredLang:  account.PreferredLang,
		CreditsBalance: account.CreditsBalance,
		HasBotLink:     account.HasBotCredentials(),
		Platform:       account.Platform,
		CreatedAt:      account.CreatedAt,
	}
}

func (a *App) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	lang := req.PreferredLang
	if lang == "" {
		lang = middleware.LocaleFromContext(r.Context())
	}
	account, err := a.Accounts.Register(r.Context(), service.RegisterInput{
		Email:         req.Email,
		Password:      req.Password,
		FullName:      req.FullName,
		PreferredLang: lang,
		BotID:         req.BotID,
		BotToken:      req.BotToken,
	})
	if err != nil {
		if errors.Is(err, domain.ErrDuplicateEmail) {
			a.error(w, http.StatusConflict, "duplicate_email", "email already registered")
			return
		}
		a.error(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	token, err := middleware.SessionToken(a.JWTSecret, account.ID, account.PreferredLang, sessionTTL)
	if err != nil {
		a.Logger.Error().Err(err).Msg("sign session token failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to sign token")
		return
	}
	a.json(w, http.StatusCreated, sessionResponse{Token: token, User: profileDTO(account)})
}

func (a *App) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	account, err := a.Accounts.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		a.error(w, http.StatusUnauthorized, "unauthorized", "invalid email or password")
		return
	}

	token, err := middleware.SessionToken(a.JWTSecret, account.ID, account.PreferredLang, sessionTTL)
	if err != nil {
		a.Logger.Error().Err(err).Msg("sign session token failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to sign token")
		return
	}
	a.json(w, http.StatusOK, sessionResponse{Token: token, User: profileDTO(account)})
}

func (a *App) Me(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == 0 {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	account, err := a.Accounts.Get(r.Context(), userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.error(w, http.StatusNotFound, "not_found", "account not found")
			return
		}
		a.Logger.Error().Err(err).Int64("user_id", userID).Msg("load account failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to load account")
		return
	}
	a.json(w, http.StatusOK, profileDTO(account))
}
