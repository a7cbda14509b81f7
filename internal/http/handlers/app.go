package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"neuroforge/internal/domain"
	"neuroforge/internal/infra"
	"neuroforge/internal/middleware"
	"neuroforge/internal/service"
)

// AccountService is the slice of the account service the handlers need.
type AccountService interface {
	Register(ctx context.Context, in service.RegisterInput) (*domain.Account, error)
	Authenticate(ctx context.Context, email, password string) (*domain.Account, error)
	Get(ctx context.Context, id int64) (*domain.Account, error)
	History(ctx context.Context, userID int64) ([]domain.GenerationRecord, error)
}

// Generator runs the generation pipeline.
type Generator interface {
	Generate(ctx context.Context, in service.GenerateInput) (*service.GenerateResult, error)
}

// SpeechService uploads voice clips and transcribes them.
type SpeechService interface {
	Upload(ctx context.Context, filename string, r io.Reader) (string, error)
	Transcribe(ctx context.Context, fileURL string) (string, error)
}

// App carries the handler dependencies.
type App struct {
	Accounts  AccountService
	Generator Generator
	Showcase  domain.ShowcaseRepository
	Speech    SpeechService
	JWTSecret string
	Logger    *infra.Logger
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, status int, code, message string) {
	a.json(w, status, map[string]string{"error": code, "message": message})
}

func (a *App) currentUserID(r *http.Request) int64 {
	return middleware.UserIDFromContext(r.Context())
}
