package service

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"neuroforge/internal/domain"
	"neuroforge/internal/infra"
)

const (
	startingCredits = 150
	platformName    = "ProTalk"
	defaultLang     = "en"
)

// AccountService owns registration, login and per-account reads.
type AccountService struct {
	users       domain.UserRepository
	generations domain.GenerationRepository
	logger      *infra.Logger
}

// NewAccountService wires the account service.
func NewAccountService(users domain.UserRepository, generations domain.GenerationRepository, logger *infra.Logger) *AccountService {
	return &AccountService{users: users, generations: generations, logger: logger}
}

// RegisterInput carries a signup request.
type RegisterInput struct {
	Email         string
	Password      string
	FullName      string
	PreferredLang string
	BotID         int64
	BotToken      string
}

// Register creates an account with the starting credit grant. The password is
// stored as a bcrypt hash, never in clear.
func (s *AccountService) Register(ctx context.Context, in RegisterInput) (*domain.Account, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, fmt.Errorf("account: invalid email")
	}
	if len(in.Password) < 8 {
		return nil, fmt.Errorf("account: password must be at least 8 characters")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("account: hash password: %w", err)
	}

	lang := strings.TrimSpace(in.PreferredLang)
	if lang == "" {
		lang = defaultLang
	}

	account := &domain.Account{
		Email:          email,
		PasswordHash:   string(hash),
		FullName:       strings.TrimSpace(in.FullName),
		PreferredLang:  lang,
		CreditsBalance: startingCredits,
		BotID:          in.BotID,
		BotToken:       in.BotToken,
		Platform:       platformName,
	}
	id, err := s.users.Create(ctx, account)
	if err != nil {
		return nil, err
	}
	account.ID = id

	s.logger.Info().Int64("user_id", id).Str("email", email).Msg("account: registered")
	return account, nil
}

// Authenticate verifies email and password and returns the account.
// domain.ErrUnauthorized covers both a missing account and a bad password so
// callers cannot probe for registered emails.
func (s *AccountService) Authenticate(ctx context.Context, email, password string) (*domain.Account, error) {
	account, err := s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return nil, domain.ErrUnauthorized
	}
	if bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)) != nil {
		return nil, domain.ErrUnauthorized
	}
	return account, nil
}

// Get fetches an account by id.
func (s *AccountService) Get(ctx context.Context, id int64) (*domain.Account, error) {
	return s.users.GetByID(ctx, id)
}

// History returns the user's generations, most recent first.
func (s *AccountService) History(ctx context.Context, userID int64) ([]domain.GenerationRecord, error) {
	return s.generations.ListByUser(ctx, userID)
}
