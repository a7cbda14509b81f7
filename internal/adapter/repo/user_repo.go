package repo

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"neuroforge/internal/domain"
)

// UserRepositoryPG implements domain.UserRepository backed by PostgreSQL.
type UserRepositoryPG struct {
	pool *pgxpool.Pool
}

// NewUserRepository creates a new UserRepositoryPG.
func NewUserRepository(pool *pgxpool.Pool) *UserRepositoryPG {
	return &UserRepositoryPG{pool: pool}
}

// Create inserts the account and returns the generated id.
func (r *UserRepositoryPG) Create(ctx context.Context, account *domain.Account) (int64, error) {
	query := `
INSERT INTO users (email, password_hash, full_name, preferred_lang, credits_balance, bot_id, bot_token, platform)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING id;
`

	var id int64
	err := r.pool.QueryRow(ctx, query,
		account.Email,
		account.PasswordHash,
		account.FullName,
		account.PreferredLang,
		account.CreditsBalance,
		account.BotID,
		account.BotToken,
		account.Platform,
	).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return 0, domain.ErrDuplicateEmail
		}
		return 0, err
	}
	return id, nil
}

// GetByEmail fetches an account by email.
func (r *UserRepositoryPG) GetByEmail(ctx context.Context, email string) (*domain.Account, error) {
	row := r.pool.QueryRow(ctx, `SELECT id, email, password_hash, full_name, preferred_lang, credits_balance, bot_id, bot_token, platform, created_at FROM users WHERE email = $1`, email)
	return scanAccount(row)
}

// GetByID fetches an account by id.
func (r *UserRepositoryPG) GetByID(ctx context.Context, id int64) (*domain.Account, error) {
	row := r.pool.QueryRow(ctx, `SELECT id, email, password_hash, full_name, preferred_lang, credits_balance, bot_id, bot_token, platform, created_at FROM users WHERE id = $1`, id)
	return scanAccount(row)
}

// DebitCredits decrements the balance and returns the new value. The floor
// guard lives in the WHERE clause so concurrent debits cannot both pass on a
// stale read; no matching row means the balance was too low.
func (r *UserRepositoryPG) DebitCredits(ctx context.Context, userID int64, amount int) (int, error) {
	query := `
UPDATE users
SET credits_balance = credits_balance - $2
WHERE id = $1 AND credits_balance >= $2
RETURNING credits_balance;
`

	var balance int
	if err := r.pool.QueryRow(ctx, query, userID, amount).Scan(&balance); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, domain.ErrInsufficientCredits
		}
		return 0, err
	}
	return balance, nil
}

func scanAccount(row pgx.Row) (*domain.Account, error) {
	var a domain.Account
	if err := row.Scan(&a.ID, &a.Email, &a.PasswordHash, &a.FullName, &a.PreferredLang, &a.CreditsBalance, &a.BotID, &a.BotToken, &a.Platform, &a.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}
