package sqlproxy

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"neuroforge/internal/domain"
)

// The proxy's SQL dialect uses %s placeholders which it binds positionally
// from the params array before execution.

// UserRepo implements domain.UserRepository over the SQL proxy.
type UserRepo struct {
	client *Client
}

// NewUserRepo wires a user repository to the proxy client.
func NewUserRepo(client *Client) *UserRepo {
	return &UserRepo{client: client}
}

// Create inserts the account and returns its new id.
func (r *UserRepo) Create(ctx context.Context, account *domain.Account) (int64, error) {
	res, err := r.client.Query(ctx,
		`INSERT INTO users (email, password_hash, full_name, preferred_lang, credits_balance, bot_id, bot_token, platform)
		 VALUES (%s, %s, %s, %s, %s, %s, %s, %s)`,
		account.Email, account.PasswordHash, account.FullName, account.PreferredLang,
		account.CreditsBalance, account.BotID, account.BotToken, account.Platform,
	)
	if err != nil {
		if isDuplicateErr(err) {
			return 0, domain.ErrDuplicateEmail
		}
		return 0, fmt.Errorf("sqlproxy: create user: %w", err)
	}
	return res.InsertID, nil
}

const userColumns = `id, email, password_hash, full_name, preferred_lang, credits_balance, bot_id, bot_token, platform, created_at`

// GetByEmail returns the account for email, or domain.ErrNotFound.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*domain.Account, error) {
	res, err := r.client.Query(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = %s LIMIT 1`, email)
	if err != nil {
		return nil, fmt.Errorf("sqlproxy: get user by email: %w", err)
	}
	if len(res.Data) == 0 {
		return nil, domain.ErrNotFound
	}
	return decodeAccount(res.Data[0])
}

// GetByID returns the account for id, or domain.ErrNotFound.
func (r *UserRepo) GetByID(ctx context.Context, id int64) (*domain.Account, error) {
	res, err := r.client.Query(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = %s LIMIT 1`, id)
	if err != nil {
		return nil, fmt.Errorf("sqlproxy: get user by id: %w", err)
	}
	if len(res.Data) == 0 {
		return nil, domain.ErrNotFound
	}
	return decodeAccount(res.Data[0])
}

// DebitCredits decrements the balance, guarded so it can never cross zero. The
// balance check lives in the UPDATE's WHERE clause so concurrent debits cannot
// both pass a stale read.
func (r *UserRepo) DebitCredits(ctx context.Context, userID int64, amount int) (int, error) {
	if amount < 0 {
		return 0, fmt.Errorf("sqlproxy: negative debit amount %d", amount)
	}
	res, err := r.client.Query(ctx,
		`UPDATE users SET credits_balance = credits_balance - %s WHERE id = %s AND credits_balance >= %s`,
		amount, userID, amount)
	if err != nil {
		return 0, fmt.Errorf("sqlproxy: debit credits: %w", err)
	}
	if res.AffectedRows == 0 {
		return 0, domain.ErrInsufficientCredits
	}
	sel, err := r.client.Query(ctx,
		`SELECT credits_balance FROM users WHERE id = %s LIMIT 1`, userID)
	if err != nil {
		return 0, fmt.Errorf("sqlproxy: read balance: %w", err)
	}
	if len(sel.Data) == 0 {
		return 0, domain.ErrNotFound
	}
	balance, err := intField(sel.Data[0], "credits_balance")
	if err != nil {
		return 0, err
	}
	return balance, nil
}

// ShowcaseRepo implements domain.ShowcaseRepository over the SQL proxy.
type ShowcaseRepo struct {
	client *Client
}

// NewShowcaseRepo wires a showcase repository to the proxy client.
func NewShowcaseRepo(client *Client) *ShowcaseRepo {
	return &ShowcaseRepo{client: client}
}

// Insert appends a gallery entry.
func (r *ShowcaseRepo) Insert(ctx context.Context, entry *domain.ShowcaseEntry) error {
	_, err := r.client.Query(ctx,
		`INSERT INTO showcase (tool_id, output_url, prompt) VALUES (%s, %s, %s)`,
		entry.ToolID, entry.OutputURL, entry.Prompt)
	if err != nil {
		return fmt.Errorf("sqlproxy: insert showcase: %w", err)
	}
	return nil
}

// Latest returns the newest gallery entries, newest first.
func (r *ShowcaseRepo) Latest(ctx context.Context, limit int) ([]domain.ShowcaseEntry, error) {
	res, err := r.client.Query(ctx,
		`SELECT id, tool_id, output_url, prompt, created_at FROM showcase ORDER BY created_at DESC LIMIT %s`,
		limit)
	if err != nil {
		return nil, fmt.Errorf("sqlproxy: latest showcase: %w", err)
	}
	entries := make([]domain.ShowcaseEntry, 0, len(res.Data))
	for _, row := range res.Data {
		entry, err := decodeShowcase(row)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *entry)
	}
	return entries, nil
}

// GenerationRepo implements domain.GenerationRepository over the SQL proxy.
type GenerationRepo struct {
	client *Client
}

// NewGenerationRepo wires a generation repository to the proxy client.
func NewGenerationRepo(client *Client) *GenerationRepo {
	return &GenerationRepo{client: client}
}

// Insert appends a history record.
func (r *GenerationRepo) Insert(ctx context.Context, record *domain.GenerationRecord) error {
	_, err := r.client.Query(ctx,
		`INSERT INTO generation_tasks (user_id, tool_id, output_url, prompt, cost_credits, api_task_id, status)
		 VALUES (%s, %s, %s, %s, %s, %s, %s)`,
		record.UserID, record.ToolID, record.OutputURL, record.Prompt,
		record.CostCredits, record.APITaskID, record.Status)
	if err != nil {
		return fmt.Errorf("sqlproxy: insert generation: %w", err)
	}
	return nil
}

// ListByUser returns the user's history, most recent first.
func (r *GenerationRepo) ListByUser(ctx context.Context, userID int64) ([]domain.GenerationRecord, error) {
	res, err := r.client.Query(ctx,
		`SELECT id, user_id, tool_id, output_url, prompt, cost_credits, api_task_id, status, created_at
		 FROM generation_tasks WHERE user_id = %s ORDER BY created_at DESC`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("sqlproxy: list generations: %w", err)
	}
	records := make([]domain.GenerationRecord, 0, len(res.Data))
	for _, row := range res.Data {
		record, err := decodeGeneration(row)
		if err != nil {
			return nil, err
		}
		records = append(records, *record)
	}
	return records, nil
}

func decodeAccount(row map[string]any) (*domain.Account, error) {
	id, err := int64Field(row, "id")
	if err != nil {
		return nil, err
	}
	credits, err := intField(row, "credits_balance")
	if err != nil {
		return nil, err
	}
	botID, err := int64Field(row, "bot_id")
	if err != nil {
		return nil, err
	}
	return &domain.Account{
		ID:             id,
		Email:          stringField(row, "email"),
		PasswordHash:   stringField(row, "password_hash"),
		FullName:       stringField(row, "full_name"),
		PreferredLang:  stringField(row, "preferred_lang"),
		CreditsBalance: credits,
		BotID:          botID,
		BotToken:       stringField(row, "bot_token"),
		Platform:       stringField(row, "platform"),
		CreatedAt:      timeField(row, "created_at"),
	}, nil
}

func decodeShowcase(row map[string]any) (*domain.ShowcaseEntry, error) {
	id, err := int64Field(row, "id")
	if err != nil {
		return nil, err
	}
	return &domain.ShowcaseEntry{
		ID:        id,
		ToolID:    stringField(row, "tool_id"),
		OutputURL: stringField(row, "output_url"),
		Prompt:    stringField(row, "prompt"),
		CreatedAt: timeField(row, "created_at"),
	}, nil
}

func decodeGeneration(row map[string]any) (*domain.GenerationRecord, error) {
	id, err := int64Field(row, "id")
	if err != nil {
		return nil, err
	}
	userID, err := int64Field(row, "user_id")
	if err != nil {
		return nil, err
	}
	cost, err := intField(row, "cost_credits")
	if err != nil {
		return nil, err
	}
	return &domain.GenerationRecord{
		ID:          id,
		UserID:      userID,
		ToolID:      stringField(row, "tool_id"),
		OutputURL:   stringField(row, "output_url"),
		Prompt:      stringField(row, "prompt"),
		CostCredits: cost,
		APITaskID:   stringField(row, "api_task_id"),
		Status:      stringField(row, "status"),
		CreatedAt:   timeField(row, "created_at"),
	}, nil
}

// JSON numbers arrive as float64; some proxies return numeric columns as
// strings. Both are accepted.
func int64Field(row map[string]any, key string) (int64, error) {
	v, ok := row[key]
	if !ok || v == nil {
		return 0, nil
	}
	switch n := v.(type) {
	case float64:
		return int64(n), nil
	case int64:
		return n, nil
	case string:
		parsed, err := strconv.ParseInt(n, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("sqlproxy: column %q: %w", key, err)
		}
		return parsed, nil
	default:
		return 0, fmt.Errorf("sqlproxy: column %q: unexpected type %T", key, v)
	}
}

func intField(row map[string]any, key string) (int, error) {
	n, err := int64Field(row, key)
	return int(n), err
}

func stringField(row map[string]any, key string) string {
	if s, ok := row[key].(string); ok {
		return s
	}
	return ""
}

var timeLayouts = []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"}

func timeField(row map[string]any, key string) time.Time {
	s, ok := row[key].(string)
	if !ok {
		return time.Time{}
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

func isDuplicateErr(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate") || strings.Contains(msg, "unique constraint")
}
