package domain

import "context"

// UserRepository persists accounts and owns the authoritative credit balance.
type UserRepository interface {
	Create(ctx context.Context, account *Account) (int64, error)
	GetByEmail(ctx context.Context, email string) (*Account, error)
	GetByID(ctx context.Context, id int64) (*Account, error)
	// DebitCredits decrements the balance by amount with a zero floor and
	// returns the resulting balance. ErrInsufficientCredits is returned when
	// the floor would be crossed; no partial debit happens in that case.
	DebitCredits(ctx context.Context, userID int64, amount int) (int, error)
}

// ShowcaseRepository persists the public gallery.
type ShowcaseRepository interface {
	Insert(ctx context.Context, entry *ShowcaseEntry) error
	Latest(ctx context.Context, limit int) ([]ShowcaseEntry, error)
}

// GenerationRepository persists per-user generation history.
type GenerationRepository interface {
	Insert(ctx context.Context, record *GenerationRecord) error
	// ListByUser returns the user's records, most recent first.
	ListByUser(ctx context.Context, userID int64) ([]GenerationRecord, error)
}
