package domain

import "time"

// Account represents a registered user of the platform. The credits balance
// carried here is a cache; the persistence layer owns the authoritative value
// and every debit resynchronizes it.
type Account struct {
	ID             int64
	Email          string
	PasswordHash   string
	FullName       string
	PreferredLang  string
	CreditsBalance int
	BotID          int64
	BotToken       string
	Platform       string
	CreatedAt      time.Time
}

// HasBotCredentials reports whether the account can call the execution service.
func (a Account) HasBotCredentials() bool {
	return a.BotID != 0 && a.BotToken != ""
}
