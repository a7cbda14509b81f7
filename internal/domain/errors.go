package domain

import "errors"

var (
	ErrNotFound            = errors.New("not found")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrEmptyPrompt         = errors.New("prompt is required")
	ErrMissingCredentials  = errors.New("bot credentials missing")
	ErrInsufficientCredits = errors.New("insufficient credits")
	ErrDuplicateEmail      = errors.New("email already registered")
	ErrUnknownTool         = errors.New("unknown tool")
	ErrGenerationInFlight  = errors.New("generation already in flight")
	ErrGenerationTimeout   = errors.New("generation timed out")
	ErrGenerationFailed    = errors.New("generation failed")
)
