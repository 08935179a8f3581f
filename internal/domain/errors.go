package domain

import "errors"

var (
	ErrNotFound            = errors.New("not found")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrValidation          = errors.New("validation failed")
	ErrQuotaExceeded       = errors.New("quota exceeded")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrPremiumRequired     = errors.New("premium content requires an account")
	ErrSubmissionCanceled  = errors.New("submission canceled")
	ErrNoActiveSession     = errors.New("no active session")
)
