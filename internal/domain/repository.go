package domain

import (
	"context"
	"time"
)

// GenerationStore defines access to the shared generations table. Only the
// external workflow system updates status/result fields; this client inserts,
// reads, and deletes.
type GenerationStore interface {
	Insert(ctx context.Context, job *GenerationJob) error
	GetByID(ctx context.Context, id string) (*GenerationJob, error)
	// Latest returns the single most-recently-created row, the input of the
	// deep-scan heuristic.
	Latest(ctx context.Context) (*GenerationJob, error)
	ListCompleted(ctx context.Context, owner Owner, limit int) ([]GenerationJob, error)
	Delete(ctx context.Context, id string) error
	// CountSince counts rows created by the owner at or after the cutoff,
	// used for the anonymous daily quota.
	CountSince(ctx context.Context, owner Owner, cutoff time.Time) (int, error)
}

// Owner scopes history queries to either an authenticated user or a guest.
type Owner struct {
	UserID  string
	GuestID string
}

// BalanceStore handles user lookup and balance deduction.
type BalanceStore interface {
	GetUser(ctx context.Context, id string) (*User, error)
	// DeductUnit atomically removes one unit, preferring credits over coins,
	// and reports which pool was debited. ErrInsufficientBalance when both
	// pools are empty.
	DeductUnit(ctx context.Context, userID string) (BalanceUnit, error)
}

// JobSubscriber is the push-notification channel scoped to a single row.
// Events are an optimization over polling, never a correctness guarantee.
type JobSubscriber interface {
	// Subscribe delivers row updates for the given job id until cancel is
	// called or ctx ends. The returned channel is closed on teardown.
	Subscribe(ctx context.Context, jobID string) (<-chan GenerationJob, func(), error)
}

// SessionStore persists the active-job tuple and the guest identifier across
// process restarts.
type SessionStore interface {
	SaveActive(session *ActiveSession) error
	LoadActive() (*ActiveSession, error)
	ClearActive() error
	GuestID() (string, error)
}
