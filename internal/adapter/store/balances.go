package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/veoreg/infinity-studio/internal/domain"
)

// BalanceStorePG implements domain.BalanceStore.
type BalanceStorePG struct {
	pool *pgxpool.Pool
}

// NewBalanceStore creates a balance store backed by PostgreSQL.
func NewBalanceStore(pool *pgxpool.Pool) *BalanceStorePG {
	return &BalanceStorePG{pool: pool}
}

// GetUser fetches an account by id.
func (s *BalanceStorePG) GetUser(ctx context.Context, id string) (*domain.User, error) {
	query := `
SELECT id, email, COALESCE(name, ''), role, credits, coins, created_at, updated_at
FROM users
WHERE id = $1;
`
	row := s.pool.QueryRow(ctx, query, id)
	var user domain.User
	if err := row.Scan(
		&user.ID,
		&user.Email,
		&user.Name,
		&user.Role,
		&user.Credits,
		&user.Coins,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

// DeductUnit removes one credit when available, otherwise one coin. The
// deduction is a single statement so concurrent submissions cannot spend the
// same unit twice. It is intentionally not rolled back when a later webhook
// call fails.
func (s *BalanceStorePG) DeductUnit(ctx context.Context, userID string) (domain.BalanceUnit, error) {
	query := `
WITH target AS (
    SELECT id, credits > 0 AS use_credit
    FROM users
    WHERE id = $1 AND (credits > 0 OR coins > 0)
    FOR UPDATE
)
UPDATE users u
SET credits = u.credits - CASE WHEN t.use_credit THEN 1 ELSE 0 END,
    coins   = u.coins   - CASE WHEN t.use_credit THEN 0 ELSE 1 END,
    updated_at = NOW()
FROM target t
WHERE u.id = t.id
RETURNING CASE WHEN t.use_credit THEN 'credit' ELSE 'coin' END;
`
	row := s.pool.QueryRow(ctx, query, userID)
	var unit string
	if err := row.Scan(&unit); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.BalanceUnitNone, domain.ErrInsufficientBalance
		}
		return domain.BalanceUnitNone, err
	}
	return domain.BalanceUnit(unit), nil
}
