package domain

import "time"

// UserRole enumerates supported roles.
type UserRole string

const (
	UserRoleUser  UserRole = "user"
	UserRoleAdmin UserRole = "admin"
)

// BalanceUnit names which pool a deduction was taken from.
type BalanceUnit string

const (
	BalanceUnitCredit BalanceUnit = "credit"
	BalanceUnitCoin   BalanceUnit = "coin"
	BalanceUnitNone   BalanceUnit = "none"
)

// User represents an authenticated account within the platform.
type User struct {
	ID        string
	Email     string
	Name      string
	Role      UserRole
	Credits   int
	Coins     int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsAdmin reports whether the user bypasses balance deduction.
func (u User) IsAdmin() bool {
	return u.Role == UserRoleAdmin
}

// HasBalance reports whether at least one unit is available in either pool.
func (u User) HasBalance() bool {
	return u.Credits > 0 || u.Coins > 0
}
