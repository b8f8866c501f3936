package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// User represents an application user record as stored in the `users`
// table.  Wallet fields are mutated exclusively through the wallet
// ledger; handlers must never write them directly.
//
// Fields:
//
//	ID            – primary key identifier of the user.
//	Name          – display name.
//	Email         – unique email address (stored lowercase).
//	PasswordHash  – bcrypt hashed password.
//	Role          – one of RoleUser, RoleAdmin, RoleOwner.
//	WalletBalance – current wallet balance; never negative.
//	RewardPoints  – accumulated reward points; never negative.
//	CreatedAt     – timestamp of creation.
//	UpdatedAt     – timestamp of last update.
type User struct {
	ID            uint64          // users.id
	Name          string          // users.name
	Email         string          // users.email
	PasswordHash  string          // users.password_hash
	Role          string          // users.role
	WalletBalance decimal.Decimal // users.wallet_balance
	RewardPoints  int64           // users.reward_points
	CreatedAt     time.Time       // users.created_at
	UpdatedAt     time.Time       // users.updated_at
}

// Roles accepted in the users.role column and in JWT role claims.
const (
	RoleUser  = "USER"
	RoleAdmin = "ADMIN"
	RoleOwner = "OWNER"
)
