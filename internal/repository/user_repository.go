package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/parksmart/parksmart-api/internal/model"
)

// UserRepo provides data access to the users table, including the
// wallet columns.  Wallet mutations are exposed only as *Tx variants:
// the wallet ledger pairs every balance change with a transactions row
// inside one database transaction, so there is deliberately no way to
// change a balance outside a tx.
type UserRepo struct{ DB *sql.DB }

// NewUserRepo returns a new UserRepo bound to the given database.
func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

// ErrEmailExists is returned by Create when the email is already taken.
var ErrEmailExists = errors.New("email already exists")

const userColumns = `id, name, email, password_hash, role, wallet_balance, reward_points, created_at, updated_at`

func scanUser(row *sql.Row) (model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role,
		&u.WalletBalance, &u.RewardPoints, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

// Create inserts a user and returns its generated ID.  The email is
// normalized to lowercase before insertion.
func (r *UserRepo) Create(ctx context.Context, name, email, passwordHash, role string) (uint64, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	res, err := r.DB.ExecContext(ctx,
		`INSERT INTO users (name, email, password_hash, role) VALUES (?, ?, ?, ?)`,
		name, email, passwordHash, role)
	if err != nil {
		// MySQL error 1062: duplicate entry for the unique email index.
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return 0, ErrEmailExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return scanUser(r.DB.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ? LIMIT 1`, email))
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ? LIMIT 1`, id))
}

// GetByIDTx fetches a user by id within a transaction.
func (r *UserRepo) GetByIDTx(ctx context.Context, tx *sql.Tx, id uint64) (model.User, error) {
	return scanUser(tx.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ? LIMIT 1`, id))
}

// DebitWalletTx atomically subtracts amount from the user's wallet
// balance, provided the balance covers it.  The conditional WHERE
// clause is the balance floor: when another transaction drained the
// wallet first, zero rows are affected and ErrConflict is returned
// with no change.  On success the post-debit balance is returned.
func (r *UserRepo) DebitWalletTx(ctx context.Context, tx *sql.Tx, userID uint64, amount decimal.Decimal) (decimal.Decimal, error) {
	res, err := tx.ExecContext(ctx,
		`UPDATE users SET wallet_balance = wallet_balance - ? WHERE id = ? AND wallet_balance >= ?`,
		amount, userID, amount)
	if err != nil {
		return decimal.Zero, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return decimal.Zero, err
	}
	if n == 0 {
		return decimal.Zero, ErrConflict
	}
	return r.walletBalanceTx(ctx, tx, userID)
}

// CreditWalletTx atomically adds amount to the user's wallet balance
// and returns the post-credit balance.  The row must exist; callers
// are expected to have resolved the user first.
func (r *UserRepo) CreditWalletTx(ctx context.Context, tx *sql.Tx, userID uint64, amount decimal.Decimal) (decimal.Decimal, error) {
	res, err := tx.ExecContext(ctx,
		`UPDATE users SET wallet_balance = wallet_balance + ? WHERE id = ?`,
		amount, userID)
	if err != nil {
		return decimal.Zero, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return decimal.Zero, err
	}
	if n == 0 {
		return decimal.Zero, sql.ErrNoRows
	}
	return r.walletBalanceTx(ctx, tx, userID)
}

// AddRewardPointsTx adds points to the user's reward balance.  A
// negative delta spends points; the conditional WHERE clause keeps the
// balance from going below zero, returning ErrConflict instead.
func (r *UserRepo) AddRewardPointsTx(ctx context.Context, tx *sql.Tx, userID uint64, delta int64) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE users SET reward_points = reward_points + ? WHERE id = ? AND reward_points + ? >= 0`,
		delta, userID, delta)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrConflict
	}
	return nil
}

func (r *UserRepo) walletBalanceTx(ctx context.Context, tx *sql.Tx, userID uint64) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := tx.QueryRowContext(ctx,
		`SELECT wallet_balance FROM users WHERE id = ?`, userID).Scan(&balance)
	return balance, err
}
