// Package wallet implements the wallet ledger: user balances and
// reward points, mutated only through operations that pair the balance
// change with exactly one append-only transactions row.  Both writes
// happen in one database transaction, so the ledger is consistent with
// the balance by construction: replaying a user's entries in order
// always reproduces the current balance.
package wallet

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/parksmart/parksmart-api/internal/model"
	"github.com/parksmart/parksmart-api/internal/repository"
)

var (
	// ErrUserNotFound is returned when the user id does not resolve.
	ErrUserNotFound = errors.New("user not found")
	// ErrInsufficientBalance is returned by Debit when the wallet
	// cannot cover the amount; the balance never goes negative.
	ErrInsufficientBalance = errors.New("insufficient wallet balance")
	// ErrInsufficientPoints is returned by ConvertPoints when the user
	// holds fewer points than requested.
	ErrInsufficientPoints = errors.New("insufficient reward points")
	// ErrInvalidPointsAmount is returned by ConvertPoints when points
	// is not a positive multiple of PointsPerUnit.
	ErrInvalidPointsAmount = errors.New("points must be a positive multiple of 10")
	// ErrInvalidAmount is returned when a debit or credit amount is
	// not strictly positive.
	ErrInvalidAmount = errors.New("amount must be positive")
)

// PointsPerUnit is the fixed conversion rate: 10 reward points buy 1
// currency unit of wallet balance.
const PointsPerUnit = 10

// Info is the wallet summary returned to the owning user.  PointsValue
// is the currency value of the current reward points at the fixed
// conversion rate.
type Info struct {
	WalletBalance decimal.Decimal `json:"wallet_balance"`
	RewardPoints  int64           `json:"reward_points"`
	PointsValue   decimal.Decimal `json:"points_value"`
}

// Ledger performs all wallet mutations.  It owns the transaction
// boundary: each operation is a single store transaction covering the
// balance update and the ledger append.
type Ledger struct {
	store Store
}

// NewLedger returns a Ledger over the given store.
func NewLedger(store Store) *Ledger {
	return &Ledger{store: store}
}

// Debit subtracts amount from the user's wallet and appends the
// matching ledger entry.  It fails with ErrInsufficientBalance without
// any change when the balance cannot cover the amount.
func (l *Ledger) Debit(ctx context.Context, userID uint64, amount decimal.Decimal, category string, ref model.TxReference, description string) (model.User, model.Transaction, error) {
	if !amount.IsPositive() {
		return model.User{}, model.Transaction{}, ErrInvalidAmount
	}
	if description == "" {
		description = category + " payment"
	}
	return l.apply(ctx, userID, model.TxDebit, amount, category, ref, description)
}

// Credit adds amount to the user's wallet and appends the matching
// ledger entry.  It always succeeds when the user exists.
func (l *Ledger) Credit(ctx context.Context, userID uint64, amount decimal.Decimal, category string, ref model.TxReference, description string) (model.User, model.Transaction, error) {
	if !amount.IsPositive() {
		return model.User{}, model.Transaction{}, ErrInvalidAmount
	}
	if description == "" {
		description = category + " credit"
	}
	return l.apply(ctx, userID, model.TxCredit, amount, category, ref, description)
}

func (l *Ledger) apply(ctx context.Context, userID uint64, kind model.TransactionType, amount decimal.Decimal, category string, ref model.TxReference, description string) (model.User, model.Transaction, error) {
	tx, err := l.store.Begin(ctx)
	if err != nil {
		return model.User{}, model.Transaction{}, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	user, err := l.store.UserTx(ctx, tx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.User{}, model.Transaction{}, ErrUserNotFound
		}
		return model.User{}, model.Transaction{}, err
	}

	var balance decimal.Decimal
	switch kind {
	case model.TxDebit:
		balance, err = l.store.DebitWallet(ctx, tx, userID, amount)
		if errors.Is(err, repository.ErrConflict) {
			return model.User{}, model.Transaction{}, ErrInsufficientBalance
		}
	default:
		balance, err = l.store.CreditWallet(ctx, tx, userID, amount)
	}
	if err != nil {
		return model.User{}, model.Transaction{}, err
	}

	entry := model.Transaction{
		UserID:       userID,
		Type:         kind,
		Amount:       amount,
		Category:     category,
		Reference:    ref,
		BalanceAfter: balance,
		Description:  description,
	}
	if err := l.store.Append(ctx, tx, &entry); err != nil {
		return model.User{}, model.Transaction{}, err
	}
	if err := tx.Commit(); err != nil {
		return model.User{}, model.Transaction{}, err
	}
	committed = true
	user.WalletBalance = balance
	return user, entry, nil
}

// AddRewardPoints grants points to a user.  Points are not wallet
// balance, so no ledger entry is written; the entry appears only when
// points are converted to currency.
func (l *Ledger) AddRewardPoints(ctx context.Context, userID uint64, points int64, ref model.TxReference) (model.User, error) {
	if points <= 0 {
		return model.User{}, ErrInvalidAmount
	}
	tx, err := l.store.Begin(ctx)
	if err != nil {
		return model.User{}, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	user, err := l.store.UserTx(ctx, tx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.User{}, ErrUserNotFound
		}
		return model.User{}, err
	}
	if err := l.store.AddPoints(ctx, tx, userID, points); err != nil {
		return model.User{}, err
	}
	if err := tx.Commit(); err != nil {
		return model.User{}, err
	}
	committed = true
	user.RewardPoints += points
	return user, nil
}

// ConvertPoints exchanges reward points for wallet balance at the
// fixed rate of PointsPerUnit points per currency unit.  The points
// debit, balance credit and single points_conversion ledger entry are
// one atomic transaction.
func (l *Ledger) ConvertPoints(ctx context.Context, userID uint64, points int64) (model.User, model.Transaction, error) {
	if points <= 0 || points%PointsPerUnit != 0 {
		return model.User{}, model.Transaction{}, ErrInvalidPointsAmount
	}
	amount := decimal.NewFromInt(points).Div(decimal.NewFromInt(PointsPerUnit))

	tx, err := l.store.Begin(ctx)
	if err != nil {
		return model.User{}, model.Transaction{}, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	user, err := l.store.UserTx(ctx, tx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.User{}, model.Transaction{}, ErrUserNotFound
		}
		return model.User{}, model.Transaction{}, err
	}
	if err := l.store.AddPoints(ctx, tx, userID, -points); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return model.User{}, model.Transaction{}, ErrInsufficientPoints
		}
		return model.User{}, model.Transaction{}, err
	}
	balance, err := l.store.CreditWallet(ctx, tx, userID, amount)
	if err != nil {
		return model.User{}, model.Transaction{}, err
	}
	entry := model.Transaction{
		UserID:       userID,
		Type:         model.TxCredit,
		Amount:       amount,
		Category:     model.CategoryPointsConversion,
		BalanceAfter: balance,
		Description:  fmt.Sprintf("Converted %d points to %s", points, amount.StringFixed(2)),
	}
	if err := l.store.Append(ctx, tx, &entry); err != nil {
		return model.User{}, model.Transaction{}, err
	}
	if err := tx.Commit(); err != nil {
		return model.User{}, model.Transaction{}, err
	}
	committed = true
	user.WalletBalance = balance
	user.RewardPoints -= points
	return user, entry, nil
}

// Info returns the user's wallet summary.
func (l *Ledger) Info(ctx context.Context, userID uint64) (Info, error) {
	user, err := l.store.User(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Info{}, ErrUserNotFound
		}
		return Info{}, err
	}
	return Info{
		WalletBalance: user.WalletBalance,
		RewardPoints:  user.RewardPoints,
		PointsValue:   decimal.NewFromInt(user.RewardPoints).Div(decimal.NewFromInt(PointsPerUnit)).Round(2),
	}, nil
}

// Balance returns the user's current wallet balance.
func (l *Ledger) Balance(ctx context.Context, userID uint64) (decimal.Decimal, error) {
	info, err := l.Info(ctx, userID)
	if err != nil {
		return decimal.Zero, err
	}
	return info.WalletBalance, nil
}
