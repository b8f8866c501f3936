package wallet

import (
	"context"
	"database/sql"

	"github.com/shopspring/decimal"

	"github.com/parksmart/parksmart-api/internal/model"
	"github.com/parksmart/parksmart-api/internal/repository"
)

// Tx is one in-flight store transaction.  Exactly one of Commit or
// Rollback ends it.
type Tx interface {
	Commit() error
	Rollback() error
}

// Store is the persistence surface the ledger needs.  Mutating methods
// take the Tx they run inside; absent users are reported with
// sql.ErrNoRows and failed balance or points floors with
// repository.ErrConflict, matching the repository conventions.
type Store interface {
	Begin(ctx context.Context) (Tx, error)
	User(ctx context.Context, userID uint64) (model.User, error)
	UserTx(ctx context.Context, tx Tx, userID uint64) (model.User, error)
	DebitWallet(ctx context.Context, tx Tx, userID uint64, amount decimal.Decimal) (decimal.Decimal, error)
	CreditWallet(ctx context.Context, tx Tx, userID uint64, amount decimal.Decimal) (decimal.Decimal, error)
	AddPoints(ctx context.Context, tx Tx, userID uint64, points int64) error
	Append(ctx context.Context, tx Tx, entry *model.Transaction) error
}

// sqlStore adapts the MySQL repositories to the Store interface.
type sqlStore struct {
	db    *sql.DB
	users *repository.UserRepo
	txs   *repository.TransactionRepo
}

// NewSQLStore returns the MySQL-backed Store used in production.
func NewSQLStore(db *sql.DB, users *repository.UserRepo, txs *repository.TransactionRepo) Store {
	return &sqlStore{db: db, users: users, txs: txs}
}

func (s *sqlStore) Begin(ctx context.Context) (Tx, error) {
	return s.db.BeginTx(ctx, nil)
}

func (s *sqlStore) User(ctx context.Context, userID uint64) (model.User, error) {
	return s.users.GetByID(ctx, userID)
}

func (s *sqlStore) UserTx(ctx context.Context, tx Tx, userID uint64) (model.User, error) {
	return s.users.GetByIDTx(ctx, tx.(*sql.Tx), userID)
}

func (s *sqlStore) DebitWallet(ctx context.Context, tx Tx, userID uint64, amount decimal.Decimal) (decimal.Decimal, error) {
	return s.users.DebitWalletTx(ctx, tx.(*sql.Tx), userID, amount)
}

func (s *sqlStore) CreditWallet(ctx context.Context, tx Tx, userID uint64, amount decimal.Decimal) (decimal.Decimal, error) {
	return s.users.CreditWalletTx(ctx, tx.(*sql.Tx), userID, amount)
}

func (s *sqlStore) AddPoints(ctx context.Context, tx Tx, userID uint64, points int64) error {
	return s.users.AddRewardPointsTx(ctx, tx.(*sql.Tx), userID, points)
}

func (s *sqlStore) Append(ctx context.Context, tx Tx, entry *model.Transaction) error {
	return s.txs.InsertTx(ctx, tx.(*sql.Tx), entry)
}
