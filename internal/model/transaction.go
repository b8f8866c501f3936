package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType is the direction of a wallet ledger entry.
type TransactionType string

const (
	TxCredit TransactionType = "credit"
	TxDebit  TransactionType = "debit"
)

// Transaction categories.  Every wallet mutation carries one.
const (
	CategoryPayment          = "payment"
	CategoryRefund           = "refund"
	CategoryWalletTopup      = "wallet_topup"
	CategoryPointsConversion = "points_conversion"
)

// TxReference points a ledger entry at the entity that caused it, e.g.
// {"reservation", 42}.  Zero value means no reference.
type TxReference struct {
	Type string // referenced entity kind (e.g. "reservation")
	ID   uint64 // referenced entity id
}

// Transaction is one immutable wallet ledger entry.  Entries are
// append-only: they are written exactly once, in the same database
// transaction as the balance change they record, and never updated or
// deleted.  BalanceAfter is the user's wallet balance immediately after
// the entry was written, so replaying all of a user's entries in order
// always reproduces the current balance.
type Transaction struct {
	ID           uint64          // transactions.id
	UserID       uint64          // transactions.user_id
	Type         TransactionType // transactions.type
	Amount       decimal.Decimal // transactions.amount (≥ 0)
	Category     string          // transactions.category
	Reference    TxReference     // transactions.ref_type / ref_id
	BalanceAfter decimal.Decimal // transactions.balance_after
	Description  string          // transactions.description
	CreatedAt    time.Time       // transactions.created_at
}
