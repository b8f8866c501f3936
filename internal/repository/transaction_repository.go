package repository

import (
	"context"
	"database/sql"

	"github.com/parksmart/parksmart-api/internal/model"
)

// TransactionRepo provides access to the append-only transactions
// table (the wallet ledger).  Entries are inserted exactly once, always
// inside the same transaction as the balance change they record, and
// there are intentionally no update or delete methods.
type TransactionRepo struct{ DB *sql.DB }

// NewTransactionRepo returns a new TransactionRepo bound to the given database.
func NewTransactionRepo(db *sql.DB) *TransactionRepo { return &TransactionRepo{DB: db} }

// InsertTx appends a ledger entry within the provided transaction and
// populates the generated ID and creation timestamp on the record.
func (r *TransactionRepo) InsertTx(ctx context.Context, tx *sql.Tx, t *model.Transaction) error {
	var refType interface{}
	var refID interface{}
	if t.Reference.Type != "" {
		refType = t.Reference.Type
		refID = t.Reference.ID
	}
	res, err := tx.ExecContext(ctx,
		`INSERT INTO transactions (user_id, type, amount, category, ref_type, ref_id, balance_after, description)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		t.UserID, t.Type, t.Amount, t.Category, refType, refID, t.BalanceAfter, t.Description)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	t.ID = uint64(id)
	return tx.QueryRowContext(ctx,
		`SELECT created_at FROM transactions WHERE id = ?`, t.ID).Scan(&t.CreatedAt)
}

// ListByUser returns the user's ledger entries newest first, capped at
// limit.  A non-positive limit falls back to 50.
func (r *TransactionRepo) ListByUser(ctx context.Context, userID uint64, limit int) ([]model.Transaction, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.DB.QueryContext(ctx,
		`SELECT id, user_id, type, amount, category, ref_type, ref_id, balance_after, description, created_at
         FROM transactions WHERE user_id = ? ORDER BY created_at DESC, id DESC LIMIT ?`,
		userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Transaction, 0)
	for rows.Next() {
		var t model.Transaction
		var refType sql.NullString
		var refID sql.NullInt64
		if err := rows.Scan(&t.ID, &t.UserID, &t.Type, &t.Amount, &t.Category,
			&refType, &refID, &t.BalanceAfter, &t.Description, &t.CreatedAt); err != nil {
			return nil, err
		}
		if refType.Valid {
			t.Reference.Type = refType.String
			t.Reference.ID = uint64(refID.Int64)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
