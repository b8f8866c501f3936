package repository

import (
	"context"
	"database/sql"

	"github.com/parksmart/parksmart-api/internal/model"
)

// SlotRepo provides data access to the slots table.  Status changes go
// through Transition (a compare-and-set on the current status) or
// Release; both refresh last_updated.  The CAS is what serializes
// concurrent reservations against the same slot: of two requests
// racing to move a slot from empty to reserved, exactly one update
// matches the WHERE clause.
type SlotRepo struct{ DB *sql.DB }

// NewSlotRepo returns a new SlotRepo bound to the given database.
func NewSlotRepo(db *sql.DB) *SlotRepo { return &SlotRepo{DB: db} }

const slotColumns = `id, spot_id, slot_number, floor, slot_type, status, last_updated, created_at, updated_at`

func scanSlot(scan func(dest ...interface{}) error) (model.Slot, error) {
	var s model.Slot
	err := scan(&s.ID, &s.SpotID, &s.SlotNumber, &s.Floor, &s.SlotType,
		&s.Status, &s.LastUpdated, &s.CreatedAt, &s.UpdatedAt)
	return s, err
}

// Create inserts a slot in the empty state and populates its generated ID.
func (r *SlotRepo) Create(ctx context.Context, s *model.Slot) error {
	if s.Status == "" {
		s.Status = model.SlotEmpty
	}
	res, err := r.DB.ExecContext(ctx,
		`INSERT INTO slots (spot_id, slot_number, floor, slot_type, status) VALUES (?, ?, ?, ?, ?)`,
		s.SpotID, s.SlotNumber, s.Floor, s.SlotType, s.Status)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	s.ID = uint64(id)
	return nil
}

// GetByID fetches a slot by id.
func (r *SlotRepo) GetByID(ctx context.Context, id uint64) (model.Slot, error) {
	row := r.DB.QueryRowContext(ctx,
		`SELECT `+slotColumns+` FROM slots WHERE id = ? LIMIT 1`, id)
	return scanSlot(row.Scan)
}

// ListBySpot returns all slots of a parking spot ordered by slot number.
func (r *SlotRepo) ListBySpot(ctx context.Context, spotID uint64) ([]model.Slot, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT `+slotColumns+` FROM slots WHERE spot_id = ? ORDER BY slot_number`, spotID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Slot, 0)
	for rows.Next() {
		s, err := scanSlot(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Transition moves a slot from one status to another with a
// compare-and-set on the current status.  It returns ErrConflict when
// the slot is no longer in the from status (some other request won the
// race) and sql.ErrNoRows when the slot does not exist.
func (r *SlotRepo) Transition(ctx context.Context, id uint64, from, to model.SlotStatus) error {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE slots SET status = ?, last_updated = UTC_TIMESTAMP() WHERE id = ? AND status = ?`,
		to, id, from)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		var exists bool
		if err := r.DB.QueryRowContext(ctx,
			`SELECT EXISTS(SELECT 1 FROM slots WHERE id = ?)`, id).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return sql.ErrNoRows
		}
		return ErrConflict
	}
	return nil
}

// Release returns a slot to the empty state regardless of its current
// status.  Releasing an already-empty slot is a no-op, which keeps
// expiry handling idempotent when several observers race to release
// the same hold.  The returned flag reports whether a change was made.
func (r *SlotRepo) Release(ctx context.Context, id uint64) (bool, error) {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE slots SET status = ?, last_updated = UTC_TIMESTAMP() WHERE id = ? AND status <> ?`,
		model.SlotEmpty, id, model.SlotEmpty)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
