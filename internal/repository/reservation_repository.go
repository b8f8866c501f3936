package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/shopspring/decimal"

	"github.com/parksmart/parksmart-api/internal/model"
)

// ReservationRepo provides data access to the reservations table.
// Reservations are never hard-deleted; terminal states (expired,
// cancelled, completed) stay on record for history and analytics.
type ReservationRepo struct{ DB *sql.DB }

// NewReservationRepo returns a new ReservationRepo bound to the given database.
func NewReservationRepo(db *sql.DB) *ReservationRepo { return &ReservationRepo{DB: db} }

const reservationColumns = `id, user_id, slot_id, spot_id, start_time, duration_hours, end_time, status,
 expires_at, qr_token, entry_time, exit_time, estimated_price, final_price, payment_status, created_at, updated_at`

func scanReservation(scan func(dest ...interface{}) error) (model.Reservation, error) {
	var res model.Reservation
	var entry, exit sql.NullTime
	var finalPrice decimal.NullDecimal
	err := scan(&res.ID, &res.UserID, &res.SlotID, &res.SpotID, &res.StartTime,
		&res.DurationHours, &res.EndTime, &res.Status, &res.ExpiresAt, &res.QRToken,
		&entry, &exit, &res.EstimatedPrice, &finalPrice, &res.PaymentStatus,
		&res.CreatedAt, &res.UpdatedAt)
	if err != nil {
		return res, err
	}
	if entry.Valid {
		t := entry.Time
		res.EntryTime = &t
	}
	if exit.Valid {
		t := exit.Time
		res.ExitTime = &t
	}
	if finalPrice.Valid {
		p := finalPrice.Decimal
		res.FinalPrice = &p
	}
	return res, nil
}

// Create inserts a reservation and reads the row back to populate the
// generated ID and timestamps.  EndTime and ExpiresAt must already be
// computed by the caller; there are no implicit hooks.
func (r *ReservationRepo) Create(ctx context.Context, res *model.Reservation) error {
	result, err := r.DB.ExecContext(ctx,
		`INSERT INTO reservations (user_id, slot_id, spot_id, start_time, duration_hours, end_time,
         status, expires_at, qr_token, estimated_price, payment_status)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		res.UserID, res.SlotID, res.SpotID, res.StartTime.UTC(), res.DurationHours,
		res.EndTime.UTC(), res.Status, res.ExpiresAt.UTC(), res.QRToken,
		res.EstimatedPrice, res.PaymentStatus)
	if err != nil {
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	res.ID = uint64(id)
	row := r.DB.QueryRowContext(ctx,
		`SELECT `+reservationColumns+` FROM reservations WHERE id = ?`, res.ID)
	got, err := scanReservation(row.Scan)
	if err != nil {
		return err
	}
	*res = got
	return nil
}

// GetByID fetches a reservation by id.
func (r *ReservationRepo) GetByID(ctx context.Context, id uint64) (model.Reservation, error) {
	row := r.DB.QueryRowContext(ctx,
		`SELECT `+reservationColumns+` FROM reservations WHERE id = ? LIMIT 1`, id)
	return scanReservation(row.Scan)
}

// Update persists the mutable lifecycle fields of a reservation:
// status, QR token, entry/exit timestamps, final price and payment
// status.  Identity and pricing inputs are immutable after creation.
func (r *ReservationRepo) Update(ctx context.Context, res *model.Reservation) error {
	var entry, exit interface{}
	if res.EntryTime != nil {
		entry = res.EntryTime.UTC()
	}
	if res.ExitTime != nil {
		exit = res.ExitTime.UTC()
	}
	var finalPrice interface{}
	if res.FinalPrice != nil {
		finalPrice = *res.FinalPrice
	}
	_, err := r.DB.ExecContext(ctx,
		`UPDATE reservations SET status = ?, qr_token = ?, entry_time = ?, exit_time = ?,
         final_price = ?, payment_status = ? WHERE id = ?`,
		res.Status, res.QRToken, entry, exit, finalPrice, res.PaymentStatus, res.ID)
	return err
}

// ListByUser returns the user's reservations newest first, optionally
// filtered by status (empty string means all).
func (r *ReservationRepo) ListByUser(ctx context.Context, userID uint64, status model.ReservationStatus) ([]model.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations WHERE user_id = ?`
	args := []interface{}{userID}
	if status != "" {
		query += ` AND status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY created_at DESC`
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Reservation, 0)
	for rows.Next() {
		res, err := scanReservation(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, rows.Err()
}

// ListExpiredPending returns pending reservations whose hold deadline
// has passed as of now, oldest first, capped at limit.  The expiry
// sweeper releases their slots and marks them expired.
func (r *ReservationRepo) ListExpiredPending(ctx context.Context, now time.Time, limit int) ([]model.Reservation, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.DB.QueryContext(ctx,
		`SELECT `+reservationColumns+` FROM reservations
         WHERE status = ? AND expires_at <= ? ORDER BY expires_at LIMIT ?`,
		model.ReservationPending, now.UTC(), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Reservation, 0)
	for rows.Next() {
		res, err := scanReservation(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, rows.Err()
}

// MarkExpired moves a pending reservation to expired.  The conditional
// WHERE clause keeps the sweep idempotent: a reservation that was
// checked in or already expired by a concurrent observer is left
// alone and false is returned.
func (r *ReservationRepo) MarkExpired(ctx context.Context, id uint64) (bool, error) {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE reservations SET status = ? WHERE id = ? AND status = ?`,
		model.ReservationExpired, id, model.ReservationPending)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// OverviewStats is the read-time aggregation returned by Overview for
// the analytics endpoint.  Counters are computed by queries on demand;
// nothing is cached or incremented in process.
type OverviewStats struct {
	ReservationsByStatus map[string]int64 `json:"reservations_by_status"`
	TotalRevenue         decimal.Decimal  `json:"total_revenue"`
	ActiveSlots          int64            `json:"active_slots"`
}

// Overview aggregates reservation counts by status, settled revenue
// (sum of final prices on completed reservations) and the number of
// currently non-empty slots.
func (r *ReservationRepo) Overview(ctx context.Context) (OverviewStats, error) {
	stats := OverviewStats{ReservationsByStatus: map[string]int64{}}
	rows, err := r.DB.QueryContext(ctx,
		`SELECT status, COUNT(*) FROM reservations GROUP BY status`)
	if err != nil {
		return stats, err
	}
	defer rows.Close()
	for rows.Next() {
		var status string
		var n int64
		if err := rows.Scan(&status, &n); err != nil {
			return stats, err
		}
		stats.ReservationsByStatus[status] = n
	}
	if err := rows.Err(); err != nil {
		return stats, err
	}
	var revenue decimal.NullDecimal
	if err := r.DB.QueryRowContext(ctx,
		`SELECT SUM(final_price) FROM reservations WHERE status = ?`,
		model.ReservationCompleted).Scan(&revenue); err != nil {
		return stats, err
	}
	if revenue.Valid {
		stats.TotalRevenue = revenue.Decimal
	}
	if err := r.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM slots WHERE status <> ?`, model.SlotEmpty).Scan(&stats.ActiveSlots); err != nil {
		return stats, err
	}
	return stats, nil
}
