package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// ReservationStatus enumerates the lifecycle states of a reservation.
type ReservationStatus string

const (
	ReservationPending   ReservationStatus = "pending"   // created, not yet checked in
	ReservationActive    ReservationStatus = "active"    // vehicle inside
	ReservationExpired   ReservationStatus = "expired"   // pending hold ran past its deadline
	ReservationCancelled ReservationStatus = "cancelled" // cancelled by the owner
	ReservationCompleted ReservationStatus = "completed" // checked out and settled
)

// PaymentStatus enumerates the settlement states of a reservation.
type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentRefunded PaymentStatus = "refunded"
)

// HoldTTL is how long an unconfirmed pending reservation keeps its slot
// before it becomes eligible for expiry.
const HoldTTL = 15 * time.Minute

// MinDurationHours is the shortest bookable duration (30 minutes).
const MinDurationHours = 0.5

// Reservation records a user's hold on a single slot for a time window.
// EndTime is always StartTime + Duration; ExpiresAt is fixed at
// creation time + HoldTTL and gates the unconfirmed hold.  EntryTime
// and ExitTime are set at most once each, in that order.
//
// Fields:
//
//	ID             – primary key identifier.
//	UserID         – owning user.
//	SlotID         – slot being held.
//	SpotID         – parking spot the slot belongs to.
//	StartTime      – requested start of the parking window.
//	DurationHours  – requested duration in hours (≥ 0.5, fractional allowed).
//	EndTime        – StartTime + DurationHours.
//	Status         – lifecycle state.
//	ExpiresAt      – deadline for checking in a pending hold.
//	QRToken        – encoded entry/exit token (see internal/qrtoken).
//	EntryTime      – when the vehicle entered (nil until entry).
//	ExitTime       – when the vehicle left (nil until exit).
//	EstimatedPrice – price quoted at creation by the pricing engine.
//	FinalPrice     – settled price including overstay (nil until exit).
//	PaymentStatus  – settlement state.
//	CreatedAt      – timestamp of creation.
//	UpdatedAt      – timestamp of last update.
type Reservation struct {
	ID             uint64            // reservations.id
	UserID         uint64            // reservations.user_id
	SlotID         uint64            // reservations.slot_id
	SpotID         uint64            // reservations.spot_id
	StartTime      time.Time         // reservations.start_time
	DurationHours  float64           // reservations.duration_hours
	EndTime        time.Time         // reservations.end_time
	Status         ReservationStatus // reservations.status
	ExpiresAt      time.Time         // reservations.expires_at
	QRToken        string            // reservations.qr_token
	EntryTime      *time.Time        // reservations.entry_time (nullable)
	ExitTime       *time.Time        // reservations.exit_time (nullable)
	EstimatedPrice decimal.Decimal   // reservations.estimated_price
	FinalPrice     *decimal.Decimal  // reservations.final_price (nullable)
	PaymentStatus  PaymentStatus     // reservations.payment_status
	CreatedAt      time.Time         // reservations.created_at
	UpdatedAt      time.Time         // reservations.updated_at
}

// Cancellable reports whether the reservation may still be cancelled by
// its owner.  Only pending and active reservations qualify.
func (r *Reservation) Cancellable() bool {
	return r.Status == ReservationPending || r.Status == ReservationActive
}

// HoldExpired reports whether a pending reservation has run past its
// check-in deadline as of now.
func (r *Reservation) HoldExpired(now time.Time) bool {
	return r.Status == ReservationPending && !now.Before(r.ExpiresAt)
}
