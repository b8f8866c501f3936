// Package queue defines the event payloads exchanged over the message
// broker and the background consumer that records them.  Queue names
// double as event names: slot.updated, reservation.created and
// reservation.cancelled.
package queue

import "github.com/shopspring/decimal"

// Queue names for the domain events published by the API.
const (
	SlotUpdatedQueue          = "slot.updated"
	ReservationCreatedQueue   = "reservation.created"
	ReservationCancelledQueue = "reservation.cancelled"
)

// SlotUpdatedEvent is published on every slot status transition so
// downstream consumers (socket broadcasters, dashboards) can push live
// occupancy without querying the primary database.
type SlotUpdatedEvent struct {
	SlotID    uint64 `json:"slot_id"`
	SpotID    uint64 `json:"spot_id"`
	Status    string `json:"status"`
	UpdatedAt string `json:"updated_at"`
}

// ReservationCreatedEvent is published when a reservation is created
// and its slot claimed.
type ReservationCreatedEvent struct {
	ReservationID  uint64          `json:"reservation_id"`
	UserID         uint64          `json:"user_id"`
	SlotID         uint64          `json:"slot_id"`
	SpotID         uint64          `json:"spot_id"`
	StartTime      string          `json:"start_time"`
	EndTime        string          `json:"end_time"`
	EstimatedPrice decimal.Decimal `json:"estimated_price"`
	ExpiresAt      string          `json:"expires_at"`
}

// ReservationCancelledEvent is published when a reservation is
// cancelled by its owner, including whether a refund was issued.
type ReservationCancelledEvent struct {
	ReservationID uint64          `json:"reservation_id"`
	UserID        uint64          `json:"user_id"`
	SlotID        uint64          `json:"slot_id"`
	Refunded      bool            `json:"refunded"`
	RefundAmount  decimal.Decimal `json:"refund_amount"`
	CancelledAt   string          `json:"cancelled_at"`
}
