package model

import "time"

// SlotStatus enumerates the occupancy states of a physical parking slot.
type SlotStatus string

const (
	SlotEmpty    SlotStatus = "empty"    // free for reservation
	SlotReserved SlotStatus = "reserved" // held by a pending reservation
	SlotOccupied SlotStatus = "occupied" // vehicle checked in
)

// Slot is a single physical parking space inside a ParkingSpot.  Its
// status moves through the cycle empty → reserved → occupied → empty;
// reserved and occupied both collapse back to empty on cancellation or
// release.  Every status change refreshes LastUpdated.
//
// Fields:
//
//	ID          – primary key identifier.
//	SpotID      – owning parking spot.
//	SlotNumber  – label painted on the ground (e.g. "A-12").
//	Floor       – floor or level label.
//	SlotType    – regular, compact, large, handicap or electric.
//	Status      – current occupancy state.
//	LastUpdated – timestamp of the last status change.
//	CreatedAt   – timestamp of creation.
//	UpdatedAt   – timestamp of last update.
type Slot struct {
	ID          uint64     // slots.id
	SpotID      uint64     // slots.spot_id
	SlotNumber  string     // slots.slot_number
	Floor       string     // slots.floor
	SlotType    string     // slots.slot_type
	Status      SlotStatus // slots.status
	LastUpdated time.Time  // slots.last_updated
	CreatedAt   time.Time  // slots.created_at
	UpdatedAt   time.Time  // slots.updated_at
}

// slotTransitions is the legal transition table for slot statuses.
// empty → reserved happens when a reservation claims the slot,
// reserved → occupied on check-in or entry scan, and both reserved and
// occupied fall back to empty on checkout, cancellation or expiry.
var slotTransitions = map[SlotStatus][]SlotStatus{
	SlotEmpty:    {SlotReserved},
	SlotReserved: {SlotOccupied, SlotEmpty},
	SlotOccupied: {SlotEmpty},
}

// CanTransition reports whether moving from into to is a legal slot
// status transition.  A no-op transition (from == to) is not legal;
// callers that need idempotent release should check the current status
// first.
func CanTransition(from, to SlotStatus) bool {
	for _, next := range slotTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// ValidSlotStatus reports whether s is one of the known slot statuses.
func ValidSlotStatus(s SlotStatus) bool {
	switch s {
	case SlotEmpty, SlotReserved, SlotOccupied:
		return true
	}
	return false
}
