package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// ParkingSpot is a parking facility (a named location) that owns a set
// of physical slots.  PricePerHour is the plain hourly rate before any
// dynamic pricing rules are applied; it is also the rate used for
// overstay surcharges at checkout.
//
// Fields:
//
//	ID           – primary key identifier.
//	SpotNumber   – unique human-readable code for the facility.
//	LocationName – display name of the location.
//	Address      – street address.
//	PricePerHour – base hourly rate; never negative.
//	IsAvailable  – whether the facility accepts new reservations.
//	CreatedAt    – timestamp of creation.
//	UpdatedAt    – timestamp of last update.
type ParkingSpot struct {
	ID           uint64          // parking_spots.id
	SpotNumber   string          // parking_spots.spot_number
	LocationName string          // parking_spots.location_name
	Address      string          // parking_spots.address
	PricePerHour decimal.Decimal // parking_spots.price_per_hour
	IsAvailable  bool            // parking_spots.is_available
	CreatedAt    time.Time       // parking_spots.created_at
	UpdatedAt    time.Time       // parking_spots.updated_at
}
