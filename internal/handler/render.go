package handler

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/parksmart/parksmart-api/internal/model"
)

// Response DTOs shared across handlers.  Models carry no JSON tags;
// the wire shape is decided here so storage columns can change without
// breaking clients.

type spotResp struct {
	ID           uint64          `json:"id"`
	SpotNumber   string          `json:"spot_number"`
	LocationName string          `json:"location_name"`
	Address      string          `json:"address"`
	PricePerHour decimal.Decimal `json:"price_per_hour"`
	IsAvailable  bool            `json:"is_available"`
	CreatedAt    time.Time       `json:"created_at"`
}

func renderSpot(s model.ParkingSpot) spotResp {
	return spotResp{
		ID:           s.ID,
		SpotNumber:   s.SpotNumber,
		LocationName: s.LocationName,
		Address:      s.Address,
		PricePerHour: s.PricePerHour,
		IsAvailable:  s.IsAvailable,
		CreatedAt:    s.CreatedAt,
	}
}

type slotResp struct {
	ID          uint64    `json:"id"`
	SpotID      uint64    `json:"spot_id"`
	SlotNumber  string    `json:"slot_number"`
	Floor       string    `json:"floor"`
	SlotType    string    `json:"slot_type"`
	Status      string    `json:"status"`
	LastUpdated time.Time `json:"last_updated"`
}

func renderSlot(s model.Slot) slotResp {
	return slotResp{
		ID:          s.ID,
		SpotID:      s.SpotID,
		SlotNumber:  s.SlotNumber,
		Floor:       s.Floor,
		SlotType:    s.SlotType,
		Status:      string(s.Status),
		LastUpdated: s.LastUpdated,
	}
}

type reservationResp struct {
	ID             uint64           `json:"id"`
	UserID         uint64           `json:"user_id"`
	SlotID         uint64           `json:"slot_id"`
	SpotID         uint64           `json:"spot_id"`
	StartTime      time.Time        `json:"start_time"`
	DurationHours  float64          `json:"duration_hours"`
	EndTime        time.Time        `json:"end_time"`
	Status         string           `json:"status"`
	ExpiresAt      time.Time        `json:"expires_at"`
	QRToken        string           `json:"qr_token,omitempty"`
	EntryTime      *time.Time       `json:"entry_time,omitempty"`
	ExitTime       *time.Time       `json:"exit_time,omitempty"`
	EstimatedPrice decimal.Decimal  `json:"estimated_price"`
	FinalPrice     *decimal.Decimal `json:"final_price,omitempty"`
	PaymentStatus  string           `json:"payment_status"`
	CreatedAt      time.Time        `json:"created_at"`
}

func renderReservation(r model.Reservation) reservationResp {
	return reservationResp{
		ID:             r.ID,
		UserID:         r.UserID,
		SlotID:         r.SlotID,
		SpotID:         r.SpotID,
		StartTime:      r.StartTime,
		DurationHours:  r.DurationHours,
		EndTime:        r.EndTime,
		Status:         string(r.Status),
		ExpiresAt:      r.ExpiresAt,
		QRToken:        r.QRToken,
		EntryTime:      r.EntryTime,
		ExitTime:       r.ExitTime,
		EstimatedPrice: r.EstimatedPrice,
		FinalPrice:     r.FinalPrice,
		PaymentStatus:  string(r.PaymentStatus),
		CreatedAt:      r.CreatedAt,
	}
}

func renderReservations(list []model.Reservation) []reservationResp {
	out := make([]reservationResp, 0, len(list))
	for _, r := range list {
		out = append(out, renderReservation(r))
	}
	return out
}

type ruleResp struct {
	ID          uint64             `json:"id"`
	Name        string             `json:"name"`
	Description string             `json:"description,omitempty"`
	SpotID      *uint64            `json:"spot_id,omitempty"`
	PeakHours   []model.HourWindow `json:"peak_hours"`
	DaysOfWeek  []string           `json:"days_of_week"`
	Multiplier  decimal.Decimal    `json:"multiplier"`
	Priority    int                `json:"priority"`
	IsActive    bool               `json:"is_active"`
	CreatedAt   time.Time          `json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"`
}

func renderRule(r model.PricingRule) ruleResp {
	return ruleResp{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		SpotID:      r.SpotID,
		PeakHours:   r.PeakHours,
		DaysOfWeek:  r.DaysOfWeek,
		Multiplier:  r.Multiplier,
		Priority:    r.Priority,
		IsActive:    r.IsActive,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

type transactionResp struct {
	ID           uint64          `json:"id"`
	Type         string          `json:"type"`
	Amount       decimal.Decimal `json:"amount"`
	Category     string          `json:"category"`
	RefType      string          `json:"ref_type,omitempty"`
	RefID        uint64          `json:"ref_id,omitempty"`
	BalanceAfter decimal.Decimal `json:"balance_after"`
	Description  string          `json:"description"`
	CreatedAt    time.Time       `json:"created_at"`
}

func renderTransaction(t model.Transaction) transactionResp {
	return transactionResp{
		ID:           t.ID,
		Type:         string(t.Type),
		Amount:       t.Amount,
		Category:     t.Category,
		RefType:      t.Reference.Type,
		RefID:        t.Reference.ID,
		BalanceAfter: t.BalanceAfter,
		Description:  t.Description,
		CreatedAt:    t.CreatedAt,
	}
}
