package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to SlotStatus
		ok       bool
	}{
		{SlotEmpty, SlotReserved, true},
		{SlotReserved, SlotOccupied, true},
		{SlotReserved, SlotEmpty, true},
		{SlotOccupied, SlotEmpty, true},
		{SlotEmpty, SlotOccupied, false},
		{SlotOccupied, SlotReserved, false},
		{SlotEmpty, SlotEmpty, false},
		{SlotReserved, SlotReserved, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.ok, CanTransition(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestValidSlotStatus(t *testing.T) {
	assert.True(t, ValidSlotStatus(SlotEmpty))
	assert.True(t, ValidSlotStatus(SlotReserved))
	assert.True(t, ValidSlotStatus(SlotOccupied))
	assert.False(t, ValidSlotStatus("free"))
	assert.False(t, ValidSlotStatus(""))
}

func TestHoldExpired(t *testing.T) {
	now := time.Date(2026, 1, 5, 12, 0, 0, 0, time.UTC)
	res := Reservation{Status: ReservationPending, ExpiresAt: now.Add(HoldTTL)}

	assert.False(t, res.HoldExpired(now))
	assert.False(t, res.HoldExpired(now.Add(HoldTTL-time.Second)))
	assert.True(t, res.HoldExpired(now.Add(HoldTTL)), "deadline itself counts as expired")
	assert.True(t, res.HoldExpired(now.Add(HoldTTL+time.Minute)))

	res.Status = ReservationActive
	assert.False(t, res.HoldExpired(now.Add(time.Hour)), "only pending holds expire")
}

func TestCancellable(t *testing.T) {
	for status, want := range map[ReservationStatus]bool{
		ReservationPending:   true,
		ReservationActive:    true,
		ReservationExpired:   false,
		ReservationCancelled: false,
		ReservationCompleted: false,
	} {
		res := Reservation{Status: status}
		assert.Equal(t, want, res.Cancellable(), "status %s", status)
	}
}
