package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/parksmart/parksmart-api/internal/model"
	"github.com/parksmart/parksmart-api/internal/queue"
	"github.com/parksmart/parksmart-api/internal/repository"
	"github.com/parksmart/parksmart-api/internal/reservation"
)

// SlotHandler serves slot listing and the administrative status
// override.  The override goes through the same compare-and-set as the
// reservation flow, so an admin cannot silently clobber a transition
// that raced ahead of the form they were looking at.
type SlotHandler struct {
	Slots  *repository.SlotRepo
	Events reservation.EventSink
}

func NewSlotHandler(slots *repository.SlotRepo, events reservation.EventSink) *SlotHandler {
	return &SlotHandler{Slots: slots, Events: events}
}

// ListBySpot returns every slot of a spot with live statuses.
func (h *SlotHandler) ListBySpot(c echo.Context) error {
	spotID, err := strconv.ParseUint(c.Param("spotId"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid spot id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	slots, err := h.Slots.ListBySpot(ctx, spotID)
	if err != nil {
		return serviceError(c, err)
	}
	out := make([]slotResp, 0, len(slots))
	for _, s := range slots {
		out = append(out, renderSlot(s))
	}
	return c.JSON(http.StatusOK, echo.Map{"slots": out})
}

type overrideSlotReq struct {
	From string `json:"from" validate:"required"`
	To   string `json:"to" validate:"required"`
}

// Override forces a slot status transition.  The requested transition
// must still be a legal edge of the status cycle and the slot must
// still be in the from status when the update lands.
func (h *SlotHandler) Override(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid slot id"})
	}
	var req overrideSlotReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	from, to := model.SlotStatus(req.From), model.SlotStatus(req.To)
	if !model.ValidSlotStatus(from) || !model.ValidSlotStatus(to) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown slot status"})
	}
	if !model.CanTransition(from, to) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "illegal slot transition"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Slots.Transition(ctx, id, from, to); err != nil {
		return serviceError(c, err)
	}
	slot, err := h.Slots.GetByID(ctx, id)
	if err != nil {
		return serviceError(c, err)
	}
	h.Events.SlotUpdated(ctx, queue.SlotUpdatedEvent{
		SlotID:    slot.ID,
		SpotID:    slot.SpotID,
		Status:    string(slot.Status),
		UpdatedAt: slot.LastUpdated.Format(time.RFC3339),
	})
	return c.JSON(http.StatusOK, echo.Map{"slot": renderSlot(slot)})
}
