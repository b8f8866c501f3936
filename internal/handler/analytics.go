package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/parksmart/parksmart-api/internal/repository"
)

// AnalyticsHandler serves admin dashboard aggregates.  Numbers are
// computed by queries at read time; there are no in-process counters
// to drift from the database.
type AnalyticsHandler struct {
	Reservations *repository.ReservationRepo
}

func NewAnalyticsHandler(reservations *repository.ReservationRepo) *AnalyticsHandler {
	return &AnalyticsHandler{Reservations: reservations}
}

// Overview returns reservation counts by status, settled revenue and
// current slot occupancy.
func (h *AnalyticsHandler) Overview(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	stats, err := h.Reservations.Overview(ctx)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, stats)
}
