package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/parksmart/parksmart-api/internal/reservation"
)

// QRHandler processes entry and exit scans at the gate.  The routes are
// restricted to admin and owner roles at the router: the scanner
// terminal authenticates as a staff account, not as the parking user.
type QRHandler struct {
	Svc *reservation.Service
}

func NewQRHandler(svc *reservation.Service) *QRHandler {
	return &QRHandler{Svc: svc}
}

type scanReq struct {
	Token string `json:"token" validate:"required"`
}

// Entry validates an entry scan and records the vehicle's arrival.
func (h *QRHandler) Entry(c echo.Context) error {
	var req scanReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	res, err := h.Svc.ValidateEntry(ctx, req.Token)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"reservation": renderReservation(res)})
}

// Exit validates an exit scan, settles the final price including any
// overstay and frees the slot.
func (h *QRHandler) Exit(c echo.Context) error {
	var req scanReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	res, err := h.Svc.ValidateExit(ctx, req.Token)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"reservation": renderReservation(res)})
}
