package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/parksmart/parksmart-api/internal/middleware"
	"github.com/parksmart/parksmart-api/internal/model"
	"github.com/parksmart/parksmart-api/internal/repository"
	"github.com/parksmart/parksmart-api/internal/reservation"
)

// ReservationHandler exposes the reservation lifecycle over HTTP.  All
// routes require authentication; ownership checks live in the service.
type ReservationHandler struct {
	Svc  *reservation.Service
	Repo *repository.ReservationRepo
}

func NewReservationHandler(svc *reservation.Service, repo *repository.ReservationRepo) *ReservationHandler {
	return &ReservationHandler{Svc: svc, Repo: repo}
}

type createReservationReq struct {
	SlotID        uint64  `json:"slot_id" validate:"required"`
	StartTime     string  `json:"start_time" validate:"required"`
	DurationHours float64 `json:"duration_hours" validate:"required,gt=0"`
}

// Create places a 15-minute hold on a slot and returns the reservation
// with its QR token and the price quote behind the estimate.
func (h *ReservationHandler) Create(c echo.Context) error {
	uid, ok := middleware.CurrentUserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthenticated"})
	}
	var req createReservationReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	start, err := time.Parse(time.RFC3339, req.StartTime)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "start_time must be RFC3339"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	res, quote, err := h.Svc.Create(ctx, uid, req.SlotID, start, req.DurationHours)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"reservation": renderReservation(res),
		"quote":       quote,
	})
}

// ListMine returns the caller's reservations, optionally filtered by
// ?status=.
func (h *ReservationHandler) ListMine(c echo.Context) error {
	uid, ok := middleware.CurrentUserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthenticated"})
	}
	status := model.ReservationStatus(c.QueryParam("status"))

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	list, err := h.Repo.ListByUser(ctx, uid, status)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"reservations": renderReservations(list)})
}

// Get returns one reservation.  Users see only their own; admins see
// all.
func (h *ReservationHandler) Get(c echo.Context) error {
	uid, ok := middleware.CurrentUserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthenticated"})
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	res, err := h.Repo.GetByID(ctx, id)
	if err != nil {
		return serviceError(c, err)
	}
	if res.UserID != uid && middleware.CurrentRole(c) != model.RoleAdmin {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}
	return c.JSON(http.StatusOK, echo.Map{"reservation": renderReservation(res)})
}

// CheckIn confirms a pending hold without a QR scan: payment settles
// immediately and the slot becomes occupied.
func (h *ReservationHandler) CheckIn(c echo.Context) error {
	uid, ok := middleware.CurrentUserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthenticated"})
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	asAdmin := middleware.CurrentRole(c) == model.RoleAdmin
	res, err := h.Svc.CheckIn(ctx, uid, id, asAdmin)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"reservation": renderReservation(res)})
}

// Cancel cancels the caller's reservation, refunding when it was paid.
func (h *ReservationHandler) Cancel(c echo.Context) error {
	uid, ok := middleware.CurrentUserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthenticated"})
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	res, err := h.Svc.Cancel(ctx, uid, id)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"reservation": renderReservation(res)})
}
