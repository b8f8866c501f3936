// Package handler contains the Echo HTTP handlers.  Handlers bind and
// validate request bodies, call into services and repositories, and
// translate domain errors to HTTP statuses; business rules live below
// this layer.
package handler

import (
	"database/sql"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/parksmart/parksmart-api/internal/pricing"
	"github.com/parksmart/parksmart-api/internal/qrtoken"
	"github.com/parksmart/parksmart-api/internal/repository"
	"github.com/parksmart/parksmart-api/internal/reservation"
	"github.com/parksmart/parksmart-api/internal/wallet"
)

// serviceError maps domain sentinel errors onto HTTP responses.
// Unknown errors become opaque 500s; their details are logged, not
// leaked to clients.
func serviceError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})

	case errors.Is(err, reservation.ErrInvalidDuration),
		errors.Is(err, wallet.ErrInvalidAmount),
		errors.Is(err, wallet.ErrInvalidPointsAmount),
		errors.Is(err, qrtoken.ErrTampered):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})

	case errors.Is(err, reservation.ErrNotAuthorized),
		errors.Is(err, reservation.ErrQRUserMismatch):
		return c.JSON(http.StatusForbidden, echo.Map{"error": err.Error()})

	case errors.Is(err, reservation.ErrSlotNotAvailable),
		errors.Is(err, reservation.ErrInvalidState),
		errors.Is(err, reservation.ErrHoldExpired),
		errors.Is(err, reservation.ErrAlreadyCheckedIn),
		errors.Is(err, reservation.ErrAlreadyCheckedOut),
		errors.Is(err, reservation.ErrNoEntryRecord),
		errors.Is(err, repository.ErrConflict):
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})

	case errors.Is(err, reservation.ErrInsufficientFunds),
		errors.Is(err, wallet.ErrInsufficientBalance),
		errors.Is(err, wallet.ErrInsufficientPoints):
		return c.JSON(http.StatusPaymentRequired, echo.Map{"error": err.Error()})

	case errors.Is(err, wallet.ErrUserNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": err.Error()})

	case errors.Is(err, pricing.ErrCalculation):
		c.Logger().Errorf("pricing: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "price calculation failed"})
	}
	c.Logger().Errorf("internal: %v", err)
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}
